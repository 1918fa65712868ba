// Package s3 implements core.ObjectStore on any S3-compatible endpoint
// (AWS S3, IBM COS, MinIO) using minio-go.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/aretw0/introspection"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/aretw0/lineage/pkg/core"
)

// Config describes the connection to an S3-compatible service.
type Config struct {
	// Endpoint is the service URL, e.g. "https://s3.us-east.cloud-object-storage.appdomain.cloud".
	// A bare host is treated as https.
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Store is an S3-backed object store.
type Store struct {
	client   *minio.Client
	endpoint string
	region   string
}

// New connects a Store. No request is made until the first transfer.
func New(cfg Config) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3: endpoint is required")
	}
	host, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3: failed to create client: %w", err)
	}
	return &Store{client: client, endpoint: host, region: cfg.Region}, nil
}

// splitEndpoint turns an endpoint URL into the host form minio expects.
func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("s3: invalid endpoint %q: %w", endpoint, err)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("s3: unsupported endpoint scheme %q", u.Scheme)
	}
}

// Download copies bucket/key into localPath.
func (s *Store) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := s.client.FGetObject(ctx, bucket, key, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("s3: get %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Upload copies localPath to bucket/key.
func (s *Store) Upload(ctx context.Context, localPath, bucket, key string) error {
	_, err := s.client.FPutObject(ctx, bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("s3: put %s/%s: %w", bucket, key, err)
	}
	return nil
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]string{
		"endpoint": s.endpoint,
		"region":   s.region,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "s3"
}

var (
	_ core.ObjectStore             = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)
