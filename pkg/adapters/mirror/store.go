// Package mirror implements core.ObjectStore on a local directory tree, laid
// out as <root>/<bucket>/<key>. It stands in for a remote bucket on
// air-gapped machines or shared network mounts, and in tests.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aretw0/introspection"

	"github.com/aretw0/lineage/pkg/core"
)

// ErrObjectNotFound is returned by Download when the key does not exist.
var ErrObjectNotFound = errors.New("mirror: object not found")

// Store is a directory-backed object store.
type Store struct {
	Root string
}

// New creates a Store rooted at root.
func New(root string) *Store {
	return &Store{Root: root}
}

func (s *Store) objectPath(bucket, key string) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("mirror: bucket is required")
	}
	rel := filepath.Join(bucket, filepath.FromSlash(key))
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("mirror: invalid object key %q", key)
	}
	return filepath.Join(s.Root, rel), nil
}

// Download copies bucket/key into localPath.
func (s *Store) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s", ErrObjectNotFound, bucket, key)
	}
	return copyFile(src, localPath)
}

// Upload copies localPath to bucket/key, creating intermediate directories.
func (s *Store) Upload(ctx context.Context, localPath, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := s.objectPath(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("mirror: failed to create directories: %w", err)
	}
	return copyFile(localPath, dst)
}

// copyFile copies src to dst through a temp file and rename.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".mirror-*")
	if err != nil {
		return fmt.Errorf("mirror: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return fmt.Errorf("mirror: copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	return nil
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return map[string]string{"root": s.Root}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "mirror"
}

var (
	_ core.ObjectStore             = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)
