package platform

import (
	"fmt"

	"github.com/aretw0/lineage/internal/config"
	"github.com/aretw0/lineage/pkg/adapters/mirror"
	"github.com/aretw0/lineage/pkg/adapters/s3"
	"github.com/aretw0/lineage/pkg/adapters/sqltable"
	"github.com/aretw0/lineage/pkg/jobstats"
)

// ConfigOptions translates environment configuration into options: the
// remote mirror (S3 endpoint or mirror directory) and the analytics backend.
func ConfigOptions(cfg config.Config) ([]Option, error) {
	var opts []Option

	switch {
	case cfg.S3Endpoint != "":
		store, err := s3.New(s3.Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure object store: %w", err)
		}
		opts = append(opts, WithObjectStore(store, cfg.Bucket, cfg.BasePath))
	case cfg.MirrorDir != "":
		opts = append(opts, WithObjectStore(mirror.New(cfg.MirrorDir), cfg.Bucket, cfg.BasePath))
	}

	if cfg.Publishing() {
		opts = append(opts, WithAnalytics(
			sqltable.Connector{Table: cfg.AnalyticsTable},
			jobstats.Settings{
				Environment: cfg.AnalyticsEnv,
				Credential:  cfg.AnalyticsToken,
				Table:       cfg.AnalyticsTable,
			},
		))
	}
	return opts, nil
}
