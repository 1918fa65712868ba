// Package config loads and validates configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	// Local sink settings.
	Dir string // directory holding lineage documents

	// Remote mirror settings. At most one of S3Endpoint and MirrorDir is set.
	Bucket          string
	BasePath        string // object key prefix
	S3Endpoint      string
	S3Region        string
	AccessKeyID     string
	SecretAccessKey string
	MirrorDir       string // directory-tree mirror for offline use

	// Analytics settings.
	AnalyticsEnv   string // environment tag stored on job-statistics records
	AnalyticsToken string // analytics DSN; empty disables publishing
	AnalyticsTable string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool
	ServiceName  string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	insecure, err := envBool("OTEL_EXPORTER_OTLP_INSECURE", false)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	cfg := Config{
		Dir:             envStr("LINEAGE_DIR", "."),
		Bucket:          envStr("LINEAGE_BUCKET", "lh-test"),
		BasePath:        envStr("LINEAGE_BASE_PATH", "exp1"),
		S3Endpoint:      envStr("LINEAGE_S3_ENDPOINT", ""),
		S3Region:        envStr("LINEAGE_S3_REGION", "us-east"),
		AccessKeyID:     envStr("KEY_ID", ""),
		SecretAccessKey: envStr("ACCESS_KEY", ""),
		MirrorDir:       envStr("LINEAGE_MIRROR_DIR", ""),
		AnalyticsEnv:    envStr("LINEAGE_ANALYTICS_ENV", "dev"),
		AnalyticsToken:  envStr("LINEAGE_ANALYTICS_TOKEN", ""),
		AnalyticsTable:  envStr("LINEAGE_ANALYTICS_TABLE", "job_stats"),
		OTELEndpoint:    envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:    insecure,
		ServiceName:     envStr("OTEL_SERVICE_NAME", "lineage"),
		LogLevel:        envStr("LINEAGE_LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that required configuration is present.
func (c Config) Validate() error {
	if c.S3Endpoint != "" && c.MirrorDir != "" {
		return fmt.Errorf("config: LINEAGE_S3_ENDPOINT and LINEAGE_MIRROR_DIR are mutually exclusive")
	}
	if c.S3Endpoint != "" && (c.AccessKeyID == "" || c.SecretAccessKey == "") {
		return fmt.Errorf("config: KEY_ID and ACCESS_KEY are required with LINEAGE_S3_ENDPOINT")
	}
	if c.Mirrored() && c.Bucket == "" {
		return fmt.Errorf("config: LINEAGE_BUCKET is required when a remote mirror is configured")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: LINEAGE_LOG_LEVEL: %w", err)
	}
	return nil
}

// Mirrored reports whether a remote mirror is configured.
func (c Config) Mirrored() bool {
	return c.S3Endpoint != "" || c.MirrorDir != ""
}

// Publishing reports whether an analytics backend is configured.
func (c Config) Publishing() bool {
	return c.AnalyticsToken != ""
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
