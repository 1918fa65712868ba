package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"LINEAGE_DIR", "LINEAGE_BUCKET", "LINEAGE_BASE_PATH", "LINEAGE_S3_ENDPOINT",
		"LINEAGE_S3_REGION", "KEY_ID", "ACCESS_KEY", "LINEAGE_MIRROR_DIR",
		"LINEAGE_ANALYTICS_ENV", "LINEAGE_ANALYTICS_TOKEN", "LINEAGE_ANALYTICS_TABLE",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE", "OTEL_SERVICE_NAME",
		"LINEAGE_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ".", cfg.Dir)
	assert.Equal(t, "lh-test", cfg.Bucket)
	assert.Equal(t, "exp1", cfg.BasePath)
	assert.Equal(t, "us-east", cfg.S3Region)
	assert.Equal(t, "dev", cfg.AnalyticsEnv)
	assert.Equal(t, "job_stats", cfg.AnalyticsTable)
	assert.Equal(t, "lineage", cfg.ServiceName)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.OTELInsecure)
	assert.False(t, cfg.Mirrored())
	assert.False(t, cfg.Publishing())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("LINEAGE_DIR", "/var/lineage")
	t.Setenv("LINEAGE_BUCKET", "prod-bucket")
	t.Setenv("LINEAGE_S3_ENDPOINT", "https://s3.example.com")
	t.Setenv("KEY_ID", "id")
	t.Setenv("ACCESS_KEY", "secret")
	t.Setenv("LINEAGE_MIRROR_DIR", "")
	t.Setenv("LINEAGE_ANALYTICS_TOKEN", "postgres://u:p@db/analytics")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("LINEAGE_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/var/lineage", cfg.Dir)
	assert.Equal(t, "prod-bucket", cfg.Bucket)
	assert.True(t, cfg.Mirrored())
	assert.True(t, cfg.Publishing())
	assert.True(t, cfg.OTELInsecure)
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "maybe")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `OTEL_EXPORTER_OTLP_INSECURE="maybe" is not a valid boolean`)
}

func TestValidate(t *testing.T) {
	valid := Config{Bucket: "b", LogLevel: "info"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"both mirrors", func(c *Config) { c.S3Endpoint = "https://s3"; c.MirrorDir = "/m"; c.AccessKeyID = "a"; c.SecretAccessKey = "s" }},
		{"s3 without credentials", func(c *Config) { c.S3Endpoint = "https://s3" }},
		{"mirror without bucket", func(c *Config) { c.MirrorDir = "/m"; c.Bucket = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mod(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestEnvBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "1")
	v, err := envBool("TEST_BOOL", false)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = envBool("TEST_BOOL_MISSING", true)
	require.NoError(t, err)
	assert.True(t, v)
}
