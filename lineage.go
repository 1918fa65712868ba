package lineage

import (
	"context"
	"log/slog"
	"os"

	"github.com/aretw0/lineage/internal/config"
	"github.com/aretw0/lineage/internal/platform"
	"github.com/aretw0/lineage/pkg/core"
	"github.com/aretw0/lineage/pkg/digest"
	"github.com/aretw0/lineage/pkg/jobstats"
)

// --- Types ---

// Client is a wired lineage recorder.
type Client = platform.Client

// Config is the environment-derived configuration.
type Config = config.Config

// DataGeneration describes a synthetic data generation run.
type DataGeneration = core.DataGeneration

// ModelTraining describes a model training run.
type ModelTraining = core.ModelTraining

// FileRecord is a file path with its SHA-256 digest, if it could be computed.
type FileRecord = digest.Record

// --- Configuration ---

// Option defines a functional option for configuring a Client.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithClock replaces the clock used to timestamp events and records.
func WithClock(clock core.Clock) Option {
	return platform.WithClock(clock)
}

// WithRemoteResolver replaces the git-based resolver of taxonomy remotes.
func WithRemoteResolver(r core.RemoteResolver) Option {
	return platform.WithRemoteResolver(r)
}

// WithoutRemoteResolution disables taxonomy remote lookup.
func WithoutRemoteResolution() Option {
	return platform.WithoutRemoteResolution()
}

// WithObjectStore mirrors every document to store under bucket/basePath.
func WithObjectStore(store core.ObjectStore, bucket, basePath string) Option {
	return platform.WithObjectStore(store, bucket, basePath)
}

// WithFileMode sets the permissions of written documents.
func WithFileMode(mode os.FileMode) Option {
	return platform.WithFileMode(mode)
}

// WithPublisher injects the publisher that receives every recorded entry.
func WithPublisher(p core.Publisher) Option {
	return platform.WithPublisher(p)
}

// WithAnalytics publishes recorded entries as job statistics.
func WithAnalytics(connector jobstats.Connector, settings jobstats.Settings) Option {
	return platform.WithAnalytics(connector, settings)
}

// WithAutoInit creates the lineage directory when it does not exist.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithDevSafety controls the sandbox used when running via `go run`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler registers a callback for errors that stop a watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// New creates a Client writing lineage documents to dir.
func New(ctx context.Context, dir string, opts ...Option) (*Client, error) {
	return platform.New(ctx, dir, opts...)
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	return config.Load()
}

// FromConfig creates a Client from environment configuration. Extra options
// are applied after the ones derived from cfg.
func FromConfig(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	derived, err := platform.ConfigOptions(cfg)
	if err != nil {
		return nil, err
	}
	return platform.New(ctx, cfg.Dir, append(derived, opts...)...)
}

// --- Digests ---

// HashFile returns the hex SHA-256 digest of a file.
func HashFile(path string) (string, error) {
	return digest.HashFile(path)
}

// ScanDir hashes every regular file directly inside dir. Files that cannot be
// read are kept with a nil digest.
func ScanDir(dir string) ([]FileRecord, error) {
	return digest.NewScanner(slog.Default()).Scan(dir)
}

// --- Safety & Utils ---

// IsDevRun checks if the current process is running via `go run` or `go test`.
func IsDevRun() bool {
	return platform.IsDevRun()
}

// ResolveDir determines the directory documents are written to.
func ResolveDir(userPath string, forceTemp bool) string {
	return platform.ResolveDir(userPath, forceTemp)
}
