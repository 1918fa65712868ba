package platform

import (
	"log/slog"
	"os"

	"github.com/aretw0/lineage/pkg/core"
	"github.com/aretw0/lineage/pkg/jobstats"
)

// options holds the internal configuration for a lineage recorder.
type options struct {
	logger   *slog.Logger
	clock    core.Clock
	resolver core.RemoteResolver
	noRepo   bool

	store    core.ObjectStore
	bucket   string
	basePath string
	fileMode os.FileMode

	publisher core.Publisher
	connector jobstats.Connector
	analytics jobstats.Settings

	config map[string]any
}

// Option defines a functional option for configuring a recorder.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		config: make(map[string]any),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the clock used to timestamp events and records.
func WithClock(clock core.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRemoteResolver replaces the git-based resolver of taxonomy remotes.
func WithRemoteResolver(r core.RemoteResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithoutRemoteResolution disables taxonomy remote lookup altogether.
func WithoutRemoteResolution() Option {
	return func(o *options) {
		o.noRepo = true
	}
}

// WithObjectStore mirrors every document to store under bucket/basePath.
func WithObjectStore(store core.ObjectStore, bucket, basePath string) Option {
	return func(o *options) {
		o.store = store
		o.bucket = bucket
		o.basePath = basePath
	}
}

// WithFileMode sets the permissions of written documents. Defaults to 0644.
func WithFileMode(mode os.FileMode) Option {
	return func(o *options) {
		o.fileMode = mode
	}
}

// WithPublisher injects the publisher that receives every recorded entry.
// It takes precedence over WithAnalytics.
func WithPublisher(p core.Publisher) Option {
	return func(o *options) {
		o.publisher = p
	}
}

// WithAnalytics publishes recorded entries as job statistics through a
// client obtained from connector.
func WithAnalytics(connector jobstats.Connector, settings jobstats.Settings) Option {
	return func(o *options) {
		o.connector = connector
		o.analytics = settings
	}
}

// WithAutoInit creates the sink directory when it does not exist.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithForceTemp forces the use of a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true), documents go to a temporary directory so that
// development runs do not write lineage files into the working tree.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}

// WithWatcherErrorHandler registers a callback for errors that stop a watch
// loop started by Watch.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}
