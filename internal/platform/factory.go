package platform

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/lineage/pkg/adapters/fs"
	"github.com/aretw0/lineage/pkg/core"
	"github.com/aretw0/lineage/pkg/digest"
	"github.com/aretw0/lineage/pkg/git"
	"github.com/aretw0/lineage/pkg/jobstats"
)

// Client is a wired lineage recorder: a filesystem sink (optionally
// mirrored), the event factories' collaborators and, when configured, a
// job-statistics bridge.
type Client struct {
	Dir      string
	Sink     *fs.Sink
	Recorder *core.Recorder
	Bridge   *jobstats.Bridge // nil unless WithAnalytics was given
	Hasher   *digest.Hasher
	Scanner  *digest.Scanner

	logger   *slog.Logger
	clock    core.Clock
	resolver core.RemoteResolver
}

// New wires a Client writing documents to dir.
//
//	c, err := platform.New(ctx, "./lineage", platform.WithAutoInit(true))
func New(ctx context.Context, dir string, opts ...Option) (*Client, error) {
	o := applyOptions(opts)
	if o.logger == nil {
		o.logger = slog.Default()
	}

	resolved, err := prepareDir(dir, o)
	if err != nil {
		return nil, err
	}

	errorHandler, _ := o.config["watcher_error_handler"].(func(error))
	sink := fs.NewSink(fs.Config{
		Path:         resolved,
		Store:        o.store,
		Bucket:       o.bucket,
		BasePath:     o.basePath,
		FileMode:     o.fileMode,
		Logger:       o.logger,
		ErrorHandler: errorHandler,
	})

	c := &Client{
		Dir:    resolved,
		Sink:   sink,
		Hasher: digest.NewHasher(o.logger),
		logger: o.logger,
		clock:  o.clock,
	}
	c.Scanner = digest.NewScannerWithHasher(c.Hasher)

	switch {
	case o.noRepo:
	case o.resolver != nil:
		c.resolver = o.resolver
	default:
		c.resolver = git.NewResolver(o.logger)
	}

	publisher := o.publisher
	if publisher == nil && o.connector != nil {
		settings := o.analytics
		if settings.Clock == nil {
			settings.Clock = o.clock
		}
		c.Bridge = jobstats.New(ctx, o.connector, settings, o.logger)
		publisher = c.Bridge
	}
	c.Recorder = core.NewRecorder(sink, publisher, o.logger)

	return c, nil
}

// prepareDir applies the dev sandbox and makes sure the directory exists.
func prepareDir(dir string, o *options) (string, error) {
	tempDir, _ := o.config["temp_dir"].(bool)
	autoInit, _ := o.config["auto_init"].(bool)
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}

	useTemp := tempDir || (IsDevRun() && devSafety)
	resolved := ResolveDir(dir, useTemp)
	if useTemp && resolved != dir {
		o.logger.Warn("running in SAFE MODE (Dev/Test)", "original_path", dir, "resolved_path", resolved)
	}

	info, err := os.Stat(resolved)
	switch {
	case err == nil && !info.IsDir():
		return "", fmt.Errorf("%s is not a directory", resolved)
	case err == nil:
		return resolved, nil
	case !os.IsNotExist(err):
		return "", fmt.Errorf("failed to stat %s: %w", resolved, err)
	case autoInit || useTemp:
		if err := os.MkdirAll(resolved, 0755); err != nil {
			return "", fmt.Errorf("failed to create %s: %w", resolved, err)
		}
		return resolved, nil
	default:
		return "", fmt.Errorf("lineage directory %s does not exist", resolved)
	}
}

// EventOptions returns the options passed to the event factories.
func (c *Client) EventOptions() []core.EventOption {
	opts := []core.EventOption{core.WithEventLogger(c.logger)}
	if c.clock != nil {
		opts = append(opts, core.WithClock(c.clock))
	}
	if c.resolver != nil {
		opts = append(opts, core.WithRemoteResolver(c.resolver))
	}
	return opts
}

// Close releases the analytics client, if any.
func (c *Client) Close() error {
	if c.Bridge == nil {
		return nil
	}
	return c.Bridge.Close()
}
