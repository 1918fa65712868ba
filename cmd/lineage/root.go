package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aretw0/lineage"
	"github.com/aretw0/lineage/internal/config"
	"github.com/aretw0/lineage/internal/telemetry"
	"github.com/aretw0/lineage/pkg/core"
)

var (
	verbose bool
	dir     string
	target  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lineage",
	Short: "Record the provenance of ML pipeline runs",
	Long: `Lineage records what each step of a training pipeline consumed and produced.
Every step of a run is merged into a single JSON document per lineage id,
optionally mirrored to object storage and published as job statistics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Warning: could not load .env: %v\n", err)
		}

		level := slog.LevelInfo
		if v := os.Getenv("LINEAGE_LOG_LEVEL"); v != "" {
			if lvl, err := config.ParseLevel(v); err == nil {
				level = lvl
			}
		}
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It is the only place the CLI exits with an
// error status, so commands release their session before it happens.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dir, "dir", "d", "", "Lineage directory (default $LINEAGE_DIR or .)")
	rootCmd.PersistentFlags().StringVarP(&target, "target", "t", "", "Document name (default <lineage-id>_lineage.json)")
}

// session is an opened client plus the resources to release with it.
type session struct {
	client   *lineage.Client
	cfg      lineage.Config
	shutdown telemetry.Shutdown
}

// openSession loads configuration and wires a client.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := lineage.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if dir != "" {
		cfg.Dir = dir
	}

	shutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, strings.TrimSpace(lineage.Version), cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	client, err := lineage.FromConfig(ctx, cfg,
		lineage.WithLogger(slog.Default()),
		lineage.WithAutoInit(true),
	)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("failed to initialize lineage: %w", err)
	}
	return &session{client: client, cfg: cfg, shutdown: shutdown}, nil
}

func (s *session) Close(ctx context.Context) {
	if err := s.client.Close(); err != nil {
		slog.Warn("failed to close analytics client", "error", err)
	}
	if err := s.shutdown(ctx); err != nil {
		slog.Warn("failed to flush telemetry", "error", err)
	}
}

// documentName maps a lineage id or document name to a document name.
func documentName(arg string) string {
	if strings.HasSuffix(arg, ".json") {
		return arg
	}
	return core.DefaultTarget(arg)
}
