package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/lineage/pkg/adapters/fs"
)

var (
	watchPattern string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Republish lineage documents as they change",
	Long: `Watch the lineage directory and publish every document that is created or
rewritten to the analytics table. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(context.Background())

		fmt.Printf("Watching %s for %s (Ctrl+C to stop)\n", s.client.Dir, watchPattern)
		err = s.client.WatchAndPublish(ctx, watchPattern, func(target string, published int) {
			fmt.Printf("%s: published %d entries\n", target, published)
		})
		if err != nil {
			return fmt.Errorf("watch failed: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchPattern, "pattern", fs.DefaultWatchPattern, "Glob of document names to publish")
}
