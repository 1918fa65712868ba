package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [lineage-id | document]",
	Short: "Publish a lineage document as job statistics",
	Long: `Publish every entry of a stored lineage document to the analytics table
configured by LINEAGE_ANALYTICS_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		name := documentName(args[0])
		n, err := s.client.Republish(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to publish %s: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Published %d entries of '%s'.\n", n, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
