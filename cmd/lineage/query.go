package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	queryJob  string
	queryYAML bool
)

var queryCmd = &cobra.Command{
	Use:   "query [lineage-id]",
	Short: "List published job statistics of a run",
	Long:  `List the job-statistics records of a lineage id, optionally filtered by a substring of the job name (--job).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		rows := s.client.Query(ctx, args[0], queryJob)
		if rows == nil {
			return errors.New("no results")
		}

		if queryYAML {
			if err := yaml.NewEncoder(os.Stdout).Encode(rows); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
			return nil
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(rows); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVar(&queryJob, "job", "", "Substring of the job name")
	queryCmd.Flags().BoolVar(&queryYAML, "yaml", false, "Output in YAML format")
}
