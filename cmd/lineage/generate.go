package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/lineage"
	"github.com/aretw0/lineage/pkg/core"
)

var (
	genID           string
	genGenerator    string
	genTaxonomy     string
	genTaxonomyTree string
	genEndpoint     string
	genInstructions int
	genOutputDir    string
	genFiles        []string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Record a synthetic data generation step",
	Long: `Record a data generation event. Generated files are hashed, either one by one
(--file) or every regular file of --output-dir. The taxonomy repository URL is
read from the git remote of --taxonomy-path when there is one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genGenerator == "" || genTaxonomy == "" {
			return fmt.Errorf("--generator and --taxonomy-path are required")
		}
		if genID == "" {
			genID = uuid.NewString()
		}

		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		var files []lineage.FileRecord
		if genOutputDir != "" {
			scanned, err := s.client.Scanner.Scan(genOutputDir)
			if err != nil {
				return fmt.Errorf("failed to scan output directory: %w", err)
			}
			files = append(files, scanned...)
		}
		for _, path := range genFiles {
			files = append(files, s.client.Hasher.Record(path))
		}

		out, published, err := s.client.RecordGeneration(ctx, lineage.DataGeneration{
			LineageID:                 genID,
			GeneratorName:             genGenerator,
			TaxonomyPath:              genTaxonomy,
			TaxonomyTreePath:          genTaxonomyTree,
			GeneratorEndpoint:         genEndpoint,
			GeneratedFiles:            files,
			RequestedInstructionCount: genInstructions,
		}, saveOptions()...)
		if err != nil {
			return fmt.Errorf("failed to record data generation: %w", err)
		}
		report(out, published, s.client.Bridge != nil)
		fmt.Println(genID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&genID, "id", "", "Lineage id (default: new UUID)")
	generateCmd.Flags().StringVar(&genGenerator, "generator", "", "Synthetic data generator name")
	generateCmd.Flags().StringVar(&genTaxonomy, "taxonomy-path", "", "Path of the taxonomy checkout")
	generateCmd.Flags().StringVar(&genTaxonomyTree, "taxonomy-tree-path", "", "Taxonomy subtree used for generation")
	generateCmd.Flags().StringVar(&genEndpoint, "endpoint", "", "Generator server endpoint")
	generateCmd.Flags().IntVar(&genInstructions, "instructions", 0, "Number of instructions requested")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "", "Directory of generated files to hash")
	generateCmd.Flags().StringSliceVar(&genFiles, "file", nil, "Generated file to hash (repeatable)")
}

func saveOptions() []core.SaveOption {
	if target == "" {
		return nil
	}
	return []core.SaveOption{core.WithTarget(target)}
}

// report logs what a save did.
func report(out core.Outcome, published, publishing bool) {
	attrs := []any{"file", out.Path}
	if out.RemoteKey != "" {
		attrs = append(attrs, "remote_key", out.RemoteKey, "fetched", out.Fetched, "mirrored", out.Mirrored)
	}
	if publishing {
		attrs = append(attrs, "published", published)
	}
	slog.Info("lineage recorded", attrs...)
}
