package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/lineage"
)

var (
	trainID           string
	trainEpochs       int
	trainData         string
	trainTestData     string
	trainBaseModel    string
	trainTrainedModel string
	trainModelFiles   []string
	trainStatsFile    string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Record a model training step",
	Long: `Record a model training event for an existing lineage id.
Training statistics are read from a YAML or JSON file (--stats).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if trainID == "" || trainBaseModel == "" || trainTrainedModel == "" {
			return fmt.Errorf("--id, --base-model and --trained-model are required")
		}

		stats, err := readStats(trainStatsFile)
		if err != nil {
			return fmt.Errorf("failed to read statistics: %w", err)
		}

		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		out, published, err := s.client.RecordTraining(ctx, lineage.ModelTraining{
			LineageID:         trainID,
			EpochCount:        trainEpochs,
			TrainDataRef:      trainData,
			TestDataRef:       trainTestData,
			Statistics:        stats,
			BaseModelRef:      trainBaseModel,
			TrainedModelRef:   trainTrainedModel,
			TrainedModelFiles: trainModelFiles,
		}, saveOptions()...)
		if err != nil {
			return fmt.Errorf("failed to record model training: %w", err)
		}
		report(out, published, s.client.Bridge != nil)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().StringVar(&trainID, "id", "", "Lineage id")
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 0, "Number of epochs")
	trainCmd.Flags().StringVar(&trainData, "train-data", "", "Training data path")
	trainCmd.Flags().StringVar(&trainTestData, "test-data", "", "Test data path")
	trainCmd.Flags().StringVar(&trainBaseModel, "base-model", "", "Base model reference")
	trainCmd.Flags().StringVar(&trainTrainedModel, "trained-model", "", "Trained model reference")
	trainCmd.Flags().StringSliceVar(&trainModelFiles, "model-file", nil, "Trained model file (repeatable)")
	trainCmd.Flags().StringVar(&trainStatsFile, "stats", "", "YAML or JSON file of training statistics")
}

// readStats decodes a statistics file. YAML is a superset of JSON, so one
// decoder serves both.
func readStats(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var stats map[string]any
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for k, v := range stats {
		stats[k] = stringKeys(v)
	}
	return stats, nil
}

// stringKeys rewrites YAML mappings with non-string keys (e.g. per-epoch
// values keyed by epoch number) as map[string]any so they encode as JSON.
func stringKeys(v any) any {
	switch val := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = stringKeys(item)
		}
		return out
	case map[string]any:
		for k, item := range val {
			val[k] = stringKeys(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = stringKeys(item)
		}
		return val
	}
	return v
}
