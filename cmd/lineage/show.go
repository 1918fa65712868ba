package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	showYAML bool
)

var showCmd = &cobra.Command{
	Use:   "show [lineage-id | document]",
	Short: "Print a lineage document",
	Long:  `Print a lineage document as stored (JSON), or as YAML with --yaml.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		doc, err := s.client.Load(ctx, documentName(args[0]))
		if err != nil {
			return fmt.Errorf("failed to read document: %w", err)
		}

		if !showYAML {
			_, err := os.Stdout.Write(doc.Bytes())
			return err
		}

		out, err := toYAML(doc.Bytes())
		if err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVar(&showYAML, "yaml", false, "Output in YAML format")
}

// toYAML re-encodes a JSON document as block-style YAML, keeping key order.
func toYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, child := range n.Content {
		blockStyle(child)
	}
}
