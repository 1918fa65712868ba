package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how the recorder is wired",
	Long:  `Print the state of the sink, the recorder and the analytics bridge as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		s, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close(ctx)

		components := []introspection.Component{s.client.Sink, s.client.Recorder}
		if s.client.Bridge != nil {
			components = append(components, s.client.Bridge)
		}

		status := make(map[string]any, len(components))
		for _, c := range components {
			if st, ok := c.(introspection.Introspectable); ok {
				status[c.ComponentType()] = st.State()
			}
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(status); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
