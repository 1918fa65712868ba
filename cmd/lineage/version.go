package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/lineage"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of lineage",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("lineage version %s\n", strings.TrimSpace(lineage.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
