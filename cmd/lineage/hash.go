package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lineage/pkg/digest"
)

var (
	hashJSON    bool
	hashPattern string
)

var hashCmd = &cobra.Command{
	Use:   "hash [path...]",
	Short: "Print SHA-256 digests of files",
	Long: `Print the SHA-256 digest of each file. A directory is scanned non-recursively;
unreadable files are listed with "-" in place of a digest.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hasher := digest.NewHasher(slog.Default())
		scanner := digest.NewScannerWithHasher(hasher)
		scanner.Pattern = hashPattern

		var records []digest.Record
		for _, path := range args {
			info, err := os.Stat(path)
			if err == nil && info.IsDir() {
				scanned, err := scanner.Scan(path)
				if err != nil {
					return fmt.Errorf("failed to scan directory: %w", err)
				}
				records = append(records, scanned...)
				continue
			}
			records = append(records, hasher.Record(path))
		}

		if hashJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(records); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
			return nil
		}

		failed := 0
		for _, r := range records {
			if !r.HasDigest() {
				failed++
				fmt.Printf("%-64s  %s\n", "-", r.Path)
				continue
			}
			fmt.Printf("%s  %s\n", *r.Digest, r.Path)
		}
		if failed > 0 {
			return fmt.Errorf("%d file(s) could not be hashed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().BoolVar(&hashJSON, "json", false, "Output in JSON format")
	hashCmd.Flags().StringVar(&hashPattern, "pattern", "", "Only hash directory entries matching this glob")
}
