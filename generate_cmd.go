package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"listing-importer/services"
)

var generateCmd = &cobra.Command{
	Use:   "generate <count> <filepath>",
	Short: "Write a TSV file of mock listings",
	Long:  "Writes <count> valid listing lines to <filepath>, for trying out imports. The same seed always produces the same file.",
	Args:  cobra.ExactArgs(2),
	RunE:  runGenerate,
}

var generateSeed uint64

func init() {
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 1, "Random seed")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	count, err := strconv.Atoi(args[0])
	if err != nil || count < 1 {
		return fmt.Errorf("count must be a positive integer, got %q", args[0])
	}
	path := args[1]

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := services.NewGenerator(generateSeed).Write(f, count); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d rows written to %s\n", count, path)
	return nil
}
