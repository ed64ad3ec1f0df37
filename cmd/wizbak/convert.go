package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/wizbak/internal/backup"
)

var convertCmd = &cobra.Command{
	Use:   "convert <src-dir>",
	Short: "Convert downloaded block-tree JSON files to Markdown offline",
	Long: `Convert walks a directory of raw block-tree JSON files (as downloaded
by backup, or exported from the service) and converts each one to
Markdown without touching the network. Individual failures are reported
and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")

		result, err := backup.ConvertTree(args[0], outDir, os.Stdout)
		if err != nil {
			return err
		}
		if result.HasFailures() {
			return fmt.Errorf("%d file(s) failed conversion", result.Failed)
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().String("out", "converted", "output directory for Markdown files")

	rootCmd.AddCommand(convertCmd)
}
