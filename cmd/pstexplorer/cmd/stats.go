package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stchris/pstexplorer/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats <file.pst>",
	Short: "Show container statistics",
	Long: `Show folder and item counts, attachment totals and the date range
of a PST container. Requires one full pass over the container.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, closeFile, err := openEngine(args[0])
		if err != nil {
			return err
		}
		defer closeFile()

		stats, err := e.Stats(cmd.Context())
		if err != nil {
			return err
		}
		if err := output.WriteStats(cmd.OutOrStdout(), filepath.Base(args[0]), stats); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		reportPartial(cmd, stats.Partial, stats.Skipped)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
