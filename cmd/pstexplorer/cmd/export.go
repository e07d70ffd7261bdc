package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stchris/pstexplorer/internal/export"
	"github.com/stchris/pstexplorer/internal/query"
)

var (
	exportOutput string
	exportLimit  int
)

var exportCmd = &cobra.Command{
	Use:   "export <file.pst>",
	Short: "Export a container to a SQLite database",
	Long: `Export every folder and item of a PST container into a SQLite database.

The database has a folders table and a messages table; each message row
carries its attachment count. By default it is written as <name>.db in the
current directory, or in [export] dir when set. An existing database at the
destination is replaced only once the export has completed; an interrupted
export leaves it untouched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := resolveLimit(cmd, exportLimit, query.NoLimit)
		if err != nil {
			return err
		}
		dest := exportOutput
		if dest == "" {
			dest = export.DefaultPath(args[0], cfg.Export.Dir)
		}

		e, closeFile, err := openEngine(args[0])
		if err != nil {
			return err
		}
		defer closeFile()

		sum, err := export.New(e, logger).Export(cmd.Context(), dest, export.Options{Limit: limit})
		if err != nil {
			return fmt.Errorf("export %s: %w", dest, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d messages (%d attachments) from %d folders to %s\n",
			sum.Messages, sum.Attachments, sum.Folders, sum.Path)
		reportPartial(cmd, sum.Partial, sum.Skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output database path (default: <name>.db)")
	addLimitFlag(exportCmd, &exportLimit, "messages")
	rootCmd.AddCommand(exportCmd)
}
