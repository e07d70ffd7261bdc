package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stchris/pstexplorer/internal/output"
	"github.com/stchris/pstexplorer/internal/query"
)

var (
	listFormat  string
	listLimit   int
	searchLimit int
)

var listCmd = &cobra.Command{
	Use:   "list <file.pst>",
	Short: "List every item in a container",
	Long: `List every item of a PST container in folder order.

Each row carries folder, subject, sender, recipients and date.
Use --format to pick table (default), csv, tsv or json.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := resolveLimit(cmd, listLimit, cfg.List.Limit)
		if err != nil {
			return err
		}
		return runRecords(cmd, args[0], func(e *query.Engine) *query.Cursor {
			return e.List(cmd.Context(), limit)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <file.pst> <query>",
	Short: "Search items by sender, recipients or body",
	Long: `Search a PST container for items whose sender, To, Cc or body text
contains the query (case-insensitive). Subjects are not searched.

Results come in folder order; --limit stops the scan once enough items match.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, err := resolveLimit(cmd, searchLimit, cfg.List.Limit)
		if err != nil {
			return err
		}
		if args[1] == "" {
			return fmt.Errorf("search query must not be empty")
		}
		return runRecords(cmd, args[0], func(e *query.Engine) *query.Cursor {
			return e.Search(cmd.Context(), args[1], limit)
		})
	},
}

// runRecords opens path, drains the cursor built by open into the chosen
// writer and reports partially decoded records on stderr.
func runRecords(cmd *cobra.Command, path string, open func(*query.Engine) *query.Cursor) error {
	format, err := resolveFormat(listFormat)
	if err != nil {
		return err
	}
	e, closeFile, err := openEngine(path)
	if err != nil {
		return err
	}
	defer closeFile()

	out := cmd.OutOrStdout()
	w, err := output.NewRecordWriter(out, format, terminalWidth(out))
	if err != nil {
		return err
	}

	c := open(e)
	defer c.Close()
	for c.Next() {
		if err := w.Write(c.Record()); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := c.Err(); err != nil {
		return err
	}
	reportPartial(cmd, c.Partial(), e.Skipped())
	return nil
}

func init() {
	for _, c := range []*cobra.Command{listCmd, searchCmd} {
		c.Flags().StringVarP(&listFormat, "format", "f", "", "output format: table, csv, tsv or json (default from config)")
	}
	addLimitFlag(listCmd, &listLimit, "items")
	addLimitFlag(searchCmd, &searchLimit, "matches")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
}
