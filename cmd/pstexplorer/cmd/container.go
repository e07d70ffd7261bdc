package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/stchris/pstexplorer/internal/output"
	"github.com/stchris/pstexplorer/internal/pst"
	"github.com/stchris/pstexplorer/internal/query"
)

// openEngine opens the container at path read-only. The returned close
// function releases the file.
func openEngine(path string) (*query.Engine, func(), error) {
	f, err := pst.Open(path)
	if err != nil {
		if pst.IsIO(err) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	e, err := query.NewEngine(f, logger)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Debug("opened container", "path", path, "format", f.Header().Format)
	return e, func() { f.Close() }, nil
}

// addLimitFlag registers --limit on cmd.
func addLimitFlag(cmd *cobra.Command, target *int, what string) {
	cmd.Flags().IntVar(target, "limit", 0, fmt.Sprintf("maximum number of %s (default: no limit)", what))
}

// resolveLimit returns the effective record limit: the flag when given,
// else def. A negative def means no limit.
func resolveLimit(cmd *cobra.Command, flag, def int) (int, error) {
	if cmd.Flags().Changed("limit") {
		if flag < 0 {
			return 0, fmt.Errorf("--limit must be a non-negative integer, got %d", flag)
		}
		return flag, nil
	}
	if def < 0 {
		return query.NoLimit, nil
	}
	return def, nil
}

// resolveFormat returns the --format flag or the configured default.
func resolveFormat(flag string) (output.Format, error) {
	if flag == "" {
		flag = cfg.Output.Format
	}
	return output.ParseFormat(flag)
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// terminalWidth returns the column count of w, or 0 when w is not a
// terminal.
func terminalWidth(w io.Writer) int {
	if !isTerminal(w) {
		return 0
	}
	width, _, err := term.GetSize(w.(*os.File).Fd())
	if err != nil {
		return 0
	}
	return width
}

// reportPartial prints the once-per-run summary of records that decoded
// only in part and references that were skipped.
func reportPartial(cmd *cobra.Command, partial, skipped int) {
	w := cmd.ErrOrStderr()
	if partial > 0 {
		fmt.Fprintf(w, "%d records partially decoded\n", partial)
	}
	if skipped > 0 {
		fmt.Fprintf(w, "%d folder or item references skipped\n", skipped)
	}
}
