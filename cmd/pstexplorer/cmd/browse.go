package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stchris/pstexplorer/internal/tui"
)

var errNotTerminal = errors.New("browse needs an interactive terminal")

var browseCmd = &cobra.Command{
	Use:   "browse <file.pst>",
	Short: "Browse a container interactively",
	Long: `Open an interactive terminal browser over a PST container.

Navigation:
  ↑/k, ↓/j       Move up/down
  PgUp/PgDn      Page up/down
  Enter          Open folder / view item
  →/l, Tab       Show subfolders
  Esc, ←/h       Go back
  /              Search the whole container
  q              Quit`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isTerminal(cmd.OutOrStdout()) {
			return errNotTerminal
		}
		e, closeFile, err := openEngine(args[0])
		if err != nil {
			return err
		}
		defer closeFile()

		ctx := cmd.Context()
		b, err := tui.NewBrowser(ctx, e)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		model := tui.New(b, tui.Options{
			Name:     filepath.Base(args[0]),
			Version:  displayVersion(Version),
			PageSize: cfg.Browse.PageSize,
		})
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx),
			tea.WithInput(cmd.InOrStdin()), tea.WithOutput(cmd.OutOrStdout()))
		if _, err := p.Run(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("run browser: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
