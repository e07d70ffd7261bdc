package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

// Set at build time via -ldflags "-X .../cmd.Version=v0.3.0 ...".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// displayVersion returns Version in canonical vMAJOR.MINOR.PATCH form, or
// the raw string marked as a development build when it is not a release.
func displayVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) || semver.Prerelease(v) != "" {
		return strings.TrimPrefix(v, "v") + " (development build)"
	}
	return semver.Canonical(v)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "pstexplorer %s\n", displayVersion(Version))
		fmt.Fprintf(w, "  commit: %s\n", Commit)
		fmt.Fprintf(w, "  built:  %s\n", BuildDate)
		fmt.Fprintf(w, "  go:     %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
