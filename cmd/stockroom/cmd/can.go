package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/stockroom-hq/stockroom-go/internal/domain/guard"
)

var canQuiet bool

var canCmd = &cobra.Command{
	Use:   "can <module> <action>",
	Short: "Check a module/action permission",
	Long: `Check whether the current session holds a permission.

Exits 0 when the permission is granted and 1 when it is not.

Examples:
  stockroom can Users Read
  stockroom can Products Create --quiet`,
	Args: cobra.ExactArgs(2),
	RunE: runCan,
}

func init() {
	canCmd.Flags().BoolVarP(&canQuiet, "quiet", "q", false, "no output, exit code only")
	rootCmd.AddCommand(canCmd)
}

func runCan(cmd *cobra.Command, args []string) error {
	module, action := args[0], args[1]

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	g := guard.New(a.perms, module, action,
		func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "allowed: %s/%s\n", module, action)
			return err
		},
		guard.WithFallback(func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "denied: %s/%s\n", module, action)
			return err
		}),
	)

	if !canQuiet {
		if err := g.Render(cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	if !g.Allowed() {
		// Distinguishable from flag/config errors via the exit code alone.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return errExitDenied
	}
	return nil
}

// errExitDenied maps a denied permission check to exit code 1.
var errExitDenied = errors.New("permission denied")
