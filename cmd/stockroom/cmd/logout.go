package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the session",
	Long: `Clear the persisted session and revoke it server-side.

The local session is always cleared, even when the server cannot be
reached; the revocation is best-effort.`,
	Args: cobra.NoArgs,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if a.sessions.Current() == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		return nil
	}

	if err := a.client.Logout(ctx); err != nil {
		// Local state is already gone; the server-side revoke failing is
		// worth a note but not a failed exit.
		a.logger.Warn("server-side sign-out failed", "error", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
	return nil
}
