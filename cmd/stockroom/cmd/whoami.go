package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	sess := a.sessions.Current()
	if sess == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "User:         %s (%s)\n", displayName(sess), sess.UserID)
	fmt.Fprintf(out, "Access token: %s\n", session.RedactToken(sess.AccessToken))
	if sess.AccessExpired(0) {
		fmt.Fprintf(out, "Expires:      expired (refresh on next call)\n")
	} else {
		fmt.Fprintf(out, "Expires:      %s (in %s)\n",
			sess.AccessExpiresAt.Format(time.RFC3339),
			time.Until(sess.AccessExpiresAt).Round(time.Second))
	}
	fmt.Fprintf(out, "Permissions:  %d\n", len(sess.Permissions))
	for _, g := range sess.Permissions {
		fmt.Fprintf(out, "  %s/%s\n", g.Module, g.Action)
	}
	return nil
}
