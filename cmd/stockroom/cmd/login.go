package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Sign in and persist the session",
	Long: `Sign in against the Stockroom API and persist the resulting session.

The password is read from the --password flag, the STOCKROOM_PASSWORD
environment variable, or interactively from stdin, in that order.

Examples:
  stockroom login dana
  STOCKROOM_PASSWORD=... stockroom login dana`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prefer STOCKROOM_PASSWORD or the interactive prompt)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	username := args[0]

	password := loginPassword
	if password == "" {
		password = os.Getenv("STOCKROOM_PASSWORD")
	}
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return fmt.Errorf("a password is required")
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	sess, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%d permissions)\n",
		displayName(sess), len(sess.Permissions))
	return nil
}

func displayName(sess *session.Session) string {
	if sess.DisplayName != "" {
		return sess.DisplayName
	}
	return sess.UserID
}
