package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stockroom-hq/stockroom-go/internal/adapter/outbound/rest"
)

var (
	callData   string
	callParams []string
)

var callCmd = &cobra.Command{
	Use:   "call <method> <path>",
	Short: "Issue an API request",
	Long: `Issue a request against the Stockroom API with the current session.

Credentials are attached and refreshed automatically. The response body
is printed as indented JSON.

Examples:
  stockroom call GET /inventory/items
  stockroom call GET /inventory/items --param warehouse=north
  stockroom call POST /inventory/items --data '{"sku":"W-1","name":"Widget"}'`,
	Args: cobra.ExactArgs(2),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVarP(&callData, "data", "d", "", "JSON request body")
	callCmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "query parameter as key=value (repeatable)")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	method := strings.ToUpper(args[0])
	path := args[1]
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body any
	if callData != "" {
		if err := json.Unmarshal([]byte(callData), &body); err != nil {
			return fmt.Errorf("invalid --data JSON: %w", err)
		}
	}

	var opts []rest.RequestOption
	for _, p := range callParams {
		key, value, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		opts = append(opts, rest.WithParam(key, value))
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	var out json.RawMessage
	if err := a.client.Do(ctx, method, path, body, &out, opts...); err != nil {
		return err
	}

	if len(out) == 0 {
		return nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, out, "", "  "); err != nil {
		// Not JSON after all; print as-is.
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
	return nil
}
