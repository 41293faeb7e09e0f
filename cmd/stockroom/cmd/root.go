// Package cmd provides the CLI commands for the Stockroom client.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/stockroom-hq/stockroom-go/internal/adapter/outbound/rest"
	"github.com/stockroom-hq/stockroom-go/internal/adapter/outbound/state"
	"github.com/stockroom-hq/stockroom-go/internal/config"
	"github.com/stockroom-hq/stockroom-go/internal/domain/permission"
	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
	"github.com/stockroom-hq/stockroom-go/internal/service"
	"github.com/stockroom-hq/stockroom-go/internal/telemetry"
)

var cfgFile string
var serverAddr string

var rootCmd = &cobra.Command{
	Use:   "stockroom",
	Short: "Stockroom - business API client",
	Long: `Stockroom is a command-line client for the Stockroom business API.

It signs in against the remote authority, keeps the session on disk
between invocations, refreshes credentials transparently, and checks
module/action permissions before acting.

Quick start:
  1. Create a config file: stockroom config init
  2. Sign in: stockroom login <username>
  3. Call the API: stockroom call GET /inventory/items

Configuration:
  Config is loaded from stockroom.yaml in the current directory,
  $HOME/.stockroom/, or /etc/stockroom/.

  Environment variables can override config values with the STOCKROOM_ prefix.
  Example: STOCKROOM_SERVER_BASE_URL=https://api.example.com

Commands:
  login       Sign in and persist the session
  logout      Sign out and clear the session
  whoami      Show the current session
  can         Check a module/action permission
  call        Issue an API request
  config      Manage configuration
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if printableError(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// printableError reports whether err should be written to stderr before
// the nonzero exit. A denied `can` check communicates through the exit
// code alone.
func printableError(err error) bool {
	return !errors.Is(err, errExitDenied)
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./stockroom.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "API base URL (overrides config)")
}

func initConfig() {
	config.InitViper(cfgFile)
}

// app holds the wired components a command needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sessions *service.SessionStore
	client   *rest.Client
	perms    *permission.Evaluator

	shutdown func(context.Context) error
	closers  []func() error
}

// buildApp loads config and wires logger, telemetry, persistence, session
// store, transport client, and permission evaluator. Callers must defer
// a.close().
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if serverAddr != "" {
		cfg.Server.BaseURL = serverAddr
	}

	logger := newLogger(cfg)
	if file := config.ConfigFileUsed(); file != "" {
		logger.Debug("loaded config", "file", file)
	}

	shutdown, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "stockroom",
		ServiceVersion: Version,
		Writer:         os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up telemetry: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, shutdown: shutdown}

	persistence, err := a.newPersistence()
	if err != nil {
		return nil, err
	}

	a.sessions = service.NewSessionStore(persistence, logger)
	a.client = rest.NewClient(a.sessions,
		rest.WithBaseURL(cfg.Server.BaseURL),
		rest.WithTimeout(cfg.TimeoutDuration()),
		rest.WithRefreshSkew(cfg.RefreshSkewDuration()),
		rest.WithLogger(logger),
	)
	a.perms = permission.NewEvaluator(a.sessions)
	return a, nil
}

// newPersistence selects the session persistence backend.
func (a *app) newPersistence() (session.Persistence, error) {
	switch a.cfg.Storage.Backend {
	case "sqlite":
		store, err := state.OpenSQLiteStore(a.cfg.Storage.Path, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return state.NewFileStore(a.cfg.Storage.Path, a.logger), nil
	}
}

// close flushes telemetry and releases backends.
func (a *app) close(ctx context.Context) {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	if err := a.shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", "error", err)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
