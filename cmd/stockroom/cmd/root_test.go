package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stockroom-hq/stockroom-go/internal/domain/session"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelWarn},
		{"bogus", slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPrintableError(t *testing.T) {
	if printableError(errExitDenied) {
		t.Error("a denied check must not print, the exit code carries it")
	}
	if printableError(fmt.Errorf("check permission: %w", errExitDenied)) {
		t.Error("a wrapped denial must not print either")
	}
	if !printableError(errors.New("config validation failed")) {
		t.Error("ordinary errors must still print")
	}
}

func TestDisplayName(t *testing.T) {
	sess := &session.Session{UserID: "u-1", DisplayName: "Dana"}
	if got := displayName(sess); got != "Dana" {
		t.Errorf("displayName = %q, want Dana", got)
	}
	sess.DisplayName = ""
	if got := displayName(sess); got != "u-1" {
		t.Errorf("displayName fallback = %q, want u-1", got)
	}
}
