package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupDisabledIsNoop(t *testing.T) {
	shutdown, err := Setup(t.Context(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(t.Context()); err != nil {
		t.Errorf("no-op shutdown should not fail: %v", err)
	}
}

func TestSetupExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup(t.Context(), Config{
		Enabled:        true,
		ServiceName:    "stockroom-test",
		ServiceVersion: "0.0.0",
		Writer:         &buf,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := otel.Tracer("test").Start(t.Context(), "probe")
	span.End()

	if err := shutdown(t.Context()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if !strings.Contains(buf.String(), "probe") {
		t.Error("expected exported span in writer output")
	}
}
