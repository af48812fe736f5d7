package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Strob0t/TravelTime/internal/config"
)

func TestNew(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc"}
	l, closer := New(cfg)
	defer closer.Close()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewAsync(t *testing.T) {
	cfg := config.Logging{Level: "debug", Service: "test-svc", Async: true}
	l, closer := New(cfg)
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLevel(tt.input).String()
			if got != tt.want {
				t.Errorf("parseLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()

	// Empty context returns empty string
	if got := RequestID(ctx); got != "" {
		t.Errorf("expected empty request ID, got %q", got)
	}

	// Set and retrieve
	ctx = WithRequestID(ctx, "req-123")
	if got := RequestID(ctx); got != "req-123" {
		t.Errorf("expected req-123, got %q", got)
	}
}

func TestEnsureRequestID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestID(ctx) != id {
		t.Fatalf("expected a generated request ID in context, got %q / %q", id, RequestID(ctx))
	}

	again, sameID := EnsureRequestID(ctx)
	if sameID != id || RequestID(again) != id {
		t.Fatalf("existing request ID %q was replaced by %q", id, sameID)
	}
}

func TestNewWritesServiceAndRequestID(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWithWriter(config.Logging{Level: "info", Service: "traveltime"}, &buf)
	defer closer.Close()

	ctx := WithRequestID(context.Background(), "req-42")
	l.InfoContext(ctx, "lookup served", "origin", "X")
	l.DebugContext(ctx, "filtered out")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line at info level, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec["service"] != "traveltime" {
		t.Errorf("service = %v", rec["service"])
	}
	if rec["request_id"] != "req-42" {
		t.Errorf("request_id = %v", rec["request_id"])
	}
	if rec["origin"] != "X" {
		t.Errorf("origin = %v", rec["origin"])
	}
}

func TestNewAsyncFlushesOnClose(t *testing.T) {
	var buf bytes.Buffer
	l, closer := NewWithWriter(config.Logging{Level: "info", Service: "svc", Async: true}, &buf)

	ctx := WithRequestID(context.Background(), "req-7")
	l.InfoContext(ctx, "queued")
	closer.Close()

	out := buf.String()
	if !strings.Contains(out, `"msg":"queued"`) {
		t.Errorf("expected flushed record, got %q", out)
	}
	if !strings.Contains(out, `"request_id":"req-7"`) {
		t.Errorf("expected request_id after async hop, got %q", out)
	}
}
