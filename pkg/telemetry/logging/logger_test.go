package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"

	"nextgate-hq/relay/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("log output is not a single JSON object: %v\n%s", err, buf.String())
	}
	return m
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid JSON config", Config{Level: "info", Format: "json", Redact: true}, false},
		{"valid text config", Config{Level: "debug", Format: "text"}, false},
		{"uppercase level", Config{Level: "WARN", Format: "json"}, false},
		{"invalid log level", Config{Level: "invalid", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "console"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info record should be filtered at warn level, got %s", buf.String())
	}

	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn record missing: %s", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Service: "relay", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithRequestID(context.Background(), "abc123")
	ctx = WithUser(ctx, "user-1")
	logger.InfoContext(ctx, "hello", "status", 200)

	m := decodeLine(t, buf)
	if m["request_id"] != "abc123" {
		t.Errorf("request_id = %v, want abc123", m["request_id"])
	}
	if m["user_id"] != "user-1" {
		t.Errorf("user_id = %v, want user-1", m["user_id"])
	}
	if m["service"] != "relay" {
		t.Errorf("service = %v, want relay", m["service"])
	}
	if _, ok := m["tenant_id"]; ok {
		t.Error("tenant_id should be omitted when absent")
	}
}

func TestLogger_TraceID(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	logger.InfoContext(ctx, "hello")
	if m := decodeLine(t, buf); m[TraceIDField] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("%s = %v", TraceIDField, m[TraceIDField])
	}

	buf.Reset()
	logger.InfoContext(context.Background(), "hello")
	if m := decodeLine(t, buf); m[TraceIDField] != nil {
		t.Errorf("%s should be omitted without a span, got %v", TraceIDField, m[TraceIDField])
	}
}

func TestLogger_ExplicitRequestIDNotDuplicated(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Format: "json", Writer: buf})

	ctx := WithRequestID(context.Background(), "from-ctx")
	logger.InfoContext(ctx, "hello", "request_id", "explicit")

	if n := strings.Count(buf.String(), `"request_id"`); n != 1 {
		t.Errorf("expected request_id once, found %d times: %s", n, buf.String())
	}
}

func TestLogger_Redaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "json", Redact: true, CodePrefix: "ak-", Writer: buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("request",
		"authorization", "Bearer sk-abcdef123456",
		"note", "caller sent ak-topsecret and sk-live123",
		"err", errors.New("upstream rejected Bearer sk-zzz"),
		slog.Group("req", "token", "sk-grouped999"),
	)

	out := buf.String()
	for _, secret := range []string{"abcdef123456", "topsecret", "live123", "sk-zzz", "grouped999"} {
		if strings.Contains(out, secret) {
			t.Errorf("secret %q leaked into log output: %s", secret, out)
		}
	}
	if !strings.Contains(out, "ak-***") {
		t.Errorf("expected masked access code in output: %s", out)
	}
}

func TestLogger_RedactionDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Format: "json", Writer: buf})

	logger.Info("request", "note", "sk-visible")
	if !strings.Contains(buf.String(), "sk-visible") {
		t.Errorf("value should be logged verbatim without redaction: %s", buf.String())
	}
}

func TestLogger_WithAttrsRedacted(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Format: "json", Redact: true, Writer: buf})

	logger.With("api_key", "sk-persistent").Info("hello")
	if strings.Contains(buf.String(), "sk-persistent") {
		t.Errorf("With attrs leaked: %s", buf.String())
	}
}

func TestConfigFrom(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Logging.Level = "debug"
	cfg.Access.CodePrefix = "xx-"

	lc := ConfigFrom(cfg)
	if lc.Level != "debug" || lc.CodePrefix != "xx-" || !lc.Redact || lc.Service != "relay" {
		t.Errorf("unexpected logging config: %+v", lc)
	}
}

func TestRedactAPIKey(t *testing.T) {
	tests := map[string]string{
		"":              "",
		"abc":           "***",
		"sk-1234567890": "sk-1***",
	}
	for in, want := range tests {
		if got := RedactAPIKey(in); got != want {
			t.Errorf("RedactAPIKey(%q) = %q, want %q", in, got, want)
		}
	}
}
