package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	cfg.Writer = &buf
	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return logger, &buf
}

func TestLogger_JSONOutput(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.Info("execution admitted", "subject", "acct_42", "cost_cents", 125)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if record["msg"] != "execution admitted" {
		t.Errorf("msg = %v", record["msg"])
	}
	if record["subject"] != "acct_42" {
		t.Errorf("subject = %v", record["subject"])
	}
	if record["cost_cents"] != float64(125) {
		t.Errorf("cost_cents = %v", record["cost_cents"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "warn", Format: "text"})

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("visible warn")
	logger.Error("visible error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("filtered levels leaked:\n%s", out)
	}
	if !strings.Contains(out, "visible warn") || !strings.Contains(out, "visible error") {
		t.Errorf("enabled levels missing:\n%s", out)
	}
}

func TestLogger_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLogger_RedactsSensitiveKeys(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json", RedactSecrets: true})

	logger.Info("topup received", "api_key", "sk-verysecretkey12345")

	out := buf.String()
	if strings.Contains(out, "verysecretkey") {
		t.Errorf("secret leaked into output:\n%s", out)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	ctx := WithSubject(context.Background(), "acct_42")
	ctx = WithAgent(ctx, "agent-research")
	ctx = WithReservation(ctx, "resv-123")

	logger.InfoContext(ctx, "reservation committed")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["subject"] != "acct_42" {
		t.Errorf("subject = %v", record["subject"])
	}
	if record["agent"] != "agent-research" {
		t.Errorf("agent = %v", record["agent"])
	}
	if record["reservation_id"] != "resv-123" {
		t.Errorf("reservation_id = %v", record["reservation_id"])
	}
}

func TestLogger_With(t *testing.T) {
	logger, buf := newTestLogger(t, Config{Level: "info", Format: "json"})

	logger.With("tier", "basic").Info("period rolled")

	if !strings.Contains(buf.String(), `"tier":"basic"`) {
		t.Errorf("With field missing:\n%s", buf.String())
	}
}
