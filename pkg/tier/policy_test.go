package tier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vantori-hq/tollgate/pkg/admission/ratelimit"
)

const testPolicyYAML = `
version: "2026-08-01"
default_tier: free
tiers:
  free:
    multiplier: 1.0
    concurrency_cap: 1
    included_executions: 0
    period: 720h
    overage_price_cents: 0
    limits:
      requests_per_minute: 3
  basic:
    multiplier: 1.0
    concurrency_cap: 4
    included_executions: 100
    period: 720h
    overage_price_cents: 50
    limits:
      requests_per_minute: 60
      requests_per_day: 5000
      agent_executions_per_hour: 120
agent_weights:
  agent-research: 2.5
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tiers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}
	return path
}

func TestLoadPolicy(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, testPolicyYAML))
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	if p.DefaultTier != "free" {
		t.Errorf("default tier = %q", p.DefaultTier)
	}
	if p.Version != "2026-08-01" {
		t.Errorf("version = %q, want 2026-08-01", p.Version)
	}

	basic, ok := p.Tiers["basic"]
	if !ok {
		t.Fatal("basic tier missing")
	}
	if basic.ConcurrencyCap != 4 {
		t.Errorf("concurrency cap = %d, want 4", basic.ConcurrencyCap)
	}
	if basic.PeriodLength != 720*time.Hour {
		t.Errorf("period = %v", basic.PeriodLength)
	}
	if basic.OveragePriceCents != 50 {
		t.Errorf("overage = %d", basic.OveragePriceCents)
	}
	if got := basic.Limits[ratelimit.KindRequestsPerDay]; got != 5000 {
		t.Errorf("requests_per_day = %d", got)
	}
	if w := p.AgentWeights["agent-research"]; w != 2.5 {
		t.Errorf("agent weight = %v", w)
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing default tier", "tiers:\n  free:\n    multiplier: 1.0\n    period: 720h\n"},
		{"unknown default tier", "default_tier: gold\ntiers:\n  free:\n    multiplier: 1.0\n    concurrency_cap: 1\n    period: 720h\n"},
		{"bad period", "default_tier: free\ntiers:\n  free:\n    multiplier: 1.0\n    concurrency_cap: 1\n    period: fortnight\n"},
		{"negative multiplier", "default_tier: free\ntiers:\n  free:\n    multiplier: -1.0\n    concurrency_cap: 1\n    period: 720h\n"},
		{"unknown limit kind", "default_tier: free\ntiers:\n  free:\n    multiplier: 1.0\n    concurrency_cap: 1\n    period: 720h\n    limits:\n      requests_per_fortnight: 3\n"},
		{"zero weight", testPolicyYAML + "  agent-zero: 0\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadPolicy(writePolicy(t, tt.yaml)); err == nil {
				t.Error("expected load error")
			}
		})
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r, err := LoadRegistry(writePolicy(t, testPolicyYAML))
	if err != nil {
		t.Fatalf("LoadRegistry() error: %v", err)
	}

	if _, ok := r.Lookup("basic"); !ok {
		t.Error("basic tier not found")
	}
	if _, ok := r.Lookup("platinum"); ok {
		t.Error("unexpected platinum tier")
	}
	if d := r.Default(); d.Name != "free" {
		t.Errorf("default tier = %q", d.Name)
	}
}

func TestRegistry_AgentWeight(t *testing.T) {
	r, err := LoadRegistry(writePolicy(t, testPolicyYAML))
	if err != nil {
		t.Fatalf("LoadRegistry() error: %v", err)
	}

	if w := r.AgentWeight("agent-research"); w != 2.5 {
		t.Errorf("listed agent weight = %v, want 2.5", w)
	}
	if w := r.AgentWeight("agent-unknown"); w != 1.0 {
		t.Errorf("unlisted agent weight = %v, want 1.0", w)
	}
}

func TestRegistry_Reload(t *testing.T) {
	path := writePolicy(t, testPolicyYAML)
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error: %v", err)
	}

	updated := `
version: "2026-09-15"
default_tier: free
tiers:
  free:
    multiplier: 1.0
    concurrency_cap: 1
    period: 720h
  pro:
    multiplier: 1.0
    concurrency_cap: 16
    included_executions: 1000
    period: 720h
    overage_price_cents: 25
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := r.Reload(path); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if _, ok := r.Lookup("pro"); !ok {
		t.Error("reloaded tier missing")
	}
	if got := r.Version(); got != "2026-09-15" {
		t.Errorf("version after reload = %q, want 2026-09-15", got)
	}

	// A broken rewrite must leave the last good policy in effect.
	if err := os.WriteFile(path, []byte("{{{"), 0o644); err != nil {
		t.Fatalf("rewrite failed: %v", err)
	}
	if err := r.Reload(path); err == nil {
		t.Error("expected reload error for broken file")
	}
	if _, ok := r.Lookup("pro"); !ok {
		t.Error("failed reload clobbered the active policy")
	}
}

func TestTier_Requirements(t *testing.T) {
	p, err := LoadPolicy(writePolicy(t, testPolicyYAML))
	if err != nil {
		t.Fatalf("LoadPolicy() error: %v", err)
	}

	reqs := p.Tiers["basic"].Requirements()
	if len(reqs) != 3 {
		t.Fatalf("requirements = %d, want 3", len(reqs))
	}
	for _, req := range reqs {
		if err := req.Validate(); err != nil {
			t.Errorf("requirement %s invalid: %v", req.Kind, err)
		}
		if req.Window != req.Kind.Window() {
			t.Errorf("requirement %s window = %v", req.Kind, req.Window)
		}
	}
}
