package tier

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"vantori-hq/tollgate/pkg/admission/ratelimit"
)

// Registry holds the active policy and serves tier lookups. The policy is
// replaced wholesale on reload; readers always see a complete, validated
// policy.
type Registry struct {
	mu     sync.RWMutex
	policy *Policy
}

// NewRegistry creates a registry serving the given policy.
func NewRegistry(p *Policy) (*Registry, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Registry{policy: p}, nil
}

// LoadRegistry reads and validates a policy file and returns a registry
// serving it.
func LoadRegistry(path string) (*Registry, error) {
	p, err := LoadPolicy(path)
	if err != nil {
		return nil, err
	}
	return &Registry{policy: p}, nil
}

// Reload replaces the active policy with the contents of the policy file.
// On any load or validation error the current policy stays in effect.
func (r *Registry) Reload(path string) error {
	p, err := LoadPolicy(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.policy = p
	r.mu.Unlock()
	return nil
}

// Lookup returns the named tier. The boolean reports whether it exists.
func (r *Registry) Lookup(name string) (Tier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.policy.Tiers[name]
	return t, ok
}

// Default returns the fallback tier for subjects without a subscription.
func (r *Registry) Default() Tier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.policy.Tiers[r.policy.DefaultTier]
}

// Version returns the active policy's document version, empty when the
// policy carries none.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.policy.Version
}

// AgentWeight returns the cost weight for the agent, 1.0 if unlisted.
func (r *Registry) AgentWeight(agentID string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if w, ok := r.policy.AgentWeights[agentID]; ok {
		return w
	}
	return 1.0
}

// TierNames returns the names of all defined tiers.
func (r *Registry) TierNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.policy.Tiers))
	for name := range r.policy.Tiers {
		names = append(names, name)
	}
	return names
}

// policyFile is the on-disk YAML shape of a policy.
type policyFile struct {
	Version      string              `yaml:"version"`
	DefaultTier  string              `yaml:"default_tier"`
	Tiers        map[string]tierFile `yaml:"tiers"`
	AgentWeights map[string]float64  `yaml:"agent_weights"`
}

type tierFile struct {
	Multiplier         float64        `yaml:"multiplier"`
	ConcurrencyCap     int            `yaml:"concurrency_cap"`
	IncludedExecutions int            `yaml:"included_executions"`
	Period             string         `yaml:"period"`
	OveragePriceCents  int64          `yaml:"overage_price_cents"`
	Limits             map[string]int `yaml:"limits"`
}

// LoadPolicy reads, parses, and validates a policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var pf policyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}

	p := &Policy{
		Version:      pf.Version,
		DefaultTier:  pf.DefaultTier,
		Tiers:        make(map[string]Tier, len(pf.Tiers)),
		AgentWeights: pf.AgentWeights,
	}

	for name, tf := range pf.Tiers {
		period, err := time.ParseDuration(tf.Period)
		if err != nil {
			return nil, fmt.Errorf("tier %q: invalid period %q: %w", name, tf.Period, err)
		}

		limits := make(map[ratelimit.LimitKind]int, len(tf.Limits))
		for kind, threshold := range tf.Limits {
			limits[ratelimit.LimitKind(kind)] = threshold
		}

		p.Tiers[name] = Tier{
			Name:               name,
			Multiplier:         tf.Multiplier,
			ConcurrencyCap:     tf.ConcurrencyCap,
			IncludedExecutions: tf.IncludedExecutions,
			PeriodLength:       period,
			OveragePriceCents:  tf.OveragePriceCents,
			Limits:             limits,
		}
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file: %w", err)
	}
	return p, nil
}
