// Package tier defines service tiers and the pricing policy that maps a
// subject's tier to its limits, concurrency cap, included allotment, and
// price multipliers.
//
// A Registry holds the currently active policy, loaded from a YAML file and
// swapped atomically on reload. A Watcher observes the policy file with
// fsnotify and reloads the registry after a debounce interval, so limit and
// pricing changes take effect without a restart.
//
// # Policy File
//
//	version: "2026-08-01"
//	default_tier: free
//	tiers:
//	  free:
//	    multiplier: 1.0
//	    concurrency_cap: 1
//	    included_executions: 0
//	    period: 720h
//	    overage_price_cents: 0
//	    limits:
//	      requests_per_minute: 3
//	agent_weights:
//	  agent-research: 2.5
//
// # Thread Safety
//
// Registry lookups take a read lock; Reload takes the write lock. Tiers
// returned by Lookup are copies and safe to retain.
package tier
