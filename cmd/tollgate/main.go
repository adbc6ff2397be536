// Tollgate is an admission-control and metering control plane for
// multi-tenant SaaS workloads.
//
// It gates expensive executions behind per-tier sliding-window rate
// limits, concurrency caps, subscription coverage, and a prepaid credit
// ledger with two-phase (reserve/commit/void) billing.
//
// Usage:
//
//	# Start server with default configuration
//	tollgate run
//
//	# Start with custom configuration file
//	tollgate run --config /path/to/config.yaml
//
//	# Show version information
//	tollgate version
//
//	# Validate configuration and tier policy
//	tollgate validate --config /path/to/config.yaml
package main

func main() {
	Execute()
}
