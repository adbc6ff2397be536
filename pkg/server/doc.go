// Package server provides the operational HTTP surface for Tollgate.
//
// This package exposes health and readiness probes, the Prometheus metrics
// endpoint, and a small JSON API over the credit ledger. It also provides
// WriteError, which maps admission errors onto HTTP status codes and
// headers so embedding applications answer denials the same way:
//
//   - RateLimitedError: 429 with Retry-After and X-RateLimit-* headers
//   - ConcurrencyLimitedError: 429 with X-Concurrency-Limit
//   - InsufficientFundsError: 402 with required and available amounts
//   - anything else: 500 with no internal detail
//
// # Basic Usage
//
//	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, server.Dependencies{
//	    Ledger: led,
//	    Tiers:  registry,
//	    Logger: logger,
//	})
//	if err := srv.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Start blocks until the context is cancelled, an OS signal arrives, or the
// listener fails. Shutdown drains in-flight requests up to the configured
// shutdown timeout.
package server
