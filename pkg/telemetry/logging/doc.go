// Package logging provides structured logging with secret redaction.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//   - Structured logging with JSON, text, and console formats
//   - Automatic redaction of API keys, emails, and bearer tokens
//   - Context-aware logging that carries subject, agent, and request IDs
//   - Configurable log levels (debug, info, warn, error)
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:         "info",
//	    Format:        "json",
//	    RedactSecrets: true,
//	})
//
//	logger.Info("execution admitted",
//	    "subject", "acct_42",
//	    "agent", "agent-research",
//	    "cost_cents", 125,
//	)
//
//	ctx = logging.WithSubject(ctx, "acct_42")
//	logger.InfoContext(ctx, "reservation committed") // subject attached
//
// # Redaction
//
// When RedactSecrets is enabled, values under sensitive keys (token,
// api_key, authorization, password) are masked, and string values matching
// known secret shapes are rewritten before the record is emitted.
package logging
