// Package telemetry provides observability building blocks for Tollgate.
//
// # Components
//
//   - logging: Structured logging with secret redaction
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//		Level:  "info",
//		Format: "json",
//	})
//	if err != nil {
//		return err
//	}
//	logger.Info("sweep complete", "voided", 3)
//
// Request-scoped fields (request ID, subject, tier) are carried through
// context.Context; see the logging sub-package for the context helpers.
//
// # Secret Protection
//
// By default, secret-shaped values are redacted from log output:
//
//   - API keys: sk-abc123 -> sk-***
//   - Emails: user@example.com -> u***@example.com
//   - Bearer tokens and similar credential patterns
//
// Custom redaction patterns can be configured.
package telemetry
