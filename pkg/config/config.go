package config

import "time"

// Config is the root configuration structure for Tollgate.
// It contains all configuration sections for the HTTP server, tier
// policy, subscription tracking, the credit ledger, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and connection limits.
	Server ServerConfig `yaml:"server"`

	// Tiers contains configuration for the tier policy file including its
	// location and watch mode.
	Tiers TiersConfig `yaml:"tiers"`

	// Subscriptions contains configuration for the subscription store.
	Subscriptions SubscriptionsConfig `yaml:"subscriptions"`

	// Ledger contains configuration for the credit ledger store and the
	// background reconciler.
	Ledger LedgerConfig `yaml:"ledger"`

	// Telemetry contains configuration for observability including
	// logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port for the server to listen on.
	// Format: "host:port" (e.g., "127.0.0.1:8080", "0.0.0.0:8080").
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body. A zero or negative value means no timeout.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Admissions that run long operations need this to
	// exceed the longest expected execution.
	// Default: 120s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled. If IdleTimeout is zero,
	// ReadTimeout is used.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown. If requests are still in-flight after this timeout, the
	// server will force shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// TiersConfig contains configuration for the tier policy source.
type TiersConfig struct {
	// FilePath is the path to the tier policy YAML file.
	// Default: "./tiers.yaml"
	FilePath string `yaml:"file_path"`

	// Watch enables hot reloading when the policy file changes on disk.
	// Default: false
	Watch bool `yaml:"watch"`
}

// SubscriptionsConfig contains configuration for the subscription store.
type SubscriptionsConfig struct {
	// Path is the SQLite database file for subscription records.
	// Default: "data/subscriptions.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long SQLite waits on a locked database before
	// failing the query.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// CheckpointInterval is how often the WAL is checkpointed back into
	// the main database file. Zero disables periodic checkpoints.
	// Default: 5m
	CheckpointInterval time.Duration `yaml:"checkpoint_interval"`
}

// LedgerConfig contains configuration for the credit ledger.
type LedgerConfig struct {
	// Path is the SQLite database file for ledger entries.
	// Default: "data/ledger.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long SQLite waits on a locked database before
	// failing the query.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Reconcile configures the background sweep for leaked reservations
	// and balance verification.
	Reconcile ReconcileConfig `yaml:"reconcile"`
}

// ReconcileConfig contains configuration for the ledger reconciler.
type ReconcileConfig struct {
	// Schedule is a cron expression for scheduling sweeps.
	// Empty disables scheduled reconciliation.
	// Default: "*/10 * * * *" (every ten minutes)
	Schedule string `yaml:"schedule"`

	// GracePeriod is how long a reservation may stay open before the
	// sweep treats it as leaked. Must comfortably exceed the longest
	// legitimate execution.
	// Default: 1h
	GracePeriod time.Duration `yaml:"grace_period"`

	// AutoVoid voids leaked reservations, refunding the held funds.
	// When false the sweep only logs them.
	// Default: true
	AutoVoid bool `yaml:"auto_void"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log records.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactSecrets enables automatic secret redaction in log fields.
	// Default: true
	RedactSecrets bool `yaml:"redact_secrets"`

	// RedactPatterns contains additional redaction patterns applied on
	// top of the built-ins.
	RedactPatterns []RedactPatternConfig `yaml:"redact_patterns"`
}

// RedactPatternConfig describes one custom redaction pattern.
type RedactPatternConfig struct {
	// Name identifies the pattern; it overrides a built-in of the same
	// name.
	Name string `yaml:"name"`

	// Pattern is the regular expression matching values to redact.
	Pattern string `yaml:"pattern"`

	// Replacement is the substitution text. $1-style references work.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
