package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Tier policy defaults
	DefaultTiersFilePath = "./tiers.yaml"

	// Subscription store defaults
	DefaultSubscriptionsPath       = "data/subscriptions.db"
	DefaultSubscriptionsBusy       = 5 * time.Second
	DefaultSubscriptionsCheckpoint = 5 * time.Minute

	// Ledger defaults
	DefaultLedgerPath           = "data/ledger.db"
	DefaultLedgerBusy           = 5 * time.Second
	DefaultReconcileSchedule    = "*/10 * * * *"
	DefaultReconcileGracePeriod = time.Hour
	DefaultReconcileAutoVoid    = true

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
	DefaultRedactSecrets = true
	DefaultMetricsPath   = "/metrics"
)

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// Tier policy defaults
	if cfg.Tiers.FilePath == "" {
		cfg.Tiers.FilePath = DefaultTiersFilePath
	}

	// Subscription store defaults
	if cfg.Subscriptions.Path == "" {
		cfg.Subscriptions.Path = DefaultSubscriptionsPath
	}
	if cfg.Subscriptions.BusyTimeout == 0 {
		cfg.Subscriptions.BusyTimeout = DefaultSubscriptionsBusy
	}
	if cfg.Subscriptions.CheckpointInterval == 0 {
		cfg.Subscriptions.CheckpointInterval = DefaultSubscriptionsCheckpoint
	}

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = DefaultLedgerPath
	}
	if cfg.Ledger.BusyTimeout == 0 {
		cfg.Ledger.BusyTimeout = DefaultLedgerBusy
	}
	if cfg.Ledger.Reconcile.Schedule == "" {
		cfg.Ledger.Reconcile.Schedule = DefaultReconcileSchedule
	}
	if cfg.Ledger.Reconcile.GracePeriod == 0 {
		cfg.Ledger.Reconcile.GracePeriod = DefaultReconcileGracePeriod
	}
	// AutoVoid defaults to true; the zero value cannot be told apart
	// from an explicit false, so false requires keeping the default off
	// schedule instead.
	if !cfg.Ledger.Reconcile.AutoVoid {
		cfg.Ledger.Reconcile.AutoVoid = DefaultReconcileAutoVoid
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if !cfg.Telemetry.Logging.RedactSecrets {
		cfg.Telemetry.Logging.RedactSecrets = DefaultRedactSecrets
	}
	if !cfg.Telemetry.Metrics.Enabled {
		cfg.Telemetry.Metrics.Enabled = true
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}
