package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Environment variables follow the
// naming convention TOLLGATE_SECTION_FIELD (e.g.,
// TOLLGATE_SERVER_LISTEN_ADDRESS). Environment variables always take
// precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format TOLLGATE_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("TOLLGATE_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("TOLLGATE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("TOLLGATE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("TOLLGATE_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("TOLLGATE_SERVER_SHUTDOWN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ShutdownTimeout = d
		}
	}
	if val := os.Getenv("TOLLGATE_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}

	// Tier policy overrides
	if val := os.Getenv("TOLLGATE_TIERS_FILE_PATH"); val != "" {
		cfg.Tiers.FilePath = val
	}
	if val := os.Getenv("TOLLGATE_TIERS_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Tiers.Watch = b
		}
	}

	// Subscription store overrides
	if val := os.Getenv("TOLLGATE_SUBSCRIPTIONS_PATH"); val != "" {
		cfg.Subscriptions.Path = val
	}
	if val := os.Getenv("TOLLGATE_SUBSCRIPTIONS_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Subscriptions.BusyTimeout = d
		}
	}
	if val := os.Getenv("TOLLGATE_SUBSCRIPTIONS_CHECKPOINT_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Subscriptions.CheckpointInterval = d
		}
	}

	// Ledger overrides
	if val := os.Getenv("TOLLGATE_LEDGER_PATH"); val != "" {
		cfg.Ledger.Path = val
	}
	if val := os.Getenv("TOLLGATE_LEDGER_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.BusyTimeout = d
		}
	}
	if val := os.Getenv("TOLLGATE_LEDGER_RECONCILE_SCHEDULE"); val != "" {
		cfg.Ledger.Reconcile.Schedule = val
	}
	if val := os.Getenv("TOLLGATE_LEDGER_RECONCILE_GRACE_PERIOD"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Ledger.Reconcile.GracePeriod = d
		}
	}
	if val := os.Getenv("TOLLGATE_LEDGER_RECONCILE_AUTO_VOID"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Ledger.Reconcile.AutoVoid = b
		}
	}

	// Telemetry overrides
	if val := os.Getenv("TOLLGATE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("TOLLGATE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("TOLLGATE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("TOLLGATE_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}
