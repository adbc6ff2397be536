// Package config provides configuration management for Tollgate.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TOLLGATE_SECTION_FIELD.
// For example:
//
//   - TOLLGATE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - TOLLGATE_LEDGER_PATH overrides ledger.path
//   - TOLLGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides
// earlier):
//
//  1. Built-in defaults
//  2. YAML file values
//  3. Environment variables
//
// The final configuration is validated after all sources are applied, and
// loading fails with a ValidationError describing every offending field.
//
// # Example Configuration
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	  write_timeout: 5m
//
//	tiers:
//	  file_path: /etc/tollgate/tiers.yaml
//	  watch: true
//
//	subscriptions:
//	  path: data/subscriptions.db
//
//	ledger:
//	  path: data/ledger.db
//	  reconcile:
//	    schedule: "*/10 * * * *"
//	    grace_period: 1h
//
//	telemetry:
//	  logging:
//	    level: info
//	    format: json
package config
