package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"vantori-hq/tollgate/pkg/cli"
	"vantori-hq/tollgate/pkg/config"
	"vantori-hq/tollgate/pkg/ledger"
	"vantori-hq/tollgate/pkg/ledger/reconcile"
	ledgerstorage "vantori-hq/tollgate/pkg/ledger/storage"
	"vantori-hq/tollgate/pkg/server"
	"vantori-hq/tollgate/pkg/subscription"
	"vantori-hq/tollgate/pkg/telemetry/logging"
	"vantori-hq/tollgate/pkg/tier"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Tollgate server",
	Long: `Start the Tollgate server with the specified configuration.

The server exposes health and readiness probes, Prometheus metrics, and
the ledger API (balances, top-ups, subscriptions). The tier policy is
loaded at startup and optionally hot reloaded when the file changes. A
background reconciler sweeps the ledger for leaked reservations.

Examples:
  # Start with default config
  tollgate run

  # Start with custom config
  tollgate run --config /etc/tollgate/config.yaml

  # Override listen address
  tollgate run --listen 0.0.0.0:8080

  # Validate config without starting server
  tollgate run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := buildLogger(&cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Println(buildString())
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	// Tier policy
	registry, err := tier.LoadRegistry(cfg.Tiers.FilePath)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load tier policy: %w", err))
	}
	fmt.Printf("✓ Tier policy loaded (%d tiers)\n", len(registry.TierNames()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Tiers.Watch {
		watcher, err := tier.NewWatcher(cfg.Tiers.FilePath, registry, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to watch tier policy: %w", err))
		}
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("tier policy watcher stopped", "error", err)
			}
		}()
		defer watcher.Stop()
		fmt.Println("✓ Tier policy watcher started")
	}

	// Subscription store
	subStore, err := subscription.NewSQLiteStoreWithConfig(subscription.SQLiteStoreConfig{
		DBPath:             cfg.Subscriptions.Path,
		BusyTimeout:        cfg.Subscriptions.BusyTimeout,
		CheckpointInterval: cfg.Subscriptions.CheckpointInterval,
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open subscription store: %w", err))
	}
	defer subStore.Close()
	tracker := subscription.NewTracker(subStore, logger)
	fmt.Println("✓ Subscription store initialized")

	// Credit ledger
	ledCfg := ledgerstorage.DefaultSQLiteConfig()
	ledCfg.Path = cfg.Ledger.Path
	ledCfg.BusyTimeout = cfg.Ledger.BusyTimeout
	ledStore, err := ledgerstorage.NewSQLiteStorage(ledCfg)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to open ledger store: %w", err))
	}
	defer ledStore.Close()
	led := ledger.New(ledStore, logger)
	fmt.Println("✓ Credit ledger initialized")

	// Background reconciliation
	reconciler := reconcile.NewReconciler(led, ledStore, &reconcile.Config{
		GracePeriod: cfg.Ledger.Reconcile.GracePeriod,
		Schedule:    cfg.Ledger.Reconcile.Schedule,
		AutoVoid:    cfg.Ledger.Reconcile.AutoVoid,
	}, logger)
	if err := reconciler.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start reconciler: %w", err))
	}
	defer reconciler.Stop()
	if next := reconciler.NextSweep(); next != nil {
		logger.Debug("ledger reconciler started", "next_sweep", next)
	}

	// HTTP server
	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, server.Dependencies{
		Ledger:  led,
		Tiers:   registry,
		Tracker: tracker,
		Logger:  logger,
	})

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Start blocks until a signal, context cancellation, or listener
	// failure.
	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// buildLogger constructs the process logger from the logging section.
func buildLogger(cfg *config.LoggingConfig) (*logging.Logger, error) {
	patterns := make([]logging.RedactPattern, 0, len(cfg.RedactPatterns))
	for _, p := range cfg.RedactPatterns {
		patterns = append(patterns, logging.RedactPattern{
			Name:        p.Name,
			Pattern:     p.Pattern,
			Replacement: p.Replacement,
		})
	}

	return logging.New(logging.Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		RedactSecrets:  cfg.RedactSecrets,
		RedactPatterns: patterns,
	})
}
