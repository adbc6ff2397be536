package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"vantori-hq/tollgate/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tollgate",
	Short: "Tollgate - admission control and metering for multi-tenant workloads",
	Long: `Tollgate is an admission-control and metering control plane for
multi-tenant SaaS workloads.

Every expensive execution passes one admission pipeline:
  - Sliding-window rate limits per subscription tier
  - Per-subject concurrency caps
  - Subscription coverage with included-execution allotments
  - A prepaid credit ledger with reserve/commit/void billing

Denials carry machine-readable detail (retry-after, required funds) so
callers can answer with 429 or 402.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCodeFor(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
