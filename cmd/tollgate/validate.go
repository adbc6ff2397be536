package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"vantori-hq/tollgate/pkg/cli"
	"vantori-hq/tollgate/pkg/config"
	"vantori-hq/tollgate/pkg/tier"
)

var validateFlags struct {
	tiersFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and tier policy",
	Long: `Validate the configuration file and the tier policy it references.

The validate command loads the configuration with environment overrides
applied, then parses and validates the tier policy file. It prints a
summary of the tiers and exits non-zero if either document is invalid.

Examples:
  # Validate the default config and its tier policy
  tollgate validate

  # Validate a specific config file
  tollgate validate --config /etc/tollgate/config.yaml

  # Validate a tier policy file directly
  tollgate validate --tiers /etc/tollgate/tiers.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.tiersFile, "tiers", "", "tier policy file (uses config if not specified)")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	fmt.Println("✓ Configuration valid")

	tiersPath := validateFlags.tiersFile
	if tiersPath == "" {
		tiersPath = cfg.Tiers.FilePath
	}

	policy, err := tier.LoadPolicy(tiersPath)
	if err != nil {
		return cli.NewCommandError("validate", fmt.Errorf("tier policy %s: %w", tiersPath, err))
	}
	fmt.Printf("✓ Tier policy valid (%s)\n", tiersPath)
	fmt.Println()

	names := make([]string, 0, len(policy.Tiers))
	for name := range policy.Tiers {
		names = append(names, name)
	}
	sort.Strings(names)

	if policy.Version != "" {
		fmt.Printf("Policy version: %s\n", policy.Version)
	}
	fmt.Printf("Default tier: %s\n", policy.DefaultTier)
	fmt.Printf("Tiers: %d\n", len(names))
	for _, name := range names {
		t := policy.Tiers[name]
		fmt.Printf("  %-12s multiplier=%.2f concurrency=%d included=%d overage=%d¢ period=%s\n",
			name, t.Multiplier, t.ConcurrencyCap, t.IncludedExecutions,
			t.OveragePriceCents, t.PeriodLength)
	}
	if len(policy.AgentWeights) > 0 {
		fmt.Printf("Agent weights: %d\n", len(policy.AgentWeights))
	}

	return nil
}
