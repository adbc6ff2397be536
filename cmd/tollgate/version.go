package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Build identity, overridden at link time:
//
//	go build -ldflags "-X main.Version=... -X main.GitCommit=... -X main.BuildDate=..."
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// buildString is the one-line build identity shared by the version
// command and the run banner.
func buildString() string {
	return fmt.Sprintf("tollgate %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the build identity. With --verbose, include the Go runtime and platform.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(buildString())
		if verbose {
			fmt.Printf("  go:      %s\n", runtime.Version())
			fmt.Printf("  os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
