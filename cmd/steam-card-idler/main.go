package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "steam-card-idler",
	Short: "Daemon that idles Steam games with trading card drops left",
	Long: `steam-card-idler keeps an account idling the games that still have
trading card drops remaining, rotating the set as drops run out and
restarting games the platform has stopped counting.

The daemon discovers candidates from the account's reward sources,
declares them in play over a supervised session, and exposes status,
metrics, and admin actions over a local HTTP API.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"steam-card-idler version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cacheCmd)
}
