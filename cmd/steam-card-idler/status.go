package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArtyProf/steam-card-idler/pkg/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what a running daemon is doing",
	Long: `Status queries a running daemon's admin API and prints the session
state, the active set, and the refresh schedule.

Examples:
  # Query the default local daemon
  steam-card-idler status

  # Query a daemon on another address
  steam-card-idler status --addr 127.0.0.1:9900`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().String("addr", "127.0.0.1:8809", "Daemon API address")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	c := client.NewClient(addr)
	status, err := c.Status()
	if err != nil {
		return err
	}

	if status.Session != nil {
		fmt.Printf("Session:      %s", status.Session.State)
		if status.Session.Account != "" {
			fmt.Printf(" (%s", status.Session.Account)
			if status.Session.AccountID != 0 {
				fmt.Printf(", id %d", status.Session.AccountID)
			}
			fmt.Printf(")")
		}
		fmt.Println()
	} else {
		fmt.Println("Session:      not running")
	}

	if status.Idler != nil {
		fmt.Printf("Idler:        %s\n", status.Idler.State)
		fmt.Printf("Active:       %d of %d target", len(status.Idler.Active), status.Idler.Target)
		if len(status.Idler.Active) > 0 {
			fmt.Printf("  %v", status.Idler.Active)
		}
		fmt.Println()
		fmt.Printf("Rewarded:     %d apps have dropped so far\n", status.Idler.EverRewarded)
		fmt.Printf("Last refresh: %s\n", formatTime(status.Idler.LastRefresh))
		fmt.Printf("Next refresh: %s\n", formatTime(status.Idler.NextRefresh))
	} else {
		fmt.Println("Idler:        not running")
	}

	if status.Cache != nil {
		fmt.Printf("Cache:        %d apps classified\n", status.Cache.Size)
	}

	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}
