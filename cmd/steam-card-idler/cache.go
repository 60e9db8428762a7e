package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ArtyProf/steam-card-idler/pkg/client"
	"github.com/ArtyProf/steam-card-idler/pkg/config"
	"github.com/ArtyProf/steam-card-idler/pkg/rewards"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the card capability cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached capability classifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		c := client.NewClient(addr)
		resp, err := c.Cache()
		if err != nil {
			return err
		}

		ids := make([]uint32, 0, len(resp.Entries))
		for id := range resp.Entries {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		fmt.Printf("%-10s %s\n", "APPID", "CARDS")
		for _, id := range ids {
			verdict := "no"
			if resp.Entries[id] {
				verdict = "yes"
			}
			fmt.Printf("%-10d %s\n", id, verdict)
		}
		fmt.Println()
		fmt.Printf("%d apps cached, %d with card drops\n", resp.Size, resp.Capable)
		return nil
	},
}

var cacheProbeCmd = &cobra.Command{
	Use:   "probe APPID",
	Short: "Ask the storefront whether an app has trading cards",
	Long: `Probe queries the storefront directly, bypassing any running daemon
and its cache. Useful for checking a single app or debugging why the
prober classified one the way it did.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		appID, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid app id %q", args[0])
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %v", err)
		}

		probe := rewards.NewCategoryProbe(rewards.ProbeConfig{
			BaseURL: cfg.Sources.StorefrontURL,
			Timeout: cfg.Sources.Timeout.Std(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Sources.Timeout.Std())
		defer cancel()

		capable, err := probe.Probe(ctx, uint32(appID))
		if err != nil {
			return fmt.Errorf("probe failed: %v", err)
		}

		if capable {
			fmt.Printf("✓ App %d has trading card drops\n", appID)
		} else {
			fmt.Printf("App %d has no trading card drops\n", appID)
		}
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cacheProbeCmd)

	cacheLsCmd.Flags().String("addr", "127.0.0.1:8809", "Daemon API address")
	cacheProbeCmd.Flags().StringP("config", "c", "", "Path to YAML config file")
}
