package main

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ArtyProf/steam-card-idler/pkg/api"
	"github.com/ArtyProf/steam-card-idler/pkg/cache"
	"github.com/ArtyProf/steam-card-idler/pkg/config"
	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/idler"
	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
	"github.com/ArtyProf/steam-card-idler/pkg/ranker"
	"github.com/ArtyProf/steam-card-idler/pkg/rewards"
	"github.com/ArtyProf/steam-card-idler/pkg/steam"
	"github.com/ArtyProf/steam-card-idler/pkg/steam/loopback"
	"github.com/ArtyProf/steam-card-idler/pkg/storage"
	"github.com/ArtyProf/steam-card-idler/pkg/supervisor"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the idling daemon",
	Long: `Run signs the account in, discovers games with card drops left,
and keeps idling them until interrupted.

The session driver defaults to the in-process loopback driver, which
never touches the network. Pass --driver to select a registered
driver, or --dry-run to force loopback regardless of configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		driverName, _ := cmd.Flags().GetString("driver")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		return runDaemon(configPath, driverName, dryRun)
	},
}

func init() {
	runCmd.Flags().StringP("config", "c", "", "Path to YAML config file")
	runCmd.Flags().String("driver", "loopback", "Session driver to use")
	runCmd.Flags().Bool("dry-run", false, "Force the loopback driver; no real session")
}

func runDaemon(configPath, driverName string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.Log.Level),
		JSONOutput: cfg.Log.JSON,
	})
	logger := log.WithComponent("daemon")
	metrics.SetVersion(Version)

	if dryRun {
		driverName = "loopback"
		fmt.Println("Dry run: using the loopback session driver")
	}
	if driverName != "loopback" && cfg.Account.Name == "" {
		return fmt.Errorf("account.name is required (set it in the config file or STEAM_ACCOUNT)")
	}

	steam.RegisterDriver("loopback", loopback.New(loopbackAccountID(cfg.Account.Name)))
	driver, err := steam.LookupDriver(driverName)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.Cache.Backend, cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open capability cache: %v", err)
	}
	defer store.Close()

	capCache := cache.New(store)
	defer func() {
		if err := capCache.Persist(); err != nil {
			logger.Warn().Err(err).Msg("failed to persist capability cache")
		}
	}()

	probe := rewards.NewCategoryProbe(rewards.ProbeConfig{
		BaseURL: cfg.Sources.StorefrontURL,
		Timeout: cfg.Sources.Timeout.Std(),
	})
	prober := cache.NewProber(capCache, probe.Probe, cache.ProberConfig{
		Window:  cfg.Cache.ProbeWindow,
		Rate:    cfg.Cache.ProbeRate,
		Timeout: cfg.Sources.Timeout.Std(),
	})

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	history := events.NewHistory(broker, 256)
	defer history.Close()

	sup := supervisor.New(supervisor.Config{
		Credentials: steam.Credentials{
			AccountName: cfg.Account.Name,
			Password:    cfg.Account.Password,
		},
		AutoRelogin:       cfg.Connection.AutoRelogin,
		ReconnectFallback: cfg.Connection.ReconnectFallback.Std(),
		PollInterval:      cfg.Connection.PollInterval.Std(),
		PollFailures:      cfg.Connection.PollFailures,
		ConnectTimeout:    cfg.Connection.ConnectTimeout.Std(),
	}, driver, driver, broker)

	sources := &rewards.Sources{
		Feed: rewards.NewFeedClient(rewards.FeedConfig{
			FeedURL:    cfg.Sources.RewardFeedURL,
			CatalogURL: cfg.Sources.OwnedCatalogURL,
			APIKey:     cfg.Account.APIKey,
			Timeout:    cfg.Sources.Timeout.Std(),
		}),
		Document: rewards.NewDocumentClient(rewards.DocumentConfig{
			BaseURL:  cfg.Sources.BadgeDocumentURL,
			MaxPages: cfg.Sources.MaxDocumentPages,
			Timeout:  cfg.Sources.Timeout.Std(),
		}),
		Acct: sup.Session(),
	}

	policy := ranker.MergePolicy{
		DocumentPrecedence:              cfg.Idle.DocumentPrecedence,
		DocumentAuthoritativeOnZeroFeed: cfg.Idle.DocumentAuthoritativeOnZeroFeed,
	}
	target := cfg.Idle.Parallelism
	if cfg.Idle.DisplayLimit < target {
		target = cfg.Idle.DisplayLimit
	}
	rk := ranker.New(ranker.Config{
		Target:             target,
		LowPlaytimeMinutes: cfg.Idle.LowPlaytimeMinutes,
		ProbeBudget:        cfg.Cache.ProbeBudget,
		Policy:             policy,
	}, capCache, prober)

	sched, err := idler.New(idler.Config{
		Parallelism:       cfg.Idle.Parallelism,
		DisplayLimit:      cfg.Idle.DisplayLimit,
		RefreshSchedule:   cfg.Idle.RefreshSchedule,
		ManualAppIDs:      cfg.Idle.ManualAppIDs,
		RestartAfter:      cfg.Idle.RestartAfter.Std(),
		RestartAfterHours: cfg.Idle.RestartAfterHours,
		RestartDelay:      cfg.Idle.RestartDelay.Std(),
		WebCredentialWait: cfg.Idle.WebCredentialWait.Std(),
		Policy:            policy,
	}, sup, sources, rk, sup.Session(), broker)
	if err != nil {
		return fmt.Errorf("failed to create idler: %v", err)
	}

	fatalCh := make(chan error, 1)
	sup.SetHooks(supervisor.Hooks{
		OnConnected: func(initial bool) {
			metrics.UpdateComponent("session", true, "")
			if !initial {
				if err := sched.Reapply(); err != nil {
					logger.Warn().Err(err).Msg("failed to re-declare active set after reconnect")
				}
			}
		},
		OnDisconnected: func(code int) {
			metrics.UpdateComponent("session", false, fmt.Sprintf("disconnected (code %d)", code))
		},
		OnFatalError: func(err error) {
			metrics.UpdateComponent("session", false, err.Error())
			select {
			case fatalCh <- err:
			default:
			}
		},
	})

	metrics.RegisterComponent("session", false, "starting")
	metrics.RegisterComponent("idler", false, "starting")

	collector := metrics.NewCollector(sched, sup, capCache)
	apiServer := api.NewServer(api.Config{Addr: cfg.API.Addr}, api.Deps{
		Idler:   sched,
		Session: sup,
		Account: sup.Session(),
		Cache:   capCache,
		History: history,
	})

	ctx := context.Background()

	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %v", err)
	}
	fmt.Printf("✓ Session connected as %s\n", sup.Session().AccountName())

	if err := sched.Start(ctx); err != nil {
		sup.Stop()
		return fmt.Errorf("failed to start idler: %v", err)
	}
	if sched.State() == types.IdlerStateStopped {
		logger.Warn().Msg("no idle candidates found; daemon stays up for inspection")
		metrics.UpdateComponent("idler", false, "no idle candidates")
	} else {
		fmt.Printf("✓ Idling %d of %d candidate apps\n", sched.ActiveCount(), sched.Target())
		metrics.UpdateComponent("idler", true, "")
	}

	apiStarted := false
	if cfg.API.Addr != "" {
		if err := apiServer.Start(); err != nil {
			sched.Stop()
			sup.Stop()
			return err
		}
		apiStarted = true
		fmt.Printf("✓ API listening on %s\n", apiServer.Addr())
	}

	collector.Start()

	fmt.Println()
	fmt.Println("Daemon is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-fatalCh:
		fmt.Fprintf(os.Stderr, "\nSession failed: %v\n", err)
		runErr = fmt.Errorf("session failed: %v", err)
	}

	sched.Stop()
	sup.Stop()
	collector.Stop()
	if apiStarted {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("API server shutdown failed")
		}
	}

	fmt.Println("✓ Shutdown complete")
	return runErr
}

// loopbackAccountID derives a stable fake account id from the account
// name so dry runs keep consistent identity across restarts.
func loopbackAccountID(name string) uint64 {
	if name == "" {
		name = "loopback"
	}
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}
