package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
)

// ProbeFunc classifies a single app: true when the app can still
// yield card drops for anyone. Errors leave the app unclassified.
type ProbeFunc func(ctx context.Context, appID uint32) (bool, error)

// ProberConfig tunes probe concurrency and pacing.
type ProberConfig struct {
	Window  int           // concurrent probes in flight
	Rate    float64       // probe launches per second
	Timeout time.Duration // per-probe deadline
}

// DefaultProberConfig returns the storefront-friendly defaults.
func DefaultProberConfig() ProberConfig {
	return ProberConfig{
		Window:  6,
		Rate:    2,
		Timeout: 10 * time.Second,
	}
}

// Prober resolves unknown capability classifications through a
// ProbeFunc, a few at a time, and persists what it learned.
type Prober struct {
	cache   *Cache
	probe   ProbeFunc
	cfg     ProberConfig
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewProber creates a prober writing through c. Zero config fields
// fall back to the defaults.
func NewProber(c *Cache, probe ProbeFunc, cfg ProberConfig) *Prober {
	def := DefaultProberConfig()
	if cfg.Window < 1 {
		cfg.Window = def.Window
	}
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Prober{
		cache:   c,
		probe:   probe,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Window),
		logger:  log.WithComponent("prober"),
	}
}

// Resolve returns a classification for every id it can. Already
// cached ids never cost a probe. Ids whose probe errors are absent
// from the result and stay unknown. Newly learned classifications are
// persisted once per call.
func (p *Prober) Resolve(ctx context.Context, appIDs []uint32) map[uint32]bool {
	results := make(map[uint32]bool, len(appIDs))
	var unknown []uint32
	for _, id := range appIDs {
		if capable, known := p.cache.Has(id); known {
			results[id] = capable
			continue
		}
		unknown = append(unknown, id)
	}
	if len(unknown) == 0 {
		return results
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		resolved int
	)
	sem := make(chan struct{}, p.cfg.Window)

	for _, id := range unknown {
		if err := p.limiter.Wait(ctx); err != nil {
			p.logger.Debug().Err(err).Msg("probe batch cut short")
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(appID uint32) {
			defer wg.Done()
			defer func() { <-sem }()

			pctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()

			capable, err := p.probe(pctx, appID)
			if err != nil {
				p.logger.Debug().Err(err).Uint32("app_id", appID).Msg("capability probe failed")
				metrics.CapabilityProbesTotal.WithLabelValues("error").Inc()
				return
			}

			p.cache.Set(appID, capable)
			outcome := "incapable"
			if capable {
				outcome = "capable"
			}
			metrics.CapabilityProbesTotal.WithLabelValues(outcome).Inc()

			mu.Lock()
			results[appID] = capable
			resolved++
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	if resolved > 0 {
		if err := p.cache.Persist(); err != nil {
			p.logger.Warn().Err(err).Msg("capability cache persist failed")
		}
	}
	return results
}
