package metrics

import (
	"time"

	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// IdlerStats is the slice of the idling scheduler the collector reads.
type IdlerStats interface {
	State() types.IdlerState
	ActiveCount() int
	EverRewardedCount() int
}

// SessionStats is the slice of the session supervisor the collector reads.
type SessionStats interface {
	State() types.ConnState
}

// CacheStats is the slice of the capability cache the collector reads.
type CacheStats interface {
	Len() int
}

// Collector periodically copies gauge-shaped state into Prometheus.
// Counters and histograms are written at the point of action; only
// values that must be sampled live here.
type Collector struct {
	idler    IdlerStats
	session  SessionStats
	cache    CacheStats
	interval time.Duration
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector. Any source may be nil
// and is then skipped.
func NewCollector(idler IdlerStats, session SessionStats, cache CacheStats) *Collector {
	return &Collector{
		idler:    idler,
		session:  session,
		cache:    cache,
		interval: 15 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	if c.idler != nil {
		ActiveSetSize.Set(float64(c.idler.ActiveCount()))
		EverRewardedTotal.Set(float64(c.idler.EverRewardedCount()))

		current := c.idler.State()
		for _, st := range []types.IdlerState{
			types.IdlerStateIdle,
			types.IdlerStateDiscovering,
			types.IdlerStateActive,
			types.IdlerStateRefreshing,
			types.IdlerStateStopped,
		} {
			v := 0.0
			if st == current {
				v = 1
			}
			IdlerState.WithLabelValues(string(st)).Set(v)
		}
	}

	if c.session != nil {
		if c.session.State() == types.ConnStateConnected {
			SessionConnected.Set(1)
		} else {
			SessionConnected.Set(0)
		}
	}

	if c.cache != nil {
		CapabilityCacheSize.Set(float64(c.cache.Len()))
	}
}
