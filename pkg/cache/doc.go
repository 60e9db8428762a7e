/*
Package cache holds the permanent app capability classifications.

Whether an app can still yield card drops for anyone is a property of
the app, not of the account, and it effectively never changes. The
cache therefore treats every classification as permanent: an entry is
either known-capable, known-incapable, or absent. Absent entries are
resolved on demand by the Prober, a few at a time, against the
storefront.

# Architecture

	┌──────────────── CAPABILITY CACHE ────────────────┐
	│                                                   │
	│   ranker (broad discovery)                        │
	│       │ Has(id)        │ Resolve(ctx, ids)        │
	│       ▼                ▼                          │
	│   Cache ◄───Set─── Prober                         │
	│       │                │  window-limited,         │
	│       │ Load/Save      │  rate-limited ProbeFunc  │
	│       ▼                ▼                          │
	│   storage.Store     storefront                    │
	│   (file or bolt)                                  │
	└───────────────────────────────────────────────────┘

The cache loads its backing store lazily on first use, exactly once.
A store that cannot be read logs a warning and starts empty; every
classification can be re-earned through probing.

# Probe Discipline

The storefront tolerates little, so the Prober spends carefully:

  - at most Window probes in flight (default 6)
  - probe launches paced by a token limiter (default 2/s)
  - a per-probe deadline (default 10s)
  - ids already classified never cost a probe
  - errors classify nothing, leaving the id for a later attempt

Each Resolve call persists newly learned entries once, as a batch,
through Cache.Persist. Persist failures are logged and swallowed; the
cache keeps the knowledge in memory for the rest of the run.

# Usage

	store, _ := storage.Open("file", "card-capability.json")
	c := cache.New(store)

	probe := func(ctx context.Context, appID uint32) (bool, error) {
		return rewardsProbe.Probe(ctx, appID)
	}
	prober := cache.NewProber(c, probe, cache.DefaultProberConfig())

	resolved := prober.Resolve(ctx, []uint32{10, 440, 570})
	for id, capable := range resolved {
		_ = id
		_ = capable
	}

# See Also

  - pkg/storage: the persistence backends
  - pkg/rewards: the storefront ProbeFunc implementation
  - pkg/ranker: the consumer during broad discovery
*/
package cache
