/*
Package ranker turns reward records and the owned catalog into an
ordered list of idling candidates.

# Pipeline

	feed records       document records        owned catalog
	      │                   │                      │
	      └────── Merge ──────┘                      │
	              │                                  │
	       direct hits (remaining > 0)               │
	       sorted hours desc, remaining              │
	       desc, app id asc                          │
	              │                                  ▼
	              │                        broad mode (only when
	              │                        direct hits < target):
	              │                        never played → low
	              │                        playtime → rest, gated
	              │                        by the capability cache
	              └───────────┬──────────────────────┘
	                          ▼
	              direct hits, then broad finds

# Merge Policy

When both sources report a count for the same app one of them has to
win. The document is the default winner ("prefer"): it is scraped
from the authoritative badge page, while the numeric feed lags. The
"fallback" policy inverts that for accounts whose feed is trustworthy,
with an optional escape hatch: a feed that reports zero remaining for
every single app has usually flatlined, and the
DocumentAuthoritativeOnZeroFeed flag hands the decision back to the
document for that cycle.

A count only one source knows is always used. An unknown count never
overwrites a known one, whichever way precedence points.

# Broad Mode

Direct hits can run dry while the account still owns hundreds of
unplayed games with card drops. Broad mode walks the catalog in tiers
(never played first, they always have full drops left) and asks the
capability cache whether each app can drop cards at all. Unknown apps
cost a storefront probe; the per-call probe budget bounds that spend,
so a Rank call terminates even on a six-figure catalog.

Ranking is deterministic for identical inputs. Probes run batched
behind a concurrency window, but results are consumed in catalog
order.

# See Also

  - pkg/idler: calls Rank during discovery and refresh top-up
  - pkg/cache: the capability cache and prober
  - pkg/rewards: produces the records fed into Merge
*/
package ranker
