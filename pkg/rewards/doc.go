/*
Package rewards implements the reward-state adapters: every way the
daemon can learn which owned apps still have card drops left.

Three read-only sources feed the refresh cycle, plus one probe used by
the capability cache. All of them answer the same underlying question
("does app N still reward?") with very different reliability, which is
why the package exports per-app records instead of a merged view. The
merge policy lives in the ranker, not here.

# Sources

	┌──────────────────────────────────────────────────────────┐
	│                        Sources                           │
	│  facade owning one Account (SteamID + web cookies)       │
	└──────┬──────────────────┬──────────────────┬─────────────┘
	       ▼                  ▼                  ▼
	┌─────────────┐   ┌───────────────┐   ┌─────────────┐
	│ FeedClient  │   │ DocumentClient│   │ FeedClient  │
	│ reward feed │   │ badge pages   │   │ owned       │
	│ (JSON, key) │   │ (HTML, cookie)│   │ catalog     │
	└─────────────┘   └───────────────┘   └─────────────┘

  - FeedClient.FetchRewardCounts: numeric per-app remaining counts from
    the keyed JSON feed. Requires an API key; precise when available.
  - DocumentClient.FetchRewardCounts: the badge document scrape. Works
    without an API key but needs the web session cookies, and a badge
    row does not always state a count.
  - FeedClient.FetchOwnedCatalog: the owned-games list with playtime,
    used to rank candidates when no reward source knows anything.

Every adapter is best effort. A transport failure, a non-200 status or
a malformed body is logged, counted in SourceErrorsTotal and yields an
empty result; the refresh cycle decides what to do with missing data.
Callers therefore never see an error from a fetch method.

# Unknown Is Not Zero

A RewardRecord with Remaining == nil means "this app appeared but no
count could be read". ParseBadgeDocument only sets a count when the
page states one:

 1. an explicit "No card drops remaining" marker, or
 2. an explicit "N card drops remaining" count, or
 3. both "Card drops earned" and "Card drops received" totals, in
    which case the difference (clamped at zero) is used.

Anything less leaves Remaining nil so that a flaky page cannot retire
an app that may still reward.

# Capability Probe

CategoryProbe asks the storefront appdetails endpoint for an app's
category list and reports whether category 29 (Steam Trading Cards) is
present. Probes are the one place errors surface to the caller: the
prober must distinguish "no cards" from "could not tell", because a
classification is cached permanently.

A success=false entry is a firm answer. Delisted apps stay delisted,
so they are classified as not capable rather than retried forever.

# Usage

	acct := session // implements rewards.Account
	src := &rewards.Sources{
		Feed: rewards.NewFeedClient(rewards.FeedConfig{
			FeedURL:    cfg.Sources.RewardFeedURL,
			CatalogURL: cfg.Sources.OwnedCatalogURL,
			APIKey:     cfg.Account.APIKey,
		}),
		Document: rewards.NewDocumentClient(rewards.DocumentConfig{
			BaseURL: cfg.Sources.BadgeDocumentURL,
		}),
		Acct: acct,
	}

	records := src.FetchRewardCounts(ctx)

# See Also

  - pkg/ranker: merges feed and document records into one view
  - pkg/cache: persists CategoryProbe classifications
  - pkg/supervisor: provides the Account implementation
*/
package rewards
