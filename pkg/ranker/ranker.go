package ranker

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/cache"
	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

// MergePolicy decides which source wins when the numeric feed and the
// badge document both report a remaining count for the same app.
type MergePolicy struct {
	// DocumentPrecedence is "prefer" (document wins) or "fallback"
	// (feed wins, document fills gaps).
	DocumentPrecedence string

	// DocumentAuthoritativeOnZeroFeed flips a "fallback" policy to
	// document-wins when the feed reports zero remaining for every
	// app it mentions. A feed that has gone stale tends to flatline
	// at zero; the document is the better witness then.
	DocumentAuthoritativeOnZeroFeed bool
}

// Config tunes a Ranker.
type Config struct {
	// Target is how many candidates discovery wants, normally
	// min(parallelism, display limit).
	Target int

	// LowPlaytimeMinutes bounds the second broad-mode tier.
	LowPlaytimeMinutes int

	// ProbeBudget caps how many capability probes a single Rank call
	// may spend. Zero disables probing; cached classifications still
	// apply.
	ProbeBudget int

	Policy MergePolicy
}

// Ranker turns raw reward records and the owned catalog into an
// ordered candidate list.
type Ranker struct {
	cfg    Config
	cache  *cache.Cache
	prober *cache.Prober
	logger zerolog.Logger
}

// New creates a Ranker. The cache and prober drive broad mode and
// must not be nil.
func New(cfg Config, c *cache.Cache, p *cache.Prober) *Ranker {
	return &Ranker{
		cfg:    cfg,
		cache:  c,
		prober: p,
		logger: log.WithComponent("ranker"),
	}
}

// Rank merges the reward records, sorts the apps that still have
// drops, and tops the list up from the owned catalog when they are
// fewer than the target. Ids in exclude are never returned. The
// result is deterministic for identical inputs.
func (r *Ranker) Rank(ctx context.Context, primary, document []types.RewardRecord, owned []types.OwnedGame, exclude map[uint32]bool) []uint32 {
	merged := Merge(primary, document, r.cfg.Policy)

	chosen := make(map[uint32]bool)
	out := make([]uint32, 0, r.cfg.Target)
	for _, rec := range directHits(merged) {
		if exclude[rec.AppID] || chosen[rec.AppID] {
			continue
		}
		chosen[rec.AppID] = true
		out = append(out, rec.AppID)
	}
	direct := len(out)

	if need := r.cfg.Target - len(out); need > 0 {
		skip := func(id uint32) bool { return exclude[id] || chosen[id] }
		for _, id := range r.broadFill(ctx, owned, skip, need) {
			chosen[id] = true
			out = append(out, id)
		}
	}

	r.logger.Debug().
		Int("direct", direct).
		Int("broad", len(out)-direct).
		Int("target", r.cfg.Target).
		Msg("candidates ranked")
	return out
}

// broadFill walks the tiered owned catalog and collects up to need
// capability-positive ids. Cached classifications are free; unknown
// apps cost one probe each against the budget. Probes are batched so
// the prober's concurrency window is not wasted, but results are
// consumed in catalog order to keep the output deterministic.
func (r *Ranker) broadFill(ctx context.Context, owned []types.OwnedGame, skip func(uint32) bool, need int) []uint32 {
	found := make([]uint32, 0, need)
	budget := r.cfg.ProbeBudget
	var pending []uint32

	flush := func() {
		if len(pending) == 0 {
			return
		}
		results := r.prober.Resolve(ctx, pending)
		for _, id := range pending {
			if results[id] && len(found) < need {
				found = append(found, id)
			}
		}
		pending = pending[:0]
	}

	seen := make(map[uint32]bool)
	for _, g := range broadOrder(owned, r.cfg.LowPlaytimeMinutes) {
		if len(found) >= need {
			break
		}
		id := g.AppID
		if skip(id) || seen[id] {
			continue
		}
		seen[id] = true

		if capable, known := r.cache.Has(id); known {
			// Settle in-flight probes first so earlier catalog
			// positions keep their priority.
			flush()
			if len(found) < need && capable {
				found = append(found, id)
			}
			continue
		}

		if budget <= 0 {
			continue
		}
		budget--
		pending = append(pending, id)
		if len(pending) >= need-len(found) {
			flush()
		}
	}
	flush()

	if len(found) > need {
		found = found[:need]
	}
	return found
}

// Merge combines feed and document records by app id under the given
// policy. Where only one source knows a count, that count is used
// regardless of precedence. The result is sorted by app id.
func Merge(primary, document []types.RewardRecord, policy MergePolicy) []types.RewardRecord {
	docWins := policy.DocumentPrecedence != "fallback"
	if !docWins && policy.DocumentAuthoritativeOnZeroFeed && allZero(primary) {
		docWins = true
	}

	merged := make(map[uint32]types.RewardRecord, len(primary)+len(document))
	for _, rec := range primary {
		merged[rec.AppID] = rec
	}
	for _, rec := range document {
		base, ok := merged[rec.AppID]
		if !ok {
			merged[rec.AppID] = rec
			continue
		}
		merged[rec.AppID] = combine(base, rec, docWins)
	}

	out := make([]types.RewardRecord, 0, len(merged))
	for _, rec := range merged {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out
}

func combine(feed, doc types.RewardRecord, docWins bool) types.RewardRecord {
	out := types.RewardRecord{AppID: feed.AppID}

	switch {
	case docWins && doc.Remaining != nil:
		out.Remaining = doc.Remaining
	case docWins:
		out.Remaining = feed.Remaining
	case feed.Remaining != nil:
		out.Remaining = feed.Remaining
	default:
		out.Remaining = doc.Remaining
	}

	if doc.Hours != nil {
		out.Hours = doc.Hours
	} else {
		out.Hours = feed.Hours
	}
	return out
}

// allZero reports whether every record carries an explicit zero. An
// empty slice is not "all zero": a silent feed is unknown, not stale.
func allZero(records []types.RewardRecord) bool {
	if len(records) == 0 {
		return false
	}
	for _, rec := range records {
		if rec.Remaining == nil || *rec.Remaining != 0 {
			return false
		}
	}
	return true
}

// PositiveSet returns the ids of all records that still have drops.
func PositiveSet(records []types.RewardRecord) map[uint32]bool {
	set := make(map[uint32]bool)
	for _, rec := range records {
		if rec.HasDrops() {
			set[rec.AppID] = true
		}
	}
	return set
}

// HoursIndex returns app id to hours-on-record for every record that
// reports hours.
func HoursIndex(records []types.RewardRecord) map[uint32]float64 {
	idx := make(map[uint32]float64)
	for _, rec := range records {
		if rec.Hours != nil {
			idx[rec.AppID] = *rec.Hours
		}
	}
	return idx
}

// directHits filters records with a positive remaining count and
// sorts them hours descending (unknown hours last), then remaining
// descending, then app id ascending.
func directHits(merged []types.RewardRecord) []types.RewardRecord {
	hits := make([]types.RewardRecord, 0, len(merged))
	for _, rec := range merged {
		if rec.HasDrops() {
			hits = append(hits, rec)
		}
	}

	hoursOf := func(rec types.RewardRecord) float64 {
		if rec.Hours == nil {
			return -1
		}
		return *rec.Hours
	}
	sort.SliceStable(hits, func(i, j int) bool {
		hi, hj := hoursOf(hits[i]), hoursOf(hits[j])
		if hi != hj {
			return hi > hj
		}
		if *hits[i].Remaining != *hits[j].Remaining {
			return *hits[i].Remaining > *hits[j].Remaining
		}
		return hits[i].AppID < hits[j].AppID
	})
	return hits
}

// broadOrder sorts the owned catalog into the broad-mode tiers:
// never played, low playtime, then the rest, playtime ascending and
// app id ascending within each tier.
func broadOrder(owned []types.OwnedGame, lowPlaytimeMinutes int) []types.OwnedGame {
	tier := func(g types.OwnedGame) int {
		switch {
		case g.PlaytimeMinutes == 0:
			return 0
		case g.PlaytimeMinutes <= lowPlaytimeMinutes:
			return 1
		default:
			return 2
		}
	}

	out := make([]types.OwnedGame, len(owned))
	copy(out, owned)
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := tier(out[i]), tier(out[j])
		if ti != tj {
			return ti < tj
		}
		if out[i].PlaytimeMinutes != out[j].PlaytimeMinutes {
			return out[i].PlaytimeMinutes < out[j].PlaytimeMinutes
		}
		return out[i].AppID < out[j].AppID
	})
	return out
}
