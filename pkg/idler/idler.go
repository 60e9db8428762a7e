package idler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
	"github.com/ArtyProf/steam-card-idler/pkg/ranker"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

var (
	// ErrRefreshInFlight is returned when a refresh is requested while
	// another one is still running.
	ErrRefreshInFlight = errors.New("refresh already in flight")

	// ErrNotActive is returned when a refresh is requested and the
	// scheduler is not in the Active state.
	ErrNotActive = errors.New("idler is not active")
)

// Declarer applies an active set to the live session.
type Declarer interface {
	DeclareActive(appIDs []uint32) error
}

// Sources is the slice of the reward adapters the scheduler consumes.
type Sources interface {
	Configured() bool
	FetchRewardCounts(ctx context.Context) []types.RewardRecord
	FetchDocumentRewardCounts(ctx context.Context) []types.RewardRecord
	FetchOwnedCatalog(ctx context.Context) []types.OwnedGame
}

// Ranker orders idling candidates from reward records and the owned
// catalog, excluding ids the scheduler has already consumed.
type Ranker interface {
	Rank(ctx context.Context, primary, document []types.RewardRecord, owned []types.OwnedGame, exclude map[uint32]bool) []uint32
}

// CredentialWaiter blocks until the web session material the document
// adapter needs is available, or the timeout passes.
type CredentialWaiter interface {
	WaitWebCookies(ctx context.Context, timeout time.Duration) bool
}

// Config tunes the Scheduler.
type Config struct {
	Parallelism     int
	DisplayLimit    int
	RefreshSchedule string

	// ManualAppIDs is the candidate list used when no reward source
	// is configured at all.
	ManualAppIDs []uint32

	// RestartAfterHours is the growth in hours-on-record that marks
	// an app as stuck; RestartAfter is the wall-clock fallback used
	// when no hours signal is available for the app.
	RestartAfter      time.Duration
	RestartAfterHours float64
	RestartDelay      time.Duration

	WebCredentialWait time.Duration

	Policy ranker.MergePolicy
}

// activeApp is the scheduler's bookkeeping for one idling app.
type activeApp struct {
	addedAt     time.Time
	baseHours   *float64
	lastBounce  time.Time
	bouncing    bool
	bounceTimer *time.Timer
}

// Scheduler owns the Active Set. It discovers candidates once on
// Start, refreshes them on a cron schedule, retires apps whose drops
// are confirmed exhausted, and restarts apps that idle too long
// without progress.
//
// All set mutations happen under one mutex; the only concurrency the
// scheduler tolerates underneath is the prober's bounded fan-out,
// which never touches scheduler state.
type Scheduler struct {
	cfg      Config
	target   int
	declarer Declarer
	sources  Sources
	ranker   Ranker
	creds    CredentialWaiter
	broker   *events.Broker
	schedule cron.Schedule
	logger   zerolog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc

	mu           sync.Mutex
	state        types.IdlerState
	active       map[uint32]*activeApp
	everRewarded map[uint32]bool
	used         map[uint32]bool
	lastDeclared []uint32
	refreshing   bool
	lastRefresh  time.Time
	nextRefresh  time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
}

// discovery is one full candidate-gathering pass.
type discovery struct {
	candidates []uint32
	positive   map[uint32]bool
	hours      map[uint32]float64
}

// New creates a Scheduler. The refresh schedule is parsed eagerly so
// a bad expression fails startup instead of the first cycle. creds
// may be nil when no web session will ever exist.
func New(cfg Config, declarer Declarer, sources Sources, rk Ranker, creds CredentialWaiter, broker *events.Broker) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(cfg.RefreshSchedule)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", cfg.RefreshSchedule, err)
	}

	target := cfg.Parallelism
	if cfg.DisplayLimit < target {
		target = cfg.DisplayLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:          cfg,
		target:       target,
		declarer:     declarer,
		sources:      sources,
		ranker:       rk,
		creds:        creds,
		broker:       broker,
		schedule:     schedule,
		logger:       log.WithComponent("idler"),
		baseCtx:      ctx,
		cancel:       cancel,
		state:        types.IdlerStateIdle,
		active:       make(map[uint32]*activeApp),
		everRewarded: make(map[uint32]bool),
		used:         make(map[uint32]bool),
		stopCh:       make(chan struct{}),
	}, nil
}

// Start runs discovery and, when it yields candidates, declares the
// initial active set and arms the refresh schedule. An empty
// candidate list is not an error: the scheduler logs it and settles
// in Stopped.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != types.IdlerStateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("idler already started (state %s)", state)
	}
	s.state = types.IdlerStateDiscovering
	s.mu.Unlock()

	timer := metrics.NewTimer()
	disc := s.discover(ctx)
	timer.ObserveDuration(metrics.DiscoveryDuration)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != types.IdlerStateDiscovering {
		// Stopped while we were fetching.
		return nil
	}

	for id := range disc.positive {
		s.everRewarded[id] = true
	}

	if len(disc.candidates) == 0 {
		s.state = types.IdlerStateStopped
		s.logger.Info().Msg("discovery found nothing to idle, stopping")
		s.publish(events.EventDiscoveryEmpty, "discovery found nothing to idle", nil)
		return nil
	}

	added := s.admitLocked(disc.candidates, disc.hours)
	if err := s.declareLocked(); err != nil {
		s.state = types.IdlerStateStopped
		return fmt.Errorf("initial declare failed: %w", err)
	}
	s.state = types.IdlerStateActive
	s.nextRefresh = s.schedule.Next(time.Now())

	s.logger.Info().
		Int("active", len(s.active)).
		Int("admitted", added).
		Int("target", s.target).
		Msg("idling started")

	go s.run()
	return nil
}

// Stop disarms the schedule and any pending restart timers, empties
// the active set, and declares nothing in play. Safe to call more
// than once and at any state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == types.IdlerStateStopped {
		s.mu.Unlock()
		return
	}
	s.state = types.IdlerStateStopped
	for _, app := range s.active {
		if app.bounceTimer != nil {
			app.bounceTimer.Stop()
		}
	}
	s.active = make(map[uint32]*activeApp)
	declareErr := s.declareLocked()
	s.mu.Unlock()

	s.cancel()
	s.stopOnce.Do(func() { close(s.stopCh) })

	if declareErr != nil {
		s.logger.Warn().Err(declareErr).Msg("empty declare on stop failed")
	}
	s.logger.Info().Msg("idler stopped")
	s.publish(events.EventIdlerStopped, "idler stopped", nil)
}

// RefreshNow runs a refresh cycle outside the schedule. It reports
// ErrRefreshInFlight when one is already running and ErrNotActive
// when there is nothing to refresh.
func (s *Scheduler) RefreshNow() error {
	return s.refresh(s.baseCtx, "manual")
}

// Reapply re-declares the last declared set verbatim. The supervisor
// calls this after a reconnect, when the remote side has forgotten
// the declaration but the scheduler's decisions still stand. It
// bypasses the no-change check for exactly that reason.
func (s *Scheduler) Reapply() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lastDeclared) == 0 {
		return nil
	}
	if err := s.declarer.DeclareActive(s.lastDeclared); err != nil {
		return fmt.Errorf("reapply declare failed: %w", err)
	}
	metrics.DeclaresTotal.Inc()
	s.logger.Info().Int("apps", len(s.lastDeclared)).Msg("active set reapplied after reconnect")
	s.publish(events.EventSetApplied, "active set reapplied after reconnect", map[string]string{
		"apps": joinIDs(s.lastDeclared),
	})
	return nil
}

// State returns the current scheduler state.
func (s *Scheduler) State() types.IdlerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveSet returns a snapshot of the active apps, app id ascending.
func (s *Scheduler) ActiveSet() []types.ActiveApp {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.ActiveApp, 0, len(s.active))
	for id, app := range s.active {
		out = append(out, types.ActiveApp{
			AppID:      id,
			AddedAt:    app.addedAt,
			LastBounce: app.lastBounce,
			Bouncing:   app.bouncing,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppID < out[j].AppID })
	return out
}

// ActiveCount returns the active set size.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// EverRewardedCount returns how many distinct apps have been observed
// with a positive remaining count.
func (s *Scheduler) EverRewardedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.everRewarded)
}

// LastRefresh returns when the last refresh cycle finished. Zero
// before the first cycle.
func (s *Scheduler) LastRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefresh
}

// NextRefresh returns when the schedule fires next.
func (s *Scheduler) NextRefresh() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRefresh
}

// Target returns the active set capacity.
func (s *Scheduler) Target() int { return s.target }

// run is the schedule loop. Each pass computes the next fire time so
// cron expressions and @every intervals both work.
func (s *Scheduler) run() {
	for {
		s.mu.Lock()
		next := s.schedule.Next(time.Now())
		s.nextRefresh = next
		s.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			err := s.refresh(s.baseCtx, "schedule")
			if errors.Is(err, ErrRefreshInFlight) {
				s.logger.Warn().Msg("scheduled refresh skipped, previous cycle still running")
			}
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// refresh runs one guarded cycle. Any error inside the cycle is
// logged and counted; the schedule keeps going regardless.
func (s *Scheduler) refresh(ctx context.Context, trigger string) error {
	s.mu.Lock()
	if s.refreshing {
		s.mu.Unlock()
		return ErrRefreshInFlight
	}
	if s.state != types.IdlerStateActive {
		s.mu.Unlock()
		return ErrNotActive
	}
	s.refreshing = true
	s.state = types.IdlerStateRefreshing
	s.mu.Unlock()

	cycle := uuid.New().String()[:8]
	logger := s.logger.With().Str("cycle", cycle).Str("trigger", trigger).Logger()

	timer := metrics.NewTimer()
	err := s.runCycle(ctx, logger)
	timer.ObserveDuration(metrics.RefreshDuration)

	s.mu.Lock()
	s.refreshing = false
	if s.state == types.IdlerStateRefreshing {
		s.state = types.IdlerStateActive
	}
	s.lastRefresh = time.Now()
	s.mu.Unlock()

	if err != nil {
		metrics.RefreshFailuresTotal.Inc()
		logger.Error().Err(err).Msg("refresh cycle failed")
		return err
	}
	metrics.RefreshCyclesTotal.Inc()
	return nil
}

// runCycle fetches reward state, retires exhausted apps, bounces
// stuck ones, and tops the set back up to target.
func (s *Scheduler) runCycle(ctx context.Context, logger zerolog.Logger) error {
	primary := s.sources.FetchRewardCounts(ctx)
	document := s.sources.FetchDocumentRewardCounts(ctx)
	merged := ranker.Merge(primary, document, s.cfg.Policy)

	// Configured sources that all came back empty look like an
	// outage, not a finished account. Removing apps on that evidence
	// would retire the whole set on a bad network minute.
	if len(merged) == 0 && s.sources.Configured() {
		return errors.New("every reward source returned nothing")
	}

	positive := ranker.PositiveSet(merged)
	hours := ranker.HoursIndex(merged)

	s.mu.Lock()
	if s.state != types.IdlerStateRefreshing {
		s.mu.Unlock()
		return nil
	}

	for id := range positive {
		s.everRewarded[id] = true
	}

	removed := 0
	for id, app := range s.active {
		if !s.everRewarded[id] || positive[id] {
			continue
		}
		if app.bounceTimer != nil {
			app.bounceTimer.Stop()
		}
		delete(s.active, id)
		removed++
		metrics.AppsExhaustedTotal.Inc()
		logger.Info().Uint32("app_id", id).Msg("app retired, drops exhausted")
		s.publish(events.EventAppExhausted, fmt.Sprintf("app %d retired, drops exhausted", id), map[string]string{
			"app_id": strconv.FormatUint(uint64(id), 10),
		})
	}

	bounced := s.scanBouncesLocked(hours)
	short := len(s.active) < s.target
	s.mu.Unlock()

	var candidates []uint32
	if short {
		candidates = s.topUp(ctx, primary, document, positive)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != types.IdlerStateRefreshing {
		return nil
	}
	added := s.admitLocked(candidates, hours)
	if err := s.declareLocked(); err != nil {
		return err
	}

	logger.Info().
		Int("active", len(s.active)).
		Int("removed", removed).
		Int("added", added).
		Int("bounced", bounced).
		Msg("refresh cycle complete")
	return nil
}

// discover is the initial candidate pass: wait briefly for the web
// session, fetch reward state, and rank. With no reward source
// configured the manual list is the whole answer.
func (s *Scheduler) discover(ctx context.Context) discovery {
	if !s.sources.Configured() {
		s.logger.Info().
			Int("manual", len(s.cfg.ManualAppIDs)).
			Msg("no reward source configured, using manual app list")
		return discovery{candidates: s.cfg.ManualAppIDs}
	}

	if s.creds != nil && s.cfg.WebCredentialWait > 0 {
		if !s.creds.WaitWebCookies(ctx, s.cfg.WebCredentialWait) {
			s.logger.Debug().Msg("web session not ready, document source may be empty")
		}
	}

	primary := s.sources.FetchRewardCounts(ctx)
	document := s.sources.FetchDocumentRewardCounts(ctx)
	merged := ranker.Merge(primary, document, s.cfg.Policy)
	positive := ranker.PositiveSet(merged)
	hours := ranker.HoursIndex(merged)

	owned := s.fetchOwnedIfShort(ctx, positive, nil)
	candidates := s.ranker.Rank(ctx, primary, document, owned, s.usedSnapshot())

	return discovery{candidates: candidates, positive: positive, hours: hours}
}

// topUp ranks replacement candidates mid-cycle, reusing the records
// already fetched this cycle.
func (s *Scheduler) topUp(ctx context.Context, primary, document []types.RewardRecord, positive map[uint32]bool) []uint32 {
	exclude := s.usedSnapshot()
	owned := s.fetchOwnedIfShort(ctx, positive, exclude)
	return s.ranker.Rank(ctx, primary, document, owned, exclude)
}

// fetchOwnedIfShort fetches the owned catalog only when the positive
// records cannot fill the target on their own, since broad mode is
// the only consumer of the catalog.
func (s *Scheduler) fetchOwnedIfShort(ctx context.Context, positive map[uint32]bool, exclude map[uint32]bool) []types.OwnedGame {
	usable := 0
	for id := range positive {
		if !exclude[id] {
			usable++
		}
	}
	if usable >= s.target {
		return nil
	}
	return s.sources.FetchOwnedCatalog(ctx)
}

// admitLocked adds candidates to the active set up to target,
// skipping ids that were ever admitted before.
func (s *Scheduler) admitLocked(candidates []uint32, hours map[uint32]float64) int {
	added := 0
	now := time.Now()
	for _, id := range candidates {
		if len(s.active) >= s.target {
			break
		}
		if s.used[id] {
			continue
		}
		app := &activeApp{addedAt: now}
		if h, ok := hours[id]; ok {
			v := h
			app.baseHours = &v
		}
		s.active[id] = app
		s.used[id] = true
		added++
	}
	return added
}

// declareLocked sends the current active set to the session: sorted,
// truncated to the display limit, bouncing apps excluded. Identical
// consecutive declarations are skipped.
func (s *Scheduler) declareLocked() error {
	ids := make([]uint32, 0, len(s.active))
	for id, app := range s.active {
		if app.bouncing {
			continue
		}
		ids = append(ids, id)
	}
	types.SortAppIDs(ids)
	if len(ids) > s.cfg.DisplayLimit {
		ids = ids[:s.cfg.DisplayLimit]
	}

	if equalIDs(ids, s.lastDeclared) {
		return nil
	}
	if err := s.declarer.DeclareActive(ids); err != nil {
		return err
	}
	s.lastDeclared = ids
	metrics.DeclaresTotal.Inc()
	s.publish(events.EventSetApplied, fmt.Sprintf("%d apps declared in play", len(ids)), map[string]string{
		"apps": joinIDs(ids),
	})
	return nil
}

// scanBouncesLocked marks stuck apps as bouncing and arms their
// re-declare timers. An app bounces when its hours-on-record grew by
// RestartAfterHours since admission or its last bounce; apps with no
// hours signal fall back to wall-clock age.
func (s *Scheduler) scanBouncesLocked(hours map[uint32]float64) int {
	now := time.Now()
	count := 0
	for id, app := range s.active {
		if app.bouncing {
			continue
		}

		trigger := false
		if h, ok := hours[id]; ok {
			if app.baseHours == nil {
				v := h
				app.baseHours = &v
			} else if h-*app.baseHours >= s.cfg.RestartAfterHours {
				trigger = true
				v := h
				app.baseHours = &v
			}
		} else {
			baseline := app.addedAt
			if !app.lastBounce.IsZero() {
				baseline = app.lastBounce
			}
			if now.Sub(baseline) >= s.cfg.RestartAfter {
				trigger = true
			}
		}

		if trigger {
			app.bouncing = true
			appID := id
			app.bounceTimer = time.AfterFunc(s.cfg.RestartDelay, func() { s.completeBounce(appID) })
			count++
		}
	}
	return count
}

// completeBounce re-admits a bounced app to the declared set after
// the restart delay.
func (s *Scheduler) completeBounce(appID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.IdlerStateStopped {
		return
	}
	app, ok := s.active[appID]
	if !ok || !app.bouncing {
		return
	}
	app.bouncing = false
	app.lastBounce = time.Now()
	app.bounceTimer = nil

	if err := s.declareLocked(); err != nil {
		s.logger.Warn().Err(err).Uint32("app_id", appID).Msg("re-declare after app restart failed")
		return
	}
	metrics.AppsRestartedTotal.Inc()
	s.logger.Info().Uint32("app_id", appID).Msg("app restarted to re-register the session")
	s.publish(events.EventAppRestarted, fmt.Sprintf("app %d restarted", appID), map[string]string{
		"app_id": strconv.FormatUint(uint64(appID), 10),
	})
}

func (s *Scheduler) usedSnapshot() map[uint32]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint32]bool, len(s.used))
	for id := range s.used {
		out[id] = true
	}
	return out
}

func (s *Scheduler) publish(eventType events.EventType, msg string, meta map[string]string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(&events.Event{Type: eventType, Message: msg, Metadata: meta})
}

func equalIDs(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func joinIDs(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ",")
}
