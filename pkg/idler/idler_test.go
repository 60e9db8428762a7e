package idler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

type fakeDeclarer struct {
	mu    sync.Mutex
	calls [][]uint32
	err   error
}

func (d *fakeDeclarer) DeclareActive(ids []uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	cp := make([]uint32, len(ids))
	copy(cp, ids)
	d.calls = append(d.calls, cp)
	return nil
}

func (d *fakeDeclarer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func (d *fakeDeclarer) last() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		return nil
	}
	return d.calls[len(d.calls)-1]
}

type fakeSources struct {
	mu         sync.Mutex
	configured bool
	primary    []types.RewardRecord
	document   []types.RewardRecord
	owned      []types.OwnedGame
	block      chan struct{}
}

func (f *fakeSources) Configured() bool { return f.configured }

func (f *fakeSources) FetchRewardCounts(ctx context.Context) []types.RewardRecord {
	f.mu.Lock()
	block, out := f.block, f.primary
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	return out
}

func (f *fakeSources) FetchDocumentRewardCounts(ctx context.Context) []types.RewardRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.document
}

func (f *fakeSources) FetchOwnedCatalog(ctx context.Context) []types.OwnedGame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.owned
}

func (f *fakeSources) set(primary, document []types.RewardRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.primary, f.document = primary, document
}

func (f *fakeSources) setBlock(ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.block = ch
}

type fakeRanker struct {
	mu     sync.Mutex
	result []uint32
	calls  int
}

func (r *fakeRanker) Rank(ctx context.Context, primary, document []types.RewardRecord, owned []types.OwnedGame, exclude map[uint32]bool) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	out := make([]uint32, 0, len(r.result))
	for _, id := range r.result {
		if !exclude[id] {
			out = append(out, id)
		}
	}
	return out
}

func (r *fakeRanker) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeCreds struct {
	mu     sync.Mutex
	waited int
	ready  bool
}

func (c *fakeCreds) WaitWebCookies(ctx context.Context, timeout time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.waited++
	return c.ready
}

func testConfig() Config {
	return Config{
		Parallelism:       5,
		DisplayLimit:      32,
		RefreshSchedule:   "@every 1h",
		RestartAfter:      time.Hour,
		RestartAfterHours: 1.0,
		RestartDelay:      10 * time.Millisecond,
		WebCredentialWait: 10 * time.Millisecond,
	}
}

func newTestScheduler(t *testing.T, cfg Config, d *fakeDeclarer, src *fakeSources, rk *fakeRanker) *Scheduler {
	t.Helper()
	s, err := New(cfg, d, src, rk, nil, nil)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}

func TestNewRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSchedule = "whenever"

	_, err := New(cfg, &fakeDeclarer{}, &fakeSources{}, &fakeRanker{}, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid refresh schedule")
}

func TestStartDeclaresInitialSet(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{
		configured: true,
		primary:    []types.RewardRecord{{AppID: 730, Remaining: intp(3)}},
	}
	rk := &fakeRanker{result: []uint32{730}}

	s := newTestScheduler(t, testConfig(), d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, types.IdlerStateActive, s.State())
	assert.Equal(t, 1, d.count(), "declare must fire exactly once on start")
	assert.Equal(t, []uint32{730}, d.last())
	assert.Equal(t, 1, s.ActiveCount())
	assert.Equal(t, 1, s.EverRewardedCount())
	assert.False(t, s.NextRefresh().IsZero())
}

func TestStartCapsActiveSetAtTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 3

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 1, Remaining: intp(1)},
		{AppID: 2, Remaining: intp(1)},
		{AppID: 3, Remaining: intp(1)},
		{AppID: 4, Remaining: intp(1)},
		{AppID: 5, Remaining: intp(1)},
	}}
	rk := &fakeRanker{result: []uint32{1, 2, 3, 4, 5}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, 3, s.ActiveCount())
	assert.Equal(t, []uint32{1, 2, 3}, d.last())
}

func TestStartDisplayLimitBoundsTarget(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 10
	cfg.DisplayLimit = 2

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 1, Remaining: intp(1)},
		{AppID: 2, Remaining: intp(1)},
		{AppID: 3, Remaining: intp(1)},
	}}
	rk := &fakeRanker{result: []uint32{3, 1, 2}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, 2, s.ActiveCount())
	assert.Equal(t, []uint32{1, 3}, d.last(), "declared ids are sorted ascending")
}

func TestStartEmptyDiscoveryStops(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{configured: true}
	rk := &fakeRanker{}

	s := newTestScheduler(t, testConfig(), d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, types.IdlerStateStopped, s.State())
	assert.Zero(t, d.count(), "no side effect on empty discovery")
}

func TestStartManualFallback(t *testing.T) {
	cfg := testConfig()
	cfg.ManualAppIDs = []uint32{100, 200}

	d := &fakeDeclarer{}
	src := &fakeSources{configured: false}
	rk := &fakeRanker{result: []uint32{9999}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	assert.Equal(t, types.IdlerStateActive, s.State())
	assert.Equal(t, []uint32{100, 200}, d.last())
	assert.Zero(t, rk.callCount(), "manual mode does not rank")
}

func TestStartWaitsForWebCredentials(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{
		configured: true,
		primary:    []types.RewardRecord{{AppID: 10, Remaining: intp(1)}},
	}
	rk := &fakeRanker{result: []uint32{10}}
	creds := &fakeCreds{ready: true}

	s, err := New(testConfig(), d, src, rk, creds, nil)
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.NoError(t, s.Start(context.Background()))
	creds.mu.Lock()
	defer creds.mu.Unlock()
	assert.Equal(t, 1, creds.waited)
}

func TestStartTwiceFails(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{{AppID: 10, Remaining: intp(1)}}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, testConfig(), d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.Error(t, s.Start(context.Background()))
}

func TestRefreshRemovesExhaustedAndTopsUp(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 3

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
		{AppID: 20, Remaining: intp(3)},
		{AppID: 30, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10, 20, 30, 40}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, []uint32{10, 20, 30}, d.last())

	// Next cycle: only 10 still has drops left.
	src.set([]types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
		{AppID: 20, Remaining: intp(0)},
		{AppID: 30, Remaining: intp(0)},
	}, nil)

	require.NoError(t, s.RefreshNow())

	assert.Equal(t, []uint32{10, 40}, d.last(), "20 and 30 retired, 40 topped up")
	assert.Equal(t, 2, rk.callCount(), "discovery plus one top-up")
	assert.Equal(t, types.IdlerStateActive, s.State())
}

func TestRefreshNeverRemovesUnobservedApps(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 2

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(2)},
	}}
	// 77 comes from broad mode and has never shown a positive count.
	rk := &fakeRanker{result: []uint32{10, 77}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, []uint32{10, 77}, d.last())

	// 10 is now exhausted; 77 is still absent from every source.
	src.set([]types.RewardRecord{{AppID: 10, Remaining: intp(0)}}, nil)
	require.NoError(t, s.RefreshNow())

	assert.Equal(t, []uint32{77}, d.last(), "missing data alone must not remove 77")
}

func TestRefreshDoesNotReadmitUsedIDs(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 1

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(1)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	// 10 finishes. The ranker still offers it, but it was consumed.
	src.set([]types.RewardRecord{{AppID: 10, Remaining: intp(0)}}, nil)
	require.NoError(t, s.RefreshNow())

	assert.Equal(t, []uint32{}, d.last())
	assert.Zero(t, s.ActiveCount())
}

func TestRefreshSkipsDeclareWhenUnchanged(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 1

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, d.count())

	require.NoError(t, s.RefreshNow())
	assert.Equal(t, 1, d.count(), "identical set is not re-declared")
}

func TestRefreshAllSourcesEmptyIsNoOp(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, testConfig(), d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	declares := d.count()

	src.set(nil, nil)
	err := s.RefreshNow()
	require.Error(t, err)

	assert.Equal(t, 1, s.ActiveCount(), "set untouched on total source outage")
	assert.Equal(t, declares, d.count())
	assert.Equal(t, types.IdlerStateActive, s.State())
}

func TestRefreshReentrancyGuard(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, testConfig(), d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	gate := make(chan struct{})
	src.setBlock(gate)

	done := make(chan error, 1)
	go func() { done <- s.RefreshNow() }()

	require.Eventually(t, func() bool {
		return s.State() == types.IdlerStateRefreshing
	}, time.Second, time.Millisecond)

	assert.ErrorIs(t, s.RefreshNow(), ErrRefreshInFlight)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, types.IdlerStateActive, s.State())
}

func TestRefreshBeforeStart(t *testing.T) {
	s := newTestScheduler(t, testConfig(), &fakeDeclarer{}, &fakeSources{}, &fakeRanker{})
	assert.ErrorIs(t, s.RefreshNow(), ErrNotActive)
}

func TestStopDeclaresEmptyOnce(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, testConfig(), d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, d.count())

	s.Stop()
	assert.Equal(t, types.IdlerStateStopped, s.State())
	assert.Equal(t, 2, d.count())
	assert.Equal(t, []uint32{}, d.last())
	assert.Zero(t, s.ActiveCount())

	s.Stop()
	assert.Equal(t, 2, d.count(), "second stop is a no-op")
	assert.ErrorIs(t, s.RefreshNow(), ErrNotActive)
}

func TestStopWithoutDeclareSendsNothing(t *testing.T) {
	d := &fakeDeclarer{}
	s := newTestScheduler(t, testConfig(), d, &fakeSources{configured: true}, &fakeRanker{})

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, types.IdlerStateStopped, s.State())

	s.Stop()
	assert.Zero(t, d.count())
}

func TestReapply(t *testing.T) {
	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
		{AppID: 20, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10, 20}}

	s := newTestScheduler(t, testConfig(), d, src, rk)

	// Nothing declared yet: reapply is a silent no-op.
	require.NoError(t, s.Reapply())
	assert.Zero(t, d.count())

	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, 1, d.count())

	// Reapply bypasses the no-change check.
	require.NoError(t, s.Reapply())
	assert.Equal(t, 2, d.count())
	assert.Equal(t, []uint32{10, 20}, d.last())
	assert.Equal(t, 1, rk.callCount(), "reapply never ranks")
}

func TestBounceOnHoursGrowth(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 1
	cfg.RestartDelay = 15 * time.Millisecond

	d := &fakeDeclarer{}
	src := &fakeSources{
		configured: true,
		primary:    []types.RewardRecord{{AppID: 10, Remaining: intp(5)}},
		document:   []types.RewardRecord{{AppID: 10, Remaining: intp(5), Hours: floatp(2.0)}},
	}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.Equal(t, []uint32{10}, d.last())

	// Under the threshold: nothing happens.
	src.set(
		[]types.RewardRecord{{AppID: 10, Remaining: intp(5)}},
		[]types.RewardRecord{{AppID: 10, Remaining: intp(5), Hours: floatp(2.5)}},
	)
	require.NoError(t, s.RefreshNow())
	assert.Equal(t, 1, d.count())

	// Past the threshold: the app is declared out, then back in.
	src.set(
		[]types.RewardRecord{{AppID: 10, Remaining: intp(5)}},
		[]types.RewardRecord{{AppID: 10, Remaining: intp(5), Hours: floatp(3.2)}},
	)
	require.NoError(t, s.RefreshNow())
	assert.Equal(t, []uint32{}, d.last(), "bouncing app leaves the declared set")

	require.Eventually(t, func() bool {
		last := d.last()
		return len(last) == 1 && last[0] == 10
	}, time.Second, time.Millisecond, "bounced app must be re-declared")

	apps := s.ActiveSet()
	require.Len(t, apps, 1)
	assert.False(t, apps[0].Bouncing)
	assert.False(t, apps[0].LastBounce.IsZero())
}

func TestBounceOnWallClock(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 1
	cfg.RestartAfter = 5 * time.Millisecond
	cfg.RestartDelay = 15 * time.Millisecond

	d := &fakeDeclarer{}
	// No document source, so no hours signal for the app.
	src := &fakeSources{
		configured: true,
		primary:    []types.RewardRecord{{AppID: 10, Remaining: intp(5)}},
	}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.RefreshNow())
	assert.Equal(t, []uint32{}, d.last(), "app older than the wall-clock limit bounces")

	require.Eventually(t, func() bool {
		last := d.last()
		return len(last) == 1 && last[0] == 10
	}, time.Second, time.Millisecond)
}

func TestStopCancelsPendingBounce(t *testing.T) {
	cfg := testConfig()
	cfg.Parallelism = 1
	cfg.RestartAfter = time.Millisecond
	cfg.RestartDelay = 20 * time.Millisecond

	d := &fakeDeclarer{}
	src := &fakeSources{
		configured: true,
		primary:    []types.RewardRecord{{AppID: 10, Remaining: intp(5)}},
	}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.RefreshNow())
	require.Equal(t, []uint32{}, d.last())

	s.Stop()
	declares := d.count()

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, declares, d.count(), "stopped scheduler must not re-declare a bounce")
	assert.Zero(t, s.ActiveCount())
}

func TestScheduledRefreshRuns(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshSchedule = "@every 50ms"

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s := newTestScheduler(t, cfg, d, src, rk)
	require.NoError(t, s.Start(context.Background()))
	require.True(t, s.LastRefresh().IsZero())

	require.Eventually(t, func() bool {
		return !s.LastRefresh().IsZero()
	}, 3*time.Second, 10*time.Millisecond, "schedule must drive refresh cycles")
}

func TestStartPublishesEvents(t *testing.T) {
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	sub := broker.Subscribe()

	d := &fakeDeclarer{}
	src := &fakeSources{configured: true, primary: []types.RewardRecord{
		{AppID: 10, Remaining: intp(3)},
	}}
	rk := &fakeRanker{result: []uint32{10}}

	s, err := New(testConfig(), d, src, rk, nil, broker)
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	require.NoError(t, s.Start(context.Background()))

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventSetApplied, ev.Type)
		assert.Equal(t, "10", ev.Metadata["apps"])
	case <-time.After(time.Second):
		t.Fatal("expected a set_applied event")
	}
}
