package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/steam"
	"github.com/ArtyProf/steam-card-idler/pkg/steam/loopback"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

func testSupervisorConfig() Config {
	return Config{
		Credentials:       steam.Credentials{AccountName: "idlebot", Password: "hunter2"},
		AutoRelogin:       true,
		ReconnectFallback: 50 * time.Millisecond,
		PollInterval:      time.Hour,
		PollFailures:      2,
		ConnectTimeout:    2 * time.Second,
	}
}

type hookRecorder struct {
	mu          sync.Mutex
	connected   []bool
	disconnects []int
	fatals      []error
}

func (h *hookRecorder) hooks() Hooks {
	return Hooks{
		OnConnected: func(initial bool) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.connected = append(h.connected, initial)
		},
		OnDisconnected: func(code int) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.disconnects = append(h.disconnects, code)
		},
		OnFatalError: func(err error) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.fatals = append(h.fatals, err)
		},
	}
}

func (h *hookRecorder) connectedCalls() []bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]bool(nil), h.connected...)
}

func (h *hookRecorder) disconnectCalls() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.disconnects...)
}

func (h *hookRecorder) fatalCalls() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.fatals...)
}

func startSupervisor(t *testing.T, d *loopback.Driver, cfg Config, hooks Hooks) *Supervisor {
	t.Helper()
	s := New(cfg, d, d, nil)
	s.SetHooks(hooks)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func TestStartConnectsAndFiresInitialHook(t *testing.T) {
	d := loopback.New(76561198000000001)
	rec := &hookRecorder{}

	s := startSupervisor(t, d, testSupervisorConfig(), rec.hooks())

	assert.Equal(t, types.ConnStateConnected, s.State())
	assert.Equal(t, 1, d.ConnCount())

	logins := d.Logins()
	require.Len(t, logins, 1)
	assert.Equal(t, "idlebot", logins[0].AccountName)

	require.Eventually(t, func() bool {
		return len(rec.connectedCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true}, rec.connectedCalls())

	assert.Equal(t, "idlebot", s.Session().AccountName())
	assert.Equal(t, uint64(76561198000000001), s.Session().AccountID())
}

func TestStartLoginFailure(t *testing.T) {
	d := loopback.New(1)
	d.FailLogin(errors.New("invalid password"))

	s := New(testSupervisorConfig(), d, d, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")
	assert.Equal(t, types.ConnStateDisconnected, s.State())
}

func TestStartConnectFailure(t *testing.T) {
	d := loopback.New(1)
	d.FailConnect(errors.New("network unreachable"))

	s := New(testSupervisorConfig(), d, d, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect failed")
	assert.Equal(t, types.ConnStateDisconnected, s.State())
}

// silentConn never delivers a logon, the shape of a session that
// connects at the transport level but stalls before authenticating.
type silentConn struct {
	once   sync.Once
	events chan steam.Event
}

func (c *silentConn) Events() <-chan steam.Event   { return c.events }
func (c *silentConn) DeclareActive([]uint32) error { return nil }
func (c *silentConn) Connected() bool              { return false }
func (c *silentConn) AccountID() uint64            { return 0 }

func (c *silentConn) Close() error {
	c.once.Do(func() { close(c.events) })
	return nil
}

type silentDialer struct{}

func (silentDialer) Connect(context.Context, string, steam.ConnectOptions) (steam.Conn, error) {
	return &silentConn{events: make(chan steam.Event, 1)}, nil
}

func TestStartLogonTimeout(t *testing.T) {
	d := loopback.New(1)
	cfg := testSupervisorConfig()
	cfg.ConnectTimeout = 30 * time.Millisecond

	s := New(cfg, d, silentDialer{}, nil)
	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
	assert.Equal(t, types.ConnStateDisconnected, s.State())
}

func TestNativeReloginRecoversWithoutRedial(t *testing.T) {
	d := loopback.New(1)
	rec := &hookRecorder{}
	cfg := testSupervisorConfig()
	cfg.ReconnectFallback = 150 * time.Millisecond

	s := startSupervisor(t, d, cfg, rec.hooks())
	conn := d.LastConn()

	conn.Drop(3)
	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateDisconnected
	}, time.Second, 5*time.Millisecond)

	conn.Relogin()
	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateConnected
	}, time.Second, 5*time.Millisecond)

	// Past the fallback deadline measured from the drop. The native
	// relogin must have disarmed it.
	time.Sleep(250 * time.Millisecond)
	assert.Equal(t, 1, d.ConnCount())
	assert.Equal(t, []bool{true, false}, rec.connectedCalls())
	assert.Equal(t, []int{3}, rec.disconnectCalls())
}

func TestFallbackReconnectDialsNewSession(t *testing.T) {
	d := loopback.New(1)
	rec := &hookRecorder{}
	cfg := testSupervisorConfig()
	cfg.AutoRelogin = false
	cfg.ReconnectFallback = 40 * time.Millisecond

	s := startSupervisor(t, d, cfg, rec.hooks())
	first := d.LastConn()

	first.Drop(7)
	require.Eventually(t, func() bool {
		return d.ConnCount() == 2 && s.State() == types.ConnStateConnected
	}, 2*time.Second, 5*time.Millisecond)

	assert.False(t, first.Connected(), "replaced session should be closed")
	require.Eventually(t, func() bool {
		return len(rec.connectedCalls()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false}, rec.connectedCalls())

	// Declarations route to the replacement session.
	require.NoError(t, s.DeclareActive([]uint32{730}))
	assert.Equal(t, []uint32{730}, d.LastConn().LastDeclare())
}

func TestPollReconnectsAfterSilentDeath(t *testing.T) {
	d := loopback.New(1)
	cfg := testSupervisorConfig()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.PollFailures = 2

	s := startSupervisor(t, d, cfg, Hooks{})
	d.LastConn().SilentDrop()

	require.Eventually(t, func() bool {
		return d.ConnCount() == 2 && s.State() == types.ConnStateConnected
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, d.LastConn().Connected())
}

func TestFatalErrorBlocksReconnects(t *testing.T) {
	d := loopback.New(1)
	rec := &hookRecorder{}
	cfg := testSupervisorConfig()
	cfg.ReconnectFallback = 20 * time.Millisecond

	s := startSupervisor(t, d, cfg, rec.hooks())

	d.LastConn().FatalError(errors.New("account logged in elsewhere"))
	require.Eventually(t, func() bool {
		return len(rec.fatalCalls()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.EqualError(t, rec.fatalCalls()[0], "account logged in elsewhere")

	// Give any stray timer a chance to misbehave.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, d.ConnCount())
	assert.Equal(t, types.ConnStateDisconnected, s.State())

	err := s.ReconnectNow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fatal")
}

func TestReconnectFailureLeavesDisconnected(t *testing.T) {
	d := loopback.New(1)
	cfg := testSupervisorConfig()
	cfg.AutoRelogin = false
	cfg.ReconnectFallback = 20 * time.Millisecond

	s := startSupervisor(t, d, cfg, Hooks{})

	d.FailConnect(errors.New("cm list exhausted"))
	d.LastConn().Drop(1)

	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateDisconnected
	}, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, d.ConnCount())

	// A manual retry succeeds once the dialer recovers.
	d.FailConnect(nil)
	require.NoError(t, s.ReconnectNow())
	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateConnected
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, d.ConnCount())
}

// gateDialer blocks Connect calls on a gate channel so a reconnect
// can be held in flight.
type gateDialer struct {
	inner steam.Connector

	mu   sync.Mutex
	gate chan struct{}
}

func (g *gateDialer) setGate(ch chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gate = ch
}

func (g *gateDialer) Connect(ctx context.Context, token string, opts steam.ConnectOptions) (steam.Conn, error) {
	g.mu.Lock()
	gate := g.gate
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return g.inner.Connect(ctx, token, opts)
}

func TestReconnectsAreSerialized(t *testing.T) {
	d := loopback.New(1)
	gated := &gateDialer{inner: d}

	s := New(testSupervisorConfig(), d, gated, nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	gate := make(chan struct{})
	gated.setGate(gate)

	done := make(chan error, 1)
	go func() { done <- s.ReconnectNow() }()

	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateConnecting
	}, time.Second, 5*time.Millisecond)

	err := s.ReconnectNow()
	require.ErrorIs(t, err, ErrReconnectInFlight)

	close(gate)
	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateConnected
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, d.ConnCount())
}

func TestDeclareActiveRequiresConnection(t *testing.T) {
	d := loopback.New(1)
	cfg := testSupervisorConfig()
	cfg.ReconnectFallback = time.Hour

	s := startSupervisor(t, d, cfg, Hooks{})

	require.NoError(t, s.DeclareActive([]uint32{10, 20}))
	assert.Equal(t, []uint32{10, 20}, d.LastConn().LastDeclare())

	d.LastConn().Drop(1)
	require.Eventually(t, func() bool {
		return s.State() == types.ConnStateDisconnected
	}, time.Second, 5*time.Millisecond)

	err := s.DeclareActive([]uint32{30})
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestWebSessionPopulatesCookies(t *testing.T) {
	d := loopback.New(1)
	s := startSupervisor(t, d, testSupervisorConfig(), Hooks{})

	assert.Empty(t, s.Session().WebCookies())

	cookies := []*http.Cookie{{Name: "sessionid", Value: "abc123"}}
	d.LastConn().EstablishWebSession(cookies)

	require.Eventually(t, func() bool {
		return len(s.Session().WebCookies()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "sessionid", s.Session().WebCookies()[0].Name)
	assert.True(t, s.Session().WaitWebCookies(context.Background(), 10*time.Millisecond))
}

func TestWaitWebCookiesTimesOut(t *testing.T) {
	d := loopback.New(1)
	s := startSupervisor(t, d, testSupervisorConfig(), Hooks{})

	start := time.Now()
	ok := s.Session().WaitWebCookies(context.Background(), 30*time.Millisecond)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	d := loopback.New(1)
	s := startSupervisor(t, d, testSupervisorConfig(), Hooks{})
	conn := d.LastConn()

	s.Stop()
	s.Stop()

	assert.Equal(t, types.ConnStateDisconnected, s.State())
	assert.False(t, conn.Connected())
	require.ErrorIs(t, s.DeclareActive([]uint32{1}), ErrNotConnected)

	err := s.ReconnectNow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stopped")
}

func waitForEvent(t *testing.T, sub events.Subscriber, eventType events.EventType) *events.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub:
			if ev.Type == eventType {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", eventType)
			return nil
		}
	}
}

func TestSessionEventsPublished(t *testing.T) {
	d := loopback.New(1)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)
	sub := broker.Subscribe()

	cfg := testSupervisorConfig()
	cfg.ReconnectFallback = 30 * time.Millisecond
	cfg.AutoRelogin = false

	s := New(cfg, d, d, broker)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)

	waitForEvent(t, sub, events.EventLoggedOn)

	d.LastConn().Drop(9)
	dropped := waitForEvent(t, sub, events.EventDisconnected)
	assert.Equal(t, "9", dropped.Metadata["code"])

	waitForEvent(t, sub, events.EventReconnected)
}
