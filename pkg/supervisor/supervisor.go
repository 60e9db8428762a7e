package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArtyProf/steam-card-idler/pkg/events"
	"github.com/ArtyProf/steam-card-idler/pkg/health"
	"github.com/ArtyProf/steam-card-idler/pkg/log"
	"github.com/ArtyProf/steam-card-idler/pkg/metrics"
	"github.com/ArtyProf/steam-card-idler/pkg/steam"
	"github.com/ArtyProf/steam-card-idler/pkg/types"
)

var (
	// ErrNotConnected is returned when a declaration is attempted
	// without a live session.
	ErrNotConnected = errors.New("session not connected")

	// ErrReconnectInFlight is returned when a reconnect is requested
	// while another attempt is still running.
	ErrReconnectInFlight = errors.New("reconnect already in flight")
)

// Config tunes the Supervisor.
type Config struct {
	Credentials steam.Credentials

	// AutoRelogin lets the driver recover drops itself. The fallback
	// timer and the poll monitor stay armed either way; they exist
	// for exactly the drops the driver fails to recover.
	AutoRelogin bool

	// ReconnectFallback is how long after a drop the supervisor waits
	// for the driver's own relogin before dialing manually.
	ReconnectFallback time.Duration

	// PollInterval and PollFailures tune the liveness poll that
	// catches sessions dying without a disconnect event.
	PollInterval time.Duration
	PollFailures int

	ConnectTimeout time.Duration
}

// Hooks are the supervisor's outbound notifications. OnConnected
// fires on every completed logon with initial=false for recoveries;
// the scheduler uses that to re-declare its set. Hooks are called
// outside the supervisor's lock and may call back into it.
type Hooks struct {
	OnConnected    func(initial bool)
	OnDisconnected func(code int)
	OnFatalError   func(err error)
}

// Supervisor owns the session lifecycle: the initial login, the
// event pump, and every path back to Connected after a drop.
//
//	Disconnected ──Start()──▶ Connecting ──logon──▶ Connected
//	      ▲                        │                    │
//	      └────── dial failed ─────┘        drop, fatal │
//	      ◀─────────────────────────────────────────────┘
type Supervisor struct {
	cfg    Config
	auth   steam.Authenticator
	dialer steam.Connector
	broker *events.Broker
	logger zerolog.Logger

	session *Session

	baseCtx context.Context
	cancel  context.CancelFunc

	mu            sync.Mutex
	state         types.ConnState
	conn          steam.Conn
	refreshToken  string
	hooks         Hooks
	reconnecting  bool
	loggedOnce    bool
	fatal         bool
	closed        bool
	fallbackTimer *time.Timer

	firstLogon chan struct{}
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// New creates a Supervisor. Zero-valued timings fall back to the
// stock intervals. Nothing happens until Start.
func New(cfg Config, auth steam.Authenticator, dialer steam.Connector, broker *events.Broker) *Supervisor {
	if cfg.ReconnectFallback <= 0 {
		cfg.ReconnectFallback = 15 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.PollFailures < 1 {
		cfg.PollFailures = 2
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		cfg:        cfg,
		auth:       auth,
		dialer:     dialer,
		broker:     broker,
		logger:     log.WithComponent("session"),
		session:    newSession(cfg.Credentials.AccountName),
		baseCtx:    ctx,
		cancel:     cancel,
		state:      types.ConnStateDisconnected,
		firstLogon: make(chan struct{}),
		stopCh:     make(chan struct{}),
	}
}

// SetHooks registers the outbound notifications. Call before Start.
func (s *Supervisor) SetHooks(hooks Hooks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = hooks
}

// Session returns the account session. Valid immediately, populated
// as logon and web-session events arrive.
func (s *Supervisor) Session() *Session { return s.session }

// State returns the current connection state.
func (s *Supervisor) State() types.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start logs in, establishes the session, and blocks until the first
// logon completes or the connect timeout passes. Login and dial
// failures here are fatal; nothing downstream can run without a
// session.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	s.state = types.ConnStateConnecting
	s.mu.Unlock()

	token, err := s.auth.Login(ctx, s.cfg.Credentials)
	if err != nil {
		s.setDisconnected()
		return fmt.Errorf("login failed: %w", err)
	}

	conn, err := s.dialer.Connect(ctx, token, steam.ConnectOptions{AutoRelogin: s.cfg.AutoRelogin})
	if err != nil {
		s.setDisconnected()
		return fmt.Errorf("connect failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.refreshToken = token
	s.mu.Unlock()
	go s.pump(conn)

	select {
	case <-s.firstLogon:
	case <-time.After(s.cfg.ConnectTimeout):
		s.Stop()
		return errors.New("timed out waiting for logon")
	case <-ctx.Done():
		s.Stop()
		return ctx.Err()
	}

	go s.monitor()
	return nil
}

// Stop tears the session down: timers disarmed, poll stopped, conn
// closed. Safe to call more than once.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.state = types.ConnStateDisconnected
		if s.fallbackTimer != nil {
			s.fallbackTimer.Stop()
			s.fallbackTimer = nil
		}
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()

		s.cancel()
		close(s.stopCh)
		if conn != nil {
			_ = conn.Close()
		}
		metrics.SessionConnected.Set(0)
		s.logger.Info().Msg("session supervisor stopped")
	})
}

// DeclareActive forwards the active set to the live session.
func (s *Supervisor) DeclareActive(appIDs []uint32) error {
	s.mu.Lock()
	conn, state := s.conn, s.state
	s.mu.Unlock()

	if state != types.ConnStateConnected || conn == nil {
		return ErrNotConnected
	}
	return conn.DeclareActive(appIDs)
}

// ReconnectNow forces a manual reconnect, regardless of what the
// supervisor currently believes about the session.
func (s *Supervisor) ReconnectNow() error {
	return s.reconnect("manual")
}

// pump consumes one connection's event stream. It exits when the
// conn is closed; events from a replaced conn are discarded by the
// identity checks in the handlers.
func (s *Supervisor) pump(conn steam.Conn) {
	for ev := range conn.Events() {
		switch e := ev.(type) {
		case steam.LoggedOnEvent:
			s.handleLoggedOn(conn)
		case steam.DisconnectedEvent:
			s.handleDisconnected(conn, e.Code)
		case steam.FatalErrorEvent:
			s.handleFatalError(conn, e.Err)
		case steam.WebSessionEvent:
			s.handleWebSession(conn, e.Cookies)
		}
	}
}

func (s *Supervisor) handleLoggedOn(conn steam.Conn) {
	s.mu.Lock()
	if s.conn != conn || s.closed {
		s.mu.Unlock()
		return
	}
	initial := !s.loggedOnce
	s.loggedOnce = true
	s.state = types.ConnStateConnected
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
		s.fallbackTimer = nil
	}
	hook := s.hooks.OnConnected
	s.mu.Unlock()

	s.session.setAccountID(conn.AccountID())
	metrics.SessionConnected.Set(1)
	metrics.LogonsTotal.Inc()

	if initial {
		s.logger.Info().Uint64("account_id", conn.AccountID()).Msg("logged on")
		s.publish(events.EventLoggedOn, "session logged on", nil)
		close(s.firstLogon)
	} else {
		s.logger.Info().Msg("session recovered")
		s.publish(events.EventReconnected, "session recovered", nil)
	}

	if hook != nil {
		hook(initial)
	}
}

func (s *Supervisor) handleDisconnected(conn steam.Conn, code int) {
	s.mu.Lock()
	if s.conn != conn || s.closed {
		s.mu.Unlock()
		return
	}
	s.state = types.ConnStateDisconnected
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
	}
	s.fallbackTimer = time.AfterFunc(s.cfg.ReconnectFallback, s.fallbackReconnect)
	hook := s.hooks.OnDisconnected
	s.mu.Unlock()

	metrics.SessionConnected.Set(0)
	metrics.DisconnectsTotal.Inc()
	s.logger.Warn().Int("code", code).Msg("session dropped")
	s.publish(events.EventDisconnected, "session dropped", map[string]string{
		"code": strconv.Itoa(code),
	})

	if hook != nil {
		hook(code)
	}
}

func (s *Supervisor) handleFatalError(conn steam.Conn, err error) {
	s.mu.Lock()
	if s.conn != conn || s.closed {
		s.mu.Unlock()
		return
	}
	s.state = types.ConnStateDisconnected
	s.fatal = true
	if s.fallbackTimer != nil {
		s.fallbackTimer.Stop()
		s.fallbackTimer = nil
	}
	hook := s.hooks.OnFatalError
	s.mu.Unlock()

	metrics.SessionConnected.Set(0)
	s.logger.Error().Err(err).Msg("fatal session error, no reconnects will be attempted")
	s.publish(events.EventFatalError, err.Error(), nil)

	if hook != nil {
		hook(err)
	}
}

func (s *Supervisor) handleWebSession(conn steam.Conn, cookies []*http.Cookie) {
	s.mu.Lock()
	current := s.conn == conn && !s.closed
	s.mu.Unlock()
	if !current {
		return
	}
	s.session.setCookies(cookies)
	s.logger.Debug().Int("cookies", len(cookies)).Msg("web session established")
	s.publish(events.EventWebSession, "web session established", nil)
}

// fallbackReconnect fires when the driver had its chance to relogin
// and did not take it.
func (s *Supervisor) fallbackReconnect() {
	s.mu.Lock()
	skip := s.closed || s.fatal || s.reconnecting || s.state != types.ConnStateDisconnected
	s.mu.Unlock()
	if skip {
		return
	}
	if err := s.reconnect("fallback"); err != nil {
		s.logger.Debug().Err(err).Msg("fallback reconnect did not complete")
	}
}

// monitor is the liveness poll. It catches sessions that died
// without a disconnect event, which the fallback timer never sees.
func (s *Supervisor) monitor() {
	checker := health.NewSessionChecker(func() steam.Conn {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.conn
	})
	cfg := health.Config{
		Interval: s.cfg.PollInterval,
		Timeout:  s.cfg.PollInterval,
		Retries:  s.cfg.PollFailures,
	}
	status := health.NewStatus()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			status.Update(checker.Check(s.baseCtx), cfg)
			if status.Healthy {
				continue
			}
			if err := s.reconnect("poll"); err != nil {
				s.logger.Debug().Err(err).Msg("poll reconnect did not complete")
			}
		case <-s.stopCh:
			return
		}
	}
}

// reconnect replaces the connection: close the old one, dial with
// the stored refresh token, pump the new one. Attempts are strictly
// serialized; a second caller is refused, not queued.
func (s *Supervisor) reconnect(trigger string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("supervisor stopped")
	}
	if s.fatal {
		s.mu.Unlock()
		return errors.New("session failed fatally")
	}
	if s.reconnecting {
		s.mu.Unlock()
		return ErrReconnectInFlight
	}
	s.reconnecting = true
	s.state = types.ConnStateConnecting
	old := s.conn
	token := s.refreshToken
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reconnecting = false
		s.mu.Unlock()
	}()

	s.logger.Info().Str("trigger", trigger).Msg("reconnecting")
	if old != nil {
		_ = old.Close()
	}

	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.ConnectTimeout)
	defer cancel()
	conn, err := s.dialer.Connect(ctx, token, steam.ConnectOptions{AutoRelogin: s.cfg.AutoRelogin})
	if err != nil {
		metrics.ReconnectsTotal.WithLabelValues(trigger, "failure").Inc()
		s.mu.Lock()
		s.conn = nil
		s.state = types.ConnStateDisconnected
		s.mu.Unlock()
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("reconnect failed")
		return err
	}

	s.mu.Lock()
	// Stop or a late fatal event may have landed while dialing; the
	// fresh conn must not outlive either verdict.
	if s.closed || s.fatal {
		s.mu.Unlock()
		_ = conn.Close()
		return errors.New("supervisor stopped")
	}
	s.conn = conn
	s.mu.Unlock()
	go s.pump(conn)

	metrics.ReconnectsTotal.WithLabelValues(trigger, "success").Inc()
	return nil
}

func (s *Supervisor) setDisconnected() {
	s.mu.Lock()
	s.state = types.ConnStateDisconnected
	s.mu.Unlock()
}

func (s *Supervisor) publish(eventType events.EventType, msg string, meta map[string]string) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(&events.Event{Type: eventType, Message: msg, Metadata: meta})
}
