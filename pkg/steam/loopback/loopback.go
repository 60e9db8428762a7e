// Package loopback provides an in-process session driver.
//
// The driver implements steam.Authenticator, steam.Connector, and
// steam.Conn without touching the network. Sessions log on instantly
// and stay up until scripted otherwise, which makes the package the
// backing for --dry-run and for every test that needs a session.
package loopback

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/ArtyProf/steam-card-idler/pkg/steam"
)

// Driver hands out loopback sessions. It satisfies both
// steam.Authenticator and steam.Connector.
type Driver struct {
	mu         sync.Mutex
	accountID  uint64
	loginErr   error
	connectErr error
	logins     []steam.Credentials
	conns      []*Conn
}

// New returns a driver whose sessions report the given account id.
func New(accountID uint64) *Driver {
	return &Driver{accountID: accountID}
}

// FailLogin makes subsequent Login calls return err. Pass nil to
// restore success.
func (d *Driver) FailLogin(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.loginErr = err
}

// FailConnect makes subsequent Connect calls return err. Pass nil to
// restore success.
func (d *Driver) FailConnect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

// Login implements steam.Authenticator.
func (d *Driver) Login(_ context.Context, creds steam.Credentials) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logins = append(d.logins, creds)
	if d.loginErr != nil {
		return "", d.loginErr
	}
	return "loopback:" + creds.AccountName, nil
}

// Connect implements steam.Connector. The returned session is already
// connected and has a LoggedOnEvent queued.
func (d *Driver) Connect(_ context.Context, _ string, opts steam.ConnectOptions) (steam.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connectErr != nil {
		return nil, d.connectErr
	}
	conn := &Conn{
		accountID:   d.accountID,
		autoRelogin: opts.AutoRelogin,
		connected:   true,
		events:      make(chan steam.Event, 64),
	}
	conn.events <- steam.LoggedOnEvent{}
	d.conns = append(d.conns, conn)
	return conn, nil
}

// Logins returns the credentials of every Login call.
func (d *Driver) Logins() []steam.Credentials {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]steam.Credentials, len(d.logins))
	copy(out, d.logins)
	return out
}

// ConnCount returns how many sessions the driver has handed out.
func (d *Driver) ConnCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

// LastConn returns the most recently established session, or nil.
func (d *Driver) LastConn() *Conn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// Conn is a loopback session. Test code drives it with Drop, Relogin,
// FatalError, and EstablishWebSession.
type Conn struct {
	accountID   uint64
	autoRelogin bool

	mu        sync.Mutex
	connected bool
	closed    bool
	events    chan steam.Event
	declares  [][]uint32
}

// Events implements steam.Conn.
func (c *Conn) Events() <-chan steam.Event { return c.events }

// DeclareActive implements steam.Conn. Every accepted payload is
// recorded for later inspection.
func (c *Conn) DeclareActive(appIDs []uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("session closed")
	}
	payload := make([]uint32, len(appIDs))
	copy(payload, appIDs)
	c.declares = append(c.declares, payload)
	return nil
}

// Connected implements steam.Conn.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected && !c.closed
}

// AccountID implements steam.Conn.
func (c *Conn) AccountID() uint64 { return c.accountID }

// Close implements steam.Conn. Closing also closes the event channel.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.connected = false
	close(c.events)
	return nil
}

// AutoRelogin reports the option the session was established with.
func (c *Conn) AutoRelogin() bool { return c.autoRelogin }

// Drop simulates a transient disconnect with the given reason code.
func (c *Conn) Drop(code int) {
	c.emit(steam.DisconnectedEvent{Code: code}, func() { c.connected = false })
}

// Relogin simulates the driver's own relogin succeeding.
func (c *Conn) Relogin() {
	c.emit(steam.LoggedOnEvent{}, func() { c.connected = true })
}

// FatalError simulates an unrecoverable session failure.
func (c *Conn) FatalError(err error) {
	c.emit(steam.FatalErrorEvent{Err: err}, func() { c.connected = false })
}

// EstablishWebSession delivers browser cookies to the session owner.
func (c *Conn) EstablishWebSession(cookies []*http.Cookie) {
	c.emit(steam.WebSessionEvent{Cookies: cookies}, nil)
}

// SilentDrop marks the session dead without emitting any event, the
// shape of a failure only connectivity polling can notice.
func (c *Conn) SilentDrop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

// Declares returns a copy of every recorded DeclareActive payload in
// order.
func (c *Conn) Declares() [][]uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]uint32, len(c.declares))
	for i, d := range c.declares {
		out[i] = append([]uint32(nil), d...)
	}
	return out
}

// LastDeclare returns the most recent DeclareActive payload, or nil.
func (c *Conn) LastDeclare() []uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.declares) == 0 {
		return nil
	}
	return append([]uint32(nil), c.declares[len(c.declares)-1]...)
}

func (c *Conn) emit(ev steam.Event, apply func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if apply != nil {
		apply()
	}
	select {
	case c.events <- ev:
	default:
	}
}
