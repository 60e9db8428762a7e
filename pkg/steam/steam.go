package steam

import (
	"context"
	"net/http"
)

// MaxDeclaredApps is the largest number of app ids a session will
// accept in a single DeclareActive call. Ids beyond it are ignored by
// the network, so callers truncate before declaring.
const MaxDeclaredApps = 32

// Credentials carries the material needed for an initial sign-in.
// GuardCode is the one-time confirmation code when the account has
// two-factor confirmation enabled; leave it empty otherwise.
type Credentials struct {
	AccountName string
	Password    string
	GuardCode   string
}

// Authenticator exchanges account credentials for a refresh token.
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (string, error)
}

// ConnectOptions tunes a session before it is established.
type ConnectOptions struct {
	// AutoRelogin asks the driver to re-establish the session itself
	// after a transient drop, emitting LoggedOnEvent when it succeeds.
	AutoRelogin bool
}

// Connector establishes a session from a refresh token.
type Connector interface {
	Connect(ctx context.Context, refreshToken string, opts ConnectOptions) (Conn, error)
}

// Conn is one established session.
//
// Events delivers session notifications in order. The channel is
// closed when the session is released via Close, and never before.
// DeclareActive replaces the set of apps the session presents as
// in-play; it is fire-and-forget on the network, so a nil error only
// means the request was written. Connected reports the driver's own
// view of session liveness and must be safe to call from any
// goroutine.
type Conn interface {
	Events() <-chan Event
	DeclareActive(appIDs []uint32) error
	Connected() bool
	AccountID() uint64
	Close() error
}

// Event is a session notification. The concrete types below form the
// complete set.
type Event interface {
	sessionEvent()
}

// LoggedOnEvent signals a completed logon, both the initial one and
// any driver-side relogin.
type LoggedOnEvent struct{}

// DisconnectedEvent signals a dropped session. Code is the driver's
// disconnect reason, zero when unknown.
type DisconnectedEvent struct {
	Code int
}

// FatalErrorEvent signals an unrecoverable session error. The driver
// will not attempt further relogins after emitting it.
type FatalErrorEvent struct {
	Err error
}

// WebSessionEvent delivers browser-grade cookies once the session has
// negotiated web credentials. It may arrive more than once; later
// cookies replace earlier ones.
type WebSessionEvent struct {
	Cookies []*http.Cookie
}

func (LoggedOnEvent) sessionEvent()     {}
func (DisconnectedEvent) sessionEvent() {}
func (FatalErrorEvent) sessionEvent()   {}
func (WebSessionEvent) sessionEvent()   {}
