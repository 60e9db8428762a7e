package supervisor

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Session is the supervisor's view of the signed-in account. It
// outlives individual connections: reconnects swap the underlying
// conn while the Session keeps the identity and the web cookies.
//
// It implements the account interface the reward adapters consume
// and the credential wait the scheduler performs before its first
// discovery.
type Session struct {
	account string

	mu        sync.Mutex
	accountID uint64
	cookies   []*http.Cookie

	ready     chan struct{}
	readyOnce sync.Once
}

func newSession(account string) *Session {
	return &Session{
		account: account,
		ready:   make(chan struct{}),
	}
}

// AccountName returns the account the supervisor signs in as.
func (s *Session) AccountName() string { return s.account }

// AccountID returns the numeric account id, zero before the first
// logon.
func (s *Session) AccountID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountID
}

// WebCookies returns the current browser-grade cookies, empty until
// the web session has been established.
func (s *Session) WebCookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*http.Cookie, len(s.cookies))
	copy(out, s.cookies)
	return out
}

// WaitWebCookies blocks until web cookies exist, the timeout passes,
// or ctx is done. It reports whether cookies are available.
func (s *Session) WaitWebCookies(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	have := len(s.cookies) > 0
	s.mu.Unlock()
	if have {
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.ready:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Session) setAccountID(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountID = id
}

func (s *Session) setCookies(cookies []*http.Cookie) {
	s.mu.Lock()
	s.cookies = cookies
	s.mu.Unlock()
	s.readyOnce.Do(func() { close(s.ready) })
}
