package health

import (
	"context"
	"time"

	"github.com/ArtyProf/steam-card-idler/pkg/steam"
)

// SessionChecker asks the current session whether it still considers
// itself connected. The provider returns the live handle, or nil when
// none exists; nil is unhealthy.
type SessionChecker struct {
	provider func() steam.Conn
}

// NewSessionChecker creates a checker over a session provider
func NewSessionChecker(provider func() steam.Conn) *SessionChecker {
	return &SessionChecker{provider: provider}
}

// Check performs the liveness check
func (c *SessionChecker) Check(ctx context.Context) Result {
	start := time.Now()

	conn := c.provider()
	healthy := conn != nil && conn.Connected()

	message := "session connected"
	if conn == nil {
		message = "no session"
	} else if !healthy {
		message = "session reports disconnected"
	}

	return Result{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// Type returns the check type
func (c *SessionChecker) Type() CheckType {
	return CheckTypeSession
}
