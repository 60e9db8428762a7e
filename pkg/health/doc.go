/*
Package health provides the session connectivity check framework.

This package implements the repeated-check machinery behind the
supervisor's connectivity poll: a Checker produces point-in-time
Results, and a Status folds those results into a verdict that only
flips after enough consecutive failures. The hysteresis matters
because a session can look dead for one poll while a driver-side
relogin is already in flight.

# Architecture

	┌───────────────── CONNECTIVITY POLL ─────────────────┐
	│                                                      │
	│   supervisor (every Interval)                        │
	│       │                                              │
	│       ▼                                              │
	│   SessionChecker.Check(ctx) ──► Result               │
	│       │                            │                 │
	│       │ conn.Connected()           ▼                 │
	│       ▼                        Status.Update         │
	│   steam.Conn                       │                 │
	│                                    ▼                 │
	│                        Healthy? ── no for Retries    │
	│                                    consecutive ──►   │
	│                                    force reconnect   │
	└──────────────────────────────────────────────────────┘

# Verdict Rules

  - A Status starts healthy.
  - A single success always restores health and clears the failure
    streak.
  - Only Retries consecutive failures flip the verdict to unhealthy.
  - StartPeriod, when set, marks a grace window after monitoring
    begins; callers skip acting on failures inside it.

# Usage

	checker := health.NewSessionChecker(func() steam.Conn {
		return supervisor.CurrentConn()
	})

	status := health.NewStatus()
	cfg := health.DefaultConfig()

	result := checker.Check(ctx)
	status.Update(result, cfg)
	if !status.Healthy {
		// trigger recovery
	}

# See Also

  - pkg/supervisor: drives the poll and acts on the verdict
*/
package health
