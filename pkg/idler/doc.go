/*
Package idler implements the idling scheduler, the daemon's central
state machine. It decides which apps are declared in play, keeps that
set fresh as card drops run out, and restarts apps the platform has
stopped counting.

# State Machine

	          Start()                    schedule / RefreshNow()
	┌──────┐           ┌─────────────┐
	│ Idle │──────────▶│ Discovering │
	└──────┘           └──────┬──────┘
	                          │ candidates          ┌────────────┐
	          empty           ▼                  ┌─▶│ Refreshing │
	        ┌─────────── ┌────────┐              │  └─────┬──────┘
	        │            │ Active │◀─────────────┼────────┘
	        ▼            └───┬────┘   cycle done │
	┌─────────┐              │                   │
	│ Stopped │◀─────────────┘ Stop()            │
	└─────────┘   (also from any other state) ───┘

Stopped is terminal. A scheduler is not reusable; the process builds
a new one per session.

# The Sets

Three sets drive every decision:

  - Active Set: apps currently declared in play. Capped at
    min(parallelism, display limit).
  - Ever-Rewarded Set: apps observed with a positive remaining count
    at least once, ever. Grows monotonically.
  - Used set: apps that were ever admitted to the Active Set. An id
    that leaves the Active Set is never admitted again.

The refresh cycle removes an active app only when it is in the
Ever-Rewarded Set and absent from the current positive-remaining set:
that combination means its drops were seen and are now confirmed
gone. An app the sources have simply never mentioned is left alone,
so a flaky source cannot evict the whole set. As a harder backstop,
a cycle in which every configured source returns nothing at all is
treated as an outage and abandoned untouched.

# Declarations

Every mutation funnels into one declare path: the non-bouncing active
ids, sorted ascending, truncated to the display limit. A declaration
identical to the previous one is skipped. Reapply is the exception:
the supervisor calls it after a reconnect, when the remote side has
forgotten the set, so it re-sends verbatim.

# Play Bounce

The platform occasionally stops crediting an idling app. The cycle
watches each app's hours-on-record from the badge document: growth
past RestartAfterHours since admission (or since the last bounce)
triggers a restart. Apps without an hours signal fall back to plain
wall-clock age (RestartAfter). A restart removes the app from one
declaration and re-adds it RestartDelay later, forcing the remote
session to re-register it.

# Concurrency

One mutex guards all set state. Refresh cycles are single flight:
a cycle that starts while another is running is refused with
ErrRefreshInFlight, never queued. Network fetches happen outside the
lock; after re-locking, the cycle re-checks that no Stop raced it.
Stop synchronously disarms the schedule and every pending bounce
timer.

# Usage

	sched, err := idler.New(cfg, sup, sources, rk, sup.Session(), broker)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

# See Also

  - pkg/ranker: candidate ordering and source merging
  - pkg/supervisor: the Declarer and CredentialWaiter implementation
  - pkg/rewards: the Sources implementation
*/
package idler
