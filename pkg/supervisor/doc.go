/*
Package supervisor owns the session lifecycle. It performs the
initial login, pumps session events, and drives every path that leads
back to Connected after the session drops.

# Recovery Layers

A session can die three ways, and each way has its own detector:

	┌────────────────────┐   announced drop    ┌──────────────────┐
	│ driver relogin     │◀────────────────────│ DisconnectedEvent│
	│ (when enabled)     │                     └──────────────────┘
	└─────────┬──────────┘                               │
	          │ no logon within the fallback window      │
	          ▼                                          ▼
	┌────────────────────┐   silent death      ┌──────────────────┐
	│ fallback redial    │                     │ liveness poll    │
	└────────────────────┘                     └──────────────────┘

The driver's own relogin gets the first chance: when it succeeds, a
fresh LoggedOnEvent arrives on the same connection and the fallback
timer is disarmed. When it does not, the fallback timer fires and the
supervisor redials with the stored refresh token. Sessions that die
without any event at all are caught by the liveness poll, which asks
the driver for its own verdict every interval and redials after the
configured number of consecutive failures.

Reconnect attempts are strictly serialized. A second trigger firing
while one attempt is in flight is refused with ErrReconnectInFlight,
never queued. A FatalErrorEvent ends recovery for good: the account
is in a state no redial can fix, so the supervisor parks itself
Disconnected and refuses all further attempts.

# Hooks

Downstream components register Hooks rather than subscribing to the
raw event stream. OnConnected carries initial=false for recoveries,
which is the scheduler's cue to re-declare its active set: the remote
side forgets declared apps across a session boundary. Hooks run
outside the supervisor's lock and are free to call back into it.

# Web Credentials

The session half of this package collects what logon and web-session
events deliver: the account id and the browser-grade cookies some
reward sources need. Session.WaitWebCookies lets those sources block
briefly for cookies that are still being negotiated instead of
failing their first fetch.

# Usage

	drv := loopback.New(accountID)
	sup := supervisor.New(cfg, drv, drv, broker)
	sup.SetHooks(supervisor.Hooks{
		OnConnected: func(initial bool) {
			if !initial {
				idler.Reapply()
			}
		},
	})
	if err := sup.Start(ctx); err != nil {
		return err
	}
	defer sup.Stop()

Start blocks until the first logon or the connect timeout, whichever
comes first. Everything after that is asynchronous.

# See Also

  - Package steam for the driver contract the supervisor consumes.
  - Package idler for the scheduler the hooks feed.
  - Package health for the checker behind the liveness poll.
*/
package supervisor
