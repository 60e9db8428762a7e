/*
Package api serves the daemon's admin and status HTTP surface. It is
the only way to look inside a running daemon without reading logs,
and the only way to poke it without restarting.

# Endpoints

	GET  /healthz        liveness plus per-component detail
	GET  /readyz         readiness of the critical components
	GET  /live           bare process liveness
	GET  /metrics        prometheus exposition
	GET  /v1/status      scheduler, session, and cache summary
	GET  /v1/active      the active idling set with bounce detail
	POST /v1/refresh     kick a refresh cycle (202, guarded)
	POST /v1/reconnect   kick a session reconnect (202, guarded)
	GET  /v1/events      recent daemon events, newest first (?limit=)
	GET  /v1/cache       the capability cache contents

The two POST endpoints are asynchronous kicks: the work is scheduled
and 202 returned, with outcomes visible in events and metrics. Both
answer 409 when the same work is already in flight.

# Wiring

The server takes its dependencies as narrow interfaces in Deps, so
tests can stand it up against fakes and the daemon wires the real
scheduler and supervisor. Any nil dependency turns its endpoints
into 503s rather than panics, which keeps the server usable during
partial startup.

	srv := api.NewServer(api.Config{Addr: cfg.API.Addr}, api.Deps{
		Idler:   sched,
		Session: sup,
		Account: sup.Session(),
		Cache:   capCache,
		History: history,
	})
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Shutdown(ctx)

Start binds synchronously and serves in the background, so a bad
listen address fails daemon startup instead of surfacing minutes
later.

# Middleware

Every request passes panic recovery and a logging middleware that
records the request in the debug log and feeds the API counters and
latency histogram.

# See Also

  - Package metrics for the health registry behind /healthz.
  - Package events for the history ring behind /v1/events.
*/
package api
