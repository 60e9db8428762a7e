/*
Package events provides the daemon's in-memory event bus.

The events package implements a lightweight broker for broadcasting
lifecycle events to interested subscribers, plus a bounded History
ring that backs the admin API's recent-events endpoint. Everything is
in process; the bus exists so the API, logs, and tests can observe
the daemon without reaching into its internals.

# Architecture

	┌──────────────────── EVENT BUS ────────────────────┐
	│                                                    │
	│   supervisor ──┐                                   │
	│   idler ───────┼──► Publish ──► eventCh ──► run()  │
	│   prober ──────┘                   │               │
	│                                    ▼               │
	│                               broadcast            │
	│                    ┌───────────┬───────────┐       │
	│                    ▼           ▼           ▼       │
	│                History     API stream   tests      │
	│                (ring)                              │
	└────────────────────────────────────────────────────┘

# Event Types

Session lifecycle:

  - session.logged_on: initial logon completed
  - session.reconnected: a recovered logon completed
  - session.disconnected: the session dropped
  - session.fatal_error: the driver gave up
  - session.web_established: browser cookies arrived

Idling lifecycle:

  - idle.set_applied: the declared in-play set changed
  - idle.app_exhausted: an app retired after confirmed exhaustion
  - idle.app_restarted: an app was play-bounced
  - idle.discovery_empty: discovery found nothing to idle
  - idle.stopped: the scheduler shut down

Cache:

  - cache.probe_batch: a capability probe batch resolved

# Delivery Semantics

Publish is non-blocking for the caller: events flow through a
buffered channel into the broker goroutine, which fans out to every
subscriber. A subscriber that stops draining its channel loses events
rather than stalling the bus. Nothing in the daemon may depend on
guaranteed delivery.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:     events.EventAppExhausted,
		Message:  "app 440 retired",
		Metadata: map[string]string{"app_id": "440"},
	})

	ev := <-sub

History for the API:

	history := events.NewHistory(broker, 200)
	defer history.Close()
	recent := history.Recent(50) // newest first

# See Also

  - pkg/api: serves History over /v1/events
*/
package events
