/*
Package metrics provides Prometheus metrics collection and exposition.

The metrics package defines and registers every daemon metric with the
Prometheus client library, giving operators visibility into idling
progress, session stability, reward source behavior, and probe spend.
It also carries a small component health registry backing the
/healthz, /readyz, and /live endpoints.

# Metric Inventory

Idling (cardidler_ prefix):

  - active_set_size: gauge, apps currently held in the active set
  - ever_rewarded_total: gauge, apps ever seen with a confirmed drop
  - idler_state{state}: one-hot gauge over the scheduler states
  - refresh_cycles_total / refresh_failures_total: counters
  - refresh_duration_seconds / discovery_duration_seconds: histograms
  - apps_exhausted_total: counter, confirmed-exhausted retirements
  - apps_restarted_total: counter, play bounces
  - declares_total: counter, in-play declarations sent

Session:

  - session_connected: gauge, 1 while logged on
  - logons_total / disconnects_total: counters
  - reconnects_total{trigger,result}: counter, trigger is one of
    "fallback", "poll", "manual"

Sources and cache:

  - source_errors_total{source}: counter, source is "feed",
    "catalog", or "document"
  - capability_probes_total{outcome}: counter, outcome is "capable",
    "incapable", or "error"
  - capability_cache_size: gauge

API:

  - api_requests_total{method,status} and
    api_request_duration_seconds{method}

# Writing Metrics

Counters and histograms are incremented at the point of action by the
owning package:

	metrics.RefreshCyclesTotal.Inc()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RefreshDuration)

Gauge-shaped state is sampled by the Collector instead, so a gauge
can never drift from the truth it mirrors:

	collector := metrics.NewCollector(idler, supervisor, cache)
	collector.Start()
	defer collector.Stop()

# Component Health

The health registry tracks named components. "session" and "idler"
are critical: readiness requires both registered and healthy.

	metrics.RegisterComponent("session", true, "")
	metrics.UpdateComponent("session", false, "disconnected")

HealthHandler, ReadyHandler, and LivenessHandler expose the registry
over HTTP; pkg/api mounts them.

# Exposition

	mux.Handle("/metrics", metrics.Handler())

All metrics are registered once in init(), so importing the package
is enough to make them scrapeable.

# See Also

  - pkg/api: mounts the handlers
  - pkg/idler, pkg/supervisor, pkg/cache: write the metrics
*/
package metrics
