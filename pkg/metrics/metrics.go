package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Idling metrics
	ActiveSetSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardidler_active_set_size",
			Help: "Number of apps currently held in the active idling set",
		},
	)

	EverRewardedTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardidler_ever_rewarded_total",
			Help: "Number of apps that have ever shown a confirmed pending drop this run",
		},
	)

	IdlerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cardidler_idler_state",
			Help: "Scheduler state as a one-hot gauge (1 on the current state's label)",
		},
		[]string{"state"},
	)

	RefreshCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_refresh_cycles_total",
			Help: "Total number of completed refresh cycles",
		},
	)

	RefreshFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_refresh_failures_total",
			Help: "Total number of refresh cycles that ended in an error",
		},
	)

	RefreshDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardidler_refresh_duration_seconds",
			Help:    "Refresh cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DiscoveryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardidler_discovery_duration_seconds",
			Help:    "Initial discovery duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	AppsExhaustedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_apps_exhausted_total",
			Help: "Total number of apps retired after confirmed drop exhaustion",
		},
	)

	AppsRestartedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_apps_restarted_total",
			Help: "Total number of play bounces applied to stuck apps",
		},
	)

	DeclaresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_declares_total",
			Help: "Total number of in-play declarations sent to the session",
		},
	)

	// Session metrics
	SessionConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardidler_session_connected",
			Help: "Whether the session is currently connected (1 = connected, 0 = not)",
		},
	)

	LogonsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_logons_total",
			Help: "Total number of completed logons, initial and recovered",
		},
	)

	DisconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cardidler_disconnects_total",
			Help: "Total number of observed session drops",
		},
	)

	ReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardidler_reconnects_total",
			Help: "Total number of reconnect attempts by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	// Reward source metrics
	SourceErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardidler_source_errors_total",
			Help: "Total number of reward source fetch failures by source",
		},
		[]string{"source"},
	)

	// Capability cache metrics
	CapabilityProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardidler_capability_probes_total",
			Help: "Total number of capability probes by outcome",
		},
		[]string{"outcome"},
	)

	CapabilityCacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardidler_capability_cache_size",
			Help: "Number of permanently classified apps",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardidler_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardidler_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ActiveSetSize)
	prometheus.MustRegister(EverRewardedTotal)
	prometheus.MustRegister(IdlerState)
	prometheus.MustRegister(RefreshCyclesTotal)
	prometheus.MustRegister(RefreshFailuresTotal)
	prometheus.MustRegister(RefreshDuration)
	prometheus.MustRegister(DiscoveryDuration)
	prometheus.MustRegister(AppsExhaustedTotal)
	prometheus.MustRegister(AppsRestartedTotal)
	prometheus.MustRegister(DeclaresTotal)
	prometheus.MustRegister(SessionConnected)
	prometheus.MustRegister(LogonsTotal)
	prometheus.MustRegister(DisconnectsTotal)
	prometheus.MustRegister(ReconnectsTotal)
	prometheus.MustRegister(SourceErrorsTotal)
	prometheus.MustRegister(CapabilityProbesTotal)
	prometheus.MustRegister(CapabilityCacheSize)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
