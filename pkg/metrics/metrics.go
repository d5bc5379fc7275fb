package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// Decisions emitted by the prediction pipeline, by value (0 or 1).
	DecisionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adserver_decisions_total",
		Help: "Total ad decisions by value",
	}, []string{"value"})

	// Config refresh runs by result (ok, partial).
	ConfigRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adserver_config_refresh_total",
		Help: "Dynamic config refresh runs by result",
	}, []string{"result"})

	ConfigFetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adserver_config_fetch_failures_total",
		Help: "Per-key dynamic config fetch failures",
	}, []string{"key"})

	// Cache lookups by cache name and result (hit, miss, load).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adserver_cache_lookups_total",
		Help: "Local cache lookups by cache and result",
	}, []string{"cache", "result"})

	// External signal fetch failures by signal.
	SignalFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adserver_signal_failures_total",
		Help: "Signals collaborator failures absorbed into defaults",
	}, []string{"signal"})
)

func Init() {
	prometheus.MustRegister(
		DecisionsTotal,
		ConfigRefreshTotal,
		ConfigFetchFailures,
		CacheLookups,
		SignalFailures,
	)
}
