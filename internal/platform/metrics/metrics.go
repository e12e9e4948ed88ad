package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the authentication core.
type Metrics struct {
	Verifications      *prometheus.CounterVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	LoopTrips          prometheus.Counter
	WatchdogTrips      prometheus.Counter
	LogoutStepFailures prometheus.Counter
	VerifyDuration     prometheus.Histogram
}

// New creates and registers all metrics against the given registerer. Pass
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "authsync_verifications_total",
			Help: "Verification attempts by outcome (ready, pending, failed, timeout).",
		}, []string{"outcome"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "authsync_verification_cache_hits_total",
			Help: "Verification calls served from the cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "authsync_verification_cache_misses_total",
			Help: "Verification cache reads that missed or were expired.",
		}),
		LoopTrips: factory.NewCounter(prometheus.CounterOpts{
			Name: "authsync_loop_detector_trips_total",
			Help: "Redirect loop breaker trips.",
		}),
		WatchdogTrips: factory.NewCounter(prometheus.CounterOpts{
			Name: "authsync_watchdog_trips_total",
			Help: "Emergency watchdog force-terminations of the mount sequence.",
		}),
		LogoutStepFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "authsync_logout_step_failures_total",
			Help: "Individual logout steps that failed and were skipped.",
		}),
		VerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "authsync_verify_duration_ms",
			Help:    "Latency of verification flights in milliseconds.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 2500, 5000},
		}),
	}
}
