package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the engine.
	Registry = prometheus.NewRegistry()

	// CacheLookups counts cache lookups by cache (geo|route) and outcome (hit|miss).
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_lookups_total", Help: "Geo/route cache lookups by outcome."},
		[]string{"cache", "outcome"},
	)
	// ProviderCalls counts external provider calls by provider and outcome.
	ProviderCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_calls_total", Help: "External geocoding/routing calls by provider and outcome."},
		[]string{"provider", "outcome"},
	)
	// ProviderLatency records external call latencies in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "provider_call_duration_seconds", Help: "External call duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"provider"},
	)
	// Sweeps counts completed sweeps by outcome (ok|partial|failed).
	Sweeps = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sweeps_total", Help: "Cluster sweeps by outcome."},
		[]string{"outcome"},
	)
	// SweepDuration records whole-sweep durations in seconds.
	SweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "sweep_duration_seconds", Help: "Cluster sweep duration in seconds.", Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600}},
	)
	// UnresolvedLegs counts route legs the resolver chain could not resolve.
	UnresolvedLegs = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "unresolved_route_legs_total", Help: "Route legs left unresolved after all providers failed."},
	)
)

// RegisterDefault registers collectors to the engine registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(CacheLookups)
		Registry.MustRegister(ProviderCalls)
		Registry.MustRegister(ProviderLatency)
		Registry.MustRegister(Sweeps)
		Registry.MustRegister(SweepDuration)
		Registry.MustRegister(UnresolvedLegs)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
