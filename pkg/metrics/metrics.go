package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the Prometheus collectors for ranking runs.
// Each instance owns its own prometheus.Registry.
type Registry struct {
	reg *prometheus.Registry

	StageDuration  *prometheus.HistogramVec
	Runs           *prometheus.CounterVec
	FetchFailures  prometheus.Counter
	CacheLookups   *prometheus.CounterVec
	RankedTotal    prometheus.Gauge
	PassedTotal    prometheus.Gauge
	LastRunUnixSec prometheus.Gauge
}

// New creates and registers every collector
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "etfmomo_stage_duration_seconds",
				Help:    "Duration of each ranking stage in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfmomo_runs_total",
				Help: "Ranking runs by method and result",
			},
			[]string{"method", "result"},
		),

		FetchFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "etfmomo_fetch_failures_total",
				Help: "Symbols whose history could not be downloaded",
			},
		),

		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "etfmomo_cache_lookups_total",
				Help: "History cache lookups by outcome",
			},
			[]string{"outcome"},
		),

		RankedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfmomo_last_run_ranked",
			Help: "Instruments ranked in the most recent run",
		}),

		PassedTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfmomo_last_run_passed",
			Help: "Instruments passing all filters in the most recent run",
		}),

		LastRunUnixSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "etfmomo_last_run_timestamp_seconds",
			Help: "Completion time of the most recent successful run",
		}),
	}

	r.reg.MustRegister(
		r.StageDuration,
		r.Runs,
		r.FetchFailures,
		r.CacheLookups,
		r.RankedTotal,
		r.PassedTotal,
		r.LastRunUnixSec,
	)

	return r
}

// ObserveStage records how long a stage took
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordRun records a finished run
func (r *Registry) RecordRun(method string, ranked, passed int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.Runs.WithLabelValues(method, "error").Inc()
		return
	}
	r.Runs.WithLabelValues(method, "ok").Inc()
	r.RankedTotal.Set(float64(ranked))
	r.PassedTotal.Set(float64(passed))
	r.LastRunUnixSec.SetToCurrentTime()
}

// RecordFetchFailures adds n failed downloads
func (r *Registry) RecordFetchFailures(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.FetchFailures.Add(float64(n))
}

// RecordCache counts a cache hit or miss
func (r *Registry) RecordCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		r.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// Gatherer exposes the underlying registry (tests, custom exporters)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
