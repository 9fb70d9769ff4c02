// Package metrics exposes dispatcher and planner counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "glassbot"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	updates    *prometheus.CounterVec
	duplicates prometheus.Counter
	dropped    prometheus.Counter
	dispatched *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    prometheus.Histogram
	jobRuns    *prometheus.CounterVec
	jobTook    *prometheus.HistogramVec
	queueDepth prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "updates_total",
			Help: "Inbound updates by kind.",
		}, []string{"kind"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "updates_duplicate_total",
			Help: "Updates skipped because their id was already handled.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "updates_dropped_total",
			Help: "Updates dropped because the dispatch queue was full.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dispatch_total",
			Help: "Answered updates by resolution source and delivery mode.",
		}, []string{"source", "mode"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "dispatch_errors_total",
			Help: "Failed updates by stage.",
		}, []string{"stage"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "dispatch_duration_seconds",
			Help:    "Time from parse to delivery.",
			Buckets: prometheus.DefBuckets,
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "job_runs_total",
			Help: "Planner job runs by result.",
		}, []string{"job", "result"}),
		jobTook: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "job_duration_seconds",
			Help:    "Planner job run time.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dispatch_queue_depth",
			Help: "Updates waiting for the dispatcher.",
		}),
	}
	reg.MustRegister(
		m.updates, m.duplicates, m.dropped, m.dispatched, m.failures,
		m.latency, m.jobRuns, m.jobTook, m.queueDepth,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Update(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

func (m *Metrics) Duplicate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}

func (m *Metrics) Dropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) Dispatched(source, mode string, took time.Duration) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(source, mode).Inc()
	m.latency.Observe(took.Seconds())
}

func (m *Metrics) Failed(stage string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(stage).Inc()
}

// JobRan satisfies planner.Observer.
func (m *Metrics) JobRan(name string, took time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(name, result).Inc()
	m.jobTook.WithLabelValues(name).Observe(took.Seconds())
}

// Supervised exports the live and started goroutine counts of a supervisor.
// Call it once per Metrics.
func (m *Metrics) Supervised(active func() int64, started func() uint64) error {
	if m == nil {
		return nil
	}
	if err := m.reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace, Name: "supervised_goroutines",
		Help: "Goroutines currently run by the app supervisor.",
	}, func() float64 { return float64(active()) })); err != nil {
		return err
	}
	return m.reg.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace, Name: "supervised_goroutines_started_total",
		Help: "Goroutines started by the app supervisor.",
	}, func() float64 { return float64(started()) }))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
