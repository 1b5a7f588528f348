// Package metrics defines the Prometheus collectors for the indexing engine
// and exposes an HTTP handler for scraping.
//
// Every method tolerates a nil *Metrics, so components take an optional
// *Metrics and call it unconditionally.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "elastickilla"

// Task outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomeCanceled  = "canceled"
	OutcomeFailed    = "failed"
)

// Search modes used as label values.
const (
	SearchImmediate = "immediate"
	SearchDelayed   = "delayed"
)

// Metrics holds all Prometheus collectors for the engine.
type Metrics struct {
	registry *prometheus.Registry

	TasksSubmitted prometheus.Counter
	TasksFinished  *prometheus.CounterVec
	TaskDuration   prometheus.Histogram
	TasksPending   prometheus.Gauge
	WatchEvents    *prometheus.CounterVec
	FilesTokenized prometheus.Counter
	FilesUnchanged prometheus.Counter
	TokenizeErrors *prometheus.CounterVec
	SearchLatency  *prometheus.HistogramVec
	SearchResults  prometheus.Histogram
	Subscriptions  prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Total indexing tasks submitted to the queue.",
		}),
		TasksFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Total indexing tasks finished by outcome (completed, canceled, failed).",
		}, []string{"outcome"}),
		TaskDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Time spent running a task's work, excluding time queued.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		TasksPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_pending",
			Help:      "Tasks submitted but not yet finished.",
		}),
		WatchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "File-system events handled by operation.",
		}, []string{"op"}),
		FilesTokenized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_tokenized_total",
			Help:      "Files read and tokenized.",
		}),
		FilesUnchanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_unchanged_total",
			Help:      "Change events skipped because the content fingerprint matched.",
		}),
		TokenizeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokenize_errors_total",
			Help:      "Files that could not be read, by error code.",
		}, []string{"code"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_latency_seconds",
			Help:      "Search latency in seconds, including the wait for delayed searches.",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1, 10},
		}, []string{"mode"}),
		SearchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results_count",
			Help:      "Number of resources returned per search.",
			Buckets:   []float64{0, 1, 5, 10, 50, 100, 1000},
		}),
		Subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscriptions",
			Help:      "Directories currently watched.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TasksSubmitted,
		m.TasksFinished,
		m.TaskDuration,
		m.TasksPending,
		m.WatchEvents,
		m.FilesTokenized,
		m.FilesUnchanged,
		m.TokenizeErrors,
		m.SearchLatency,
		m.SearchResults,
		m.Subscriptions,
	)
	return m
}

// Registry returns the registry holding every collector.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the HTTP handler that serves the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterIndexSize exposes the index size as gauges read at scrape time.
func (m *Metrics) RegisterIndexSize(resources, tokens func() int) {
	if m == nil {
		return
	}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_resources",
			Help:      "Resources in the forward index.",
		}, func() float64 { return float64(resources()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_tokens",
			Help:      "Distinct tokens in the inverted index.",
		}, func() float64 { return float64(tokens()) }),
	)
}

// TaskSubmitted records a task entering the queue.
func (m *Metrics) TaskSubmitted() {
	if m == nil {
		return
	}
	m.TasksSubmitted.Inc()
	m.TasksPending.Inc()
}

// TaskFinished records a task leaving the queue. ran is how long the work
// itself took; it is zero for tasks skipped before they started.
func (m *Metrics) TaskFinished(outcome string, ran time.Duration) {
	if m == nil {
		return
	}
	m.TasksFinished.WithLabelValues(outcome).Inc()
	m.TasksPending.Dec()
	if ran > 0 {
		m.TaskDuration.Observe(ran.Seconds())
	}
}

// WatchEvent records a handled file-system event.
func (m *Metrics) WatchEvent(op string) {
	if m == nil {
		return
	}
	m.WatchEvents.WithLabelValues(op).Inc()
}

// FileTokenized records a file read. code is empty on success and holds
// the error code otherwise.
func (m *Metrics) FileTokenized(code string) {
	if m == nil {
		return
	}
	if code != "" {
		m.TokenizeErrors.WithLabelValues(code).Inc()
		return
	}
	m.FilesTokenized.Inc()
}

// FileUnchanged records a change event skipped by fingerprint.
func (m *Metrics) FileUnchanged() {
	if m == nil {
		return
	}
	m.FilesUnchanged.Inc()
}

// SearchServed records a search.
func (m *Metrics) SearchServed(mode string, took time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchLatency.WithLabelValues(mode).Observe(took.Seconds())
	m.SearchResults.Observe(float64(results))
}

// SetSubscriptions sets the number of watched directories.
func (m *Metrics) SetSubscriptions(n int) {
	if m == nil {
		return
	}
	m.Subscriptions.Set(float64(n))
}
