package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Job outcomes reported by the compression worker.
const (
	OutcomeCompressed = "compressed"
	OutcomeFallback   = "fallback"
	OutcomeFailed     = "failed"
	OutcomeRejected   = "rejected"
)

type PipelineMetrics struct {
	service  string
	registry *prometheus.Registry

	jobsTotal        *prometheus.CounterVec
	jobDuration      *prometheus.HistogramVec
	jobsInFlight     prometheus.Gauge
	queueLag         *prometheus.HistogramVec
	compressionRatio *prometheus.HistogramVec
}

// NewPipelineMetrics registers into registry, or a fresh one when nil, so the
// API process can expose worker metrics next to its HTTP metrics.
func NewPipelineMetrics(service string, registry *prometheus.Registry) *PipelineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	jobsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "jobs_total",
			Help:      "Compression jobs by outcome.",
		},
		[]string{"service", "outcome"},
	)
	jobDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "job_duration_seconds",
			Help:      "Compression job duration in seconds by outcome.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "outcome"},
	)
	jobsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "jobs_in_flight",
			Help:        "Number of compression jobs currently running.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "queue_lag_seconds",
			Help:      "Delay between job enqueue and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	compressionRatio := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "compression_ratio_percent",
			Help:      "Size reduction achieved by compression, in percent.",
			Buckets:   []float64{0, 5, 10, 20, 30, 40, 50, 60, 70, 80, 90},
		},
		[]string{"service"},
	)

	registry.MustRegister(jobsTotal, jobDuration, jobsInFlight, queueLag, compressionRatio)

	return &PipelineMetrics{
		service:          service,
		registry:         registry,
		jobsTotal:        jobsTotal,
		jobDuration:      jobDuration,
		jobsInFlight:     jobsInFlight,
		queueLag:         queueLag,
		compressionRatio: compressionRatio,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartJob marks a job in flight; the returned func records its outcome.
func (m *PipelineMetrics) StartJob() func(outcome string) {
	start := time.Now()
	m.jobsInFlight.Inc()
	return func(outcome string) {
		m.jobsInFlight.Dec()
		if outcome == "" {
			outcome = OutcomeFailed
		}
		m.jobsTotal.WithLabelValues(m.service, outcome).Inc()
		m.jobDuration.WithLabelValues(m.service, outcome).Observe(time.Since(start).Seconds())
	}
}

// RecordRejected counts a job that never reached a worker.
func (m *PipelineMetrics) RecordRejected() {
	m.jobsTotal.WithLabelValues(m.service, OutcomeRejected).Inc()
}

func (m *PipelineMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *PipelineMetrics) ObserveCompressionRatio(ratio float64) {
	m.compressionRatio.WithLabelValues(m.service).Observe(ratio)
}
