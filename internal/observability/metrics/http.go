package metrics

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushabh-runwal/ai-quote-generator/internal/core/domain"
)

const namespace = "aqg"

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	quotesTotal    *prometheus.CounterVec
	quoteAmount    *prometheus.HistogramVec
	documentsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by ingress traffic control.",
		},
		[]string{"service", "reason"},
	)
	quotesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "created_total",
			Help:      "Quote generation attempts by mode and status.",
		},
		[]string{"service", "mode", "status"},
	)
	quoteAmount := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "quotes",
			Name:      "total_amount_dollars",
			Help:      "Distribution of quoted totals.",
			Buckets:   []float64{100, 250, 500, 1000, 1500, 2500, 5000},
		},
		[]string{"service", "state"},
	)
	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "rendered_total",
			Help:      "Quote documents rendered by status.",
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		quotesTotal,
		quoteAmount,
		documentsTotal,
	)

	return &HTTPServerMetrics{
		service:         service,
		registry:        registry,
		requestTotal:    requestTotal,
		requestDuration: requestDuration,
		requestInFlight: requestInFlight,
		rejectedTotal:   rejectedTotal,
		quotesTotal:     quotesTotal,
		quoteAmount:     quoteAmount,
		documentsTotal:  documentsTotal,
	}
}

// Registry lets other collectors (pipeline metrics, the otel exporter) share
// the /metrics endpoint of the API process.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// RecordRejected counts a request turned away by rate limiting or backpressure.
func (m *HTTPServerMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) QuoteCreated(_ context.Context, quote *domain.Quote, mode string) {
	m.quotesTotal.WithLabelValues(m.service, mode, "success").Inc()
	if quote != nil {
		m.quoteAmount.WithLabelValues(m.service, quote.State.Value).Observe(quote.Pricing.TotalAmount.Float64())
	}
}

func (m *HTTPServerMetrics) QuoteFailed(mode string) {
	m.quotesTotal.WithLabelValues(m.service, mode, "error").Inc()
}

func (m *HTTPServerMetrics) DocumentRendered(status string) {
	if status == "" {
		status = "unknown"
	}
	m.documentsTotal.WithLabelValues(m.service, status).Inc()
}

// normalizePath collapses ids out of route labels to keep cardinality bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/quotes/download-pdf/"):
		return "/quotes/download-pdf/{quoteId}"
	case strings.HasPrefix(path, "/quotes/user/"):
		return "/quotes/user/{email}/history"
	case strings.HasPrefix(path, "/quotes/admin/"),
		path == "/quotes/config",
		path == "/quotes/ai-quote-with-pdf",
		path == "/quotes/quote-with-pdf":
		return path
	case strings.HasPrefix(path, "/quotes/"):
		return "/quotes/{quoteId}"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
