package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerMetrics owns a dedicated registry with the HTTP and prediction
// pipeline instrumentation for the service.
type ServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	predictionsTotal  *prometheus.CounterVec
	inferenceDuration *prometheus.HistogramVec
	cacheLookupsTotal *prometheus.CounterVec
	batchItems        *prometheus.HistogramVec
	auditDropsTotal   prometheus.Counter
	auditQueueDepth   prometheus.Gauge
}

func NewServerMetrics(service string) *ServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsclf",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsclf",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsclf",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	predictionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsclf",
			Subsystem: "predict",
			Name:      "requests_total",
			Help:      "Completed predictions by outcome and cache source.",
		},
		[]string{"service", "outcome", "cached"},
	)
	inferenceDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsclf",
			Subsystem: "predict",
			Name:      "inference_duration_seconds",
			Help:      "Model inference duration for cache misses.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service"},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsclf",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by outcome.",
		},
		[]string{"service", "outcome"},
	)
	batchItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsclf",
			Subsystem: "predict",
			Name:      "batch_items",
			Help:      "Distribution of item counts per batch request.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		},
		[]string{"service"},
	)
	auditDropsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "newsclf",
			Subsystem: "audit",
			Name:      "dropped_records_total",
			Help:      "Audit records dropped due to a full buffer.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	auditQueueDepth := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "newsclf",
			Subsystem: "audit",
			Name:      "queue_depth",
			Help:      "Buffered audit records awaiting flush.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		predictionsTotal,
		inferenceDuration,
		cacheLookupsTotal,
		batchItems,
		auditDropsTotal,
		auditQueueDepth,
	)

	return &ServerMetrics{
		registry:          registry,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		predictionsTotal:  predictionsTotal,
		inferenceDuration: inferenceDuration,
		cacheLookupsTotal: cacheLookupsTotal,
		batchItems:        batchItems,
		auditDropsTotal:   auditDropsTotal,
		auditQueueDepth:   auditQueueDepth,
	}
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// RecordPrediction tracks a completed prediction attempt. For fresh
// inferences the request latency approximates inference time and feeds the
// inference histogram.
func (m *ServerMetrics) RecordPrediction(service, outcome string, cached bool, latencyMS float64) {
	m.predictionsTotal.WithLabelValues(service, outcome, strconv.FormatBool(cached)).Inc()
	if outcome == "success" {
		if cached {
			m.cacheLookupsTotal.WithLabelValues(service, "hit").Inc()
		} else {
			m.cacheLookupsTotal.WithLabelValues(service, "miss").Inc()
			m.inferenceDuration.WithLabelValues(service).Observe(latencyMS / 1000.0)
		}
	}
}

// RecordCacheError counts a degraded cache operation: the lookup path
// continued without the cache, so neither hit nor miss applies.
func (m *ServerMetrics) RecordCacheError(service string) {
	m.cacheLookupsTotal.WithLabelValues(service, "error").Inc()
}

func (m *ServerMetrics) RecordBatch(service string, items int) {
	m.batchItems.WithLabelValues(service).Observe(float64(items))
}

func (m *ServerMetrics) RecordAuditDrop() {
	m.auditDropsTotal.Inc()
}

func (m *ServerMetrics) SetAuditQueueDepth(depth int) {
	m.auditQueueDepth.Set(float64(depth))
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
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
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
