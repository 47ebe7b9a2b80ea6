// Package metrics exposes Prometheus instrumentation for the HTTP API and gameplay.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trivia-board-service/internal/domain"
)

const namespace = "trivia"

// Metrics holds the collectors registered on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestCounter    *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  *prometheus.GaugeVec
	QuestionsResolved *prometheus.CounterVec
}

// New registers the service collectors plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		RequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
			[]string{"method"},
		),
		QuestionsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "questions_resolved_total",
				Help:      "Questions settled, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveResolution counts a settled question.
func (m *Metrics) ObserveResolution(outcome domain.Outcome) {
	m.QuestionsResolved.WithLabelValues(string(outcome)).Inc()
}

// PoolStats reports connection pool gauges.
type PoolStats struct {
	Total    int32
	Idle     int32
	Acquired int32
}

// RegisterPoolStats exposes database pool gauges sampled at scrape time.
func (m *Metrics) RegisterPoolStats(stats func() PoolStats) {
	stat := func(pick func(PoolStats) int32) func() float64 {
		return func() float64 { return float64(pick(stats())) }
	}
	for name, fn := range map[string]func() float64{
		"total":    stat(func(s PoolStats) int32 { return s.Total }),
		"idle":     stat(func(s PoolStats) int32 { return s.Idle }),
		"acquired": stat(func(s PoolStats) int32 { return s.Acquired }),
	} {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "db",
			Name:        "pool_connections",
			Help:        "Database connection pool statistics",
			ConstLabels: prometheus.Labels{"stat": name},
		}, fn))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count, duration and in-flight gauges keyed by
// the matched ServeMux pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inFlight := m.RequestsInFlight.WithLabelValues(r.Method)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}
