package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uni-ombuds/case-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP surface
// and the case lifecycle domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	casesCreated    *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	filesRejected   *prometheus.CounterVec
	lookups         *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	casesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cases_created_total",
		Help: "Total cases registered, by case type",
	}, []string{"type"})

	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "case_transitions_total",
		Help: "Total applied state transitions",
	}, []string{"from", "to"})

	filesRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attachments_rejected_total",
		Help: "Total attachments rejected by category policy",
	}, []string{"category"})

	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "public_lookups_total",
		Help: "Total public tracking-code lookups",
	}, []string{"cache"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, casesCreated, transitions, filesRejected, lookups, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		casesCreated:    casesCreated,
		transitions:     transitions,
		filesRejected:   filesRejected,
		lookups:         lookups,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveCaseCreated counts a successful registration.
func (m *MetricsService) ObserveCaseCreated(caseType models.CaseType) {
	if m == nil {
		return
	}
	m.casesCreated.WithLabelValues(string(caseType)).Inc()
}

// ObserveTransition counts an applied state change.
func (m *MetricsService) ObserveTransition(from, to models.CaseState) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// ObserveFileRejected counts a policy rejection.
func (m *MetricsService) ObserveFileRejected(category models.AttachmentCategory) {
	if m == nil {
		return
	}
	m.filesRejected.WithLabelValues(string(category)).Inc()
}

// ObserveLookup counts a public lookup, labelled by cache outcome.
func (m *MetricsService) ObserveLookup(cached bool) {
	if m == nil {
		return
	}
	label := "miss"
	if cached {
		label = "hit"
	}
	m.lookups.WithLabelValues(label).Inc()
}
