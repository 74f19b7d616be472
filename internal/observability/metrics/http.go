package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServerMetrics aggregates the API server's Prometheus collectors
// behind a private registry so tests can build isolated instances.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	chatTurnsTotal       *prometheus.CounterVec
	chatSteps            *prometheus.HistogramVec
	chatDegradedTotal    *prometheus.CounterVec
	toolCallsTotal       *prometheus.CounterVec
	retrievalHitTotal    *prometheus.CounterVec
	retrievalMissTotal   *prometheus.CounterVec
	filterRelaxedTotal   *prometheus.CounterVec
	nameCorrectionsTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentor",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mentor",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatTurnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total completed chat turns by mode and status.",
		},
		[]string{"service", "mode", "status"},
	)
	chatSteps := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mentor",
			Subsystem: "chat",
			Name:      "steps",
			Help:      "Distribution of planner steps per chat turn.",
			Buckets:   []float64{1, 2, 3, 4, 5, 6, 8, 10},
		},
		[]string{"service", "mode"},
	)
	chatDegradedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "chat",
			Name:      "degraded_total",
			Help:      "Total degraded chat turns by reason.",
		},
		[]string{"service", "reason"},
	)
	toolCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "chat",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations by the planner.",
		},
		[]string{"service", "tool", "status"},
	)
	retrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "retrieval",
			Name:      "hit_total",
			Help:      "Total retrievals that produced at least one course.",
		},
		[]string{"service"},
	)
	retrievalMissTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "retrieval",
			Name:      "miss_total",
			Help:      "Total retrievals that exhausted the filter cascade empty.",
		},
		[]string{"service"},
	)
	filterRelaxedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "retrieval",
			Name:      "filter_relaxed_total",
			Help:      "Total filter fields dropped during relaxation.",
		},
		[]string{"service", "field"},
	)
	nameCorrectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mentor",
			Subsystem: "validator",
			Name:      "name_corrections_total",
			Help:      "Total department-name corrections applied to answers.",
		},
		[]string{"service", "action"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatTurnsTotal,
		chatSteps,
		chatDegradedTotal,
		toolCallsTotal,
		retrievalHitTotal,
		retrievalMissTotal,
		filterRelaxedTotal,
		nameCorrectionsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		chatTurnsTotal:       chatTurnsTotal,
		chatSteps:            chatSteps,
		chatDegradedTotal:    chatDegradedTotal,
		toolCallsTotal:       toolCallsTotal,
		retrievalHitTotal:    retrievalHitTotal,
		retrievalMissTotal:   retrievalMissTotal,
		filterRelaxedTotal:   filterRelaxedTotal,
		nameCorrectionsTotal: nameCorrectionsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
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
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses per-entity path segments so label
// cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/departments/"):
		return "/v1/departments/{name}"
	case strings.HasPrefix(path, "/v1/turns/"):
		return "/v1/turns/{turn_id}/transcript"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordChatTurn(service, mode, degradedReason string, steps int) {
	status := "ok"
	if degradedReason != "" {
		status = "degraded"
		m.chatDegradedTotal.WithLabelValues(service, degradedReason).Inc()
	}
	m.chatTurnsTotal.WithLabelValues(service, mode, status).Inc()
	if steps > 0 {
		m.chatSteps.WithLabelValues(service, mode).Observe(float64(steps))
	}
}

func (m *HTTPServerMetrics) RecordToolCall(service, tool, status string) {
	if tool == "" {
		tool = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.toolCallsTotal.WithLabelValues(service, tool, status).Inc()
}

func (m *HTTPServerMetrics) RecordRetrieval(service string, hits int, droppedFields []string) {
	if hits > 0 {
		m.retrievalHitTotal.WithLabelValues(service).Inc()
	} else {
		m.retrievalMissTotal.WithLabelValues(service).Inc()
	}
	for _, field := range droppedFields {
		m.filterRelaxedTotal.WithLabelValues(service, field).Inc()
	}
}

func (m *HTTPServerMetrics) RecordNameCorrection(service string, removed bool) {
	action := "rewritten"
	if removed {
		action = "removed"
	}
	m.nameCorrectionsTotal.WithLabelValues(service, action).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
