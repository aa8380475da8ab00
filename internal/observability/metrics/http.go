package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/grounded-assistant/internal/core/domain"
)

type HTTPServerMetrics struct {
	registry  *prometheus.Registry
	providers *ProviderMetrics

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal        *prometheus.CounterVec
	webSearchTotal      *prometheus.CounterVec
	fallbackTotal       *prometheus.CounterVec
	generationFailTotal *prometheus.CounterVec
	answerSources       *prometheus.HistogramVec
	answerDuration      *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ga",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ga",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "rag",
			Name:      "answers_total",
			Help:      "Answered questions by chat mode, search method and domain.",
		},
		[]string{"service", "endpoint", "chat_mode", "search_method", "domain"},
	)
	webSearchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "rag",
			Name:      "web_search_total",
			Help:      "Answered questions by whether the web fallback was invoked.",
		},
		[]string{"service", "endpoint", "used"},
	)
	fallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "rag",
			Name:      "fallback_total",
			Help:      "Answers synthesized on insufficient evidence.",
		},
		[]string{"service", "endpoint", "chat_mode"},
	)
	generationFailTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ga",
			Subsystem: "rag",
			Name:      "generation_failures_total",
			Help:      "Questions that failed in the generation model.",
		},
		[]string{"service", "endpoint"},
	)
	answerSources := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ga",
			Subsystem: "rag",
			Name:      "cited_sources",
			Help:      "Distribution of cited sources per answer.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 6},
		},
		[]string{"service", "endpoint"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ga",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "Question answering duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "endpoint", "chat_mode"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		webSearchTotal,
		fallbackTotal,
		generationFailTotal,
		answerSources,
		answerDuration,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		providers:           newProviderMetrics(service, registry),
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		answersTotal:        answersTotal,
		webSearchTotal:      webSearchTotal,
		fallbackTotal:       fallbackTotal,
		generationFailTotal: generationFailTotal,
		answerSources:       answerSources,
		answerDuration:      answerDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Providers() *ProviderMetrics {
	return m.providers
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

// RecordAnswer observes one answered question.
func (m *HTTPServerMetrics) RecordAnswer(service, endpoint string, mode domain.ChatMode, answer domain.AnswerResponse, duration time.Duration) {
	chatMode := string(mode)
	if chatMode == "" {
		chatMode = "unknown"
	}
	searchMethod := answer.SearchMethod
	if searchMethod == "" {
		searchMethod = "unknown"
	}

	m.answersTotal.WithLabelValues(service, endpoint, chatMode, searchMethod, answer.Domain).Inc()
	m.webSearchTotal.WithLabelValues(service, endpoint, strconv.FormatBool(answer.WebSearchUsed)).Inc()
	if answer.FallbackUsed {
		m.fallbackTotal.WithLabelValues(service, endpoint, chatMode).Inc()
	}
	m.answerSources.WithLabelValues(service, endpoint).Observe(float64(len(answer.Sources)))
	m.answerDuration.WithLabelValues(service, endpoint, chatMode).Observe(duration.Seconds())
}

func (m *HTTPServerMetrics) RecordGenerationFailure(service, endpoint string) {
	m.generationFailTotal.WithLabelValues(service, endpoint).Inc()
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
