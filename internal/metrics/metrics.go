// Package metrics holds the Prometheus collectors of the chat service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeBadRequest  = "bad_request"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timeout"
	OutcomeError       = "error"
)

// Metrics is registered on its own registry so tests and multiple servers
// in one process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	ChatRequests         *prometheus.CounterVec
	ChatDuration         *prometheus.HistogramVec
	Intents              *prometheus.CounterVec
	TranslationFallbacks *prometheus.CounterVec
	BackendLoad          *prometheus.HistogramVec
	BackendState         prometheus.Gauge
	Abandoned            *prometheus.CounterVec
}

// New creates and registers every collector, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ayuda_chat_requests_total",
			Help: "Chat requests by outcome",
		}, []string{"outcome"}),
		ChatDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ayuda_chat_duration_seconds",
			Help:    "Chat request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		Intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ayuda_query_intent_total",
			Help: "Classified query intents",
		}, []string{"intent"}),
		TranslationFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ayuda_translation_fallbacks_total",
			Help: "Queries ranked on untranslated text because translation failed",
		}, []string{"language"}),
		BackendLoad: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ayuda_backend_load_seconds",
			Help:    "Backend load duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
		BackendState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ayuda_backend_state",
			Help: "Backend state: 0 unloaded, 1 loading, 2 loaded",
		}),
		Abandoned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ayuda_harness_abandoned_total",
			Help: "Tasks whose caller stopped waiting",
		}, []string{"op", "started"}),
	}
	reg.MustRegister(
		m.ChatRequests,
		m.ChatDuration,
		m.Intents,
		m.TranslationFallbacks,
		m.BackendLoad,
		m.BackendState,
		m.Abandoned,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveChat records one chat request.
func (m *Metrics) ObserveChat(outcome string, elapsed time.Duration) {
	m.ChatRequests.WithLabelValues(outcome).Inc()
	m.ChatDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveLoad records a backend load attempt.
func (m *Metrics) ObserveLoad(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.BackendLoad.WithLabelValues(result).Observe(elapsed.Seconds())
}

// SetBackendState records the numeric backend state.
func (m *Metrics) SetBackendState(state int) {
	m.BackendState.Set(float64(state))
}

// ObserveAbandon counts an abandoned harness task.
func (m *Metrics) ObserveAbandon(op string, started bool) {
	m.Abandoned.WithLabelValues(op, strconv.FormatBool(started)).Inc()
}

// TrackPool exports the busy and total worker counts of a harness pool.
// Registering the same pool name twice keeps the first functions.
func (m *Metrics) TrackPool(pool string, busy, capacity func() int) {
	labels := prometheus.Labels{"pool": pool}
	for _, g := range []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "ayuda_harness_workers_busy",
			Help:        "Workers currently running a task",
			ConstLabels: labels,
		}, func() float64 { return float64(busy()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "ayuda_harness_workers",
			Help:        "Worker pool capacity",
			ConstLabels: labels,
		}, func() float64 { return float64(capacity()) }),
	} {
		_ = m.registry.Register(g)
	}
}
