package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Sessions       prometheus.Gauge
	Turns          *prometheus.CounterVec
	Fallbacks      *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
	StageLatency   *prometheus.HistogramVec
	HTTPRequests   *prometheus.HistogramVec
	WSMessages     *prometheus.CounterVec

	stages *turnStageWindow
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Number of conversation sessions held in memory.",
		}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		Fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Fallback responses by failing stage and cause.",
		}, []string{"stage", "cause"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and cause.",
		}, []string{"provider", "cause"}),
		StageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_latency_ms",
			Help:      "Pipeline stage latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}, []string{"stage"}),
		HTTPRequests: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction.",
		}, []string{"direction"}),
		stages: newTurnStageWindow(512),
	}
}

// ObserveStage records a stage duration in both the histogram and the rolling window.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	ms := float64(d) / float64(time.Millisecond)
	m.StageLatency.WithLabelValues(stage).Observe(ms)
	m.stages.Observe(stage, ms)
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(outcome).Inc()
	m.stages.ObserveIndicator("turn_" + outcome)
}

func (m *Metrics) ObserveFallback(stage, cause string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(stage, cause).Inc()
	m.stages.ObserveIndicator("fallback_" + stage)
}

func (m *Metrics) ObserveProviderError(provider, cause string) {
	if m == nil {
		return
	}
	m.ProviderErrors.WithLabelValues(provider, cause).Inc()
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.Sessions.Set(float64(n))
}

func (m *Metrics) ObserveWSMessage(direction string) {
	if m == nil {
		return
	}
	m.WSMessages.WithLabelValues(direction).Inc()
}

// SnapshotTurnStages summarizes recent stage latencies for the perf endpoint.
func (m *Metrics) SnapshotTurnStages() TurnStageSnapshot {
	if m == nil {
		return newTurnStageWindow(0).Snapshot()
	}
	return m.stages.Snapshot()
}

func (m *Metrics) ResetTurnStages() {
	if m == nil {
		return
	}
	m.stages.Reset()
}

// Handler exposes the metrics registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
