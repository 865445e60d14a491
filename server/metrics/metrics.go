// Package metrics exports digest pipeline metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Generation run statuses.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusError   = "error"
)

// Metrics tracks digest generation outcomes.
type Metrics struct {
	registry *prometheus.Registry

	generationRuns    *prometheus.CounterVec
	generationLatency prometheus.Histogram
	messagesDigested  prometheus.Counter
	llmTokens         *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		generationRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "teamdigest",
				Name:      "generation_runs_total",
				Help:      "Total number of digest generation runs",
			},
			[]string{"status"},
		),
		generationLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "teamdigest",
				Name:      "generation_latency_seconds",
				Help:      "Digest generation latency in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
		),
		messagesDigested: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "teamdigest",
				Name:      "messages_digested_total",
				Help:      "Total number of messages included in generated digests",
			},
		),
		llmTokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "teamdigest",
				Name:      "llm_tokens_total",
				Help:      "Total LLM tokens consumed by summarization calls",
			},
			[]string{"token_type"},
		),
	}

	registry.MustRegister(
		m.generationRuns,
		m.generationLatency,
		m.messagesDigested,
		m.llmTokens,
	)

	return m
}

// RecordGeneration records the outcome of one generation run.
func (m *Metrics) RecordGeneration(status string, latency time.Duration) {
	m.generationRuns.WithLabelValues(status).Inc()
	m.generationLatency.Observe(latency.Seconds())
}

// RecordMessages records the number of messages included in a digest.
func (m *Metrics) RecordMessages(count int) {
	m.messagesDigested.Add(float64(count))
}

// RecordLLMTokens records token usage of a summarization call.
func (m *Metrics) RecordLLMTokens(promptTokens, completionTokens int) {
	m.llmTokens.WithLabelValues("prompt").Add(float64(promptTokens))
	m.llmTokens.WithLabelValues("completion").Add(float64(completionTokens))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
