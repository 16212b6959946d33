// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meetbot"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsCreated prometheus.Counter
	SessionsActive  prometheus.Gauge
	SessionsFailed  prometheus.Counter
	SessionDuration prometheus.Histogram

	// Transcript metrics
	FragmentsPartial prometheus.Counter
	FragmentsFinal   prometheus.Counter

	// Audio metrics
	AudioBytesReceived  prometheus.Counter
	AudioChunksReceived prometheus.Counter
	AudioChunksDropped  prometheus.Counter

	// Webhook delivery metrics
	WebhookDeliveries *prometheus.CounterVec
	WebhookAttempts   prometheus.Counter
	WebhookDropped    prometheus.Counter
	WebhookLatency    prometheus.Histogram

	// Transcription stream metrics
	STTReconnects prometheus.Counter
	STTErrors     *prometheus.CounterVec
}

// Default is the global metrics instance.
var Default = New()

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of bot sessions created",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of bot sessions currently in a meeting",
		}),
		SessionsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_failed_total",
			Help:      "Total number of bot sessions that ended in error",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of bot sessions in seconds",
			Buckets:   []float64{1, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		}),

		FragmentsPartial: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_partial_total",
			Help:      "Total number of partial transcript fragments received",
		}),
		FragmentsFinal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_final_total",
			Help:      "Total number of final transcript fragments received",
		}),

		AudioBytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_received_total",
			Help:      "Total audio bytes received from meeting adapters",
		}),
		AudioChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_received_total",
			Help:      "Total audio chunks received from meeting adapters",
		}),
		AudioChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_chunks_dropped_total",
			Help:      "Total audio chunks dropped by the bounded stream buffer",
		}),

		WebhookDeliveries: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Total webhook deliveries by result",
		}, []string{"result"}),
		WebhookAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_attempts_total",
			Help:      "Total individual webhook HTTP attempts",
		}),
		WebhookDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_dropped_total",
			Help:      "Total webhook events dropped, after retry exhaustion or backlog overflow",
		}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_latency_seconds",
			Help:      "Webhook delivery latency in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		STTReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_reconnects_total",
			Help:      "Total transcription stream reconnect attempts",
		}),
		STTErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stt_errors_total",
			Help:      "Total transcription stream errors",
		}, []string{"provider"}),
	}
}

// RecordSessionStart records a session entering a meeting. Session creation
// itself is counted separately, at registration time.
func (m *Metrics) RecordSessionStart() {
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session reaching a terminal state.
func (m *Metrics) RecordSessionEnd(failed bool, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if failed {
		m.SessionsFailed.Inc()
	}
}

// RecordFragment records a transcript fragment received from the backend.
func (m *Metrics) RecordFragment(isFinal bool) {
	if isFinal {
		m.FragmentsFinal.Inc()
	} else {
		m.FragmentsPartial.Inc()
	}
}

// RecordAudio records an audio chunk received from the meeting adapter.
func (m *Metrics) RecordAudio(bytes int) {
	m.AudioBytesReceived.Add(float64(bytes))
	m.AudioChunksReceived.Inc()
}

// RecordWebhookDelivery records the outcome of one logical delivery.
func (m *Metrics) RecordWebhookDelivery(err error, latencySeconds float64) {
	m.WebhookLatency.Observe(latencySeconds)
	if err != nil {
		m.WebhookDeliveries.WithLabelValues("failure").Inc()
		m.WebhookDropped.Inc()
	} else {
		m.WebhookDeliveries.WithLabelValues("success").Inc()
	}
}

// RecordSTTError records a terminal transcription stream error.
func (m *Metrics) RecordSTTError(provider string) {
	m.STTErrors.WithLabelValues(provider).Inc()
}
