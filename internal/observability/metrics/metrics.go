// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_scripture"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Session metrics
	SessionsTotal    prometheus.Counter
	SessionsActive   prometheus.Gauge
	SessionsAnswered prometheus.Counter
	SessionsTimedOut prometheus.Counter
	SessionDuration  prometheus.Histogram

	// Wake metrics
	WakeAttempts prometheus.Counter
	WakeMatched  prometheus.Counter
	WakeIgnored  *prometheus.CounterVec

	// Parse metrics
	ParseTotal      *prometheus.CounterVec
	ParseConfidence prometheus.Histogram

	// Lookup metrics
	LookupTotal *prometheus.CounterVec

	// Speaker metrics
	IdentifyTotal   *prometheus.CounterVec
	IdentifyScore   prometheus.Histogram
	ProfileReloads  *prometheus.CounterVec
	ProfilesLoaded  prometheus.Gauge

	// Collaborator metrics
	CollaboratorLatency *prometheus.HistogramVec
	CollaboratorErrors  *prometheus.CounterVec

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of dialogue sessions started",
		}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of currently active dialogue sessions",
		}),
		SessionsAnswered: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_answered_total",
			Help:      "Total number of sessions that delivered a verse",
		}),
		SessionsTimedOut: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_timed_out_total",
			Help:      "Total number of sessions reaped by the timeout janitor",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Duration of dialogue sessions in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		WakeAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wake_attempts_total",
			Help:      "Total number of wake clips processed",
		}),
		WakeMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wake_matched_total",
			Help:      "Total number of clips that matched the wake phrase",
		}),
		WakeIgnored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wake_ignored_total",
			Help:      "Total number of wakes from ignored speakers",
		}, []string{"speaker"}),

		ParseTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_total",
			Help:      "Total number of reference parse attempts",
		}, []string{"outcome"}),
		ParseConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "parse_confidence",
			Help:      "Confidence of successful reference parses",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.65, 0.8, 0.9, 1},
		}),

		LookupTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_total",
			Help:      "Total number of verse lookups",
		}, []string{"outcome"}),

		IdentifyTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "identify_total",
			Help:      "Total number of speaker identifications",
		}, []string{"outcome"}),
		IdentifyScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identify_score",
			Help:      "Cosine distance of the best speaker match",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.18, 0.25, 0.5, 1},
		}),
		ProfileReloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profile_reloads_total",
			Help:      "Total number of voice profile reloads",
		}, []string{"outcome"}),
		ProfilesLoaded: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles_loaded",
			Help:      "Number of speaker profiles in the live catalog",
		}),

		CollaboratorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collaborator_latency_seconds",
			Help:      "Latency of STT, TTS and embedding calls in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"collaborator"}),
		CollaboratorErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_errors_total",
			Help:      "Total number of collaborator call failures",
		}, []string{"collaborator"}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total number of Kafka messages published",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total number of Kafka publish errors",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Kafka publish latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"topic"}),
	}
}

// RecordSessionStart records a new session starting.
func (m *Metrics) RecordSessionStart() {
	m.SessionsTotal.Inc()
	m.SessionsActive.Inc()
}

// RecordSessionEnd records a session ending.
func (m *Metrics) RecordSessionEnd(answered bool, durationSeconds float64) {
	m.SessionsActive.Dec()
	m.SessionDuration.Observe(durationSeconds)
	if answered {
		m.SessionsAnswered.Inc()
	}
}

// RecordSessionTimeout records a session reaped on deadline.
func (m *Metrics) RecordSessionTimeout() {
	m.SessionsActive.Dec()
	m.SessionsTimedOut.Inc()
}

// RecordWake records a wake attempt and whether it matched.
func (m *Metrics) RecordWake(matched bool) {
	m.WakeAttempts.Inc()
	if matched {
		m.WakeMatched.Inc()
	}
}

// RecordWakeIgnored records a wake from an ignored speaker.
func (m *Metrics) RecordWakeIgnored(speaker string) {
	m.WakeIgnored.WithLabelValues(speaker).Inc()
}

// RecordParse records a parse attempt with its outcome label.
func (m *Metrics) RecordParse(outcome string, confidence float64) {
	m.ParseTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.ParseConfidence.Observe(confidence)
	}
}

// RecordLookup records a verse lookup outcome.
func (m *Metrics) RecordLookup(outcome string) {
	m.LookupTotal.WithLabelValues(outcome).Inc()
}

// RecordIdentify records a speaker identification.
func (m *Metrics) RecordIdentify(accepted bool, score float64) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.IdentifyTotal.WithLabelValues(outcome).Inc()
	m.IdentifyScore.Observe(score)
}

// RecordProfileReload records a reload attempt and the resulting
// catalog size on success.
func (m *Metrics) RecordProfileReload(err error, profiles int) {
	if err != nil {
		m.ProfileReloads.WithLabelValues("error").Inc()
		return
	}
	m.ProfileReloads.WithLabelValues("ok").Inc()
	m.ProfilesLoaded.Set(float64(profiles))
}

// RecordCollaborator records one STT/TTS/embedding call.
func (m *Metrics) RecordCollaborator(name string, err error, latencySeconds float64) {
	m.CollaboratorLatency.WithLabelValues(name).Observe(latencySeconds)
	if err != nil {
		m.CollaboratorErrors.WithLabelValues(name).Inc()
	}
}

// RecordKafkaPublish records a Kafka publish attempt.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, latencySeconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	m.KafkaPublishLatency.WithLabelValues(topic).Observe(latencySeconds)
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
}
