package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records reconciliation outcomes per event type.
type WebhookMetrics struct {
	duration   *prometheus.HistogramVec
	processed  *prometheus.CounterVec
	duplicate  *prometheus.CounterVec
	unresolved *prometheus.CounterVec
	discarded  *prometheus.CounterVec
}

// NewWebhookMetrics registers the reconciler metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_duration_seconds",
		Help:    "Duration of webhook event reconciliation in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_processed",
		Help: "Webhook events that applied a state transition.",
	}, []string{"event_type"})
	duplicate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_duplicate",
		Help: "Webhook events short-circuited by the dedup ledger.",
	}, []string{"event_type"})
	unresolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_unresolved",
		Help: "Webhook events acknowledged without correlation.",
	}, []string{"event_type"})
	discarded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_discarded",
		Help: "Webhook events whose transition was stale or illegal.",
	}, []string{"event_type"})
	reg.MustRegister(duration, processed, duplicate, unresolved, discarded)
	return &WebhookMetrics{
		duration:   duration,
		processed:  processed,
		duplicate:  duplicate,
		unresolved: unresolved,
		discarded:  discarded,
	}
}

// ObserveDuration records how long an event took to reconcile.
func (m *WebhookMetrics) ObserveDuration(eventType string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncProcessed increments the applied-transition counter.
func (m *WebhookMetrics) IncProcessed(eventType string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDuplicate increments the dedup short-circuit counter.
func (m *WebhookMetrics) IncDuplicate(eventType string) {
	if m == nil || m.duplicate == nil {
		return
	}
	m.duplicate.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncUnresolved increments the uncorrelated-event counter.
func (m *WebhookMetrics) IncUnresolved(eventType string) {
	if m == nil || m.unresolved == nil {
		return
	}
	m.unresolved.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDiscarded increments the stale/illegal-transition counter.
func (m *WebhookMetrics) IncDiscarded(eventType string) {
	if m == nil || m.discarded == nil {
		return
	}
	m.discarded.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
