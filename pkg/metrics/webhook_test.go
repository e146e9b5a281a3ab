package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestWebhookMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWebhookMetrics(reg)

	m.IncProcessed("payment")
	m.IncProcessed("payment")
	m.IncDuplicate("payment")
	m.IncUnresolved("")
	m.IncDiscarded("subscription_preapproval")
	m.ObserveDuration("payment", 50*time.Millisecond)

	if got := testutil.ToFloat64(m.processed.WithLabelValues("payment")); got != 2 {
		t.Fatalf("expected 2 processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.duplicate.WithLabelValues("payment")); got != 1 {
		t.Fatalf("expected 1 duplicate, got %v", got)
	}
	if got := testutil.ToFloat64(m.unresolved.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("expected empty label to normalize to unknown, got %v", got)
	}
	if got := testutil.ToFloat64(m.discarded.WithLabelValues("subscription_preapproval")); got != 1 {
		t.Fatalf("expected 1 discarded, got %v", got)
	}
}

func TestWebhookMetricsNilSafe(t *testing.T) {
	var m *WebhookMetrics
	m.IncProcessed("payment")
	m.ObserveDuration("payment", time.Second)

	empty := NewWebhookMetrics(nil)
	empty.IncDuplicate("payment")
}
