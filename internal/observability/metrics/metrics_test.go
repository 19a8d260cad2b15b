package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDashboardMetrics(reg)

	m.ObserveRecipient("success")
	m.ObserveRecipient("success")
	m.ObserveRecipient("failed")
	m.ObserveBroadcastRun("completed")
	m.ObserveStampMutation("set")

	if got := testutil.ToFloat64(m.broadcastRecipients.WithLabelValues("success")); got != 2 {
		t.Errorf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.broadcastRecipients.WithLabelValues("failed")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.broadcastRuns.WithLabelValues("completed")); got != 1 {
		t.Errorf("expected 1 run, got %v", got)
	}
}

func TestNilReceiverIsNoop(t *testing.T) {
	var m *DashboardMetrics
	m.ObserveRecipient("success")
	m.ObserveBroadcastRun("completed")
	m.ObserveStampMutation("set")
}
