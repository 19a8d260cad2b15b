package metrics

import "github.com/prometheus/client_golang/prometheus"

// DashboardMetrics exposes counters for the admin dashboard's hot paths.
type DashboardMetrics struct {
	broadcastRecipients *prometheus.CounterVec
	broadcastRuns       *prometheus.CounterVec
	stampMutations      *prometheus.CounterVec
}

// NewDashboardMetrics registers the dashboard counters on reg
// (DefaultRegisterer when nil).
func NewDashboardMetrics(reg prometheus.Registerer) *DashboardMetrics {
	m := &DashboardMetrics{
		broadcastRecipients: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "broadcast",
			Name:      "recipients_total",
			Help:      "Per-recipient LINE push outcomes",
		}, []string{"status"}),
		broadcastRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "broadcast",
			Name:      "runs_total",
			Help:      "Broadcast send runs by outcome",
		}, []string{"outcome"}),
		stampMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "loyalty",
			Name:      "stamp_mutations_total",
			Help:      "Staff stamp count mutations",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.broadcastRecipients, m.broadcastRuns, m.stampMutations)
	return m
}

// ObserveRecipient counts one per-recipient push outcome ("success"/"failure").
func (m *DashboardMetrics) ObserveRecipient(status string) {
	if m == nil {
		return
	}
	m.broadcastRecipients.WithLabelValues(status).Inc()
}

// ObserveBroadcastRun counts a whole send ("completed"/"partial"/"empty").
func (m *DashboardMetrics) ObserveBroadcastRun(outcome string) {
	if m == nil {
		return
	}
	m.broadcastRuns.WithLabelValues(outcome).Inc()
}

// ObserveStampMutation counts a stamp change ("increment"/"set").
func (m *DashboardMetrics) ObserveStampMutation(kind string) {
	if m == nil {
		return
	}
	m.stampMutations.WithLabelValues(kind).Inc()
}
