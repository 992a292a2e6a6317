package metrics

import "github.com/prometheus/client_golang/prometheus"

// FanoutMetrics counts notification fan-out deliveries per notification type.
type FanoutMetrics struct {
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewFanoutMetrics registers the fan-out counters on the provided registerer.
func NewFanoutMetrics(reg prometheus.Registerer) *FanoutMetrics {
	if reg == nil {
		return &FanoutMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_fanout_delivered",
		Help: "Notifications successfully delivered during fan-out.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_fanout_failed",
		Help: "Notifications that failed delivery during fan-out.",
	}, []string{"type"})
	reg.MustRegister(delivered, failed)
	return &FanoutMetrics{delivered: delivered, failed: failed}
}

// IncDelivered increments the delivered counter for the notification type.
func (f *FanoutMetrics) IncDelivered(notificationType string) {
	if f == nil || f.delivered == nil {
		return
	}
	f.delivered.WithLabelValues(normalizeLabel(notificationType)).Inc()
}

// IncFailed increments the failed counter for the notification type.
func (f *FanoutMetrics) IncFailed(notificationType string) {
	if f == nil || f.failed == nil {
		return
	}
	f.failed.WithLabelValues(normalizeLabel(notificationType)).Inc()
}
