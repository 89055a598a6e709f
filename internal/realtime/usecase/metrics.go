package usecase

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "realtime_sync"

// Metrics are the engine's Prometheus collectors.
type Metrics struct {
	framesReceived prometheus.Counter
	malformed      prometheus.Counter
	classified     *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	reconnects     prometheus.Counter
	sendFailures   prometheus.Counter
	status         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_received_total",
			Help:      "Inbound frames received from the transport.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_malformed_total",
			Help:      "Inbound frames dropped as malformed.",
		}),
		classified: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "events_classified_total",
			Help:      "Classified events by outcome.",
		}, []string{"kind"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "notification_decisions_total",
			Help:      "Notification gate decisions by kind.",
		}, []string{"decision"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "reconnects_total",
			Help:      "Transitions into the reconnecting state.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "send_failures_total",
			Help:      "Optimistic sends that ended in the failed state.",
		}),
		status: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "connection_status",
			Help:      "Connection state: 0 disconnected, 1 connecting, 2 connected, 3 reconnecting.",
		}),
	}

	reg.MustRegister(
		m.framesReceived,
		m.malformed,
		m.classified,
		m.decisions,
		m.reconnects,
		m.sendFailures,
		m.status,
	)
	return m
}
