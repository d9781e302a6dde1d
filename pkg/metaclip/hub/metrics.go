package hub

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/metaclip/metaclip/pkg/metaclip"
)

// metrics holds the hub's Prometheus instruments. A nil *metrics disables
// collection, so the hot path never branches on configuration.
type metrics struct {
	subscribersActive  prometheus.Gauge
	eventsPublished    *prometheus.CounterVec
	subscribersDropped prometheus.Counter
}

// WithMetrics registers hub metrics with the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(h *Hub) {
		if reg == nil {
			return
		}

		m := &metrics{
			subscribersActive: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "metaclip",
				Subsystem: "hub",
				Name:      "subscribers_active",
				Help:      "Number of live event subscribers",
			}),
			eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "metaclip",
				Subsystem: "hub",
				Name:      "events_published_total",
				Help:      "Total lifecycle events published",
			}, []string{"kind"}),
			subscribersDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "metaclip",
				Subsystem: "hub",
				Name:      "subscribers_dropped_total",
				Help:      "Total subscribers disconnected for overflowing their delivery buffer",
			}),
		}

		reg.MustRegister(m.subscribersActive, m.eventsPublished, m.subscribersDropped)
		h.metrics = m
	}
}

func (m *metrics) published(kind metaclip.EventKind) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(string(kind)).Inc()
}

func (m *metrics) subscribers(n int) {
	if m == nil {
		return
	}
	m.subscribersActive.Set(float64(n))
}

func (m *metrics) dropped() {
	if m == nil {
		return
	}
	m.subscribersDropped.Inc()
}
