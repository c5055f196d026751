package broadcast

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	// Messages is the number of values in the nodes message set.
	Messages prometheus.Gauge

	// Broadcasts is the total number of broadcast requests received,
	// labelled by whether the value was new.
	Broadcasts *prometheus.CounterVec

	// GossipSent is the total number of gossip messages sent.
	GossipSent prometheus.Counter

	// GossipReceived is the total number of gossip messages received.
	GossipReceived prometheus.Counter

	// ValuesMerged is the total number of new values learned from gossip.
	ValuesMerged prometheus.Counter

	// TopologyUpdates is the total number of accepted topology updates.
	TopologyUpdates prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Messages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "glomers",
				Subsystem: "broadcast",
				Name:      "messages",
				Help:      "Number of values in the message set",
			},
		),
		Broadcasts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "broadcast",
				Name:      "broadcasts_total",
				Help:      "Total number of broadcast requests",
			},
			[]string{"new"},
		),
		GossipSent: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "broadcast",
				Name:      "gossip_sent_total",
				Help:      "Total number of gossip messages sent",
			},
		),
		GossipReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "broadcast",
				Name:      "gossip_received_total",
				Help:      "Total number of gossip messages received",
			},
		),
		ValuesMerged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "broadcast",
				Name:      "values_merged_total",
				Help:      "Total number of new values learned from gossip",
			},
		),
		TopologyUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "broadcast",
				Name:      "topology_updates_total",
				Help:      "Total number of accepted topology updates",
			},
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.Messages,
		m.Broadcasts,
		m.GossipSent,
		m.GossipReceived,
		m.ValuesMerged,
		m.TopologyUpdates,
	)
}
