package node

import "github.com/prometheus/client_golang/prometheus"

// inboundRejected labels inbound messages that were rejected or dropped.
const inboundRejected = "rejected"

type Metrics struct {
	// MessagesInbound is the total number of inbound messages labelled by
	// message type. Rejected messages are labelled "rejected" rather than by
	// type, so only types the node handles are used as labels.
	MessagesInbound *prometheus.CounterVec

	// MessagesOutbound is the total number of outbound messages labelled by
	// message type.
	MessagesOutbound *prometheus.CounterVec

	// Errors is the total number of request errors labelled by error code.
	Errors *prometheus.CounterVec

	// Ticks is the total number of timer ticks processed.
	Ticks prometheus.Counter

	// TicksDropped is the total number of timer ticks dropped as a tick was
	// already pending.
	TicksDropped prometheus.Counter

	// BytesInbound is the total number of bytes read from the input stream.
	BytesInbound prometheus.CounterFunc

	// BytesOutbound is the total number of bytes written to the output
	// stream.
	BytesOutbound prometheus.CounterFunc

	// QueueDepth is the number of events waiting to be processed.
	QueueDepth prometheus.GaugeFunc
}

func newMetrics(
	bytesInbound func() float64,
	bytesOutbound func() float64,
	queueDepth func() float64,
) *Metrics {
	return &Metrics{
		MessagesInbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "messages_inbound_total",
				Help:      "Total number of inbound messages",
			},
			[]string{"type"},
		),
		MessagesOutbound: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "messages_outbound_total",
				Help:      "Total number of outbound messages",
			},
			[]string{"type"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "errors_total",
				Help:      "Total number of request errors",
			},
			[]string{"code"},
		),
		Ticks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "ticks_total",
				Help:      "Total number of timer ticks processed",
			},
		),
		TicksDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "ticks_dropped_total",
				Help:      "Total number of timer ticks dropped",
			},
		),
		BytesInbound: prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "bytes_inbound_total",
				Help:      "Total number of bytes read from the input stream",
			},
			bytesInbound,
		),
		BytesOutbound: prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "bytes_outbound_total",
				Help:      "Total number of bytes written to the output stream",
			},
			bytesOutbound,
		),
		QueueDepth: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "glomers",
				Subsystem: "node",
				Name:      "queue_depth",
				Help:      "Number of events waiting to be processed",
			},
			queueDepth,
		),
	}
}

func (m *Metrics) Register(reg *prometheus.Registry) {
	reg.MustRegister(
		m.MessagesInbound,
		m.MessagesOutbound,
		m.Errors,
		m.Ticks,
		m.TicksDropped,
		m.BytesInbound,
		m.BytesOutbound,
		m.QueueDepth,
	)
}
