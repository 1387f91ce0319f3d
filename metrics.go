package mqtt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	directionInbound  = "inbound"
	directionOutbound = "outbound"
)

// Metrics prometheus instrumentation of one or more sessions. A nil
// *Metrics records nothing.
type Metrics struct {
	Packets            *prometheus.CounterVec
	InFlight           prometheus.Gauge
	Completed          *prometheus.CounterVec
	Incomplete         prometheus.Counter
	ProtocolViolations *prometheus.CounterVec
	DecodeErrors       prometheus.Counter
	ConnectionsRefused *prometheus.CounterVec
}

// NewMetrics registers the session metrics with reg, the default
// registerer when reg is nil
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "mqtt"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Packets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "packets_total",
				Help:      "Total number of MQTT control packets sent and received",
			},
			[]string{"direction", "type"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "inflight_operations",
				Help:      "Number of publishes and subscribes awaiting acknowledgement",
			},
		),
		Completed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publishes_completed_total",
				Help:      "Total number of outbound publishes that completed their QoS flow",
			},
			[]string{"qos"},
		),
		Incomplete: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publishes_incomplete_total",
				Help:      "Total number of outbound publishes still in flight when the session closed",
			},
		),
		ProtocolViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "protocol_violations_total",
				Help:      "Total number of inbound packets that did not fit the session state",
			},
			[]string{"type"},
		),
		DecodeErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decode_errors_total",
				Help:      "Total number of malformed inbound packets",
			},
		),
		ConnectionsRefused: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_refused_total",
				Help:      "Total number of CONNECTs refused by the broker",
			},
			[]string{"code"},
		),
	}
}

func (m *Metrics) packet(direction string, pt PacketType) {
	if m == nil {
		return
	}
	m.Packets.WithLabelValues(direction, pt.String()).Inc()
}

func (m *Metrics) setInFlight(n int) {
	if m == nil {
		return
	}
	m.InFlight.Set(float64(n))
}

func (m *Metrics) completed(qos byte) {
	if m == nil {
		return
	}
	m.Completed.WithLabelValues(qosLabel(qos)).Inc()
}

func (m *Metrics) incomplete(n int) {
	if m == nil {
		return
	}
	m.Incomplete.Add(float64(n))
}

func (m *Metrics) violation(pt PacketType) {
	if m == nil {
		return
	}
	m.ProtocolViolations.WithLabelValues(pt.String()).Inc()
}

func (m *Metrics) decodeError() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

func (m *Metrics) refused(code ConnAckReturnCode) {
	if m == nil {
		return
	}
	m.ConnectionsRefused.WithLabelValues(code.Text()).Inc()
}

func qosLabel(qos byte) string {
	switch qos {
	case 0:
		return "0"
	case 1:
		return "1"
	}
	return "2"
}
