package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del nodo. Viven en un paquete aparte para que p2p, node y statusapi
// puedan usarlas sin importarse entre sí.

var (
	Ticks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thinkos_node_ticks_total",
		Help: "Ticks completados por el orquestador",
	})

	AIFAFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thinkos_aifa_failures_total",
		Help: "Llamadas a AIFA fallidas por endpoint",
	}, []string{"call"}) // call: weights|vault_split

	AIFALatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "thinkos_aifa_request_duration_seconds",
		Help:    "Latencia de las llamadas a AIFA",
		Buckets: prometheus.DefBuckets,
	}, []string{"call"})

	SnapshotWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "thinkos_snapshot_writes_total",
		Help: "Escrituras de snapshot por tipo y resultado",
	}, []string{"kind", "result"}) // result: ok|error

	CompositeScore = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "thinkos_composite_score",
		Help: "Último composite CMPS calculado",
	})

	HeartbeatsSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thinkos_p2p_heartbeats_sent_total",
		Help: "Heartbeats enviados a peers",
	})

	HeartbeatSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thinkos_p2p_send_errors_total",
		Help: "Heartbeats que no se pudieron resolver o enviar",
	})

	InboxMessages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "thinkos_p2p_inbox_messages_total",
		Help: "Datagramas recibidos y anotados en el inbox",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		Ticks,
		AIFAFailures,
		AIFALatency,
		SnapshotWrites,
		CompositeScore,
		HeartbeatsSent,
		HeartbeatSendErrors,
		InboxMessages,
	}
}

// Register registers the node metrics on the given registry (or default if nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
