package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the relay's Prometheus metrics. Components treat a nil
// *Metrics as "metrics disabled", which is what tests pass.
type Metrics struct {
	MessagesReceived  prometheus.Counter
	MessagesForwarded prometheus.Counter
	MessagesSilenced  prometheus.Counter
	RequestsUnparsed  prometheus.Counter
	RepliesSent       *prometheus.CounterVec
	BacklogSize       prometheus.Gauge
}

// NewMetrics creates and registers all metrics on the default registry.
// Call once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lake_messages_received_total",
			Help: "Messages pulled off the collector endpoint",
		}),

		MessagesForwarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lake_messages_forwarded_total",
			Help: "Messages rebroadcast verbatim to subscribers",
		}),

		MessagesSilenced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lake_messages_silenced_total",
			Help: "Messages dropped while the relay was silenced",
		}),

		RequestsUnparsed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "lake_requests_unparsed_total",
			Help: "VaultUnit-prefixed payloads that failed the request pattern",
		}),

		RepliesSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lake_replies_sent_total",
			Help: "Replies published, by reply code",
		}, []string{"code"}),

		BacklogSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "lake_backlog_size",
			Help: "Messages currently held in the relay backlog",
		}),
	}
}
