package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace for all bridge metrics.
const metricsNamespace = "mcpbridge"

// serverMetrics holds the Prometheus instruments for the runtime.
type serverMetrics struct {
	commandsTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	decodeErrors     prometheus.Counter
	activeSessions   prometheus.Gauge
	sessionsTotal    prometheus.Counter
	bytesSent        prometheus.Counter
	bytesReceived    prometheus.Counter
}

// metrics is the process-wide instrument set, registered once on the
// default registerer.
var metrics = newServerMetrics(prometheus.DefaultRegisterer)

func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		commandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Total number of dispatched commands by name and status",
		}, []string{"command", "status"}),

		dispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Command dispatch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "decode_errors_total",
			Help:      "Total number of request envelopes that failed to decode",
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of currently open sessions",
		}),

		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Total number of sessions accepted",
		}),

		bytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_sent_total",
			Help:      "Total response bytes written to clients",
		}),

		bytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_received_total",
			Help:      "Total request bytes read from clients",
		}),
	}
}
