package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultInvalid = "invalid"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	Registry *prometheus.Registry

	SyncCycles         *prometheus.CounterVec
	SyncNewMessages    prometheus.Counter
	SyncItemErrors     prometheus.Counter
	SyncCycleDuration  prometheus.Histogram
	SyncLastSuccess    prometheus.Gauge
	ContactSubmissions *prometheus.CounterVec
	MailSends          *prometheus.CounterVec
	WebsocketClients   prometheus.Gauge
}

// NewMetrics creates the collectors on a fresh registry, so tests can build
// as many instances as they like.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		SyncCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asa_sync_cycles_total",
			Help: "Total number of mailbox sync cycles by result",
		}, []string{"result"}),
		SyncNewMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "asa_sync_new_messages_total",
			Help: "Total number of messages seen for the first time",
		}),
		SyncItemErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "asa_sync_item_errors_total",
			Help: "Total number of messages that failed to store during sync",
		}),
		SyncCycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "asa_sync_cycle_duration_seconds",
			Help:    "Time spent in one sync cycle",
			Buckets: prometheus.DefBuckets,
		}),
		SyncLastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "asa_sync_last_success_timestamp",
			Help: "Unix time of the last successful sync cycle",
		}),
		ContactSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asa_contact_submissions_total",
			Help: "Total number of contact form submissions by result",
		}, []string{"result"}),
		MailSends: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "asa_mail_send_total",
			Help: "Total number of outbound mail attempts by result",
		}, []string{"result"}),
		WebsocketClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "asa_websocket_clients",
			Help: "Number of connected push clients",
		}),
	}
}
