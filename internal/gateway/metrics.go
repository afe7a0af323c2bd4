package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/dajeum/internal/ir"
)

// Metrics holds the gateway's collectors on their own registry so several
// servers can coexist in one process.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	operations     *prometheus.CounterVec
	events         *prometheus.CounterVec
	headSeq        prometheus.Gauge
	queueDepth     prometheus.GaugeFunc
	queueDepthFunc func() float64
}

// NewMetrics registers the dajeum collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{Registry: reg}
	m.httpRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "dajeum_http_requests_total",
		Help: "HTTP requests served, labeled by route and status code",
	}, []string{"method", "route", "status"})
	m.httpLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dajeum_http_request_duration_seconds",
		Help:    "Latency distribution of HTTP requests",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"method", "route"})
	m.operations = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "dajeum_operations_total",
		Help: "Sequenced operations, labeled by action and receipt outcome",
	}, []string{"action", "outcome"})
	m.events = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "dajeum_events_total",
		Help: "Events emitted by committed operations",
	}, []string{"name"})
	m.headSeq = factory.NewGauge(prometheus.GaugeOpts{
		Name: "dajeum_log_head_seq",
		Help: "Seq of the last logged operation",
	})
	m.queueDepth = factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "dajeum_queue_depth",
		Help: "Submissions waiting for the sequencer",
	}, func() float64 {
		if m.queueDepthFunc == nil {
			return 0
		}
		return m.queueDepthFunc()
	})
	return m
}

// Observe implements engine.Observer.
func (m *Metrics) Observe(entry ir.LogEntry) {
	m.operations.WithLabelValues(string(entry.Operation.Action), entry.Receipt.Outcome).Inc()
	for _, ev := range entry.Events {
		m.events.WithLabelValues(ev.Name).Inc()
	}
	m.headSeq.Set(float64(entry.Operation.Seq))
}

// SetHead records the log head seen at startup.
func (m *Metrics) SetHead(seq int64) {
	m.headSeq.Set(float64(seq))
}
