package monitoring

import (
	"net/http"

	"github.com/iti/pcktsim"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a hook exporting the counters of a run in the Prometheus format
type Metrics struct {
	registry *prometheus.Registry

	simTime   prometheus.Gauge
	executed  prometheus.Counter
	hops      prometheus.Counter
	delivered prometheus.Counter
	dropped   *prometheus.CounterVec
	changes   prometheus.Counter
	latency   prometheus.Histogram
}

// NewMetrics creates the metrics of a run, registered in their own registry
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sim_time_seconds",
			Help:      "Simulation clock",
		}),
		executed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Events executed",
		}),
		hops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hops_total",
			Help:      "Link traversals",
		}),
		delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivered_total",
			Help:      "Packets processed at their destination",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_total",
			Help:      "Packets lost, by reason",
		}, []string{"reason"}),
		changes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topology_changes_total",
			Help:      "Nodes and links failed or recovered",
		}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "latency_seconds",
			Help:      "Time from the creation of a packet to the end of its processing",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 4, 10),
		}),
	}
	m.registry.MustRegister(m.simTime, m.executed, m.hops, m.delivered, m.dropped, m.changes, m.latency)
	return m
}

// Registry returns the registry holding the metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Func updates the metrics
func (m *Metrics) Func(ctx pcktsim.HookCtx) {
	m.simTime.Set(ctx.Now.Seconds())
	switch ctx.Pos {
	case pcktsim.HookPosAfterEvent:
		m.executed.Inc()
	case pcktsim.HookPosHop:
		m.hops.Inc()
	case pcktsim.HookPosDelivered:
		m.delivered.Inc()
		if d, ok := ctx.Detail.(pcktsim.Delivery); ok {
			m.latency.Observe(d.Latency.Seconds())
		}
	case pcktsim.HookPosDrop:
		if d, ok := ctx.Detail.(pcktsim.Drop); ok {
			m.dropped.WithLabelValues(d.Reason.String()).Inc()
		}
	case pcktsim.HookPosTopologyChange:
		m.changes.Inc()
	}
}

// Handler serves the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteToTextfile stores the metrics in the text exposition format
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}
