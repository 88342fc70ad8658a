package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the dashboard pipeline.
type Metrics struct {
	FetchRequests   *prometheus.CounterVec // labels: trigger={manual,auto}, outcome={success,<error kind>}
	FetchDuration   prometheus.Histogram
	Merges          prometheus.Counter
	SyntheticTicks  prometheus.Counter
	RefreshEnabled  prometheus.Gauge
	PipelineRunning prometheus.Gauge
	SinkDropped     *prometheus.CounterVec // labels: sink={sse,kafka}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.Merges,
		m.SyntheticTicks,
		m.RefreshEnabled,
		m.PipelineRunning,
		m.SinkDropped,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "fetch_requests_total",
			Help:      "Upstream fetch cycles by trigger and outcome.",
		}, []string{"trigger", "outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "weather_dashboard",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of both upstream reads for one fetch.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		Merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "merges_total",
			Help:      "Snapshots published after a successful fetch.",
		}),
		SyntheticTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "synthetic_ticks_total",
			Help:      "Synthetic telemetry points produced.",
		}),
		RefreshEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_dashboard",
			Name:      "refresh_enabled",
			Help:      "1 when auto refresh is enabled, 0 otherwise.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "weather_dashboard",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		SinkDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weather_dashboard",
			Name:      "sink_dropped_total",
			Help:      "Messages dropped because a sink buffer was full.",
		}, []string{"sink"}),
	}
}
