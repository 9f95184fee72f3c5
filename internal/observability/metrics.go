package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "zone_notifier"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// trigger pipeline and fan-out workers.
type Metrics struct {
	EventsConsumed  prometheus.Counter
	EventsInvalid   prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Classification and fan-out metrics.
	Verdicts             *prometheus.CounterVec   // labels: classification={contained,intersects,buffer,none}
	GeometryErrors       prometheus.Counter       // pairs skipped because of malformed geometry
	Drafts               *prometheus.CounterVec   // labels: category={zone_conflict,route_warning}
	SinkFailures         prometheus.Counter       // drafts the sink refused
	FanoutTasks          *prometheus.CounterVec   // labels: kind={zone_created,route_uploaded}, outcome={success,error,panic,rejected,abandoned}
	FanoutDuration       *prometheus.HistogramVec // labels: kind
	DispatcherQueueDepth prometheus.Gauge

	// Route path cache.
	RouteCache *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		EventsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Total trigger events read from the source topic.",
		}),
		EventsInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_invalid_total",
			Help:      "Trigger events skipped because they could not be parsed or applied.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of trigger events per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-apply-commit cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		Verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Route/zone classifications by outcome.",
		}, []string{"classification"}),
		GeometryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geometry_errors_total",
			Help:      "Route/zone pairs skipped because of invalid geometry.",
		}),
		Drafts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drafts_total",
			Help:      "Notification drafts delivered to the sink by category.",
		}, []string{"category"}),
		SinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Notification drafts the sink failed to store.",
		}),
		FanoutTasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_tasks_total",
			Help:      "Background fan-out tasks by kind and outcome.",
		}, []string{"kind", "outcome"}),
		FanoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fanout_duration_seconds",
			Help:      "Duration of a background fan-out task.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"kind"}),
		DispatcherQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_queue_depth",
			Help:      "Fan-out tasks waiting for a worker.",
		}),
		RouteCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_cache_total",
			Help:      "Parsed route path cache lookups by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.EventsConsumed,
		m.EventsInvalid,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.Verdicts,
		m.GeometryErrors,
		m.Drafts,
		m.SinkFailures,
		m.FanoutTasks,
		m.FanoutDuration,
		m.DispatcherQueueDepth,
		m.RouteCache,
	}
}
