package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "climate_engine"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// record engine service.
type Metrics struct {
	RecordsConsumed    prometheus.Counter
	ReportsProduced    prometheus.Counter
	TransformErrors    prometheus.Counter
	RecordsSynthesized prometheus.Counter
	PipelineRunning    prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// Lookup metrics.
	LookupCache    *prometheus.CounterVec // labels: lookup={station,variable,timestamp}, result={hit,miss}
	CatalogEntries *prometheus.GaugeVec   // labels: kind={station,variable,subhourly_group}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsConsumed,
		m.ReportsProduced,
		m.TransformErrors,
		m.RecordsSynthesized,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.LookupCache,
		m.CatalogEntries,
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
		RecordsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_consumed_total",
			Help:      "Total raw element values read from the source topic.",
		}),
		ReportsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_produced_total",
			Help:      "Total observation reports written to the sink topic.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total raw values that could not be turned into records.",
		}),
		RecordsSynthesized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_synthesized_total",
			Help:      "Total missing-value placeholders added while filling observations.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of raw values per batch extracted from Kafka.",
			Buckets:   []float64{1, 10, 50, 100, 250, 500, 1000},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-group-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		LookupCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_cache_total",
			Help:      "Catalog lookup cache results by lookup kind.",
		}, []string{"lookup", "result"}),
		CatalogEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Entries loaded into the catalog and sub-hour registry.",
		}, []string{"kind"}),
	}
}
