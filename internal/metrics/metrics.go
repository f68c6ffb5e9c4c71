package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DatasetLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdash_dataset_loads_total",
			Help: "Total dataset loads",
		},
		[]string{"status"},
	)

	DatasetLoadLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evdash_dataset_load_latency_seconds",
			Help:    "Dataset load latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	DatasetRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "evdash_dataset_records",
			Help: "Number of records in the loaded dataset",
		},
	)

	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdash_fetch_attempts_total",
			Help: "Total remote dataset fetch attempts",
		},
		[]string{"scheme", "status"},
	)

	RowsFlaggedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdash_rows_flagged_total",
			Help: "Dataset rows skipped or flagged during parsing",
		},
		[]string{"reason"},
	)

	RenderCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdash_render_cycles_total",
			Help: "Total filter-and-aggregate recomputations",
		},
		[]string{"endpoint"},
	)

	RenderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evdash_render_latency_seconds",
			Help:    "Filter-and-aggregate latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	FilteredRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evdash_filtered_records",
			Help:    "Records passing the filter per recomputation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	ExportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "evdash_exports_total",
			Help: "Total CSV exports served",
		},
	)

	NarrativeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evdash_narrative_requests_total",
			Help: "Total narrative generations",
		},
		[]string{"provider", "status"},
	)
)
