package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scadls_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	FilesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadls_files_indexed_total",
		Help: "Total number of file index passes (parse + extract).",
	})

	DocumentsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scadls_documents_open",
		Help: "Number of editor-owned documents currently open.",
	})

	DocumentChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadls_document_changes_total",
		Help: "Total number of applied document change batches.",
	})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scadls_query_seconds",
		Help:    "Time spent answering editor queries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	QueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scadls_query_errors_total",
		Help: "Total number of queries that returned an error.",
	}, []string{"kind"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadls_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	DiagnosticsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadls_diagnostics_published_total",
		Help: "Total number of published diagnostics batches.",
	})

	RenameJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scadls_rename_jobs_total",
		Help: "Total number of background rename jobs by outcome.",
	}, []string{"outcome"})
)
