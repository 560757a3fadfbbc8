package uploader

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "uploader",
			Name:      "batches_total",
			Help:      "Batches accepted by the backend, by upload mode.",
		},
		[]string{"mode"},
	)

	uploadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "uploader",
			Name:      "failures_total",
			Help:      "Upload attempts that returned an error, by upload mode.",
		},
		[]string{"mode"},
	)

	rowsUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "uploader",
			Name:      "rows_total",
			Help:      "Mirror rows shipped in accepted batches.",
		},
	)

	seedChunksAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "uploader",
			Name:      "seed_chunks_accepted_total",
			Help:      "Seed chunks whose ingest task completed.",
		},
	)
)
