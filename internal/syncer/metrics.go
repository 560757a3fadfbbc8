package syncer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "syncer",
			Name:      "cycles_total",
			Help:      "Delta cycles run, by record type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	firstRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "syncer",
			Name:      "first_run_total",
			Help:      "Cycles that only established an anchor (first-run guard).",
		},
		[]string{"type"},
	)

	samplesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "syncer",
			Name:      "samples_skipped_total",
			Help:      "Samples dropped by permanent mapping errors.",
		},
		[]string{"type"},
	)

	debounceCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voyant_healthsync",
			Subsystem: "syncer",
			Name:      "debounce_coalesced_total",
			Help:      "Change notifications absorbed by an already-pending debounce timer.",
		},
	)
)

const (
	outcomeOK       = "ok"
	outcomeFirstRun = "first_run"
	outcomeError    = "error"
	outcomeStale    = "stale"
)
