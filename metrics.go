package healthsync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tzSignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "voyant_healthsync",
		Name:      "tz_signals_total",
		Help:      "Timezone signals recorded into the history timelines, by origin.",
	},
	[]string{"origin"},
)
