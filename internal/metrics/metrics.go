// Package metrics declares the process' Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is exposed by the ops server under /metrics.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CyclesTotal, NotificationsTotal, SuppressedTotal,
		Watermark, FetchDuration,
	)
}

// CyclesTotal counts poll cycles by outcome.
var CyclesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "statusbot_cycles_total",
		Help: "Poll cycles by outcome.",
	},
	[]string{"outcome"},
)

// NotificationsTotal counts outbound messages by kind (status|error) and result (sent|failed).
var NotificationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "statusbot_notifications_total",
		Help: "Outbound notifications by kind and result.",
	},
	[]string{"kind", "result"},
)

// SuppressedTotal counts error notifications withheld because the incident was already announced.
var SuppressedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "statusbot_notifications_suppressed_total",
		Help: "Error notifications suppressed by the dedup gate.",
	},
	[]string{"category"},
)

var Watermark = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "statusbot_watermark",
		Help: "Current from_date watermark (unix seconds).",
	},
)

var FetchDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "statusbot_fetch_duration_seconds",
		Help:    "Latency of status API requests.",
		Buckets: prometheus.DefBuckets,
	},
)
