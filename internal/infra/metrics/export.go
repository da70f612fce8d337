package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		exportsTotal,
		exportBytes,
		compactReduction,
	)
}

var (
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exports_total",
			Help: "Number of conversation exports, per format.",
		},
		[]string{"format"},
	)

	exportBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "export_bytes_total",
			Help: "Total bytes of exported artifacts, per format.",
		},
		[]string{"format"},
	)

	compactReduction = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "export_compact_reduction_ratio",
			Help:    "Token reduction ratio achieved by compact exports (0 = none, 1 = everything).",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

func ObserveExport(format string, size int) {
	f := norm(format)
	exportsTotal.WithLabelValues(f).Inc()
	exportBytes.WithLabelValues(f).Add(float64(size))
}

func ObserveCompactReduction(ratio float64) {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	compactReduction.Observe(ratio)
}
