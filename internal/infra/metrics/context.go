package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		contextTrims,
		contextTrimMessages,
		contextTrimTokens,
	)
}

var (
	contextTrims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_trims_total",
			Help: "How many times a conversation was trimmed, per model.",
		},
		[]string{"model"},
	)

	contextTrimMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_trim_messages_total",
			Help: "Total messages removed by trimming, per model.",
		},
		[]string{"model"},
	)

	contextTrimTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "context_trim_tokens_total",
			Help: "Total tokens reclaimed by trimming, per model.",
		},
		[]string{"model"},
	)
)

func ObserveTrim(model string, removed, tokensSaved int) {
	m := norm(model)
	contextTrims.WithLabelValues(m).Inc()
	contextTrimMessages.WithLabelValues(m).Add(float64(removed))
	contextTrimTokens.WithLabelValues(m).Add(float64(tokensSaved))
}
