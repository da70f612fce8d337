package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		aiTokensIn,
		aiTokensOut,
		aiCostUSD,
		aiCallsLatencyMs,
	)
}

var (
	aiTokensIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_in",
			Help: "Sum of prompt (input) tokens per model.",
		},
		[]string{"model"},
	)

	aiTokensOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_out",
			Help: "Sum of completion (output) tokens per model.",
		},
		[]string{"model"},
	)

	aiCostUSD = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_cost_usd",
			Help: "Total estimated USD spent per model.",
		},
		[]string{"model"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "Model call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 200, 400, 800, 1600, 3000, 5000, 10000, 30000, 60000},
		},
		[]string{"model", "success"},
	)
)

func ObserveChatCall(model string, elapsed time.Duration, success bool) {
	aiCallsLatencyMs.WithLabelValues(norm(model), strconv.FormatBool(success)).
		Observe(float64(elapsed.Milliseconds()))
}

func ObserveChatUsage(model string, tokensIn, tokensOut int, costUSD float64) {
	aiTokensIn.WithLabelValues(norm(model)).Add(float64(tokensIn))
	aiTokensOut.WithLabelValues(norm(model)).Add(float64(tokensOut))
	aiCostUSD.WithLabelValues(norm(model)).Add(costUSD)
}
