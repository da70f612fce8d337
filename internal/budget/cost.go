package budget

import (
	"fmt"

	"ai-chat-backend/internal/domain/model"
)

// Direction distinguishes prompt tokens from completion tokens; the two carry
// independent prices.
type Direction int

const (
	Input Direction = iota
	Output
)

// EstimateCost converts a token count into a USD estimate. A nil pricing row
// (unknown model) yields 0 — "no pricing data", a silent degrade rather than
// an error; callers log the condition.
func EstimateCost(tokens int, pricing *model.ModelPricing, dir Direction) float64 {
	if pricing == nil || tokens <= 0 {
		return 0
	}
	perMTok := pricing.InputUSDPerMTok
	if dir == Output {
		perMTok = pricing.OutputUSDPerMTok
	}
	return float64(tokens) * perMTok / 1_000_000
}

// FormatCost renders a USD amount in three tiers. Raw per-message costs are
// frequently sub-cent; a flat 2-decimal dollar format would print "$0.00" for
// nearly everything.
func FormatCost(usd float64) string {
	switch {
	case usd < 0.001:
		return fmt.Sprintf("%.3fm$", usd*1000)
	case usd < 0.01:
		return fmt.Sprintf("%.2f¢", usd*100)
	default:
		return fmt.Sprintf("$%.4f", usd)
	}
}
