// Package budget implements context-window accounting for a conversation:
// usage classification against a model's context limit, recency-preserving
// trimming, and token cost estimation. Everything here is pure computation
// over a snapshot of messages; nothing mutates its inputs.
package budget

import (
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/tokenizer"
)

// Tier classifies how much of the context window a conversation occupies.
type Tier int

const (
	TierSafe      Tier = iota
	TierWarning        // ≥ 70% of the limit
	TierCritical       // ≥ 85%: trim before the next request
	TierEmergency      // ≥ 95%
)

const (
	warningRatio   = 0.70
	criticalRatio  = 0.85
	emergencyRatio = 0.95
)

func (t Tier) String() string {
	switch t {
	case TierWarning:
		return "warning"
	case TierCritical:
		return "critical"
	case TierEmergency:
		return "emergency"
	default:
		return "safe"
	}
}

// Status is derived fresh from the current message set on demand; it is never
// cached or stored.
type Status struct {
	TotalTokens int     `json:"total_tokens"`
	Percentage  float64 `json:"percentage"`
	Tier        Tier    `json:"-"`
	Limit       int     `json:"limit"`
}

// StatusOf computes context usage for messages against limit. Attachments are
// excluded from the sum; only message bodies count. A non-positive limit
// falls back to model.DefaultContextLimit. The classification is stateless
// and has no hysteresis — callers debounce on tier transitions, not here.
func StatusOf(messages []model.Message, limit int, counter tokenizer.TokenCounter) Status {
	if limit <= 0 {
		limit = model.DefaultContextLimit
	}
	total := 0
	for i := range messages {
		total += MessageTokens(&messages[i], counter)
	}
	pct := float64(total) / float64(limit)
	return Status{
		TotalTokens: total,
		Percentage:  pct,
		Tier:        classify(pct),
		Limit:       limit,
	}
}

func classify(pct float64) Tier {
	switch {
	case pct >= emergencyRatio:
		return TierEmergency
	case pct >= criticalRatio:
		return TierCritical
	case pct >= warningRatio:
		return TierWarning
	default:
		return TierSafe
	}
}

// MessageTokens returns the cached per-message count when present, otherwise
// counts the content.
func MessageTokens(m *model.Message, counter tokenizer.TokenCounter) int {
	if m.Tokens > 0 {
		return m.Tokens
	}
	return counter.Count(m.Content)
}

// TrimTarget is the recommended budget after a trim: half the context limit,
// leaving headroom for the next several exchanges instead of re-triggering on
// the following message.
func TrimTarget(limit int) int {
	if limit <= 0 {
		limit = model.DefaultContextLimit
	}
	return limit / 2
}
