package budget

import (
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/tokenizer"
)

// TrimResult describes a recency-preserving trim. Messages is always a
// contiguous suffix of the input in original order: oldest-first removal is a
// design decision, not an accident of implementation.
type TrimResult struct {
	Messages     []model.Message
	RemovedCount int
	TokensSaved  int
	// BudgetExceeded is set when even the single newest message is over the
	// target. Rather than silently dropping the whole conversation, the
	// newest message is kept anyway and the caller decides whether to send
	// it or surface a "cannot fit" condition.
	BudgetExceeded bool
}

// TrimRecent removes the oldest messages until the remaining total fits
// targetTokens. Scanning runs from the newest message backward, accumulating
// while the running total stays within budget; the first message that would
// exceed it — and everything older — is dropped.
func TrimRecent(messages []model.Message, targetTokens int, counter tokenizer.TokenCounter) TrimResult {
	counts := make([]int, len(messages))
	total := 0
	for i := range messages {
		counts[i] = MessageTokens(&messages[i], counter)
		total += counts[i]
	}

	if total <= targetTokens {
		return TrimResult{Messages: messages}
	}

	kept := 0
	running := 0
	for i := len(messages) - 1; i >= 0; i-- {
		if running+counts[i] > targetTokens {
			break
		}
		running += counts[i]
		kept++
	}

	exceeded := false
	if kept == 0 && len(messages) > 0 {
		// The newest message alone blows the budget. Keep it regardless.
		kept = 1
		running = counts[len(counts)-1]
		exceeded = true
	}

	suffix := messages[len(messages)-kept:]
	return TrimResult{
		Messages:       suffix,
		RemovedCount:   len(messages) - kept,
		TokensSaved:    total - running,
		BudgetExceeded: exceeded,
	}
}
