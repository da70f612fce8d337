// Package tokenizer estimates how many model tokens a text will consume.
// The hosted models' true tokenizers are not publicly invertible, so counts
// come from the cl100k_base encoding, a close approximation across current
// provider families.
package tokenizer

import (
	"strings"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter is the narrow interface the budget and export packages consume.
type TokenCounter interface {
	Count(text string) int
}

// Counter wraps tiktoken with a character-based fallback. The zero value is
// usable: with no encoding loaded every count falls back to the heuristic.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter loads the cl100k_base encoding. The error is non-fatal for
// callers: a Counter constructed from a failed load still counts via the
// fallback heuristic.
func NewCounter() (*Counter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return &Counter{}, err
	}
	return &Counter{enc: enc}, nil
}

// Count returns the estimated token count for text. Empty or whitespace-only
// input counts as zero. Count never panics and never returns a negative
// value; callers memoize by content (this runs on every render of every
// message).
func (c *Counter) Count(text string) (n int) {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	if c == nil || c.enc == nil {
		return Estimate(text)
	}
	defer func() {
		if recover() != nil {
			n = Estimate(text)
		}
	}()
	n = len(c.enc.Encode(text, nil, nil))
	if n < 0 {
		n = Estimate(text)
	}
	return n
}

// Estimate is the ~4 chars/token heuristic, rounded up. Good enough for
// threshold comparison, not billing-accurate.
func Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
