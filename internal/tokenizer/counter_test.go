package tokenizer

import (
	"strings"
	"testing"
)

func TestCountEmptyAndWhitespace(t *testing.T) {
	c, _ := NewCounter()
	for _, in := range []string{"", " ", "\n\t  \n"} {
		if got := c.Count(in); got != 0 {
			t.Errorf("Count(%q) = %d, want 0", in, got)
		}
	}
}

func TestCountNonNegative(t *testing.T) {
	c, _ := NewCounter()
	inputs := []string{
		"hello world",
		"func main() { fmt.Println(42) }",
		strings.Repeat("token ", 500),
		"émojis 🎉 and ünïcode",
	}
	for _, in := range inputs {
		if got := c.Count(in); got <= 0 {
			t.Errorf("Count(%q...) = %d, want > 0", in[:min(20, len(in))], got)
		}
	}
}

func TestCountFallbackWithoutEncoding(t *testing.T) {
	// A zero-value Counter has no encoding loaded and must fall back to the
	// character heuristic rather than fail.
	var c Counter
	if got, want := c.Count("abcdefgh"), 2; got != want {
		t.Errorf("fallback Count = %d, want %d", got, want)
	}
	if got := c.Count(""); got != 0 {
		t.Errorf("fallback Count(empty) = %d, want 0", got)
	}
}

func TestNilCounterFallsBack(t *testing.T) {
	var c *Counter
	if got := c.Count("abcd"); got != 1 {
		t.Errorf("nil Counter Count = %d, want 1", got)
	}
}

func TestEstimateRoundsUp(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := Estimate(tc.in); got != tc.want {
			t.Errorf("Estimate(len=%d) = %d, want %d", len(tc.in), got, tc.want)
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
