// Package export serializes conversations into downloadable artifacts: a
// lossless Markdown/JSON pair, and a compact continuation format designed to
// be pasted into a fresh model session so the conversation can resume without
// re-sending the literal transcript.
package export

import (
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/tokenizer"
)

// CompactOptions bounds the continuation export. MaxTokens <= 0 disables the
// summarizing fallback and always returns the full-fidelity pass.
type CompactOptions struct {
	MaxTokens          int
	PreserveCodeBlocks bool
}

const (
	compactPreamble = `[COMPACT CONVERSATION EXPORT]
This is a compressed transcript of a prior conversation. Lines prefixed "U:"
are the user, "A:" are the assistant. Messages are separated by "||". The
transcript lies between the START and END markers. Resume the conversation
from where it left off, honoring all prior decisions and conclusions.`

	startMarker = "<<<CONVERSATION START>>>"
	endMarker   = "<<<CONVERSATION END>>>"
	separator   = "||"

	// recentKeep is how many trailing messages survive verbatim when the
	// summarizing fallback kicks in.
	recentKeep = 5
)

// Compact produces the continuation export. The full-fidelity pass emits
// every message content-compressed; if that exceeds MaxTokens, older messages
// are reduced to a heuristic summary and only the most recent turns stay
// verbatim. The result is best-effort with respect to MaxTokens — callers
// needing a hard guarantee must re-count the output.
func Compact(conv *model.Conversation, opts CompactOptions, counter tokenizer.TokenCounter) string {
	full := renderFull(conv.Messages, opts.PreserveCodeBlocks)
	if opts.MaxTokens <= 0 || counter.Count(full) <= opts.MaxTokens {
		return full
	}
	return renderSummarized(conv.Messages, opts)
}

func renderFull(messages []model.Message, preserveCode bool) string {
	var b strings.Builder
	b.WriteString(compactPreamble)
	b.WriteString("\n\n")
	b.WriteString(startMarker)
	b.WriteString("\n")
	b.WriteString(renderTurns(messages, preserveCode))
	b.WriteString("\n")
	b.WriteString(endMarker)
	return b.String()
}

func renderTurns(messages []model.Message, preserveCode bool) string {
	parts := make([]string, 0, len(messages))
	for i := range messages {
		parts = append(parts, roleMarker(messages[i].Role)+" "+CompressContent(messages[i].Content, preserveCode))
	}
	return strings.Join(parts, separator)
}

func roleMarker(r model.Role) string {
	if r == model.RoleAssistant {
		return "A:"
	}
	return "U:"
}

func renderSummarized(messages []model.Message, opts CompactOptions) string {
	cut := len(messages) - recentKeep
	if cut < 0 {
		cut = 0
	}
	older, recent := messages[:cut], messages[cut:]

	var b strings.Builder
	b.WriteString(compactPreamble)
	b.WriteString("\n\n[CONTEXT SUMMARY]\n")

	if stack := extractTechStack(older); len(stack) > 0 {
		b.WriteString("Stack: " + strings.Join(stack, ", ") + "\n")
	}
	if decisions := extractDecisions(older); len(decisions) > 0 {
		b.WriteString("Decisions:\n")
		for _, d := range decisions {
			b.WriteString("- " + d + "\n")
		}
	}
	if lines := summarizeOlder(older); len(lines) > 0 {
		b.WriteString("Earlier discussion:\n")
		for _, l := range lines {
			b.WriteString("- " + l + "\n")
		}
	}

	b.WriteString("\n[RECENT MESSAGES]\n")
	b.WriteString(startMarker)
	b.WriteString("\n")
	b.WriteString(renderTurns(recent, opts.PreserveCodeBlocks))
	b.WriteString("\n")
	b.WriteString(endMarker)
	return b.String()
}

// summarizeOlder reduces pre-cutoff turns to one line each: key questions
// from user turns, key achievements from assistant turns. This is keyword and
// pattern matching, not true summarization.
func summarizeOlder(messages []model.Message) []string {
	out := make([]string, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		if m.Role == model.RoleUser {
			if q := firstQuestion(m.Content); q != "" {
				out = append(out, "Q: "+q)
			} else {
				out = append(out, "Q: "+truncate(firstLine(m.Content), 80))
			}
			continue
		}
		out = append(out, "A: "+assistantAchievement(m.Content))
	}
	return out
}

// firstQuestion returns the first sentence ending in '?' in s, truncated.
func firstQuestion(s string) string {
	start := 0
	for i, r := range s {
		switch r {
		case '?':
			return truncate(strings.TrimSpace(s[start:i+1]), 100)
		case '.', '!', '\n':
			start = i + 1
		}
	}
	return ""
}

var achievementPatterns = []struct {
	keywords []string
	label    string
}{
	{[]string{"fixed", "resolved", "solved", "the bug was"}, "fixed an issue"},
	{[]string{"refactor"}, "refactored code"},
	{[]string{"installed", "configured", "set up", "setup"}, "set up tooling or configuration"},
	{[]string{"explained", "in other words", "this means"}, "explained a concept"},
	{[]string{"recommend", "suggest", "you should"}, "made a recommendation"},
}

func assistantAchievement(content string) string {
	if hasFencedCode(content) {
		return "provided a code solution"
	}
	lower := strings.ToLower(content)
	for _, p := range achievementPatterns {
		for _, k := range p.keywords {
			if strings.Contains(lower, k) {
				return p.label
			}
		}
	}
	return truncate(firstLine(content), 80)
}

// techKeywords are scanned case-insensitively as whole words across the
// conversation to reconstruct the technical stack in the summary header.
var techKeywords = []string{
	"go", "golang", "python", "typescript", "javascript", "rust", "java",
	"react", "vue", "svelte", "next.js", "node",
	"postgres", "postgresql", "mysql", "sqlite", "redis", "mongodb",
	"docker", "kubernetes", "terraform", "aws", "gcp", "azure",
	"graphql", "grpc", "rest", "websocket", "kafka",
}

func extractTechStack(messages []model.Message) []string {
	found := make([]string, 0, 8)
	seen := map[string]bool{}
	for i := range messages {
		lower := strings.ToLower(messages[i].Content)
		for _, kw := range techKeywords {
			if seen[kw] {
				continue
			}
			if containsWord(lower, kw) {
				seen[kw] = true
				found = append(found, kw)
			}
		}
	}
	return found
}

func containsWord(haystack, word string) bool {
	idx := 0
	for {
		i := strings.Index(haystack[idx:], word)
		if i < 0 {
			return false
		}
		i += idx
		leftOK := i == 0 || !isWordByte(haystack[i-1])
		right := i + len(word)
		rightOK := right >= len(haystack) || !isWordByte(haystack[right])
		if leftOK && rightOK {
			return true
		}
		idx = i + len(word)
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

var decisionPhrases = []string{
	"decided to", "we'll use", "we will use", "let's use", "going with",
	"agreed to", "settled on", "chose to", "we should use",
}

func extractDecisions(messages []model.Message) []string {
	out := make([]string, 0, 4)
	for i := range messages {
		lower := strings.ToLower(messages[i].Content)
		for _, phrase := range decisionPhrases {
			idx := strings.Index(lower, phrase)
			if idx < 0 {
				continue
			}
			out = append(out, truncate(sentenceAt(messages[i].Content, idx), 100))
			if len(out) >= 6 {
				return out
			}
			break
		}
	}
	return out
}

// sentenceAt returns the sentence containing byte offset idx.
func sentenceAt(s string, idx int) string {
	start := 0
	for i := idx; i > 0; i-- {
		if s[i-1] == '.' || s[i-1] == '\n' || s[i-1] == '!' || s[i-1] == '?' {
			start = i
			break
		}
	}
	end := len(s)
	for i := idx; i < len(s); i++ {
		if s[i] == '.' || s[i] == '\n' || s[i] == '!' || s[i] == '?' {
			end = i + 1
			break
		}
	}
	return strings.TrimSpace(s[start:end])
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}

// hasFencedCode reports whether content contains a fenced code block,
// detected by parsing the markdown rather than substring matching so indented
// tildes inside prose don't false-positive.
func hasFencedCode(content string) bool {
	source := []byte(content)
	doc := markdownParser().Parser().Parse(gmtext.NewReader(source))
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.FencedCodeBlock); ok {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

var (
	mdParser     goldmark.Markdown
	mdParserOnce sync.Once
)

// markdownParser shares one goldmark instance; the configuration never
// changes and Parse creates per-call state, so it is safe to reuse.
func markdownParser() goldmark.Markdown {
	mdParserOnce.Do(func() {
		mdParser = goldmark.New()
	})
	return mdParser
}
