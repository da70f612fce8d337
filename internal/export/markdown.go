package export

import (
	"fmt"
	"strings"
	"time"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/tokenizer"
)

// Options controls the lossless exporters' optional annotations.
type Options struct {
	IncludeTimestamps  bool
	IncludeTokenCounts bool
}

// ToMarkdown renders the conversation as human-readable Markdown. Message
// content is emitted verbatim — this is the fidelity-preserving counterpart
// to Compact, and the one export path guaranteed round-trippable in content.
func ToMarkdown(conv *model.Conversation, opts Options, counter tokenizer.TokenCounter) string {
	var b strings.Builder

	title := conv.Title
	if title == "" {
		title = "Conversation"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- Model: %s\n", conv.Model)
	fmt.Fprintf(&b, "- Created: %s\n", conv.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Updated: %s\n", conv.UpdatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Messages: %d\n", len(conv.Messages))

	for i := range conv.Messages {
		m := &conv.Messages[i]
		b.WriteString("\n## ")
		b.WriteString(roleHeading(m.Role))
		b.WriteString("\n\n")
		if opts.IncludeTimestamps {
			fmt.Fprintf(&b, "_%s_\n\n", m.Timestamp.Format(time.RFC3339))
		}
		if opts.IncludeTokenCounts {
			fmt.Fprintf(&b, "_Tokens: %d_\n\n", messageTokens(m, counter))
		}
		b.WriteString(m.Content)
		b.WriteString("\n")
		for _, f := range m.Files {
			fmt.Fprintf(&b, "\n> Attachment: %s (%s, %d bytes)\n", f.Name, f.MIME, f.Size)
		}
	}
	return b.String()
}

func roleHeading(r model.Role) string {
	if r == model.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func messageTokens(m *model.Message, counter tokenizer.TokenCounter) int {
	if m.Tokens > 0 {
		return m.Tokens
	}
	if counter == nil {
		return 0
	}
	return counter.Count(m.Content)
}
