package export

import (
	"encoding/json"
	"time"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/tokenizer"
)

type jsonAttachment struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Size int64  `json:"size"`
}

type jsonMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Timestamp *time.Time       `json:"timestamp,omitempty"`
	Tokens    *int             `json:"tokens,omitempty"`
	Files     []jsonAttachment `json:"files,omitempty"`
}

type jsonConversation struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Model        string        `json:"model"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	MessageCount int           `json:"message_count"`
	Messages     []jsonMessage `json:"messages"`
}

// ToJSON renders the conversation as structured data with content verbatim.
// It never fails for well-formed conversations; a marshalling error would be
// a programming error in the types above.
func ToJSON(conv *model.Conversation, opts Options, counter tokenizer.TokenCounter) (string, error) {
	out := jsonConversation{
		ID:           conv.ID,
		Title:        conv.Title,
		Model:        conv.Model,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
		MessageCount: len(conv.Messages),
		Messages:     make([]jsonMessage, 0, len(conv.Messages)),
	}
	for i := range conv.Messages {
		m := &conv.Messages[i]
		jm := jsonMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		if opts.IncludeTimestamps {
			ts := m.Timestamp
			jm.Timestamp = &ts
		}
		if opts.IncludeTokenCounts {
			n := messageTokens(m, counter)
			jm.Tokens = &n
		}
		for _, f := range m.Files {
			jm.Files = append(jm.Files, jsonAttachment{Name: f.Name, MIME: f.MIME, Size: f.Size})
		}
		out.Messages = append(out.Messages, jm)
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
