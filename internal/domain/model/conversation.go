package model

import (
	"crypto/rand"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ValidRole reports whether r is one of the closed set of message roles.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

// FileAttachment is an optional payload attached to a message. Attachment
// content never participates in token accounting; only the message body does.
type FileAttachment struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	MIME    string `json:"mime"`
	Size    int64  `json:"size"`
	Content []byte `json:"content,omitempty"`
}

// Message is one turn in a conversation. Immutable once persisted, except
// that assistant content grows in place while a response streams.
type Message struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           Role             `json:"role"`
	Content        string           `json:"content"`
	// Tokens caches the counted size of Content; 0 means not yet computed.
	Tokens    int              `json:"tokens"`
	Timestamp time.Time        `json:"timestamp"`
	Files     []FileAttachment `json:"files,omitempty"`
}

// Conversation is the aggregate root for one chat thread with a model.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Model     string    `json:"model"`
	Title     string    `json:"title"`
	// TitleSet marks an explicit user- or model-chosen title; when false the
	// title keeps tracking the first user message.
	TitleSet  bool      `json:"title_set"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewConversation(id, userID, model string) *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        id,
		UserID:    userID,
		Model:     model,
		Messages:  make([]Message, 0, 8),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

const maxDerivedTitleLen = 50

// NewMessageID returns a lexicographically sortable message identifier.
func NewMessageID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// AddMessage appends a turn and advances UpdatedAt. The derived title is set
// from the first user message until SetTitle pins one explicitly.
func (c *Conversation) AddMessage(role Role, content string, tokens int, files ...FileAttachment) *Message {
	m := Message{
		ID:             NewMessageID(),
		ConversationID: c.ID,
		Role:           role,
		Content:        content,
		Tokens:         tokens,
		Timestamp:      time.Now(),
		Files:          files,
	}
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = m.Timestamp
	if !c.TitleSet && c.Title == "" && role == RoleUser {
		c.Title = DeriveTitle(content)
	}
	return &c.Messages[len(c.Messages)-1]
}

// SetTitle pins an explicit title; empty input reverts to derivation.
func (c *Conversation) SetTitle(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		c.TitleSet = false
		c.Title = ""
		for _, m := range c.Messages {
			if m.Role == RoleUser {
				c.Title = DeriveTitle(m.Content)
				break
			}
		}
		return
	}
	c.Title = title
	c.TitleSet = true
	c.UpdatedAt = time.Now()
}

// RecentMessages returns the newest n messages in chronological order.
func (c *Conversation) RecentMessages(n int) []Message {
	if n <= 0 || len(c.Messages) <= n {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}

// DeriveTitle builds a conversation title from the first user message,
// truncated to 50 characters on a rune boundary.
func DeriveTitle(content string) string {
	t := strings.TrimSpace(content)
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	if utf8.RuneCountInString(t) <= maxDerivedTitleLen {
		return t
	}
	runes := []rune(t)
	return string(runes[:maxDerivedTitleLen])
}
