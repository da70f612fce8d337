package adapter

import "context"

// Message represents a chat message on the wire to a provider.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single chat call, as reported by the provider.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StreamHandler receives assistant text deltas as they arrive. Returning an
// error aborts the stream.
type StreamHandler func(delta string) error

// AIServiceAdapter is the port for LLM chat.
type AIServiceAdapter interface {
	ListModels(ctx context.Context) ([]string, error)

	// Chat returns only the assistant text.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// ChatWithUsage returns assistant text + usage as reported by the provider.
	ChatWithUsage(ctx context.Context, model string, messages []Message) (string, Usage, error)

	// StreamChat delivers deltas to onDelta and returns the full assistant
	// text and usage once the stream ends.
	StreamChat(ctx context.Context, model string, messages []Message, onDelta StreamHandler) (string, Usage, error)
}
