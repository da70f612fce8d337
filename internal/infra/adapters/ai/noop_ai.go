package ai

import (
	"context"
	"time"

	"ai-chat-backend/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev runs: no
// network, canned responses, small simulated latency.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter {
	return &NoopAIAdapter{}
}

const noopReply = "This is a canned development response."

func (a *NoopAIAdapter) ListModels(ctx context.Context) ([]string, error) {
	return []string{"noop-model"}, nil
}

func (a *NoopAIAdapter) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	if err := a.wait(ctx); err != nil {
		return "", err
	}
	return noopReply, nil
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	reply, err := a.Chat(ctx, model, messages)
	return reply, adapter.Usage{}, err
}

func (a *NoopAIAdapter) StreamChat(ctx context.Context, model string, messages []adapter.Message, onDelta adapter.StreamHandler) (string, adapter.Usage, error) {
	if err := a.wait(ctx); err != nil {
		return "", adapter.Usage{}, err
	}
	if err := onDelta(noopReply); err != nil {
		return "", adapter.Usage{}, err
	}
	return noopReply, adapter.Usage{}, nil
}

func (a *NoopAIAdapter) wait(ctx context.Context) error {
	select {
	case <-time.After(100 * time.Millisecond):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
