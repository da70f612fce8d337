package ai_test

import (
	"context"
	"testing"

	"ai-chat-backend/internal/domain/ports/adapter"
	ai "ai-chat-backend/internal/infra/adapters/ai"
)

type stubAI struct {
	name      string
	chatN     int
	streamN   int
	lastModel string
}

func (s *stubAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{s.name + "-model"}, nil
}
func (s *stubAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := s.ChatWithUsage(ctx, model, messages)
	return reply, err
}
func (s *stubAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	s.chatN++
	s.lastModel = model
	return "ok", adapter.Usage{PromptTokens: 1, CompletionTokens: 1}, nil
}
func (s *stubAI) StreamChat(ctx context.Context, model string, messages []adapter.Message, onDelta adapter.StreamHandler) (string, adapter.Usage, error) {
	s.streamN++
	if err := onDelta("ok"); err != nil {
		return "", adapter.Usage{}, err
	}
	return "ok", adapter.Usage{}, nil
}

func TestRouting_ExplicitMap_Heuristics_And_Fallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	anth := &stubAI{name: "anthropic"}
	open := &stubAI{name: "openai"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"anthropic",
		map[string]adapter.AIServiceAdapter{"anthropic": anth, "openai": open, "gemini": gem},
		map[string]string{"custom-x": "gemini"},
	)

	// explicit map wins
	_, _, _ = m.ChatWithUsage(ctx, "custom-x", nil)
	if gem.chatN != 1 || open.chatN != 0 || anth.chatN != 0 {
		t.Fatalf("explicit map should route to gemini, got anth:%d open:%d gem:%d", anth.chatN, open.chatN, gem.chatN)
	}
	gem.chatN = 0

	// claude-* -> anthropic
	_, _, _ = m.ChatWithUsage(ctx, "claude-sonnet-4-20250514", nil)
	if anth.chatN != 1 {
		t.Fatalf("heuristic claude-* should go anthropic")
	}
	anth.chatN = 0

	// gpt-* -> openai
	_, _, _ = m.ChatWithUsage(ctx, "gpt-4o-mini", nil)
	if open.chatN != 1 || gem.chatN != 0 {
		t.Fatalf("heuristic gpt-* should go openai")
	}
	open.chatN = 0

	// gemini-* -> gemini
	_, _, _ = m.ChatWithUsage(ctx, "gemini-2.0-flash", nil)
	if gem.chatN != 1 || open.chatN != 0 {
		t.Fatalf("heuristic gemini-* should go gemini")
	}
	gem.chatN = 0

	// unknown -> default provider (anthropic)
	_, _, _ = m.ChatWithUsage(ctx, "unknown", nil)
	if anth.chatN != 1 {
		t.Fatalf("unknown model should go to default provider (anthropic)")
	}
}

func TestRouting_StreamFollowsSameRules(t *testing.T) {
	t.Parallel()
	anth := &stubAI{name: "anthropic"}
	gem := &stubAI{name: "gemini"}

	m := ai.NewMultiAIAdapter(
		"anthropic",
		map[string]adapter.AIServiceAdapter{"anthropic": anth, "gemini": gem},
		nil,
	)

	var got string
	_, _, err := m.StreamChat(context.Background(), "gemini-2.0-flash", nil, func(delta string) error {
		got += delta
		return nil
	})
	if err != nil {
		t.Fatalf("StreamChat: %v", err)
	}
	if gem.streamN != 1 || anth.streamN != 0 {
		t.Fatalf("stream should route to gemini")
	}
	if got != "ok" {
		t.Fatalf("deltas = %q", got)
	}
}

func TestListModels_UnionWithoutDuplicates(t *testing.T) {
	t.Parallel()
	anth := &stubAI{name: "anthropic"}
	m := ai.NewMultiAIAdapter(
		"anthropic",
		map[string]adapter.AIServiceAdapter{"anthropic": anth},
		map[string]string{"anthropic-model": "anthropic", "custom-x": "anthropic"},
	)

	list, err := m.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	seen := map[string]int{}
	for _, name := range list {
		seen[name]++
	}
	if seen["anthropic-model"] != 1 || seen["custom-x"] != 1 {
		t.Fatalf("unexpected model union: %v", list)
	}
}
