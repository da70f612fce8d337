// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/domain/ports/repository"
)

var testLogger = zerolog.Nop()

// fixedCounter is a deterministic stand-in for the real tokenizer: roughly
// one token per four bytes, rounded up.
type fixedCounter struct{}

func (fixedCounter) Count(s string) int {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return (len(s) + 3) / 4
}

// memConversationRepo is a small in-memory implementation used by unit tests.
type memConversationRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Conversation
	saveErr error // used by tests to simulate save failures
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{store: make(map[string]*model.Conversation)}
}

func cloneConversation(c *model.Conversation) *model.Conversation {
	cp := *c
	cp.Messages = append([]model.Message(nil), c.Messages...)
	return &cp
}

func (m *memConversationRepo) Save(ctx context.Context, qx any, conv *model.Conversation) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[conv.ID] = cloneConversation(conv)
	return nil
}

func (m *memConversationRepo) SaveMessage(ctx context.Context, qx any, message *model.Message) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.store[message.ConversationID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID == message.ID {
			conv.Messages[i] = *message
			return nil
		}
	}
	conv.Messages = append(conv.Messages, *message)
	return nil
}

func (m *memConversationRepo) ReplaceMessages(ctx context.Context, qx any, conversationID string, kept []model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.store[conversationID]
	if !ok {
		return domain.ErrNotFound
	}
	conv.Messages = append([]model.Message(nil), kept...)
	return nil
}

func (m *memConversationRepo) Delete(ctx context.Context, qx any, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *memConversationRepo) FindByID(ctx context.Context, qx any, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (m *memConversationRepo) ListByUser(ctx context.Context, qx any, userID string, offset, limit int) ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Conversation
	for _, c := range m.store {
		if c.UserID == userID {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConversationRepo) Search(ctx context.Context, qx any, userID, query string, limit int) ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	var out []*model.Conversation
	for _, c := range m.store {
		if c.UserID != userID {
			continue
		}
		hit := strings.Contains(strings.ToLower(c.Title), q)
		for i := 0; !hit && i < len(c.Messages); i++ {
			hit = strings.Contains(strings.ToLower(c.Messages[i].Content), q)
		}
		if hit {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memConversationRepo) Rename(ctx context.Context, qx any, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	conv.Title = title
	conv.TitleSet = true
	return nil
}

func (m *memConversationRepo) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cut := time.Now().AddDate(0, 0, -retentionDays)
	var n int64
	for id, c := range m.store {
		if c.UpdatedAt.Before(cut) {
			delete(m.store, id)
			n++
		}
	}
	return n, nil
}

// memPricingRepo holds pricing rows in memory, keyed by model name.
type memPricingRepo struct {
	mu    sync.RWMutex
	rows  map[string]*model.ModelPricing
	saveN int
}

func newMemPricingRepo() *memPricingRepo {
	return &memPricingRepo{rows: make(map[string]*model.ModelPricing)}
}

func (m *memPricingRepo) GetByModelName(ctx context.Context, tx repository.Tx, name string) (*model.ModelPricing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.rows[name]
	if !ok || !p.Active {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.ModelName] = &cp
	m.saveN++
	return nil
}

func (m *memPricingRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.ModelPricing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.ModelPricing
	for _, p := range m.rows {
		if p.Active {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out, nil
}

// memSettingsRepo backs a settings.Store in tests.
type memSettingsRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Settings
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{store: make(map[string]*model.Settings)}
}

func (m *memSettingsRepo) Get(ctx context.Context, qx any, userID string) (*model.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSettingsRepo) Save(ctx context.Context, qx any, s *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.UserID] = &cp
	return nil
}

// fakeAI scripts the provider: a fixed reply, optional deltas for the stream
// path, and an optional error.
type fakeAI struct {
	mu      sync.Mutex
	reply   string
	usage   adapter.Usage
	err     error
	deltas  []string
	calls   int
	lastMsg []adapter.Message
}

func (f *fakeAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"claude-sonnet-4-20250514", "gpt-5"}, nil
}

func (f *fakeAI) Chat(ctx context.Context, model string, messages []adapter.Message) (string, error) {
	reply, _, err := f.ChatWithUsage(ctx, model, messages)
	return reply, err
}

func (f *fakeAI) ChatWithUsage(ctx context.Context, model string, messages []adapter.Message) (string, adapter.Usage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastMsg = append([]adapter.Message(nil), messages...)
	if f.err != nil {
		return "", adapter.Usage{}, f.err
	}
	return f.reply, f.usage, nil
}

func (f *fakeAI) StreamChat(ctx context.Context, model string, messages []adapter.Message, onDelta adapter.StreamHandler) (string, adapter.Usage, error) {
	f.mu.Lock()
	deltas := append([]string(nil), f.deltas...)
	f.mu.Unlock()
	for _, d := range deltas {
		if err := onDelta(d); err != nil {
			return "", adapter.Usage{}, err
		}
	}
	return f.ChatWithUsage(ctx, model, messages)
}

func (f *fakeAI) messagesSent() []adapter.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]adapter.Message(nil), f.lastMsg...)
}

// noopLocker always grants the lock.
type noopLocker struct{}

func (noopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "tok", nil
}
func (noopLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// busyLocker simulates a held lock.
type busyLocker struct{}

func (busyLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", errors.New("already locked")
}
func (busyLocker) Unlock(ctx context.Context, key, token string) error { return nil }

// syncRunner executes submitted tasks inline so tests see their effects
// without sleeping.
type syncRunner struct {
	mu        sync.Mutex
	submitted int
}

func (r *syncRunner) Submit(task func(ctx context.Context) error) error {
	r.mu.Lock()
	r.submitted++
	r.mu.Unlock()
	return task(context.Background())
}
