//go:build !integration

package web

import (
	"context"
	"sync"

	"ai-chat-backend/internal/budget"
	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/usecase"
)

// --- Mock use cases (function hooks; unset hooks return zero values) ---

type mockConvUC struct {
	StartFunc  func(ctx context.Context, userID, modelName string) (*model.Conversation, error)
	GetFunc    func(ctx context.Context, userID, conversationID string) (*model.Conversation, error)
	ListFunc   func(ctx context.Context, userID string, offset, limit int) ([]*model.Conversation, error)
	SearchFunc func(ctx context.Context, userID, query string, limit int) ([]*model.Conversation, error)
	RenameFunc func(ctx context.Context, userID, conversationID, title string) error
	DeleteFunc func(ctx context.Context, userID, conversationID string) error
}

var _ usecase.ConversationUseCase = (*mockConvUC)(nil)

func (m *mockConvUC) Start(ctx context.Context, userID, modelName string) (*model.Conversation, error) {
	if m.StartFunc == nil {
		return nil, domain.ErrInvalidArgument
	}
	return m.StartFunc(ctx, userID, modelName)
}

func (m *mockConvUC) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	if m.GetFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.GetFunc(ctx, userID, conversationID)
}

func (m *mockConvUC) List(ctx context.Context, userID string, offset, limit int) ([]*model.Conversation, error) {
	if m.ListFunc == nil {
		return []*model.Conversation{}, nil
	}
	return m.ListFunc(ctx, userID, offset, limit)
}

func (m *mockConvUC) Search(ctx context.Context, userID, query string, limit int) ([]*model.Conversation, error) {
	if m.SearchFunc == nil {
		return []*model.Conversation{}, nil
	}
	return m.SearchFunc(ctx, userID, query, limit)
}

func (m *mockConvUC) Rename(ctx context.Context, userID, conversationID, title string) error {
	if m.RenameFunc == nil {
		return nil
	}
	return m.RenameFunc(ctx, userID, conversationID, title)
}

func (m *mockConvUC) Delete(ctx context.Context, userID, conversationID string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, userID, conversationID)
}

type mockChatUC struct {
	SendFunc   func(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment) (*model.Message, error)
	StreamFunc func(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment, onDelta adapter.StreamHandler) (*model.Message, error)
	StatusFunc func(ctx context.Context, userID, conversationID string) (budget.Status, error)
	ModelsFunc func(ctx context.Context) ([]string, error)
}

var _ usecase.ChatUseCase = (*mockChatUC)(nil)

func (m *mockChatUC) SendMessage(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment) (*model.Message, error) {
	if m.SendFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.SendFunc(ctx, userID, conversationID, content, files)
}

func (m *mockChatUC) StreamMessage(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment, onDelta adapter.StreamHandler) (*model.Message, error) {
	if m.StreamFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.StreamFunc(ctx, userID, conversationID, content, files, onDelta)
}

func (m *mockChatUC) ContextStatus(ctx context.Context, userID, conversationID string) (budget.Status, error) {
	if m.StatusFunc == nil {
		return budget.Status{}, domain.ErrNotFound
	}
	return m.StatusFunc(ctx, userID, conversationID)
}

func (m *mockChatUC) ListModels(ctx context.Context) ([]string, error) {
	if m.ModelsFunc == nil {
		return []string{}, nil
	}
	return m.ModelsFunc(ctx)
}

type mockExportUC struct {
	ExportFunc func(ctx context.Context, userID, conversationID string, format usecase.ExportFormat) (*usecase.Artifact, error)
}

var _ usecase.ExportUseCase = (*mockExportUC)(nil)

func (m *mockExportUC) Export(ctx context.Context, userID, conversationID string, format usecase.ExportFormat) (*usecase.Artifact, error) {
	if m.ExportFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.ExportFunc(ctx, userID, conversationID, format)
}

type mockPricingUC struct {
	ListFunc   func(ctx context.Context) ([]*model.ModelPricing, error)
	GetFunc    func(ctx context.Context, modelName string) (*model.ModelPricing, error)
	CreateFunc func(ctx context.Context, modelName string, inputUSD, outputUSD float64, contextLimit int) (*model.ModelPricing, error)
	UpdateFunc func(ctx context.Context, modelName string, inputUSD, outputUSD *float64, contextLimit *int) (*model.ModelPricing, error)
	DeleteFunc func(ctx context.Context, modelName string) error
}

var _ usecase.PricingUseCase = (*mockPricingUC)(nil)

func (m *mockPricingUC) List(ctx context.Context) ([]*model.ModelPricing, error) {
	if m.ListFunc == nil {
		return []*model.ModelPricing{}, nil
	}
	return m.ListFunc(ctx)
}

func (m *mockPricingUC) Get(ctx context.Context, modelName string) (*model.ModelPricing, error) {
	if m.GetFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.GetFunc(ctx, modelName)
}

func (m *mockPricingUC) Create(ctx context.Context, modelName string, inputUSD, outputUSD float64, contextLimit int) (*model.ModelPricing, error) {
	if m.CreateFunc == nil {
		return nil, domain.ErrInvalidArgument
	}
	return m.CreateFunc(ctx, modelName, inputUSD, outputUSD, contextLimit)
}

func (m *mockPricingUC) Update(ctx context.Context, modelName string, inputUSD, outputUSD *float64, contextLimit *int) (*model.ModelPricing, error) {
	if m.UpdateFunc == nil {
		return nil, domain.ErrNotFound
	}
	return m.UpdateFunc(ctx, modelName, inputUSD, outputUSD, contextLimit)
}

func (m *mockPricingUC) Delete(ctx context.Context, modelName string) error {
	if m.DeleteFunc == nil {
		return nil
	}
	return m.DeleteFunc(ctx, modelName)
}

func (m *mockPricingUC) ContextLimit(ctx context.Context, modelName string) int {
	return model.DefaultContextLimit
}

func (m *mockPricingUC) EstimateCost(ctx context.Context, modelName string, tokens int, dir budget.Direction) float64 {
	return 0
}

// --- in-memory settings repository for the settings.Store ---

type memSettingsRepo struct {
	mu     sync.Mutex
	byUser map[string]model.Settings
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{byUser: map[string]model.Settings{}}
}

func (m *memSettingsRepo) Get(ctx context.Context, qx any, userID string) (*model.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := st
	return &cp, nil
}

func (m *memSettingsRepo) Save(ctx context.Context, qx any, s *model.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byUser[s.UserID] = *s
	return nil
}
