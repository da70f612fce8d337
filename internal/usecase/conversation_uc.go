package usecase

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
	"ai-chat-backend/internal/settings"
)

// Compile-time check
var _ ConversationUseCase = (*conversationUC)(nil)

type ConversationUseCase interface {
	Start(ctx context.Context, userID, modelName string) (*model.Conversation, error)
	Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error)
	List(ctx context.Context, userID string, offset, limit int) ([]*model.Conversation, error)
	Search(ctx context.Context, userID, query string, limit int) ([]*model.Conversation, error)
	Rename(ctx context.Context, userID, conversationID, title string) error
	Delete(ctx context.Context, userID, conversationID string) error
}

type conversationUC struct {
	convs    repository.ConversationRepository
	settings *settings.Store
}

func NewConversationUseCase(convs repository.ConversationRepository, st *settings.Store) *conversationUC {
	return &conversationUC{convs: convs, settings: st}
}

func (c *conversationUC) Start(ctx context.Context, userID, modelName string) (*model.Conversation, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if modelName == "" {
		st, err := c.settings.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		modelName = st.DefaultModel
	}
	conv := model.NewConversation(uuid.NewString(), userID, modelName)
	if err := c.convs.Save(ctx, nil, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get loads a conversation and enforces ownership: a conversation belonging
// to someone else is indistinguishable from a missing one.
func (c *conversationUC) Get(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := c.convs.FindByID(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (c *conversationUC) List(ctx context.Context, userID string, offset, limit int) ([]*model.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return c.convs.ListByUser(ctx, nil, userID, offset, limit)
}

func (c *conversationUC) Search(ctx context.Context, userID, query string, limit int) ([]*model.Conversation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	return c.convs.Search(ctx, nil, userID, query, limit)
}

func (c *conversationUC) Rename(ctx context.Context, userID, conversationID, title string) error {
	conv, err := c.Get(ctx, userID, conversationID)
	if err != nil {
		return err
	}
	conv.SetTitle(title)
	return c.convs.Rename(ctx, nil, conv.ID, conv.Title)
}

func (c *conversationUC) Delete(ctx context.Context, userID, conversationID string) error {
	if _, err := c.Get(ctx, userID, conversationID); err != nil {
		return err
	}
	return c.convs.Delete(ctx, nil, conversationID)
}
