package repository

import (
	"context"

	"ai-chat-backend/internal/domain/model"
)

// -----------------------------
// Conversations
// -----------------------------

type ConversationRepository interface {
	Save(ctx context.Context, qx any, conv *model.Conversation) error
	SaveMessage(ctx context.Context, qx any, message *model.Message) error
	// ReplaceMessages rewrites the stored message list after a trim. The kept
	// set is always a contiguous suffix of the previous one.
	ReplaceMessages(ctx context.Context, qx any, conversationID string, kept []model.Message) error
	Delete(ctx context.Context, qx any, id string) error
	FindByID(ctx context.Context, qx any, id string) (*model.Conversation, error)
	ListByUser(ctx context.Context, qx any, userID string, offset, limit int) ([]*model.Conversation, error)
	// Search matches query against titles and message bodies, newest first.
	Search(ctx context.Context, qx any, userID, query string, limit int) ([]*model.Conversation, error)
	Rename(ctx context.Context, qx any, id, title string) error
	// DeleteOlderThan removes conversations not updated in retentionDays.
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
