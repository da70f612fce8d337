package repository

import (
	"context"

	"ai-chat-backend/internal/domain/model"
)

type SettingsRepository interface {
	// Get returns domain.ErrNotFound when the user has never saved settings.
	Get(ctx context.Context, qx any, userID string) (*model.Settings, error)
	Save(ctx context.Context, qx any, s *model.Settings) error
}
