package repository

import (
	"context"

	"ai-chat-backend/internal/domain/model"
)

type ModelPricingRepository interface {
	// Get active pricing for a model
	GetByModelName(ctx context.Context, tx Tx, model string) (*model.ModelPricing, error)
	// Upsert admin changes
	Save(ctx context.Context, tx Tx, p *model.ModelPricing) error
	// List (for the model picker and admin surface)
	ListActive(ctx context.Context, tx Tx) ([]*model.ModelPricing, error)
}
