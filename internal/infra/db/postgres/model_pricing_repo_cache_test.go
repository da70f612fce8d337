package postgres

import (
	"context"
	"encoding/json"
	"testing"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
)

// --- Mocks for the ModelPricing Cache Test ---

type mockInnerPricingRepo struct {
	SaveFunc           func(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error
	GetByModelNameFunc func(ctx context.Context, tx repository.Tx, model string) (*model.ModelPricing, error)
	ListActiveFunc     func(ctx context.Context, tx repository.Tx) ([]*model.ModelPricing, error)
}

func (m *mockInnerPricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockInnerPricingRepo) GetByModelName(ctx context.Context, tx repository.Tx, model string) (*model.ModelPricing, error) {
	return m.GetByModelNameFunc(ctx, tx, model)
}
func (m *mockInnerPricingRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.ModelPricing, error) {
	return m.ListActiveFunc(ctx, tx)
}

// --- End Mocks ---

func TestModelPricingRepoCacheDecorator(t *testing.T) {
	ctx := context.Background()
	pricing := &model.ModelPricing{ID: "price-123", ModelName: "claude-sonnet-4-20250514", ContextLimit: 200_000}
	pricingJSON, _ := json.Marshal(pricing)

	t.Run("GetByModelName should return from cache on hit", func(t *testing.T) {
		mockRedis := &mockRedisClient{
			GetFunc: func(ctx context.Context, key string) (string, error) {
				return string(pricingJSON), nil // Simulate cache hit
			},
		}
		innerRepoCalled := false
		mockInnerRepo := &mockInnerPricingRepo{
			GetByModelNameFunc: func(ctx context.Context, tx repository.Tx, model string) (*model.ModelPricing, error) {
				innerRepoCalled = true
				return nil, nil
			},
		}
		decorator := NewModelPricingRepoCacheDecorator(mockInnerRepo, mockRedis)

		got, err := decorator.GetByModelName(ctx, nil, pricing.ModelName)
		if err != nil {
			t.Fatalf("GetByModelName: %v", err)
		}
		if got.ID != pricing.ID || got.ContextLimit != pricing.ContextLimit {
			t.Fatalf("unexpected result: %+v", got)
		}
		if innerRepoCalled {
			t.Fatal("inner repo should not be consulted on a cache hit")
		}
	})

	t.Run("GetByModelName should fall through and populate on miss", func(t *testing.T) {
		misses := &mockRedisClient{} // zero-value funcs: Get always misses
		innerRepoCalled := false
		mockInnerRepo := &mockInnerPricingRepo{
			GetByModelNameFunc: func(ctx context.Context, tx repository.Tx, model string) (*model.ModelPricing, error) {
				innerRepoCalled = true
				return pricing, nil
			},
		}
		decorator := NewModelPricingRepoCacheDecorator(mockInnerRepo, misses)

		got, err := decorator.GetByModelName(ctx, nil, pricing.ModelName)
		if err != nil {
			t.Fatalf("GetByModelName: %v", err)
		}
		if !innerRepoCalled {
			t.Fatal("inner repo should be consulted on a cache miss")
		}
		if got.ID != pricing.ID {
			t.Fatalf("unexpected result: %+v", got)
		}
	})

	t.Run("Save should invalidate both caches", func(t *testing.T) {
		var deleted []string
		mockRedis := &mockRedisClient{
			DelFunc: func(ctx context.Context, keys ...string) error {
				deleted = append(deleted, keys...)
				return nil
			},
		}
		mockInnerRepo := &mockInnerPricingRepo{
			SaveFunc: func(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error { return nil },
		}
		decorator := NewModelPricingRepoCacheDecorator(mockInnerRepo, mockRedis)

		if err := decorator.Save(ctx, nil, pricing); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if len(deleted) != 2 {
			t.Fatalf("expected item+list invalidation, got %v", deleted)
		}
	})
}
