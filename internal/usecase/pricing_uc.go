package usecase

import (
	"context"
	"errors"
	"strings"

	"ai-chat-backend/internal/budget"
	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// PricingUseCase exposes the model pricing table and cost estimation on top
// of it.
type PricingUseCase interface {
	// List returns all active model pricing rows.
	List(ctx context.Context) ([]*model.ModelPricing, error)

	// Get returns the active pricing for a specific model name.
	Get(ctx context.Context, modelName string) (*model.ModelPricing, error)

	// Create inserts a new pricing row. If the model already exists and is
	// active, returns domain.ErrAlreadyExists.
	Create(ctx context.Context, modelName string, inputUSD, outputUSD float64, contextLimit int) (*model.ModelPricing, error)

	// Update mutates fields for an existing pricing row (identified by
	// modelName). Nil pointers mean "no change".
	Update(ctx context.Context, modelName string, inputUSD, outputUSD *float64, contextLimit *int) (*model.ModelPricing, error)

	// Delete deactivates a model's pricing (soft-delete).
	Delete(ctx context.Context, modelName string) error

	// ContextLimit resolves a model's context window; unknown models degrade
	// to model.DefaultContextLimit rather than failing.
	ContextLimit(ctx context.Context, modelName string) int

	// EstimateCost prices a token count for a model and direction. Unknown
	// models cost 0.
	EstimateCost(ctx context.Context, modelName string, tokens int, dir budget.Direction) float64
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	prices repository.ModelPricingRepository
	log    *zerolog.Logger
}

func NewPricingUseCase(prices repository.ModelPricingRepository, logger *zerolog.Logger) PricingUseCase {
	return &pricingUC{prices: prices, log: logger}
}

func (p *pricingUC) List(ctx context.Context) ([]*model.ModelPricing, error) {
	return p.prices.ListActive(ctx, repository.NoTX)
}

func (p *pricingUC) Get(ctx context.Context, modelName string) (*model.ModelPricing, error) {
	return p.prices.GetByModelName(ctx, repository.NoTX, normalizeModelName(modelName))
}

func (p *pricingUC) Create(ctx context.Context, modelName string, inputUSD, outputUSD float64, contextLimit int) (*model.ModelPricing, error) {
	mn := normalizeModelName(modelName)
	if mn == "" || inputUSD < 0 || outputUSD < 0 {
		return nil, domain.ErrInvalidArgument
	}
	if existing, err := p.prices.GetByModelName(ctx, repository.NoTX, mn); err == nil && existing != nil {
		return nil, domain.ErrAlreadyExists
	}
	rec := model.NewModelPricing(mn, inputUSD, outputUSD, contextLimit, true)
	if err := p.prices.Save(ctx, repository.NoTX, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *pricingUC) Update(ctx context.Context, modelName string, inputUSD, outputUSD *float64, contextLimit *int) (*model.ModelPricing, error) {
	mn := normalizeModelName(modelName)
	rec, err := p.prices.GetByModelName(ctx, repository.NoTX, mn)
	if err != nil {
		return nil, err // expected to be domain.ErrNotFound
	}
	if inputUSD != nil {
		rec.InputUSDPerMTok = *inputUSD
	}
	if outputUSD != nil {
		rec.OutputUSDPerMTok = *outputUSD
	}
	if contextLimit != nil && *contextLimit > 0 {
		rec.ContextLimit = *contextLimit
	}
	if err := p.prices.Save(ctx, repository.NoTX, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete implements a soft delete: mark Active=false and persist. Deleting a
// row the repository already reports inactive is a no-op.
func (p *pricingUC) Delete(ctx context.Context, modelName string) error {
	mn := normalizeModelName(modelName)
	rec, err := p.prices.GetByModelName(ctx, repository.NoTX, mn)
	if err != nil {
		return err
	}
	if !rec.Active {
		return nil
	}
	rec.Active = false
	return p.prices.Save(ctx, repository.NoTX, rec)
}

func (p *pricingUC) ContextLimit(ctx context.Context, modelName string) int {
	rec, err := p.prices.GetByModelName(ctx, repository.NoTX, normalizeModelName(modelName))
	if err != nil || rec == nil || rec.ContextLimit <= 0 {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			p.log.Warn().Err(err).Str("model", modelName).Msg("pricing lookup failed; using default context limit")
		} else {
			p.log.Debug().Str("model", modelName).Msg("no context limit configured; using default")
		}
		return model.DefaultContextLimit
	}
	return rec.ContextLimit
}

func (p *pricingUC) EstimateCost(ctx context.Context, modelName string, tokens int, dir budget.Direction) float64 {
	rec, err := p.prices.GetByModelName(ctx, repository.NoTX, normalizeModelName(modelName))
	if err != nil || rec == nil {
		// no pricing data: cost 0 is a silent degrade, logged for visibility
		p.log.Debug().Str("model", modelName).Msg("no pricing data; estimating cost as 0")
		return 0
	}
	return budget.EstimateCost(tokens, rec, dir)
}

func normalizeModelName(s string) string {
	return strings.TrimSpace(s)
}
