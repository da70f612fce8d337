package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
)

var _ repository.ModelPricingRepository = (*modelPricingRepo)(nil)

type modelPricingRepo struct {
	pool *pgxpool.Pool
}

func NewModelPricingRepo(pool *pgxpool.Pool) *modelPricingRepo {
	return &modelPricingRepo{pool: pool}
}

func (r *modelPricingRepo) GetByModelName(ctx context.Context, tx repository.Tx, name string) (*model.ModelPricing, error) {
	const q = `
SELECT id, model_name, input_usd_per_mtok, output_usd_per_mtok, context_limit, active, created_at, updated_at
  FROM model_pricing
 WHERE model_name=$1 AND active=TRUE
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, name)
	if err != nil {
		return nil, err
	}
	var p model.ModelPricing
	if err := row.Scan(&p.ID, &p.ModelName, &p.InputUSDPerMTok, &p.OutputUSDPerMTok, &p.ContextLimit, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *modelPricingRepo) Save(ctx context.Context, tx repository.Tx, p *model.ModelPricing) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
		p.CreatedAt = time.Now()
	}
	p.UpdatedAt = time.Now()
	const q = `
INSERT INTO model_pricing (id, model_name, input_usd_per_mtok, output_usd_per_mtok, context_limit, active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  model_name = EXCLUDED.model_name,
  input_usd_per_mtok = EXCLUDED.input_usd_per_mtok,
  output_usd_per_mtok = EXCLUDED.output_usd_per_mtok,
  context_limit = EXCLUDED.context_limit,
  active = EXCLUDED.active,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.ModelName, p.InputUSDPerMTok, p.OutputUSDPerMTok, p.ContextLimit, p.Active, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *modelPricingRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.ModelPricing, error) {
	const q = `
SELECT id, model_name, input_usd_per_mtok, output_usd_per_mtok, context_limit, active, created_at, updated_at
  FROM model_pricing WHERE active=TRUE ORDER BY model_name ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.ModelPricing
	for rows.Next() {
		var p model.ModelPricing
		if err := rows.Scan(&p.ID, &p.ModelName, &p.InputUSDPerMTok, &p.OutputUSDPerMTok, &p.ContextLimit, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
