package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
)

var _ repository.SettingsRepository = (*settingsRepo)(nil)

type settingsRepo struct {
	pool *pgxpool.Pool
}

func NewSettingsRepo(pool *pgxpool.Pool) *settingsRepo {
	return &settingsRepo{pool: pool}
}

func (r *settingsRepo) Get(ctx context.Context, qx any, userID string) (*model.Settings, error) {
	const q = `
SELECT user_id, default_model, export_timestamps, export_token_counts,
       preserve_code_blocks, retention_days, encrypt_messages_at_rest, updated_at
  FROM user_settings WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, userID)
	if err != nil {
		return nil, err
	}
	var s model.Settings
	if err := row.Scan(&s.UserID, &s.DefaultModel, &s.ExportTimestamps, &s.ExportTokenCounts,
		&s.PreserveCodeBlocks, &s.RetentionDays, &s.EncryptMessagesAtRest, &s.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Save(ctx context.Context, qx any, s *model.Settings) error {
	const q = `
INSERT INTO user_settings (
  user_id, default_model, export_timestamps, export_token_counts,
  preserve_code_blocks, retention_days, encrypt_messages_at_rest, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
ON CONFLICT (user_id) DO UPDATE SET
  default_model = EXCLUDED.default_model,
  export_timestamps = EXCLUDED.export_timestamps,
  export_token_counts = EXCLUDED.export_token_counts,
  preserve_code_blocks = EXCLUDED.preserve_code_blocks,
  retention_days = EXCLUDED.retention_days,
  encrypt_messages_at_rest = EXCLUDED.encrypt_messages_at_rest,
  updated_at = NOW();`
	_, err := execSQL(ctx, r.pool, qx, q, s.UserID, s.DefaultModel, s.ExportTimestamps, s.ExportTokenCounts,
		s.PreserveCodeBlocks, s.RetentionDays, s.EncryptMessagesAtRest)
	return err
}
