// File: internal/infra/db/postgres/conversation_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/repository"
	"ai-chat-backend/internal/infra/redis"
	"ai-chat-backend/internal/infra/security"
)

// ConversationRepo is the default (and only) conversation repository. It
// persists message bodies with optional encryption-at-rest based on the
// owner's settings, and keeps hot conversations in Redis.
var _ repository.ConversationRepository = (*ConversationRepo)(nil)

type ConversationRepo struct {
	pool          *pgxpool.Pool
	cache         *redis.ConversationCache
	encryptionSvc *security.EncryptionService
}

func NewConversationRepo(pool *pgxpool.Pool, cache *redis.ConversationCache, encryptionSvc *security.EncryptionService) *ConversationRepo {
	return &ConversationRepo{pool: pool, cache: cache, encryptionSvc: encryptionSvc}
}

func (r *ConversationRepo) Save(ctx context.Context, qx any, conv *model.Conversation) error {
	const q = `
INSERT INTO conversations (id, user_id, model, title, title_set, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,COALESCE($6,NOW()),COALESCE($7,NOW()))
ON CONFLICT (id) DO UPDATE SET
  model = EXCLUDED.model,
  title = EXCLUDED.title,
  title_set = EXCLUDED.title_set,
  updated_at = EXCLUDED.updated_at;`
	_, err := execSQL(ctx, r.pool, qx, q, conv.ID, conv.UserID, conv.Model, conv.Title, conv.TitleSet, conv.CreatedAt, conv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, conv.ID)
	}
	return nil
}

func (r *ConversationRepo) SaveMessage(ctx context.Context, qx any, m *model.Message) error {
	// Resolve the owner so encryption honours their settings.
	const qOwner = `SELECT user_id FROM conversations WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, qOwner, m.ConversationID)
	if err != nil {
		return err
	}
	var userID string
	if err := row.Scan(&userID); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		return fmt.Errorf("conversation->user lookup: %w", err)
	}

	payload := m.Content
	encFlag := false
	if r.shouldEncrypt(ctx, qx, userID) {
		payload, err = r.encryptionSvc.Encrypt(m.Content)
		if err != nil {
			return fmt.Errorf("encrypt msg: %w", err)
		}
		encFlag = true
	}

	const q = `
INSERT INTO messages (id, conversation_id, role, content, tokens, encrypted, created_at)
VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,NOW()))
ON CONFLICT (id) DO UPDATE SET content=$4, tokens=$5, encrypted=$6;`
	if _, err := execSQL(ctx, r.pool, qx, q, m.ID, m.ConversationID, string(m.Role), payload, m.Tokens, encFlag, m.Timestamp); err != nil {
		return fmt.Errorf("save message: %w", err)
	}

	const qa = `
INSERT INTO attachments (id, message_id, name, mime, size, content)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO NOTHING;`
	for i := range m.Files {
		f := &m.Files[i]
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		if _, err := execSQL(ctx, r.pool, qx, qa, f.ID, m.ID, f.Name, f.MIME, f.Size, f.Content); err != nil {
			return fmt.Errorf("save attachment: %w", err)
		}
	}

	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, m.ConversationID)
	}
	return nil
}

// ReplaceMessages deletes everything older than the kept suffix. Message IDs
// are ULIDs, so lexicographic order is creation order.
func (r *ConversationRepo) ReplaceMessages(ctx context.Context, qx any, conversationID string, kept []model.Message) error {
	var err error
	if len(kept) == 0 {
		const q = `DELETE FROM messages WHERE conversation_id=$1;`
		_, err = execSQL(ctx, r.pool, qx, q, conversationID)
	} else {
		const q = `DELETE FROM messages WHERE conversation_id=$1 AND id < $2;`
		_, err = execSQL(ctx, r.pool, qx, q, conversationID, kept[0].ID)
	}
	if err != nil {
		return fmt.Errorf("replace messages: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, conversationID)
	}
	return nil
}

func (r *ConversationRepo) Delete(ctx context.Context, qx any, id string) error {
	const q = `DELETE FROM conversations WHERE id = $1;`
	if _, err := execSQL(ctx, r.pool, qx, q, id); err != nil {
		return err
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, id)
	}
	return nil
}

func (r *ConversationRepo) FindByID(ctx context.Context, qx any, id string) (*model.Conversation, error) {
	if r.cache != nil && qx == nil {
		if conv, err := r.cache.Get(ctx, id); err == nil {
			return conv, nil
		}
	}

	const qc = `SELECT id, user_id, model, title, title_set, created_at, updated_at FROM conversations WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, qx, qc, id)
	if err != nil {
		return nil, err
	}
	var c model.Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Model, &c.Title, &c.TitleSet, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}

	if err := r.loadMessages(ctx, qx, &c); err != nil {
		return nil, err
	}

	// cache best-effort
	if r.cache != nil {
		_ = r.cache.Store(ctx, &c)
	}
	return &c, nil
}

// ListByUser returns conversation summaries, newest activity first. Rows
// carry no messages; FindByID loads the full thread.
func (r *ConversationRepo) ListByUser(ctx context.Context, qx any, userID string, offset, limit int) ([]*model.Conversation, error) {
	const q = `
SELECT id, user_id, model, title, title_set, created_at, updated_at
  FROM conversations
 WHERE user_id=$1
 ORDER BY updated_at DESC
 OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversationRows(rows)
}

// Search matches titles and plaintext message bodies. Encrypted bodies are
// opaque to ILIKE and only match on title.
func (r *ConversationRepo) Search(ctx context.Context, qx any, userID, query string, limit int) ([]*model.Conversation, error) {
	const q = `
SELECT id, user_id, model, title, title_set, created_at, updated_at
  FROM conversations c
 WHERE c.user_id=$1
   AND (c.title ILIKE $2
        OR EXISTS (SELECT 1 FROM messages m
                    WHERE m.conversation_id = c.id
                      AND m.encrypted = FALSE
                      AND m.content ILIKE $2))
 ORDER BY c.updated_at DESC
 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, qx, q, userID, "%"+query+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanConversationRows(rows)
}

func (r *ConversationRepo) Rename(ctx context.Context, qx any, id, title string) error {
	const q = `UPDATE conversations SET title=$2, title_set=TRUE, updated_at=NOW() WHERE id=$1;`
	tag, err := execSQL(ctx, r.pool, qx, q, id, title)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, id)
	}
	return nil
}

// DeleteOlderThan removes conversations whose last activity is beyond the
// owner's retention window. Users without saved settings fall back to
// defaultDays; a window of 0 disables expiry.
func (r *ConversationRepo) DeleteOlderThan(ctx context.Context, defaultDays int) (int64, error) {
	const q = `
DELETE FROM conversations c
 USING (SELECT c2.id, COALESCE(s.retention_days, $1) AS days
          FROM conversations c2
          LEFT JOIN user_settings s ON s.user_id = c2.user_id) d
 WHERE c.id = d.id
   AND d.days > 0
   AND c.updated_at < NOW() - (d.days * INTERVAL '1 day');`
	tag, err := r.pool.Exec(ctx, q, defaultDays)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- internal ---

func (r *ConversationRepo) shouldEncrypt(ctx context.Context, qx any, userID string) bool {
	if r.encryptionSvc == nil {
		return false
	}
	const q = `SELECT encrypt_messages_at_rest FROM user_settings WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, qx, q, userID)
	if err != nil {
		return false
	}
	var enc bool
	if err := row.Scan(&enc); err != nil {
		return false // no settings row: plaintext
	}
	return enc
}

// decryptContent restores a stored message body. Rows written with encryption
// enabled are unreadable without the service; surface that instead of
// panicking on a nil service.
func decryptContent(svc *security.EncryptionService, enc bool, msgID, content string) (string, error) {
	if !enc {
		return content, nil
	}
	if svc == nil {
		return "", fmt.Errorf("message %s is encrypted but no encryption service is configured", msgID)
	}
	plain, err := svc.Decrypt(content)
	if err != nil {
		return "", fmt.Errorf("decrypt msg: %w", err)
	}
	return plain, nil
}

func (r *ConversationRepo) loadMessages(ctx context.Context, qx any, c *model.Conversation) error {
	const qm = `
SELECT id, role, content, tokens, encrypted, created_at
  FROM messages WHERE conversation_id=$1 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, qx, qm, c.ID)
	if err != nil {
		return fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m    model.Message
			role string
			enc  bool
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.Tokens, &enc, &m.Timestamp); err != nil {
			return fmt.Errorf("scan msg: %w", err)
		}
		plain, err := decryptContent(r.encryptionSvc, enc, m.ID, m.Content)
		if err != nil {
			return err
		}
		m.Content = plain
		m.ConversationID = c.ID
		m.Role = model.Role(role)
		c.Messages = append(c.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows err: %w", err)
	}
	return r.loadAttachments(ctx, qx, c)
}

func (r *ConversationRepo) loadAttachments(ctx context.Context, qx any, c *model.Conversation) error {
	const qa = `
SELECT a.message_id, a.id, a.name, a.mime, a.size, a.content
  FROM attachments a
  JOIN messages m ON m.id = a.message_id
 WHERE m.conversation_id=$1;`
	rows, err := queryRows(ctx, r.pool, qx, qa, c.ID)
	if err != nil {
		return fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	byMsg := make(map[string][]model.FileAttachment)
	for rows.Next() {
		var (
			msgID string
			f     model.FileAttachment
		)
		if err := rows.Scan(&msgID, &f.ID, &f.Name, &f.MIME, &f.Size, &f.Content); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		byMsg[msgID] = append(byMsg[msgID], f)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(byMsg) == 0 {
		return nil
	}
	for i := range c.Messages {
		if files, ok := byMsg[c.Messages[i].ID]; ok {
			c.Messages[i].Files = files
		}
	}
	return nil
}

func scanConversationRows(rows pgx.Rows) ([]*model.Conversation, error) {
	var out []*model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.Model, &c.Title, &c.TitleSet, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation row: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
