package model

import "time"

// Settings holds the per-user preferences the web client persists. Fields are
// explicit and closed; anything frontend-only (theme, layout) stays out.
type Settings struct {
	UserID                string    `json:"user_id"`
	DefaultModel          string    `json:"default_model"`
	ExportTimestamps      bool      `json:"export_timestamps"`
	ExportTokenCounts     bool      `json:"export_token_counts"`
	PreserveCodeBlocks    bool      `json:"preserve_code_blocks"`
	RetentionDays         int       `json:"retention_days"` // 0 keeps forever
	EncryptMessagesAtRest bool      `json:"encrypt_messages_at_rest"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings applied before a user saves any.
func DefaultSettings(userID, defaultModel string) Settings {
	return Settings{
		UserID:             userID,
		DefaultModel:       defaultModel,
		ExportTimestamps:   true,
		ExportTokenCounts:  false,
		PreserveCodeBlocks: true,
		UpdatedAt:          time.Now(),
	}
}
