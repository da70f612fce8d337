// File: cmd/seed/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"ai-chat-backend/internal/config"
	pg "ai-chat-backend/internal/infra/db/postgres"
	"ai-chat-backend/internal/usecase"

	"github.com/rs/zerolog"
)

// schema is applied with IF NOT EXISTS so the seeder is safe to re-run
// against an existing database.
const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	model      TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	title_set  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversations_user ON conversations (user_id, updated_at DESC);

CREATE TABLE IF NOT EXISTS messages (
	id              TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	tokens          INTEGER NOT NULL DEFAULT 0,
	encrypted       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages (conversation_id, id);

CREATE TABLE IF NOT EXISTS attachments (
	id         TEXT PRIMARY KEY,
	message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
	name       TEXT NOT NULL,
	mime       TEXT NOT NULL DEFAULT '',
	size       BIGINT NOT NULL DEFAULT 0,
	content    BYTEA
);
CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments (message_id);

CREATE TABLE IF NOT EXISTS user_settings (
	user_id                  TEXT PRIMARY KEY,
	default_model            TEXT NOT NULL DEFAULT '',
	export_timestamps        BOOLEAN NOT NULL DEFAULT TRUE,
	export_token_counts      BOOLEAN NOT NULL DEFAULT FALSE,
	preserve_code_blocks     BOOLEAN NOT NULL DEFAULT TRUE,
	retention_days           INTEGER NOT NULL DEFAULT 0,
	encrypt_messages_at_rest BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at               TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS model_pricing (
	id                  TEXT PRIMARY KEY,
	model_name          TEXT NOT NULL,
	input_usd_per_mtok  DOUBLE PRECISION NOT NULL DEFAULT 0,
	output_usd_per_mtok DOUBLE PRECISION NOT NULL DEFAULT 0,
	context_limit       INTEGER NOT NULL DEFAULT 200000,
	active              BOOLEAN NOT NULL DEFAULT TRUE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_model_pricing_name ON model_pricing (model_name);
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("apply schema: %v", err)
	}
	fmt.Println("schema applied")

	logger := zerolog.Nop()
	pricingUC := usecase.NewPricingUseCase(pg.NewModelPricingRepo(pool), &logger)

	// If pricing rows already exist, do nothing.
	rows, err := pricingUC.List(ctx)
	if err != nil {
		log.Fatalf("list pricing: %v", err)
	}
	if len(rows) > 0 {
		fmt.Printf("%d pricing rows already present. No changes.\n", len(rows))
		for _, p := range rows {
			fmt.Printf("  - %s (in=%.2f out=%.2f USD/MTok, limit=%d)\n",
				p.ModelName, p.InputUSDPerMTok, p.OutputUSDPerMTok, p.ContextLimit)
		}
		return
	}

	seed := []struct {
		Name  string
		In    float64
		Out   float64
		Limit int
	}{
		{"claude-sonnet-4-20250514", 3.0, 15.0, 200_000},
		{"gpt-4o", 2.5, 10.0, 128_000},
		{"gpt-4o-mini", 0.15, 0.60, 128_000},
		{"gemini-2.0-flash", 0.10, 0.40, 1_000_000},
	}

	for _, s := range seed {
		p, err := pricingUC.Create(ctx, s.Name, s.In, s.Out, s.Limit)
		if err != nil {
			log.Fatalf("create pricing %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, in=%.2f out=%.2f USD/MTok, limit=%d)\n",
			p.ModelName, p.ID, p.InputUSDPerMTok, p.OutputUSDPerMTok, p.ContextLimit)
	}

	fmt.Println("✅ Seeding complete.")
}
