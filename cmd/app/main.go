// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ai-chat-backend/internal/config"
	"ai-chat-backend/internal/domain/ports/adapter"
	aiAdapters "ai-chat-backend/internal/infra/adapters/ai"
	pg "ai-chat-backend/internal/infra/db/postgres"
	"ai-chat-backend/internal/infra/logging"
	"ai-chat-backend/internal/infra/metrics"
	red "ai-chat-backend/internal/infra/redis"
	"ai-chat-backend/internal/infra/sched"
	"ai-chat-backend/internal/infra/security"
	"ai-chat-backend/internal/infra/web"
	"ai-chat-backend/internal/infra/worker"
	"ai-chat-backend/internal/settings"
	"ai-chat-backend/internal/tokenizer"
	"ai-chat-backend/internal/usecase"

	"github.com/rs/zerolog"
)

// Populated via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (canned AI responses, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	maxConns := int32(cfg.Database.MaxConns)
	if maxConns <= 0 {
		maxConns = 10
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, maxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()
	go func() {
		t := time.NewTicker(15 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				st := pool.Stat()
				metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
			}
		}
	}()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	convCache := red.NewConversationCache(redisClient, cfg.Redis.TTL)
	tokenCache := red.NewTokenCountCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)

	// ---- Encryption ----
	encKey := cfg.Security.EncryptionKey
	if len(encKey) != 32 {
		logger.Warn().Msg("security.encryption_key not set or not 32 bytes; falling back to dev key (INSECURE)")
		encKey = "0123456789abcdef0123456789abcdef"
	}
	encSvc, err := security.NewEncryptionService(encKey)
	if err != nil {
		log.Fatalf("encryption: %v", err)
	}

	// ---- Repositories ----
	convRepo := pg.NewConversationRepo(pool, convCache, encSvc)
	pricingRepo := pg.NewModelPricingRepoCacheDecorator(pg.NewModelPricingRepo(pool), redisClient)
	settingsRepo := pg.NewSettingsRepo(pool)

	settingsStore := settings.NewStore(settingsRepo, cfg.AI.DefaultModel, logger)

	// ---- Tokenizer ----
	counter, err := tokenizer.NewCounter()
	if err != nil {
		logger.Warn().Err(err).Msg("tiktoken encoding unavailable; using character heuristic")
	}

	// ---- AI adapters ----
	ai := buildAIAdapter(ctx, cfg, logger)
	if cfg.AI.ConcurrentLimit > 0 {
		ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)
	}

	// ---- Background workers ----
	wp := worker.NewPool(4)
	wp.Start(ctx)
	defer wp.Stop()

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(pricingRepo, logger)
	convUC := usecase.NewConversationUseCase(convRepo, settingsStore)
	chatUC := usecase.NewChatUseCase(convRepo, ai, pricingUC, counter, locker, wp, logger)
	exportUC := usecase.NewExportUseCase(convUC, settingsStore, counter, cfg.Export.CompactMaxTokens, logger)

	// ---- Retention sweep ----
	rw := sched.NewRetentionWorker(cfg.Retention.SweepInterval, cfg.Retention.Days, convRepo, logger)
	go func() { _ = rw.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.SecureCookie, cfg.Auth.CookieDomain, cfg.Auth.SessionTTL)
	srv := web.NewServer(
		convUC, chatUC, exportUC, pricingUC,
		settingsStore, counter, tokenCache, rateLimiter,
		auth, cfg.Auth.AdminAPIKey, cfg.Server.AllowedOrigin, logger,
	)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}

// buildAIAdapter assembles the provider routing table from whichever API keys
// are configured. Dev mode runs with canned responses and no keys.
func buildAIAdapter(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) adapter.AIServiceAdapter {
	providers := map[string]adapter.AIServiceAdapter{}
	defaultProvider := ""

	if cfg.AI.AnthropicKey != "" {
		a, err := aiAdapters.NewAnthropicAdapter(cfg.AI.AnthropicKey, cfg.AI.DefaultModel, cfg.AI.AnthropicURL)
		if err != nil {
			log.Fatalf("anthropic adapter: %v", err)
		}
		providers["anthropic"] = a
		defaultProvider = "anthropic"
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Anthropic")
	}
	if cfg.AI.OpenAIKey != "" {
		a, err := aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		providers["openai"] = a
		if defaultProvider == "" {
			defaultProvider = "openai"
		}
		logger.Info().Msg("AI adapter: OpenAI")
	}
	if cfg.AI.GeminiKey != "" {
		a, err := aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, 0)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		providers["gemini"] = a
		if defaultProvider == "" {
			defaultProvider = "gemini"
		}
		logger.Info().Str("base", cfg.AI.GeminiURL).Msg("AI adapter: Gemini")
	}

	if len(providers) == 0 {
		if !cfg.Runtime.Dev {
			log.Fatalf("no AI provider configured: set ai.anthropic_key, ai.openai_key or ai.gemini_key")
		}
		logger.Warn().Msg("no AI provider configured; using canned responses")
		providers["noop"] = aiAdapters.NewNoopAIAdapter()
		defaultProvider = "noop"
	}

	return aiAdapters.NewMultiAIAdapter(defaultProvider, providers, nil)
}
