package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/domain/ports/repository"
	"ai-chat-backend/internal/infra/metrics"
)

// RetentionWorker periodically removes conversations older than the owner's
// retention window.
type RetentionWorker struct {
	interval    time.Duration
	defaultDays int
	convs       repository.ConversationRepository
	log         *zerolog.Logger
}

func NewRetentionWorker(interval time.Duration, defaultDays int, convs repository.ConversationRepository, logger *zerolog.Logger) *RetentionWorker {
	retLog := logger.With().Str("component", "RetentionWorker").Logger()
	return &RetentionWorker{
		interval:    interval,
		defaultDays: defaultDays,
		convs:       convs,
		log:         &retLog,
	}
}

func (w *RetentionWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting retention worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping retention worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.convs.DeleteOlderThan(ctx, w.defaultDays)
			if err != nil {
				w.log.Error().Err(err).Msg("retention sweep error")
				metrics.IncBackgroundJob("retention", "failed")
				continue
			}
			metrics.IncBackgroundJob("retention", "completed")
			if n > 0 {
				metrics.AddRetentionDeleted(n)
				w.log.Info().Int64("count", n).Msg("expired conversations removed")
			}
		}
	}
}
