// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ai-chat-backend/internal/budget"
	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/domain/ports/adapter"
	"ai-chat-backend/internal/domain/ports/repository"
	"ai-chat-backend/internal/infra/metrics"
	"ai-chat-backend/internal/tokenizer"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

type ChatUseCase interface {
	// SendMessage appends the user turn, runs the pre-flight budget check
	// (trimming when needed), calls the model, and returns the persisted
	// assistant message.
	SendMessage(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment) (*model.Message, error)

	// StreamMessage is SendMessage with assistant deltas delivered to
	// onDelta as they arrive.
	StreamMessage(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment, onDelta adapter.StreamHandler) (*model.Message, error)

	// ContextStatus reports current context-window usage for a conversation.
	ContextStatus(ctx context.Context, userID, conversationID string) (budget.Status, error)

	ListModels(ctx context.Context) ([]string, error)
}

// ConversationLocker serializes sends: one in-flight assistant response per
// conversation.
type ConversationLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Runner accepts background tasks (title generation).
type Runner interface {
	Submit(task func(ctx context.Context) error) error
}

type chatUC struct {
	convs   repository.ConversationRepository
	ai      adapter.AIServiceAdapter
	pricing PricingUseCase
	counter tokenizer.TokenCounter
	locker  ConversationLocker
	runner  Runner
	log     *zerolog.Logger
}

func NewChatUseCase(
	convs repository.ConversationRepository,
	ai adapter.AIServiceAdapter,
	pricing PricingUseCase,
	counter tokenizer.TokenCounter,
	locker ConversationLocker,
	runner Runner,
	logger *zerolog.Logger,
) *chatUC {
	return &chatUC{
		convs:   convs,
		ai:      ai,
		pricing: pricing,
		counter: counter,
		locker:  locker,
		runner:  runner,
		log:     logger,
	}
}

func (c *chatUC) SendMessage(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment) (*model.Message, error) {
	return c.send(ctx, userID, conversationID, content, files, nil)
}

func (c *chatUC) StreamMessage(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment, onDelta adapter.StreamHandler) (*model.Message, error) {
	return c.send(ctx, userID, conversationID, content, files, onDelta)
}

func (c *chatUC) send(ctx context.Context, userID, conversationID, content string, files []model.FileAttachment, onDelta adapter.StreamHandler) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, domain.ErrInvalidArgument
	}

	conv, err := c.loadOwned(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	if c.locker != nil {
		token, err := c.locker.TryLock(ctx, lockKey(conv.ID), 2*time.Minute)
		if err != nil {
			return nil, domain.ErrConversationBusy
		}
		defer func() { _ = c.locker.Unlock(ctx, lockKey(conv.ID), token) }()
	}

	limit := c.pricing.ContextLimit(ctx, conv.Model)

	// Pre-flight: trim before the request when usage crosses the critical
	// threshold, down to half the limit so the next several exchanges fit
	// without immediately re-triggering.
	st := budget.StatusOf(conv.Messages, limit, c.counter)
	if st.Tier >= budget.TierCritical {
		res := budget.TrimRecent(conv.Messages, budget.TrimTarget(limit), c.counter)
		if res.RemovedCount > 0 {
			if err := c.convs.ReplaceMessages(ctx, nil, conv.ID, res.Messages); err != nil {
				return nil, err
			}
			conv.Messages = res.Messages
			metrics.ObserveTrim(conv.Model, res.RemovedCount, res.TokensSaved)
			c.log.Info().
				Str("conversation_id", conv.ID).
				Int("removed", res.RemovedCount).
				Int("tokens_saved", res.TokensSaved).
				Bool("budget_exceeded", res.BudgetExceeded).
				Msg("trimmed conversation before request")
		}
	}

	userMsg := conv.AddMessage(model.RoleUser, content, c.counter.Count(content), files...)
	if err := c.convs.SaveMessage(ctx, nil, userMsg); err != nil {
		return nil, err
	}

	wire := toAdapterMessages(conv.Messages)

	started := time.Now()
	var (
		reply string
		usage adapter.Usage
	)
	if onDelta != nil {
		reply, usage, err = c.ai.StreamChat(ctx, conv.Model, wire, onDelta)
	} else {
		reply, usage, err = c.ai.ChatWithUsage(ctx, conv.Model, wire)
	}
	elapsed := time.Since(started)
	if err != nil {
		metrics.ObserveChatCall(conv.Model, elapsed, false)
		return nil, err
	}

	completionTokens := usage.CompletionTokens
	if completionTokens == 0 {
		completionTokens = c.counter.Count(reply)
	}
	assistantMsg := conv.AddMessage(model.RoleAssistant, reply, completionTokens)
	if err := c.convs.SaveMessage(ctx, nil, assistantMsg); err != nil {
		return nil, err
	}
	if err := c.convs.Save(ctx, nil, conv); err != nil {
		return nil, err
	}

	metrics.ObserveChatCall(conv.Model, elapsed, true)
	metrics.ObserveChatUsage(conv.Model,
		usage.PromptTokens, completionTokens,
		c.pricing.EstimateCost(ctx, conv.Model, usage.PromptTokens, budget.Input)+
			c.pricing.EstimateCost(ctx, conv.Model, completionTokens, budget.Output))

	// After the first full exchange, ask the model for a better title.
	if c.runner != nil && !conv.TitleSet && len(conv.Messages) == 2 {
		c.submitTitleJob(conv.ID, conv.Model, content)
	}

	return assistantMsg, nil
}

func (c *chatUC) ContextStatus(ctx context.Context, userID, conversationID string) (budget.Status, error) {
	conv, err := c.loadOwned(ctx, userID, conversationID)
	if err != nil {
		return budget.Status{}, err
	}
	limit := c.pricing.ContextLimit(ctx, conv.Model)
	return budget.StatusOf(conv.Messages, limit, c.counter), nil
}

func (c *chatUC) ListModels(ctx context.Context) ([]string, error) {
	return c.ai.ListModels(ctx)
}

func (c *chatUC) loadOwned(ctx context.Context, userID, conversationID string) (*model.Conversation, error) {
	conv, err := c.convs.FindByID(ctx, nil, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

const titlePrompt = "Reply with a short title (at most six words, no quotes) for a conversation that starts with this message: "

func (c *chatUC) submitTitleJob(conversationID, modelName, firstMessage string) {
	err := c.runner.Submit(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
		defer cancel()
		title, err := c.ai.Chat(ctx, modelName, []adapter.Message{
			{Role: "user", Content: titlePrompt + model.DeriveTitle(firstMessage)},
		})
		if err != nil {
			return err
		}
		title = model.DeriveTitle(title)
		if title == "" {
			return nil
		}
		return c.convs.Rename(ctx, nil, conversationID, title)
	})
	if err != nil {
		c.log.Debug().Err(err).Msg("title job not scheduled")
	}
}

func toAdapterMessages(msgs []model.Message) []adapter.Message {
	out := make([]adapter.Message, 0, len(msgs))
	for i := range msgs {
		out = append(out, adapter.Message{Role: string(msgs[i].Role), Content: msgs[i].Content})
	}
	return out
}

func lockKey(conversationID string) string {
	return "conv_lock:" + conversationID
}
