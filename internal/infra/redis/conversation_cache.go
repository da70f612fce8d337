package redis

import (
	"context"
	"encoding/json"
	"time"

	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/infra/metrics"
)

// ConversationCache keeps recently touched conversations (messages included)
// in Redis so the read path can skip Postgres. Strictly best-effort: every
// error degrades to a miss.
type ConversationCache struct {
	client *redClient
	ttl    time.Duration
}

func NewConversationCache(client *redClient, ttl time.Duration) *ConversationCache {
	return &ConversationCache{
		client: client,
		ttl:    ttl,
	}
}

func conversationKey(id string) string { return "conversation:" + id }

func (c *ConversationCache) Store(ctx context.Context, conv *model.Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, conversationKey(conv.ID), data, c.ttl)
}

func (c *ConversationCache) Get(ctx context.Context, id string) (*model.Conversation, error) {
	data, err := c.client.Get(ctx, conversationKey(id))
	if err != nil {
		metrics.IncCacheRequest("conversation", "miss")
		return nil, err
	}
	var conv model.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		metrics.IncCacheRequest("conversation", "miss")
		return nil, err
	}
	metrics.IncCacheRequest("conversation", "hit")
	return &conv, nil
}

func (c *ConversationCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, conversationKey(id))
}

func (c *ConversationCache) Extend(ctx context.Context, id string) error {
	return c.client.Expire(ctx, conversationKey(id), c.ttl)
}
