package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"ai-chat-backend/internal/infra/metrics"
)

// TokenCountCache memoizes token counts by content hash. Counting is cheap
// but not free, and the live-count endpoint re-counts the same draft on
// every keystroke batch.
type TokenCountCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewTokenCountCache(client RedisClient, ttl time.Duration) *TokenCountCache {
	return &TokenCountCache{client: client, ttl: ttl}
}

func tokenCountKey(content string) string {
	sum := sha256.Sum256([]byte(content))
	return "token_count:" + hex.EncodeToString(sum[:])
}

func (c *TokenCountCache) Get(ctx context.Context, content string) (int, bool) {
	val, err := c.client.Get(ctx, tokenCountKey(content))
	if err != nil {
		metrics.IncCacheRequest("token_count", "miss")
		return 0, false
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		metrics.IncCacheRequest("token_count", "miss")
		return 0, false
	}
	metrics.IncCacheRequest("token_count", "hit")
	return n, true
}

func (c *TokenCountCache) Put(ctx context.Context, content string, count int) {
	_ = c.client.Set(ctx, tokenCountKey(content), strconv.Itoa(count), c.ttl)
}
