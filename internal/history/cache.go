package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rohitgami11/MayaCode/internal/domain"
)

// ErrCacheMiss is returned when a key is not in the cache.
var ErrCacheMiss = errors.New("cache miss")

// MessageCache caches pages of room history.
type MessageCache interface {
	BuildKey(roomID string, limit, offset int) string
	Get(ctx context.Context, key string) ([]domain.ChatMessage, error)
	Set(ctx context.Context, key string, messages []domain.ChatMessage, ttl time.Duration) error
}

// RedisCache implements MessageCache on Redis.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) BuildKey(roomID string, limit, offset int) string {
	return fmt.Sprintf("history:room:%s:limit:%d:offset:%d", roomID, limit, offset)
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var messages []domain.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("cache decode failed: %w", err)
	}
	return messages, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, messages []domain.ChatMessage, ttl time.Duration) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("cache encode failed: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// NoopCache is used when Redis is unavailable; every read is a miss.
type NoopCache struct{}

func (NoopCache) BuildKey(roomID string, limit, offset int) string {
	return fmt.Sprintf("history:room:%s:limit:%d:offset:%d", roomID, limit, offset)
}

func (NoopCache) Get(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(ctx context.Context, key string, messages []domain.ChatMessage, ttl time.Duration) error {
	return nil
}
