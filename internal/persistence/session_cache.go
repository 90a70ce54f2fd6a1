package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisSessionCache stores each operator's last active ticket id. Values
// are hints only; the reconciler re-validates them against postgres before
// trusting them.
type RedisSessionCache struct {
	client *redis.Client
}

// NewRedisSessionCache wraps the client.
func NewRedisSessionCache(client *redis.Client) *RedisSessionCache {
	return &RedisSessionCache{client: client}
}

func sessionKey(operatorRef string) string {
	return "session:active:" + operatorRef
}

// Load returns the cached ticket id, or empty when absent.
func (c *RedisSessionCache) Load(ctx context.Context, operatorRef string) (string, error) {
	val, err := c.client.Get(ctx, sessionKey(operatorRef)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return val, err
}

// Save remembers the operator's active ticket.
func (c *RedisSessionCache) Save(ctx context.Context, operatorRef, ticketID string) error {
	return c.client.Set(ctx, sessionKey(operatorRef), ticketID, 0).Err()
}

// Clear drops the cached id.
func (c *RedisSessionCache) Clear(ctx context.Context, operatorRef string) error {
	return c.client.Del(ctx, sessionKey(operatorRef)).Err()
}
