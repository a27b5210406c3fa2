package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cjenwere4/5590-check-in-app/pkg/redis"
)

type redisBackend struct {
	client *redis.Client
}

// NewRedisStore 基于 Redis 的会话存储，键随 ttl 过期
func NewRedisStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) Store {
	return newStore(&redisBackend{client: client}, ttl, logger)
}

func (b *redisBackend) put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.SetBytes(ctx, key, value, ttl)
}

func (b *redisBackend) get(ctx context.Context, key string) ([]byte, error) {
	return b.client.GetBytes(ctx, key)
}

func (b *redisBackend) del(ctx context.Context, key string) error {
	return b.client.Delete(ctx, key)
}

func (b *redisBackend) name() string { return "redis" }
