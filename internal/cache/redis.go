package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Redis implementa Store sobre go-redis, compartilhado entre réplicas da API.
// Erros de Redis não derrubam a request: são logados e tratados como cache miss.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedis usa prefix como namespace de todas as chaves (ex.: "nascere:").
func NewRedis(client *redis.Client, ttl time.Duration, prefix string, logger *zap.Logger) *Redis {
	return &Redis{client: client, ttl: ttl, prefix: prefix, logger: logger}
}

func (c *Redis) Get(ctx context.Context, key string) []byte {
	b, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("[cache] redis get", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	return b
}

func (c *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := c.client.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		c.logger.Warn("[cache] redis set", zap.String("key", key), zap.Error(err))
	}
}

func (c *Redis) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("[cache] redis del", zap.String("key", key), zap.Error(err))
	}
}

// DeletePrefix usa SCAN (nunca KEYS) para não bloquear o servidor.
func (c *Redis) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn("[cache] redis scan", zap.String("prefix", prefix), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("[cache] redis del prefix", zap.String("prefix", prefix), zap.Error(err))
	}
}

// Ping testa a conexão (usado no /ready).
func (c *Redis) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
