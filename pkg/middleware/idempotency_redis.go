package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"medibook/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const redisIdempotencyPrefix = "medibook:idempotency:"

// RedisIdempotencyStore shares cached responses between API replicas. Redis
// errors are logged and treated as a cache miss.
type RedisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
	log *logger.Logger
}

func NewRedisIdempotencyStore(rdb *redis.Client, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, ttl: ttl, log: log}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	data, err := s.rdb.Get(ctx, redisIdempotencyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Error("Failed to read idempotency cache", "error", err)
		}
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(data, &cached); err != nil {
		s.log.Error("Corrupt idempotency cache entry", "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	data, err := json.Marshal(response)
	if err != nil {
		s.log.Error("Failed to encode idempotency cache entry", "error", err)
		return
	}
	if err := s.rdb.Set(ctx, redisIdempotencyPrefix+key, data, s.ttl).Err(); err != nil {
		s.log.Error("Failed to write idempotency cache", "error", err)
	}
}

// Stop is a no-op; the Redis client is closed with the other backends.
func (s *RedisIdempotencyStore) Stop() {}
