package lock

import (
	"context"
	"medibook/pkg/logger"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const redisKeyPrefix = "medibook:lock:"

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker holds a key with SET NX PX and releases it only if the stored
// token still matches.
type RedisLocker struct {
	rdb  *redis.Client
	ttl  time.Duration
	wait time.Duration
	log  *logger.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl, wait time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{
		rdb:  rdb,
		ttl:  ttl,
		wait: wait,
		log:  log,
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	redisKey := redisKeyPrefix + key

	err := retry(ctx, l.wait, func(ctx context.Context) (bool, error) {
		return l.rdb.SetNX(ctx, redisKey, token, l.ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	return once(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{redisKey}, token).Err(); err != nil {
			l.log.Error("failed to release lock", "key", key, "error", err)
		}
	}), nil
}
