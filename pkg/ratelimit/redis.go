package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "studybuddy:ratelimit:"

// 首次计数时设置过期时间，INCR 与 PEXPIRE 原子执行
var incrWindow = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter 多实例共享计数，窗口从该 key 的第一次请求开始
type RedisLimiter struct {
	Redis *redis.Client

	mu     sync.RWMutex
	limit  int
	window time.Duration
}

func NewRedisLimiter(rdb *redis.Client, limit int, windowSize time.Duration) *RedisLimiter {
	return &RedisLimiter{Redis: rdb, limit: limit, window: windowSize}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.RLock()
	limit, windowSize := l.limit, l.window
	l.mu.RUnlock()

	count, err := incrWindow.Run(ctx, l.Redis, []string{keyPrefix + key}, windowSize.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(limit), nil
}

func (l *RedisLimiter) SetLimit(limit int, windowSize time.Duration) {
	l.mu.Lock()
	l.limit = limit
	l.window = windowSize
	l.mu.Unlock()
}

func (l *RedisLimiter) Close() error {
	return nil
}
