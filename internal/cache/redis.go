package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
)

const hydrationKeyPrefix = "studybuddy:hydration:"

// RedisHydrationStore 多实例部署时共享的缓存
type RedisHydrationStore struct {
	Redis *redis.Client
	TTL   time.Duration
}

func NewRedisHydrationStore(rdb *redis.Client, ttl time.Duration) *RedisHydrationStore {
	return &RedisHydrationStore{Redis: rdb, TTL: ttl}
}

func hydrationKey(userID string) string {
	return hydrationKeyPrefix + userID
}

func (s *RedisHydrationStore) Get(ctx context.Context, userID string) (*HydrationEntry, error) {
	val, err := s.Redis.Get(ctx, hydrationKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry HydrationEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *RedisHydrationStore) Put(ctx context.Context, entry HydrationEntry) error {
	now := time.Now()
	if entry.CachedAt.IsZero() {
		entry.CachedAt = now
	}
	if entry.LastUsedAt.IsZero() {
		entry.LastUsedAt = now
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, hydrationKey(entry.UserID), data, s.TTL).Err()
}

// Touch 保留原有的剩余过期时间
func (s *RedisHydrationStore) Touch(ctx context.Context, userID string, at time.Time) error {
	entry, err := s.Get(ctx, userID)
	if err != nil || entry == nil {
		return err
	}
	entry.LastUsedAt = at
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.Redis.SetXX(ctx, hydrationKey(userID), data, redis.KeepTTL).Err()
}

func (s *RedisHydrationStore) Invalidate(ctx context.Context, userID string) error {
	return s.Redis.Del(ctx, hydrationKey(userID)).Err()
}

// Close 不关闭共享的 redis 客户端
func (s *RedisHydrationStore) Close() error {
	return nil
}
