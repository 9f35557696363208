package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要本地 redis，设置 STUDYBUDDY_TEST_REDIS=127.0.0.1:6379 后运行
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("STUDYBUDDY_TEST_REDIS")
	if addr == "" {
		t.Skip("STUDYBUDDY_TEST_REDIS not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestRedisHydrationStore(t *testing.T) {
	rdb := testRedis(t)
	s := NewRedisHydrationStore(rdb, time.Minute)
	ctx := context.Background()
	userID := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { s.Invalidate(ctx, userID) })

	require.NoError(t, s.Put(ctx, HydrationEntry{UserID: userID, StarterActivityID: "a1", Reason: "r"}))

	got, err := s.Get(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.StarterActivityID)

	used := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, s.Touch(ctx, userID, used))
	got, err = s.Get(ctx, userID)
	require.NoError(t, err)
	assert.True(t, used.Equal(got.LastUsedAt))

	ttl, err := rdb.TTL(ctx, hydrationKey(userID)).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, s.Invalidate(ctx, userID))
	got, err = s.Get(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
