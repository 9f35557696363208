// Package cache holds short-lived per-learner state shared between requests.
package cache

import (
	"context"
	"time"
)

// HydrationEntry 学习者会话开始时的入门活动
type HydrationEntry struct {
	UserID            string    `json:"user_id"`
	StarterActivityID string    `json:"starter_activity_id"`
	Reason            string    `json:"reason"`
	CachedAt          time.Time `json:"cached_at"`
	LastUsedAt        time.Time `json:"last_used_at"`
}

// HydrationStore 入门活动缓存。Get 未命中返回 (nil, nil)。
type HydrationStore interface {
	Get(ctx context.Context, userID string) (*HydrationEntry, error)
	Put(ctx context.Context, entry HydrationEntry) error
	Touch(ctx context.Context, userID string, at time.Time) error
	Invalidate(ctx context.Context, userID string) error
	Close() error
}
