// Package ratelimit implements fixed-window request quotas keyed by caller.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter 固定窗口限流：每个 key 在一个窗口内最多 limit 次
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	SetLimit(limit int, window time.Duration)
	Close() error
}

type window struct {
	start time.Time
	count int
}

// MemoryLimiter 进程内计数，重启后清零
type MemoryLimiter struct {
	now func() time.Time

	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	l := &MemoryLimiter{
		now:     time.Now,
		limit:   limit,
		window:  windowSize,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go l.janitor()
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = &window{start: now, count: 1}
		return true, nil
	}
	if w.count >= l.limit {
		return false, nil
	}
	w.count++
	return true, nil
}

// SetLimit 配置热更新时调用，已有窗口按新配额继续计数
func (l *MemoryLimiter) SetLimit(limit int, windowSize time.Duration) {
	l.mu.Lock()
	l.limit = limit
	l.window = windowSize
	l.mu.Unlock()
}

func (l *MemoryLimiter) Close() error {
	l.stopOnce.Do(func() { close(l.stop) })
	return nil
}

func (l *MemoryLimiter) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictExpired()
		case <-l.stop:
			return
		}
	}
}

func (l *MemoryLimiter) evictExpired() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}
