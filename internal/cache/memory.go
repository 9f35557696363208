package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry     HydrationEntry
	expiresAt time.Time
}

// MemoryHydrationStore 进程内缓存，单实例部署时使用
type MemoryHydrationStore struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]memoryItem

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryHydrationStore 每个 cleanupInterval 清理一次过期条目；cleanupInterval <= 0 不启动清理协程
func NewMemoryHydrationStore(ttl, cleanupInterval time.Duration) *MemoryHydrationStore {
	s := &MemoryHydrationStore{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]memoryItem),
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.janitor(cleanupInterval)
	}
	return s
}

func (s *MemoryHydrationStore) Get(_ context.Context, userID string) (*HydrationEntry, error) {
	s.mu.RLock()
	item, ok := s.items[userID]
	s.mu.RUnlock()
	if !ok || !s.now().Before(item.expiresAt) {
		return nil, nil
	}
	entry := item.entry
	return &entry, nil
}

func (s *MemoryHydrationStore) Put(_ context.Context, entry HydrationEntry) error {
	now := s.now()
	if entry.CachedAt.IsZero() {
		entry.CachedAt = now
	}
	if entry.LastUsedAt.IsZero() {
		entry.LastUsedAt = now
	}

	s.mu.Lock()
	s.items[entry.UserID] = memoryItem{entry: entry, expiresAt: now.Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Touch 只更新 LastUsedAt，不延长有效期
func (s *MemoryHydrationStore) Touch(_ context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[userID]; ok {
		item.entry.LastUsedAt = at
		s.items[userID] = item
	}
	return nil
}

func (s *MemoryHydrationStore) Invalidate(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.items, userID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryHydrationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *MemoryHydrationStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryHydrationStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryHydrationStore) evictExpired() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, userID)
		}
	}
}
