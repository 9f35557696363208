package offline

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"studybuddy_backend/pkg/logger"

	"go.uber.org/zap"
)

// HealthChecker 探测服务端是否可达
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Watcher 定时探测连通性，启动时以及从离线恢复在线时触发 Drain，
// 在线期间队列非空也会在每次探测后重试
type Watcher struct {
	Health   HealthChecker
	Queue    *Queue
	Interval time.Duration
	// OnDrain 每次 Drain 结束后回调，可为 nil
	OnDrain func(DrainResult, error)

	online atomic.Bool
}

func NewWatcher(health HealthChecker, queue *Queue, interval time.Duration) *Watcher {
	return &Watcher{Health: health, Queue: queue, Interval: interval}
}

func (w *Watcher) Online() bool {
	return w.online.Load()
}

// Run 阻塞直到 ctx 取消
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	first := true
	for {
		w.check(ctx, first)
		first = false

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) check(ctx context.Context, resumed bool) {
	err := w.Health.Health(ctx)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		if w.online.Swap(false) || resumed {
			logger.Log.Info("Offline, reports will be queued", zap.Error(err))
		}
		return
	}

	wasOnline := w.online.Swap(true)
	if wasOnline && !resumed {
		n, err := w.Queue.Len(ctx)
		if err != nil || n == 0 {
			return
		}
	} else {
		logger.Log.Info("Online, syncing queued reports")
	}

	result, err := w.Queue.Drain(ctx)
	if errors.Is(err, ErrDrainInProgress) {
		return
	}
	if w.OnDrain != nil {
		w.OnDrain(result, err)
	}
}
