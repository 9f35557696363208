package offline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/pkg/logger"
	"studybuddy_backend/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrDrainInProgress = errors.New("offline: drain already in progress")

// Submitter 把上报发送到服务端
type Submitter interface {
	SubmitReport(ctx context.Context, report *client.Report) (*model.ReportResult, error)
}

// DrainResult 一次同步的统计
type DrainResult struct {
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
	Rejected  int `json:"rejected"`
	Remaining int `json:"remaining"`
}

type Queue struct {
	db        *gorm.DB
	submitter Submitter
	now       func() time.Time

	enqueueMu sync.Mutex
	draining  atomic.Bool
}

func NewQueue(db *gorm.DB, submitter Submitter) *Queue {
	return &Queue{db: db, submitter: submitter, now: time.Now}
}

// Enqueue 保存一条待同步的上报。写入失败只记录日志，上报会丢失。
func (q *Queue) Enqueue(ctx context.Context, report *client.Report, skillCode string) {
	now := q.now()
	completed := now
	if report.CompletedAt != nil {
		completed = *report.CompletedAt
	}

	if skillCode == "" {
		skillCode = q.resolveSkill(ctx, report.ActivityID)
	}

	item := QueuedReport{
		ID:           uuid.New().String(),
		ActivityID:   report.ActivityID,
		SkillCode:    skillCode,
		Score:        report.Score,
		TimeSpentSec: report.TimeSpentSec,
		Metadata:     report.Metadata,
		CompletedAt:  completed,
		EnqueuedAt:   now,
	}

	q.enqueueMu.Lock()
	defer q.enqueueMu.Unlock()

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxSeq int64
		if err := tx.Model(&QueuedReport{}).Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		item.Seq = maxSeq + 1
		return tx.Create(&item).Error
	})
	if err != nil {
		logger.Log.Warn("Failed to queue offline report",
			zap.String("activity_id", report.ActivityID),
			zap.Error(err))
		return
	}

	monitoring.QueueDrained.WithLabelValues("queued").Inc()
	logger.Log.Debug("Report queued for sync",
		zap.String("id", item.ID),
		zap.Int64("seq", item.Seq),
		zap.String("activity_id", item.ActivityID))
}

// resolveSkill 从最近活动缓存中查找技能，找不到返回空串
func (q *Queue) resolveSkill(ctx context.Context, activityID string) string {
	var codes []string
	err := q.db.WithContext(ctx).Model(&CachedActivity{}).
		Where("activity_id = ? AND skill_code <> ''", activityID).
		Limit(1).
		Pluck("skill_code", &codes).Error
	if err != nil || len(codes) == 0 {
		return ""
	}
	return codes[0]
}

// List 按入队顺序返回全部条目，包括已被拒绝的
func (q *Queue) List(ctx context.Context) ([]QueuedReport, error) {
	var items []QueuedReport
	err := q.db.WithContext(ctx).Order("seq ASC").Find(&items).Error
	return items, err
}

func (q *Queue) pending(ctx context.Context) ([]QueuedReport, error) {
	var items []QueuedReport
	err := q.db.WithContext(ctx).Where("rejected_at IS NULL").Order("seq ASC").Find(&items).Error
	return items, err
}

// Len 等待同步的条数，不含已被拒绝的
func (q *Queue) Len(ctx context.Context) (int, error) {
	var count int64
	err := q.db.WithContext(ctx).Model(&QueuedReport{}).Where("rejected_at IS NULL").Count(&count).Error
	return int(count), err
}

func (q *Queue) Clear(ctx context.Context) error {
	return q.db.WithContext(ctx).Where("1 = 1").Delete(&QueuedReport{}).Error
}

// ClearRejected 只删除被服务端拒绝的条目
func (q *Queue) ClearRejected(ctx context.Context) error {
	return q.db.WithContext(ctx).Where("rejected_at IS NOT NULL").Delete(&QueuedReport{}).Error
}

// Drain 按 seq 顺序逐条提交。成功的删除；暂时性失败的保留并累计 attempts，
// 同一 OrderingKey 的后续项在本轮跳过，避免掌握度更新乱序。
// 服务端以 4xx 拒绝的条目标记为 rejected，不再重放也不阻塞后续项。
// 鉴权失败或 ctx 取消时立即返回，未处理的项留在队列中。
func (q *Queue) Drain(ctx context.Context) (DrainResult, error) {
	if !q.draining.CompareAndSwap(false, true) {
		return DrainResult{}, ErrDrainInProgress
	}
	defer q.draining.Store(false)

	var result DrainResult
	items, err := q.pending(ctx)
	if err != nil {
		return result, err
	}
	if len(items) == 0 {
		return result, nil
	}

	q.resolveUnknown(ctx, items)

	// 技能未知的条目可能与任何技能相同：它失败后本轮其余条目全部顺延，
	// 已知技能失败后同技能与技能未知的条目顺延
	blocked := make(map[string]bool)
	blockAll := false
	for i := range items {
		item := &items[i]
		if err := ctx.Err(); err != nil {
			return q.finish(result, err)
		}

		key := item.OrderingKey()
		if blockAll || blocked[key] {
			result.Deferred++
			monitoring.QueueDrained.WithLabelValues("deferred").Inc()
			continue
		}

		if _, err := q.submitter.SubmitReport(ctx, item.Report()); err != nil {
			if ctx.Err() != nil {
				return q.finish(result, ctx.Err())
			}
			if client.IsUnauthorized(err) {
				return q.finish(result, err)
			}
			if !client.IsRetryable(err) {
				result.Rejected++
				monitoring.QueueDrained.WithLabelValues("rejected").Inc()
				q.markRejected(ctx, item, err)
				continue
			}
			if key == unknownSkillKey {
				blockAll = true
			} else {
				blocked[key] = true
				blocked[unknownSkillKey] = true
			}
			result.Failed++
			monitoring.QueueDrained.WithLabelValues("failed").Inc()
			q.markFailed(ctx, item, err)
			continue
		}

		if err := q.db.WithContext(ctx).Delete(&QueuedReport{}, "id = ?", item.ID).Error; err != nil {
			// 已被服务端接受，但本地删除失败，下次会重复提交
			logger.Log.Error("Failed to remove synced report", zap.String("id", item.ID), zap.Error(err))
		}
		result.Synced++
		monitoring.QueueDrained.WithLabelValues("synced").Inc()
	}

	return q.finish(result, nil)
}

// resolveUnknown 入队时还不知道技能的条目，按缓存补齐并写回
func (q *Queue) resolveUnknown(ctx context.Context, items []QueuedReport) {
	for i := range items {
		item := &items[i]
		if item.SkillCode != "" {
			continue
		}
		code := q.resolveSkill(ctx, item.ActivityID)
		if code == "" {
			continue
		}
		err := q.db.WithContext(ctx).Model(&QueuedReport{}).Where("id = ?", item.ID).Update("skill_code", code).Error
		if err != nil {
			logger.Log.Warn("Failed to store resolved skill", zap.String("id", item.ID), zap.Error(err))
			continue
		}
		item.SkillCode = code
	}
}

func (q *Queue) finish(result DrainResult, err error) (DrainResult, error) {
	// ctx 可能已取消，剩余数量用独立的 context 查询
	remaining, countErr := q.Len(context.Background())
	if countErr == nil {
		result.Remaining = remaining
	}
	if err == nil && result.Synced+result.Failed+result.Rejected > 0 {
		logger.Log.Info("Offline queue drained",
			zap.Int("synced", result.Synced),
			zap.Int("failed", result.Failed),
			zap.Int("deferred", result.Deferred),
			zap.Int("rejected", result.Rejected),
			zap.Int("remaining", result.Remaining))
	}
	return result, err
}

func (q *Queue) markFailed(ctx context.Context, item *QueuedReport, cause error) {
	err := q.db.WithContext(ctx).Model(&QueuedReport{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause.Error(),
		}).Error
	if err != nil {
		logger.Log.Warn("Failed to record sync failure", zap.String("id", item.ID), zap.Error(err))
	}
	logger.Log.Warn("Sync failed for queued report",
		zap.String("id", item.ID),
		zap.Int64("seq", item.Seq),
		zap.Error(cause))
}

func (q *Queue) markRejected(ctx context.Context, item *QueuedReport, cause error) {
	now := q.now()
	err := q.db.WithContext(ctx).Model(&QueuedReport{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"attempts":    gorm.Expr("attempts + 1"),
			"last_error":  cause.Error(),
			"rejected_at": now,
		}).Error
	if err != nil {
		logger.Log.Warn("Failed to record rejected report", zap.String("id", item.ID), zap.Error(err))
	}
	logger.Log.Warn("Queued report rejected by server",
		zap.String("id", item.ID),
		zap.Int64("seq", item.Seq),
		zap.Error(cause))
}
