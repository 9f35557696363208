package offline

import (
	"context"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/pkg/logger"

	"go.uber.org/zap"
)

// Recorder 在线时直接上报，服务不可用时转入离线队列
type Recorder struct {
	Submitter Submitter
	Queue     *Queue
	Cache     *ActivityCache
}

func NewRecorder(submitter Submitter, queue *Queue, cache *ActivityCache) *Recorder {
	return &Recorder{Submitter: submitter, Queue: queue, Cache: cache}
}

// Record 返回 queued=true 表示上报已进入离线队列。
// 校验或鉴权类的 4xx 错误直接返回给调用方。
func (r *Recorder) Record(ctx context.Context, report *client.Report, skillCode string) (result *model.ReportResult, queued bool, err error) {
	result, err = r.Submitter.SubmitReport(ctx, report)
	if err == nil {
		if result.NextActivity != nil && r.Cache != nil {
			if cacheErr := r.Cache.Cache(ctx, FromSummary(result.NextActivity)); cacheErr != nil {
				logger.Log.Warn("Failed to cache next activity", zap.Error(cacheErr))
			}
		}
		return result, false, nil
	}

	if !client.IsRetryable(err) {
		return nil, false, err
	}

	logger.Log.Info("Server unreachable, report saved for later sync",
		zap.String("activity_id", report.ActivityID),
		zap.Error(err))
	r.Queue.Enqueue(ctx, report, skillCode)
	return nil, true, nil
}
