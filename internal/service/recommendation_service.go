package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studybuddy_backend/internal/cache"
	"studybuddy_backend/internal/learning"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/repository"
	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/logger"
	"studybuddy_backend/pkg/monitoring"
	"studybuddy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// 入门活动的难度上限和候选数量
	easyMaxDifficulty = 0.5
	easyCandidates    = 10

	reasonQuickWin     = "Quick win to get started!"
	reasonCachedResume = "Quick win, continue your learning!"
)

type RecommendationService struct {
	ActivityRepo  *repository.ActivityRepository
	SkillRepo     *repository.SkillRepository
	ReportRepo    *repository.ReportRepository
	Hydration     cache.HydrationStore
	Selector      *learning.Selector
	WeakestWindow int
}

func NewRecommendationService(
	activityRepo *repository.ActivityRepository,
	skillRepo *repository.SkillRepository,
	reportRepo *repository.ReportRepository,
	hydration cache.HydrationStore,
	selector *learning.Selector,
	weakestWindow int,
) *RecommendationService {
	if weakestWindow <= 0 {
		weakestWindow = 3
	}
	return &RecommendationService{
		ActivityRepo:  activityRepo,
		SkillRepo:     skillRepo,
		ReportRepo:    reportRepo,
		Hydration:     hydration,
		Selector:      selector,
		WeakestWindow: weakestWindow,
	}
}

// SelectNext 按薄弱技能、最近技能、随机的顺序挑选下一个活动
func (s *RecommendationService) SelectNext(ctx context.Context, userID string) (*learning.Selection, error) {
	ctx, span := tracing.Start(ctx, "RecommendationService.SelectNext", attribute.String("user.id", userID))
	defer span.End()

	weakest, err := s.SkillRepo.Weakest(ctx, userID, s.WeakestWindow)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	lastSkill, err := s.ReportRepo.LastCompletedSkill(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	selection, err := s.Selector.Select(ctx, weakest, lastSkill)
	if err != nil {
		if !errors.Is(err, learning.ErrNoActivities) {
			tracing.RecordError(span, err)
		}
		return nil, err
	}
	span.SetAttributes(attribute.String("selection.strategy", string(selection.Strategy)))
	monitoring.SelectionStrategy.WithLabelValues(string(selection.Strategy)).Inc()
	return selection, nil
}

func (s *RecommendationService) Next(ctx context.Context, userID string) (*model.NextActivity, error) {
	selection, err := s.SelectNext(ctx, userID)
	if errors.Is(err, learning.ErrNoActivities) {
		return nil, util.ErrNoActivities
	}
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	a := selection.Activity
	return &model.NextActivity{
		ActivityID:       a.ID,
		Type:             a.ActivityType,
		Payload:          a.Payload(),
		EstimatedTimeSec: a.EstimatedTimeSec,
		Difficulty:       a.Difficulty,
		Why:              selection.Reason,
	}, nil
}

// Hydrate 返回会话开始时的入门活动，优先使用缓存
func (s *RecommendationService) Hydrate(ctx context.Context, userID string) (*model.HydrateResult, error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "RecommendationService.Hydrate", attribute.String("user.id", userID))
	defer span.End()

	if result := s.fromCache(ctx, userID); result != nil {
		monitoring.HydrationLookups.WithLabelValues("hit").Inc()
		result.LatencyMs = time.Since(start).Milliseconds()
		return result, nil
	}
	monitoring.HydrationLookups.WithLabelValues("miss").Inc()

	activity, reason, err := s.pickStarter(ctx, userID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}
	if activity == nil {
		return nil, util.ErrNoActivities
	}

	entry := cache.HydrationEntry{
		UserID:            userID,
		StarterActivityID: activity.ID,
		Reason:            reason,
	}
	if err := s.Hydration.Put(ctx, entry); err != nil {
		logger.Log.Warn("Failed to cache hydration entry", zap.String("user_id", userID), zap.Error(err))
	}

	result := hydrateResult(activity, reason)
	result.LatencyMs = time.Since(start).Milliseconds()
	logger.Log.Debug("Hydrate generated",
		zap.String("user_id", userID),
		zap.Int64("latency_ms", result.LatencyMs))
	return result, nil
}

// 缓存不可用或活动已下线都按未命中处理
func (s *RecommendationService) fromCache(ctx context.Context, userID string) *model.HydrateResult {
	entry, err := s.Hydration.Get(ctx, userID)
	if err != nil {
		logger.Log.Warn("Hydration cache lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if entry == nil || entry.StarterActivityID == "" {
		return nil
	}

	activity, err := s.ActivityRepo.FindByID(ctx, entry.StarterActivityID)
	if err != nil {
		logger.Log.Warn("Cached starter activity lookup failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if activity == nil {
		return nil
	}

	if err := s.Hydration.Touch(ctx, userID, time.Now()); err != nil {
		logger.Log.Warn("Failed to touch hydration entry", zap.String("user_id", userID), zap.Error(err))
	}

	reason := entry.Reason
	if reason == "" {
		reason = reasonCachedResume
	}
	return hydrateResult(activity, reason)
}

func (s *RecommendationService) pickStarter(ctx context.Context, userID string) (*model.Activity, string, error) {
	weakest, err := s.SkillRepo.Weakest(ctx, userID, 1)
	if err != nil {
		return nil, "", err
	}
	if len(weakest) > 0 {
		skillCode := weakest[0].SkillCode
		activity, err := s.ActivityRepo.EasiestForSkill(ctx, skillCode)
		if err != nil {
			return nil, "", err
		}
		if activity != nil {
			return activity, fmt.Sprintf("Practice for your weak skill: %s", skillCode), nil
		}
	}

	easy, err := s.ActivityRepo.Easy(ctx, easyMaxDifficulty, easyCandidates)
	if err != nil {
		return nil, "", err
	}
	if len(easy) == 0 {
		return nil, "", nil
	}
	return s.Selector.Pick(easy), reasonQuickWin, nil
}

func hydrateResult(a *model.Activity, reason string) *model.HydrateResult {
	return &model.HydrateResult{
		ActivityID:       a.ID,
		Type:             a.ActivityType,
		Payload:          a.Payload(),
		EstimatedTimeSec: a.EstimatedTimeSec,
		Reason:           reason,
	}
}
