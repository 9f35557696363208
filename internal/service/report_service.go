package service

import (
	"context"
	"errors"

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

type ReportService struct {
	ActivityRepo   *repository.ActivityRepository
	ReportRepo     *repository.ReportRepository
	Hydration      cache.HydrationStore
	Recommendation *RecommendationService
}

func NewReportService(
	activityRepo *repository.ActivityRepository,
	reportRepo *repository.ReportRepository,
	hydration cache.HydrationStore,
	recommendation *RecommendationService,
) *ReportService {
	return &ReportService{
		ActivityRepo:   activityRepo,
		ReportRepo:     reportRepo,
		Hydration:      hydration,
		Recommendation: recommendation,
	}
}

// Submit 记录一次活动完成：写入记录并更新掌握度（同一事务）、清除入门缓存并给出下一个活动。
func (s *ReportService) Submit(ctx context.Context, userID string, input *ReportInput) (*model.ReportResult, error) {
	ctx, span := tracing.Start(ctx, "ReportService.Submit",
		attribute.String("user.id", userID),
		attribute.String("activity.id", input.ActivityID))
	defer span.End()

	activity, err := s.ActivityRepo.FindByID(ctx, input.ActivityID)
	if err != nil {
		tracing.RecordError(span, err)
		monitoring.ReportsIngested.WithLabelValues("failed").Inc()
		return nil, util.NewInternalError(err)
	}
	if activity == nil {
		monitoring.ReportsIngested.WithLabelValues("not_found").Inc()
		return nil, util.ErrActivityNotFound
	}

	report := &model.ActivityReport{
		UserID:       userID,
		ActivityID:   activity.ID,
		Score:        input.Score,
		TimeSpentSec: input.TimeSpentSec,
		Metadata:     input.Metadata,
		CompletedAt:  input.CompletedAt,
	}
	oldProf, newProf, err := s.ReportRepo.Record(ctx, report, activity.SkillCode, learning.DefaultProficiency,
		func(current float64) (float64, error) {
			return learning.UpdateProficiency(current, input.Score, activity.Difficulty)
		})
	if err != nil {
		tracing.RecordError(span, err)
		monitoring.ReportsIngested.WithLabelValues("failed").Inc()
		if errors.Is(err, learning.ErrInvalidInput) {
			return nil, util.NewInternalError(err)
		}
		return nil, util.NewPersistenceError("Failed to save progress. Please try again", err)
	}
	monitoring.ReportsIngested.WithLabelValues("accepted").Inc()
	monitoring.ProficiencyDelta.Observe(newProf - oldProf)

	if err := s.Hydration.Invalidate(ctx, userID); err != nil {
		logger.Log.Warn("Failed to invalidate hydration entry", zap.String("user_id", userID), zap.Error(err))
	}

	result := &model.ReportResult{
		Success:        true,
		SkillCode:      activity.SkillCode,
		OldProficiency: oldProf,
		NewProficiency: newProf,
	}

	selection, err := s.Recommendation.SelectNext(ctx, userID)
	switch {
	case err == nil:
		next := selection.Activity
		result.NextActivity = &model.NextActivitySummary{
			ActivityID:       next.ID,
			Title:            next.Title,
			Description:      next.Description,
			EstimatedTimeSec: next.EstimatedTimeSec,
			Why:              selection.Reason,
		}
	case !errors.Is(err, learning.ErrNoActivities):
		logger.Log.Warn("Next activity selection failed", zap.String("user_id", userID), zap.Error(err))
	}

	logger.Log.Info("Report accepted",
		zap.String("user_id", userID),
		zap.String("skill_code", activity.SkillCode),
		zap.Float64("old_proficiency", oldProf),
		zap.Float64("new_proficiency", newProf))

	return result, nil
}
