package service

import (
	"context"
	"math"
	"time"

	"studybuddy_backend/internal/learning"
	"studybuddy_backend/internal/model"
	"studybuddy_backend/internal/repository"
	"studybuddy_backend/internal/util"
	"studybuddy_backend/pkg/logger"
	"studybuddy_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	classTopicLimit  = 10
	engagementWindow = 7 * 24 * time.Hour
)

type InsightsService struct {
	SkillRepo    *repository.SkillRepository
	ReportRepo   *repository.ReportRepository
	ActivityRepo *repository.ActivityRepository
	RoleRepo     *repository.RoleRepository
	now          func() time.Time
}

func NewInsightsService(
	skillRepo *repository.SkillRepository,
	reportRepo *repository.ReportRepository,
	activityRepo *repository.ActivityRepository,
	roleRepo *repository.RoleRepository,
) *InsightsService {
	return &InsightsService{
		SkillRepo:    skillRepo,
		ReportRepo:   reportRepo,
		ActivityRepo: activityRepo,
		RoleRepo:     roleRepo,
		now:          time.Now,
	}
}

// Class 教师看板：全班最薄弱的技能与近 7 天活跃度
func (s *InsightsService) Class(ctx context.Context, callerID string) (*model.ClassInsights, error) {
	ctx, span := tracing.Start(ctx, "InsightsService.Class", attribute.String("user.id", callerID))
	defer span.End()

	ok, err := s.RoleRepo.HasAnyRole(ctx, callerID, staffRoles...)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}
	if !ok {
		return nil, util.ErrTeacherRequired
	}

	summaries, err := s.SkillRepo.ClassSummaries(ctx, classTopicLimit)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}
	learners, err := s.SkillRepo.CountLearners(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}
	now := s.now()
	recent, err := s.ReportRepo.CountSince(ctx, now.Add(-engagementWindow))
	if err != nil {
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}

	codes := make([]string, 0, len(summaries))
	for _, summary := range summaries {
		codes = append(codes, summary.SkillCode)
	}
	titles, err := s.ActivityRepo.TitlesForSkills(ctx, codes)
	if err != nil {
		logger.Log.Warn("Skill title lookup failed", zap.Error(err))
		titles = map[string]string{}
	}

	topics := make([]model.ClassTopic, 0, len(summaries))
	for _, summary := range summaries {
		title := titles[summary.SkillCode]
		if title == "" {
			title = summary.SkillCode
		}
		topics = append(topics, model.ClassTopic{
			SkillCode:      summary.SkillCode,
			SkillTitle:     title,
			AvgProficiency: learning.ScorePercent(summary.AvgProficiency),
			LearnerCount:   summary.LearnerCount,
			MinProficiency: learning.ScorePercent(summary.MinProficiency),
			MaxProficiency: learning.ScorePercent(summary.MaxProficiency),
			Status:         learning.ClassStatus(summary.AvgProficiency),
		})
	}

	return &model.ClassInsights{
		LowProficiencyTopics: topics,
		TotalLearners:        int(learners),
		EngagementRate:       EngagementRate(recent, learners),
		ActivitiesLastWeek:   int(recent),
		LastUpdated:          now.UTC(),
	}, nil
}

// EngagementRate 近 7 天人均每天完成活动数的百分比，上限 100
func EngagementRate(recentActivities, learners int64) int {
	if learners <= 0 || recentActivities <= 0 {
		return 0
	}
	rate := math.Round(float64(recentActivities) / float64(learners*7) * 100)
	return int(math.Min(100, rate))
}
