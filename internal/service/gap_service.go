package service

import (
	"context"

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
	maxGapTopics  = 5
	noDataMessage = "No performance data yet. Complete some activities to get started!"
)

// 可以查看其他学习者数据的角色
var staffRoles = []model.Role{model.RoleTeacher, model.RoleAdmin}

type GapService struct {
	SkillRepo    *repository.SkillRepository
	ActivityRepo *repository.ActivityRepository
	RoleRepo     *repository.RoleRepository
}

func NewGapService(skillRepo *repository.SkillRepository, activityRepo *repository.ActivityRepository, roleRepo *repository.RoleRepository) *GapService {
	return &GapService{SkillRepo: skillRepo, ActivityRepo: activityRepo, RoleRepo: roleRepo}
}

// Analyze 查看本人或（教师/管理员）查看指定学习者的薄弱知识点
func (s *GapService) Analyze(ctx context.Context, callerID, learnerID string) (*model.GapAnalysis, error) {
	if learnerID == "" {
		learnerID = callerID
	}
	ctx, span := tracing.Start(ctx, "GapService.Analyze",
		attribute.String("user.id", callerID),
		attribute.String("learner.id", learnerID))
	defer span.End()

	if learnerID != callerID {
		ok, err := s.RoleRepo.HasAnyRole(ctx, callerID, staffRoles...)
		if err != nil {
			tracing.RecordError(span, err)
			return nil, util.NewInternalError(err)
		}
		if !ok {
			return nil, util.ErrPermissionDenied
		}
	}

	skills, err := s.SkillRepo.ListByUser(ctx, learnerID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, util.NewInternalError(err)
	}

	if len(skills) == 0 {
		return &model.GapAnalysis{
			LearnerID:            learnerID,
			Message:              noDataMessage,
			LowProficiencyTopics: []model.GapTopic{},
			OverallMastery:       learning.MasteryNotAssessed,
		}, nil
	}

	var weak []model.LearnerSkill
	proficiencies := make([]float64, 0, len(skills))
	for _, skill := range skills {
		proficiencies = append(proficiencies, skill.Proficiency)
		if learning.IsWeak(skill.Proficiency) && len(weak) < maxGapTopics {
			weak = append(weak, skill)
		}
	}

	codes := make([]string, 0, len(weak))
	for _, skill := range weak {
		codes = append(codes, skill.SkillCode)
	}
	titles, err := s.ActivityRepo.TitlesForSkills(ctx, codes)
	if err != nil {
		// 标题只用于展示，查询失败时退回技能编码
		logger.Log.Warn("Skill title lookup failed", zap.Error(err))
		titles = map[string]string{}
	}

	topics := make([]model.GapTopic, 0, len(weak))
	for _, skill := range weak {
		title := titles[skill.SkillCode]
		if title == "" {
			title = skill.SkillCode
		}
		pct := learning.ScorePercent(skill.Proficiency)
		topics = append(topics, model.GapTopic{
			Topic:          title,
			SkillCode:      skill.SkillCode,
			Score:          pct,
			LastPracticed:  skill.LastPracticedAt,
			Recommendation: learning.Recommendation(pct, title),
		})
	}

	avg := learning.Mean(proficiencies)
	avgPct := learning.ScorePercent(avg)
	total := len(skills)

	logger.Log.Debug("Gap analysis",
		zap.String("learner_id", learnerID),
		zap.Int("weak_topics", len(topics)))

	return &model.GapAnalysis{
		LearnerID:             learnerID,
		LowProficiencyTopics:  topics,
		OverallMastery:        learning.OverallMastery(avg),
		AvgProficiencyPercent: &avgPct,
		TotalSkillsTracked:    &total,
	}, nil
}
