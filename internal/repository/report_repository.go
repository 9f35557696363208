package repository

import (
	"context"
	"time"

	"studybuddy_backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository 活动记录只追加，不提供更新和删除
type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

// Record 在同一事务内写入活动记录并更新对应技能的掌握度，任一步失败都不会留下记录
func (r *ReportRepository) Record(ctx context.Context, report *model.ActivityReport, skillCode string, defaultProficiency float64, fn SkillUpdateFunc) (old, updated float64, err error) {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	if report.CompletedAt.IsZero() {
		report.CompletedAt = time.Now()
	}
	practicedAt := time.Now()

	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		var applyErr error
		old, updated, applyErr = applySkill(tx, report.UserID, skillCode, defaultProficiency, practicedAt, fn)
		return applyErr
	})
	if err != nil {
		return 0, 0, err
	}
	return old, updated, nil
}

// LastCompletedSkill 学习者最近一次完成活动所属的技能，没有记录时返回空串
func (r *ReportRepository) LastCompletedSkill(ctx context.Context, userID string) (string, error) {
	var skills []string
	err := r.DB.WithContext(ctx).
		Table("activity_reports").
		Joins("JOIN study_activities ON study_activities.id = activity_reports.activity_id").
		Where("activity_reports.user_id = ?", userID).
		Order("activity_reports.completed_at DESC").
		Limit(1).
		Pluck("study_activities.skill_code", &skills).Error
	if err != nil || len(skills) == 0 {
		return "", err
	}
	return skills[0], nil
}

func (r *ReportRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.ActivityReport{}).
		Where("completed_at >= ?", since).
		Count(&count).Error
	return count, err
}
