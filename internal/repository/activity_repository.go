package repository

import (
	"context"
	"errors"

	"studybuddy_backend/internal/model"

	"gorm.io/gorm"
)

// ActivityRepository 活动目录查询，结果限定在 Locale 内
type ActivityRepository struct {
	DB     *gorm.DB
	Locale string
}

func NewActivityRepository(db *gorm.DB, locale string) *ActivityRepository {
	if locale == "" {
		locale = model.DefaultLocale
	}
	return &ActivityRepository{DB: db, Locale: locale}
}

func (r *ActivityRepository) scoped(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&model.Activity{}).Where("locale = ?", r.Locale)
}

// FindByID 不存在时返回 (nil, nil)
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*model.Activity, error) {
	var activity model.Activity
	err := r.DB.WithContext(ctx).Where("id = ?", id).First(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *ActivityRepository) InDifficultyRange(ctx context.Context, skillCode string, lo, hi float64) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.scoped(ctx).
		Where("skill_code = ? AND difficulty >= ? AND difficulty <= ?", skillCode, lo, hi).
		Order("id").
		Find(&activities).Error
	return activities, err
}

func (r *ActivityRepository) BySkill(ctx context.Context, skillCode string) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.scoped(ctx).Where("skill_code = ?", skillCode).Order("id").Find(&activities).Error
	return activities, err
}

func (r *ActivityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.scoped(ctx).Count(&count).Error
	return count, err
}

// At 按 id 排序后的第 offset 个活动
func (r *ActivityRepository) At(ctx context.Context, offset int) (*model.Activity, error) {
	var activities []model.Activity
	if err := r.scoped(ctx).Order("id").Offset(offset).Limit(1).Find(&activities).Error; err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return nil, nil
	}
	return &activities[0], nil
}

// EasiestForSkill 某技能下难度最低的活动
func (r *ActivityRepository) EasiestForSkill(ctx context.Context, skillCode string) (*model.Activity, error) {
	var activities []model.Activity
	err := r.scoped(ctx).
		Where("skill_code = ?", skillCode).
		Order("difficulty ASC").Order("id").
		Limit(1).
		Find(&activities).Error
	if err != nil || len(activities) == 0 {
		return nil, err
	}
	return &activities[0], nil
}

// Easy 难度不超过 maxDifficulty 的前 limit 个最简单活动
func (r *ActivityRepository) Easy(ctx context.Context, maxDifficulty float64, limit int) ([]model.Activity, error) {
	var activities []model.Activity
	err := r.scoped(ctx).
		Where("difficulty <= ?", maxDifficulty).
		Order("difficulty ASC").Order("id").
		Limit(limit).
		Find(&activities).Error
	return activities, err
}

// TitlesForSkills 每个技能取一个活动标题作为展示名
func (r *ActivityRepository) TitlesForSkills(ctx context.Context, skillCodes []string) (map[string]string, error) {
	titles := make(map[string]string, len(skillCodes))
	if len(skillCodes) == 0 {
		return titles, nil
	}

	var rows []struct {
		SkillCode string
		Title     string
	}
	err := r.DB.WithContext(ctx).Model(&model.Activity{}).
		Select("skill_code, MIN(title) AS title").
		Where("skill_code IN ?", skillCodes).
		Group("skill_code").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		titles[row.SkillCode] = row.Title
	}
	return titles, nil
}
