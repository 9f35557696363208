package repository

import (
	"context"
	"errors"
	"time"

	"studybuddy_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SkillUpdateFunc 根据当前掌握度计算新值
type SkillUpdateFunc func(current float64) (float64, error)

type SkillRepository struct {
	DB *gorm.DB
}

func NewSkillRepository(db *gorm.DB) *SkillRepository {
	return &SkillRepository{DB: db}
}

// FindByUserAndSkill 不存在时返回 (nil, nil)
func (r *SkillRepository) FindByUserAndSkill(ctx context.Context, userID, skillCode string) (*model.LearnerSkill, error) {
	var skill model.LearnerSkill
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND skill_code = ?", userID, skillCode).
		First(&skill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &skill, nil
}

// applySkill 读取、计算并写回掌握度，返回更新前后的值，必须在事务内调用。
// 记录不存在时以 defaultProficiency 为起点新建。
func applySkill(tx *gorm.DB, userID, skillCode string, defaultProficiency float64, practicedAt time.Time, fn SkillUpdateFunc) (old, updated float64, err error) {
	query := tx.Where("user_id = ? AND skill_code = ?", userID, skillCode)
	if tx.Dialector.Name() == "mysql" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var skills []model.LearnerSkill
	if err := query.Limit(1).Find(&skills).Error; err != nil {
		return 0, 0, err
	}

	old = defaultProficiency
	if len(skills) > 0 {
		old = skills[0].Proficiency
	}

	updated, err = fn(old)
	if err != nil {
		return 0, 0, err
	}

	if len(skills) > 0 {
		err = tx.Model(&skills[0]).Updates(map[string]interface{}{
			"proficiency":       updated,
			"last_practiced_at": practicedAt,
		}).Error
		return old, updated, err
	}

	// 并发首次上报时以唯一索引兜底
	skill := model.LearnerSkill{
		UserID:          userID,
		SkillCode:       skillCode,
		Proficiency:     updated,
		LastPracticedAt: &practicedAt,
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "skill_code"}},
		DoUpdates: clause.AssignmentColumns([]string{"proficiency", "last_practiced_at", "updated_at"}),
	}).Create(&skill).Error
	return old, updated, err
}

// Weakest 掌握度最低的 n 个技能，按升序
func (r *SkillRepository) Weakest(ctx context.Context, userID string, n int) ([]model.LearnerSkill, error) {
	var skills []model.LearnerSkill
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("proficiency ASC").Order("skill_code").
		Limit(n).
		Find(&skills).Error
	return skills, err
}

// ListByUser 学习者全部技能，按掌握度升序
func (r *SkillRepository) ListByUser(ctx context.Context, userID string) ([]model.LearnerSkill, error) {
	var skills []model.LearnerSkill
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("proficiency ASC").Order("skill_code").
		Find(&skills).Error
	return skills, err
}

// ClassSummaries 按技能聚合全体学习者的掌握度，平均值最低的在前
func (r *SkillRepository) ClassSummaries(ctx context.Context, limit int) ([]model.SkillSummary, error) {
	var summaries []model.SkillSummary
	err := r.DB.WithContext(ctx).Model(&model.LearnerSkill{}).
		Select("skill_code, AVG(proficiency) AS avg_proficiency, MIN(proficiency) AS min_proficiency, " +
			"MAX(proficiency) AS max_proficiency, COUNT(DISTINCT user_id) AS learner_count").
		Group("skill_code").
		Order("avg_proficiency ASC").Order("skill_code").
		Limit(limit).
		Scan(&summaries).Error
	return summaries, err
}

// CountLearners 至少有一条技能记录的学习者数
func (r *SkillRepository) CountLearners(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.LearnerSkill{}).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}
