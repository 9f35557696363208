package testutil

import (
	"testing"
	"time"

	"studybuddy_backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateActivity 写入一个 locale=ke 的测试活动
func CreateActivity(t *testing.T, db *gorm.DB, skillCode string, difficulty float64) model.Activity {
	t.Helper()
	a := model.Activity{
		UUIDBase:         model.UUIDBase{ID: uuid.New().String()},
		SkillCode:        skillCode,
		Title:            skillCode + " practice",
		Description:      "test activity",
		ActivityType:     "quiz",
		Difficulty:       difficulty,
		EstimatedTimeSec: 60,
		Locale:           model.DefaultLocale,
	}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create activity: %v", err)
	}
	return a
}

func CreateSkill(t *testing.T, db *gorm.DB, userID, skillCode string, proficiency float64) model.LearnerSkill {
	t.Helper()
	now := time.Now()
	s := model.LearnerSkill{UserID: userID, SkillCode: skillCode, Proficiency: proficiency, LastPracticedAt: &now}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create skill: %v", err)
	}
	return s
}

func CreateRole(t *testing.T, db *gorm.DB, userID string, role model.Role) {
	t.Helper()
	if err := db.Create(&model.UserRole{UserID: userID, Role: role}).Error; err != nil {
		t.Fatalf("create role: %v", err)
	}
}

// CreateReport 直接写入一条活动记录，不更新掌握度
func CreateReport(t *testing.T, db *gorm.DB, userID, activityID string, score float64, completedAt time.Time) model.ActivityReport {
	t.Helper()
	r := model.ActivityReport{
		ID:           uuid.New().String(),
		UserID:       userID,
		ActivityID:   activityID,
		Score:        score,
		TimeSpentSec: 30,
		CompletedAt:  completedAt,
	}
	if err := db.Create(&r).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}
	return r
}
