package model

import (
	"time"
)

// LearnerSkill 学习者在某个技能上的掌握度，每个 (user_id, skill_code) 仅一条
type LearnerSkill struct {
	ID              uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          string     `gorm:"type:varchar(36);uniqueIndex:idx_learner_skill;not null" json:"user_id"`
	SkillCode       string     `gorm:"size:100;uniqueIndex:idx_learner_skill;not null" json:"skill_code"`
	Proficiency     float64    `gorm:"default:0.5;index" json:"proficiency"`
	LastPracticedAt *time.Time `json:"last_practiced_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (LearnerSkill) TableName() string {
	return "learner_skills"
}
