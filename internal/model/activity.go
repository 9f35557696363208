package model

import (
	"gorm.io/datatypes"
)

const DefaultLocale = "ke"

// Activity 学习活动（只读参考数据）
type Activity struct {
	UUIDBase
	SkillCode        string            `gorm:"size:100;index;not null" json:"skill_code"`
	Title            string            `gorm:"size:255;not null" json:"title"`
	Description      string            `gorm:"type:text" json:"description"`
	Content          datatypes.JSONMap `json:"content"`
	ActivityType     string            `gorm:"size:50;default:'quiz'" json:"activity_type"`
	Difficulty       float64           `gorm:"default:0.5;index" json:"difficulty"`
	EstimatedTimeSec int               `gorm:"default:60" json:"estimated_time_sec"`
	Locale           string            `gorm:"size:10;default:'ke';index" json:"locale"`
	Grade            string            `gorm:"size:50" json:"grade"`
	Subject          string            `gorm:"size:100" json:"subject"`
}

func (Activity) TableName() string {
	return "study_activities"
}

// ActivityPayload 返回给前端的活动内容
type ActivityPayload struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Content     datatypes.JSONMap `json:"content"`
	SkillCode   string            `json:"skill_code"`
}

func (a *Activity) Payload() ActivityPayload {
	return ActivityPayload{
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		SkillCode:   a.SkillCode,
	}
}
