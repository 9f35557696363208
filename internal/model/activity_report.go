package model

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityReport 学习者完成活动的记录，只追加不修改
type ActivityReport struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID       string            `gorm:"type:varchar(36);index;not null" json:"user_id"`
	ActivityID   string            `gorm:"type:varchar(36);index;not null" json:"activity_id"`
	Score        float64           `gorm:"not null" json:"score"`
	TimeSpentSec int               `gorm:"not null" json:"time_spent_sec"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CompletedAt  time.Time         `gorm:"index" json:"completed_at"`
}

func (ActivityReport) TableName() string {
	return "activity_reports"
}
