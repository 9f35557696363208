// Package offline 实现客户端的离线上报队列和最近活动缓存，数据保存在本地 SQLite 文件中。
package offline

import (
	"time"

	"studybuddy_backend/internal/client"
	"studybuddy_backend/internal/config"
	"studybuddy_backend/pkg/database"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QueuedReport 等待同步的上报，服务端确认后才删除
type QueuedReport struct {
	ID           string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Seq          int64             `gorm:"uniqueIndex;not null" json:"seq"`
	ActivityID   string            `gorm:"type:varchar(36);not null" json:"activity_id"`
	SkillCode    string            `gorm:"size:100;index" json:"skill_code,omitempty"`
	Score        float64           `json:"score"`
	TimeSpentSec int               `json:"time_spent_sec"`
	Metadata     datatypes.JSONMap `json:"metadata,omitempty"`
	CompletedAt  time.Time         `json:"completed_at"`
	EnqueuedAt   time.Time         `json:"enqueued_at"`
	Attempts     int               `gorm:"default:0" json:"attempts"`
	LastError    string            `gorm:"type:text" json:"last_error,omitempty"`
	// RejectedAt 服务端以 4xx 拒绝后不再重放，保留供查看
	RejectedAt *time.Time `gorm:"index" json:"rejected_at,omitempty"`
}

// unknownSkillKey 技能未知的上报共用一个顺序键，它们之间保持入队顺序
const unknownSkillKey = "\x00unknown"

func (QueuedReport) TableName() string {
	return "queued_reports"
}

// OrderingKey 同一 key 的上报必须按入队顺序提交
func (q *QueuedReport) OrderingKey() string {
	if q.SkillCode != "" {
		return q.SkillCode
	}
	return unknownSkillKey
}

func (q *QueuedReport) Rejected() bool {
	return q.RejectedAt != nil
}

func (q *QueuedReport) Report() *client.Report {
	completed := q.CompletedAt
	return &client.Report{
		ActivityID:   q.ActivityID,
		Score:        q.Score,
		TimeSpentSec: q.TimeSpentSec,
		Metadata:     q.Metadata,
		CompletedAt:  &completed,
	}
}

// CachedActivity 最近获取过的活动，离线时用来继续练习
type CachedActivity struct {
	ActivityID       string            `gorm:"primaryKey;type:varchar(36)" json:"activity_id"`
	SkillCode        string            `gorm:"size:100" json:"skill_code,omitempty"`
	Type             string            `gorm:"size:50" json:"type,omitempty"`
	Title            string            `gorm:"size:255" json:"title"`
	Description      string            `gorm:"type:text" json:"description"`
	Content          datatypes.JSONMap `json:"content,omitempty"`
	EstimatedTimeSec int               `json:"estimated_time_sec"`
	Difficulty       float64           `json:"difficulty"`
	CachedAt         time.Time         `gorm:"index" json:"cached_at"`
}

func (CachedActivity) TableName() string {
	return "cached_activities"
}

// Open 打开客户端本地库并迁移离线表
func Open(path string) (*gorm.DB, error) {
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", SQLitePath: path}, false)
	if err != nil {
		return nil, err
	}

	// 单文件库，串行写入
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&QueuedReport{}, &CachedActivity{}); err != nil {
		return nil, err
	}
	return db, nil
}
