package model

import "time"

// GapTopic 单个待加强的知识点
type GapTopic struct {
	Topic          string     `json:"topic"`
	SkillCode      string     `json:"skill_code"`
	Score          int        `json:"score"` // 0-100
	LastPracticed  *time.Time `json:"last_practiced"`
	Recommendation string     `json:"recommendation"`
}

// GapAnalysis 学习者差距分析；无数据时只返回 Message
type GapAnalysis struct {
	LearnerID             string     `json:"learner_id"`
	Message               string     `json:"message,omitempty"`
	LowProficiencyTopics  []GapTopic `json:"low_proficiency_topics"`
	OverallMastery        string     `json:"overall_mastery"`
	AvgProficiencyPercent *int       `json:"avg_proficiency_percent,omitempty"`
	TotalSkillsTracked    *int       `json:"total_skills_tracked,omitempty"`
}

// SkillSummary 班级维度按技能聚合的掌握度
type SkillSummary struct {
	SkillCode      string
	AvgProficiency float64
	MinProficiency float64
	MaxProficiency float64
	LearnerCount   int
}

// ClassTopic 教师看板中的知识点
type ClassTopic struct {
	SkillCode      string `json:"skill_code"`
	SkillTitle     string `json:"skill_title"`
	AvgProficiency int    `json:"avg_proficiency"`
	LearnerCount   int    `json:"learner_count"`
	MinProficiency int    `json:"min_proficiency"`
	MaxProficiency int    `json:"max_proficiency"`
	Status         string `json:"status"`
}

// ClassInsights 教师看板
type ClassInsights struct {
	LowProficiencyTopics []ClassTopic `json:"low_proficiency_topics"`
	TotalLearners        int          `json:"total_learners"`
	EngagementRate       int          `json:"engagement_rate"`
	ActivitiesLastWeek   int          `json:"activities_last_week"`
	LastUpdated          time.Time    `json:"last_updated"`
}
