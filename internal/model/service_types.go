package model

// NextActivity 推荐的下一个活动
type NextActivity struct {
	ActivityID       string          `json:"activity_id"`
	Type             string          `json:"type"`
	Payload          ActivityPayload `json:"payload"`
	EstimatedTimeSec int             `json:"estimated_time_sec"`
	Difficulty       float64         `json:"difficulty"`
	Why              string          `json:"why"`
}

// HydrateResult 会话开始时的入门活动
type HydrateResult struct {
	ActivityID       string          `json:"activity_id"`
	Type             string          `json:"type"`
	Payload          ActivityPayload `json:"payload"`
	EstimatedTimeSec int             `json:"estimated_time_sec"`
	Reason           string          `json:"reason"`
	LatencyMs        int64           `json:"latency_ms"`
}

// NextActivitySummary 上报结果中附带的推荐摘要
type NextActivitySummary struct {
	ActivityID       string `json:"activity_id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	EstimatedTimeSec int    `json:"estimated_time_sec"`
	Why              string `json:"why,omitempty"`
}

// ReportResult 上报接口的返回值
type ReportResult struct {
	Success        bool                 `json:"success"`
	SkillCode      string               `json:"skill_code"`
	OldProficiency float64              `json:"old_proficiency"`
	NewProficiency float64              `json:"new_proficiency"`
	NextActivity   *NextActivitySummary `json:"next_activity"`
}
