package learning

import (
	"fmt"
	"math"
)

const (
	// MasteryThreshold 低于该掌握度视为薄弱知识点
	MasteryThreshold = 0.70

	excellentThreshold = 0.85
	moderateThreshold  = 0.50
	criticalThreshold  = 0.50
)

const (
	MasteryExcellent   = "Excellent"
	MasteryGood        = "Good"
	MasteryModerate    = "Moderate"
	MasteryDeveloping  = "Developing"
	MasteryNotAssessed = "Not assessed"
)

const (
	StatusCritical       = "critical"
	StatusNeedsAttention = "needs_attention"
	StatusDeveloping     = "developing"
)

// ScorePercent 将 [0,1] 的掌握度换算为整数百分比
func ScorePercent(p float64) int {
	return int(math.Round(p * 100))
}

func IsWeak(p float64) bool {
	return p < MasteryThreshold
}

// OverallMastery 根据平均掌握度给出总体评级
func OverallMastery(avg float64) string {
	switch {
	case avg >= excellentThreshold:
		return MasteryExcellent
	case avg >= MasteryThreshold:
		return MasteryGood
	case avg >= moderateThreshold:
		return MasteryModerate
	default:
		return MasteryDeveloping
	}
}

// ClassStatus 班级维度某技能的风险等级
func ClassStatus(avg float64) string {
	switch {
	case avg < criticalThreshold:
		return StatusCritical
	case avg < MasteryThreshold:
		return StatusNeedsAttention
	default:
		return StatusDeveloping
	}
}

// Recommendation 针对薄弱知识点给出CBC风格的学习建议
func Recommendation(scorePercent int, title string) string {
	switch {
	case scorePercent < 40:
		return fmt.Sprintf("Foundational review needed. Start with visual aids and basic drills for %s.", title)
	case scorePercent < 60:
		return fmt.Sprintf("Practice core concepts using local examples. Work through guided exercises for %s.", title)
	default:
		return fmt.Sprintf("Nearly there! Focus on edge cases and application problems for %s.", title)
	}
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
