package learning

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"studybuddy_backend/internal/model"
)

// 难度匹配窗口：[p - lowerBand, p + upperBand]
const (
	lowerBand = 0.1
	upperBand = 0.2
)

var ErrNoActivities = errors.New("learning: no activities available")

type Strategy string

const (
	StrategyWeakSkill   Strategy = "weak_skill"
	StrategyRecentSkill Strategy = "recent_skill"
	StrategyRandom      Strategy = "random"
)

// Catalog 活动目录的只读查询
type Catalog interface {
	InDifficultyRange(ctx context.Context, skillCode string, lo, hi float64) ([]model.Activity, error)
	BySkill(ctx context.Context, skillCode string) ([]model.Activity, error)
	Count(ctx context.Context) (int64, error)
	At(ctx context.Context, offset int) (*model.Activity, error)
}

type Selection struct {
	Activity *model.Activity
	Strategy Strategy
	Reason   string
}

// Selector picks the next activity for a learner. Ties between equally
// eligible activities are broken with rng.
type Selector struct {
	catalog Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSelector(catalog Catalog, rng *rand.Rand) *Selector {
	return &Selector{catalog: catalog, rng: rng}
}

// DifficultyWindow returns the difficulty range considered a good match for
// proficiency p.
func DifficultyWindow(p float64) (lo, hi float64) {
	return p - lowerBand, p + upperBand
}

// Select walks the fallback chain in fixed order:
//  1. a difficulty-matched activity for the weakest skill (of weakest, in
//     ascending proficiency order) that has one,
//  2. any activity for lastSkill, the skill of the most recently completed activity,
//  3. a uniformly random activity from the whole catalog.
//
// ErrNoActivities is returned only when the catalog is empty.
func (s *Selector) Select(ctx context.Context, weakest []model.LearnerSkill, lastSkill string) (*Selection, error) {
	for _, skill := range weakest {
		lo, hi := DifficultyWindow(skill.Proficiency)
		candidates, err := s.catalog.InDifficultyRange(ctx, skill.SkillCode, lo, hi)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return &Selection{
				Activity: s.pick(candidates),
				Strategy: StrategyWeakSkill,
				Reason: fmt.Sprintf("Focus on %s (%d%% mastery). This activity matches your level.",
					skill.SkillCode, ScorePercent(skill.Proficiency)),
			}, nil
		}
	}

	if lastSkill != "" {
		candidates, err := s.catalog.BySkill(ctx, lastSkill)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return &Selection{
				Activity: s.pick(candidates),
				Strategy: StrategyRecentSkill,
				Reason:   fmt.Sprintf("Continue practicing %s", lastSkill),
			}, nil
		}
	}

	total, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrNoActivities
	}
	activity, err := s.catalog.At(ctx, s.intn(int(total)))
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrNoActivities
	}
	return &Selection{
		Activity: activity,
		Strategy: StrategyRandom,
		Reason:   "Try something new!",
	}, nil
}

// Pick 从候选中均匀随机挑选一个
func (s *Selector) Pick(candidates []model.Activity) *model.Activity {
	if len(candidates) == 0 {
		return nil
	}
	return s.pick(candidates)
}

func (s *Selector) pick(candidates []model.Activity) *model.Activity {
	a := candidates[s.intn(len(candidates))]
	return &a
}

// rand.Rand 不是并发安全的
func (s *Selector) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}
