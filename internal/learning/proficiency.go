// Package learning holds the adaptive learning rules: the proficiency update,
// mastery classification and next-activity selection. Everything here is pure
// apart from the Catalog lookups done by the Selector.
package learning

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Alpha is the learning rate of the proficiency update.
	Alpha = 0.3
	// DefaultProficiency seeds a skill the learner has never been graded on.
	DefaultProficiency = 0.5
)

var ErrInvalidInput = errors.New("learning: input outside [0,1]")

// UpdateProficiency moves current toward the learner's observed performance on
// an item: beating the item's difficulty raises the estimate, falling short of
// it lowers it. The result is clamped to [0,1].
func UpdateProficiency(current, score, difficulty float64) (float64, error) {
	if err := checkUnit("current proficiency", current); err != nil {
		return 0, err
	}
	if err := checkUnit("score", score); err != nil {
		return 0, err
	}
	if err := checkUnit("difficulty", difficulty); err != nil {
		return 0, err
	}

	signal := score - difficulty
	return Clamp01(current + Alpha*signal), nil
}

// Clamp01 restricts v to [0,1].
func Clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func checkUnit(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s=%v", ErrInvalidInput, name, v)
	}
	return nil
}
