package planner

import (
	"math"

	"mealmapp/internal/recipe"
)

const (
	usageCap             = 3
	jitter               = 0.2
	repeatPenalty        = 0.5
	calorieTolerance     = 100.0
	dailyOverageMargin   = 200.0
	dailyOverageFactor   = 0.7
	overBudgetFactor     = 0.5
	soleParticipantBoost = 1.5
)

// scorer ranks candidates for one slot.
type scorer struct {
	rng            RandomSource
	state          *schedulerState
	dailyTarget    float64
	targetPerSlot  float64
	planned        int
	firstSlot      bool
	weeklyBudget   float64
	avgPerSlot     float64
	tagPreferences []TagPreference
	ratios         map[string]float64
	ratioSum       float64
	linkedCount    int
}

func (s *scorer) score(r *recipe.Recipe) float64 {
	score := (1 + s.rng.Float64()*jitter) / (1 + repeatPenalty*float64(s.state.timesUsed(r)))

	calories := r.ScaledCalories(s.planned)
	score += 1 / (1 + math.Abs(calories-s.targetPerSlot)/calorieTolerance)

	for _, tp := range s.tagPreferences {
		if r.HasTag(tp.Tag) {
			score += tp.Percentage / 100
		}
	}

	if !s.firstSlot && s.state.dailyCalories+calories > s.dailyTarget+dailyOverageMargin {
		score *= dailyOverageFactor
	}

	if s.weeklyBudget > 0 {
		if cost, ok := r.MealCost(s.planned); ok {
			if cost > s.weeklyBudget-s.state.weeklySpend {
				score *= overBudgetFactor
			} else if s.avgPerSlot > 0 {
				score *= 1 + math.Max(0, s.avgPerSlot-cost)/s.avgPerSlot
			}
		}
	}

	if ratio, ok := s.ratios[r.SourceUserID]; ok {
		switch {
		case s.ratioSum > 0:
			score *= 1 + ratio/s.ratioSum
		case s.linkedCount == 1:
			score *= soleParticipantBoost
		}
	}
	return score
}

// best returns the highest scoring candidate. Ties keep the first seen.
// It returns nil when no candidate has a usable score.
func (s *scorer) best(cands []*recipe.Recipe) *recipe.Recipe {
	var winner *recipe.Recipe
	bestScore := math.Inf(-1)
	for _, r := range cands {
		sc := s.score(r)
		if math.IsNaN(sc) {
			continue
		}
		if winner == nil || sc > bestScore {
			winner, bestScore = r, sc
		}
	}
	return winner
}
