package planner

import (
	"math"
	"testing"

	"mealmapp/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constSource always returns the same draw, which removes jitter from scores.
type constSource struct {
	f float64
}

func (c constSource) Float64() float64 { return c.f }
func (c constSource) IntN(int) int      { return 0 }

// newTestScorer scores a 500 kcal single-serving slot with no budget.
func newTestScorer() *scorer {
	return &scorer{
		rng:           constSource{},
		state:         newSchedulerState(),
		dailyTarget:   1500,
		targetPerSlot: 500,
		planned:       1,
	}
}

func dish(id, owner string) *recipe.Recipe {
	return &recipe.Recipe{ID: id, Name: id, MealTypes: []string{"dinner"}, Calories: 500, Servings: 1, SourceUserID: owner}
}

func TestScorerScore(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *scorer, r *recipe.Recipe)
		want  float64
	}{
		{
			name:  "Baseline",
			setup: func(s *scorer, r *recipe.Recipe) {},
			want:  2,
		},
		{
			name:  "JitterAddsUpToAFifth",
			setup: func(s *scorer, r *recipe.Recipe) { s.rng = constSource{f: 1} },
			want:  2.2,
		},
		{
			name:  "RepeatsArePenalized",
			setup: func(s *scorer, r *recipe.Recipe) { s.state.usage[r.BaseID()] = 2 },
			want:  1.5,
		},
		{
			name:  "CalorieDistance",
			setup: func(s *scorer, r *recipe.Recipe) { s.targetPerSlot = 400 },
			want:  1.5,
		},
		{
			name: "TagPreference",
			setup: func(s *scorer, r *recipe.Recipe) {
				r.Tags = []string{"vegan"}
				s.tagPreferences = []TagPreference{{Tag: "vegan", Percentage: 50}, {Tag: "quick", Percentage: 80}}
			},
			want: 2.5,
		},
		{
			name: "DailyOverage",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.dailyTarget = 1000
				s.state.dailyCalories = 800
			},
			want: 1.4,
		},
		{
			name: "DailyOverageIgnoredOnFirstSlot",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.dailyTarget = 1000
				s.state.dailyCalories = 800
				s.firstSlot = true
			},
			want: 2,
		},
		{
			name: "OverRemainingBudget",
			setup: func(s *scorer, r *recipe.Recipe) {
				r.EstimatedPrice = recipe.Price(10)
				s.weeklyBudget = 100
				s.avgPerSlot = 10
				s.state.weeklySpend = 95
			},
			want: 1,
		},
		{
			name: "CheaperThanAverage",
			setup: func(s *scorer, r *recipe.Recipe) {
				r.EstimatedPrice = recipe.Price(4)
				s.weeklyBudget = 100
				s.avgPerSlot = 10
			},
			want: 3.2,
		},
		{
			name: "UnpricedIgnoresBudget",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.weeklyBudget = 100
				s.avgPerSlot = 10
				s.state.weeklySpend = 99
			},
			want: 2,
		},
		{
			name: "RatioShare",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.ratios = map[string]float64{"me": 1, "partner": 3}
				s.ratioSum = 4
				s.linkedCount = 2
			},
			want: 3.5,
		},
		{
			name: "SoleParticipantWithoutRatio",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.ratios = map[string]float64{"partner": 0}
				s.linkedCount = 1
			},
			want: 3,
		},
		{
			name: "ZeroRatiosLeaveScore",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.ratios = map[string]float64{"me": 0, "partner": 0}
				s.linkedCount = 2
			},
			want: 2,
		},
		{
			name: "OwnerOutsideParticipants",
			setup: func(s *scorer, r *recipe.Recipe) {
				s.ratios = map[string]float64{"me": 1}
				s.ratioSum = 1
				s.linkedCount = 1
			},
			want: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScorer()
			r := dish("stew", "partner")
			tt.setup(s, r)
			assert.InDelta(t, tt.want, s.score(r), 1e-9)
		})
	}
}

func TestScorerBest(t *testing.T) {
	t.Run("TiesKeepFirst", func(t *testing.T) {
		a, b := dish("a", "u"), dish("b", "u")
		assert.Same(t, a, newTestScorer().best([]*recipe.Recipe{a, b}))
	})

	t.Run("SkipsUnusableScores", func(t *testing.T) {
		s := newTestScorer()
		s.tagPreferences = []TagPreference{{Tag: "odd", Percentage: math.NaN()}}
		odd, plain := dish("odd", "u"), dish("plain", "u")
		odd.Tags = []string{"odd"}

		assert.Same(t, plain, s.best([]*recipe.Recipe{odd, plain}))
		assert.Nil(t, s.best([]*recipe.Recipe{odd}))
		assert.Nil(t, s.best(nil))
	})
}

func TestGenerateNoveltyStages(t *testing.T) {
	dinner := MealSlot{MealNumber: 1, MealTypes: []string{"dinner"}, Enabled: true}
	stew := mealRecipe("stew", "dinner", 600)
	oats := mealRecipe("oats", "breakfast", 400)

	tests := []struct {
		name    string
		recipes []recipe.Recipe
		meals   []MealSlot
		want    [stageCount]int
	}{
		// The owner has used every recipe they own, so caps are waived.
		{"ExhaustedOwnerStaysFresh", []recipe.Recipe{stew}, []MealSlot{dinner}, [stageCount]int{7, 0, 0}},
		// An unused breakfast keeps the owner from being exhausted.
		{"CapRelaxesToNotToday", []recipe.Recipe{stew, oats}, []MealSlot{dinner}, [stageCount]int{3, 4, 0}},
		{"SameDayRepeatIsLastResort", []recipe.Recipe{stew, oats}, []MealSlot{dinner, {MealNumber: 2, MealTypes: []string{"dinner"}, Enabled: true}}, [stageCount]int{2, 5, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := generate(t, 1, Request{UserID: "u1", Recipes: tt.recipes, Preferences: Preferences{Meals: tt.meals}})
			assert.Equal(t, tt.want, res.StageCounts)
			assert.Equal(t, res.Total, res.Filled)
			assert.Zero(t, res.FallbackPicks)
			for _, p := range res.Grid.PlannedRecipes() {
				assert.Equal(t, "stew", p.ID)
			}
		})
	}
}

func TestRunExhausted(t *testing.T) {
	prefs := Preferences{Meals: []MealSlot{{MealNumber: 1, MealTypes: []string{"dinner"}, Enabled: true}}}
	mine, theirs, copyOfMine := dish("soup", "me"), dish("pie", "other"), dish("soup_2", "me")
	r := newRun(constSource{}, Request{UserID: "me", Preferences: prefs}, prefs.Meals, []*recipe.Recipe{mine, theirs, copyOfMine})

	assert.False(t, r.exhausted(mine))
	r.commit(0, 0, prefs.Meals[0], mine, StageFresh)
	assert.True(t, r.exhausted(mine), "copies share a base id")
	assert.True(t, r.exhausted(copyOfMine))
	assert.False(t, r.exhausted(theirs))
}

func TestRunCommitReinsertion(t *testing.T) {
	tests := []struct {
		name     string
		prior    int
		stage    int
		wantBack bool
	}{
		{"FirstUseLeavesPool", 0, StageFresh, false},
		{"SecondUseReturns", 1, StageFresh, true},
		{"UseAtCapReturns", usageCap - 1, StageFresh, true},
		{"PastCapFreshStaysOut", usageCap, StageFresh, false},
		{"PastCapNotTodayReturns", usageCap, StageNotToday, true},
		{"PastCapAnyReturns", usageCap, StageAny, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := Preferences{Meals: []MealSlot{{MealNumber: 1, MealTypes: []string{"dinner"}, Enabled: true}}}
			a, b := dish("a", "u"), dish("b", "u")
			r := newRun(constSource{}, Request{UserID: "u", Preferences: prefs}, prefs.Meals, []*recipe.Recipe{a, b})
			r.rolling = []*recipe.Recipe{a, b}
			r.state.usage[a.BaseID()] = tt.prior

			r.commit(0, 0, prefs.Meals[0], a, tt.stage)

			require.True(t, r.grid.Days[0].Slots[0].Filled())
			assert.Equal(t, tt.prior+1, r.state.timesUsed(a))
			if tt.wantBack {
				require.Len(t, r.rolling, 2)
				assert.Same(t, b, r.rolling[0])
				assert.Same(t, a, r.rolling[1], "re-inserted at the back")
			} else {
				require.Len(t, r.rolling, 1)
				assert.Same(t, b, r.rolling[0])
			}
		})
	}
}
