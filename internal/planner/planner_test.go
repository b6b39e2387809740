package planner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mealmapp/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

type stubGenerator struct {
	res     *Result
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubGenerator) Generate(ctx context.Context, _ Request) (*Result, error) {
	if s.started != nil {
		close(s.started)
		<-s.release
	}
	return s.res, s.err
}

func TestPlannerRun(t *testing.T) {
	ctx := context.Background()

	t.Run("SuccessCallsSetterOnce", func(t *testing.T) {
		p := NewPlanner(NewGenerator(NewRandomSource(7), nil), nil)
		notifier := &recordingNotifier{}
		calls := 0

		res, err := p.Run(ctx, "u1", Request{
			UserID:      "u1",
			Recipes:     coverageRecipes(),
			Preferences: DefaultPreferences(),
		}, func(_ context.Context, r *Result) error {
			calls++
			assert.Equal(t, 21, r.Filled)
			return nil
		}, notifier)

		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 21, res.Total)
		notices := notifier.all()
		require.Len(t, notices, 1)
		assert.Equal(t, NoticeSuccess, notices[0].Kind)
	})

	t.Run("NoRecipesDoesNotCommit", func(t *testing.T) {
		p := NewPlanner(NewGenerator(NewRandomSource(7), nil), nil)
		notifier := &recordingNotifier{}
		called := false

		res, err := p.Run(ctx, "u1", Request{UserID: "u1", Preferences: DefaultPreferences()},
			func(context.Context, *Result) error {
				called = true
				return nil
			}, notifier)

		assert.ErrorIs(t, err, ErrNoRecipes)
		assert.Nil(t, res)
		assert.False(t, called)
		notices := notifier.all()
		require.Len(t, notices, 1)
		assert.Equal(t, NoticeError, notices[0].Kind)
		assert.Contains(t, notices[0].Message, "No recipes available")
	})

	t.Run("PartialFillStillCommits", func(t *testing.T) {
		stub := &stubGenerator{res: &Result{Grid: newWeeklyMenu(3), Filled: 15, Total: 21}}
		p := NewPlanner(stub, nil)
		notifier := &recordingNotifier{}
		called := false

		_, err := p.Run(ctx, "u1", Request{}, func(context.Context, *Result) error {
			called = true
			return nil
		}, notifier)

		require.NoError(t, err)
		assert.True(t, called)
		notices := notifier.all()
		require.Len(t, notices, 1)
		assert.Equal(t, NoticePartial, notices[0].Kind)
		assert.Equal(t, 15, notices[0].Filled)
		assert.Equal(t, 21, notices[0].Total)
	})

	t.Run("SetterErrorIsReported", func(t *testing.T) {
		stub := &stubGenerator{res: &Result{Filled: 21, Total: 21}}
		p := NewPlanner(stub, nil)
		notifier := &recordingNotifier{}
		boom := errors.New("disk full")

		_, err := p.Run(ctx, "u1", Request{}, func(context.Context, *Result) error { return boom }, notifier)

		assert.ErrorIs(t, err, boom)
		require.Len(t, notifier.all(), 1)
		assert.Equal(t, NoticeError, notifier.all()[0].Kind)
	})

	t.Run("RejectsConcurrentRunForSameKey", func(t *testing.T) {
		stub := &stubGenerator{
			res:     &Result{Filled: 21, Total: 21},
			started: make(chan struct{}),
			release: make(chan struct{}),
		}
		p := NewPlanner(stub, nil)

		done := make(chan error, 1)
		go func() {
			_, err := p.Run(ctx, "u1", Request{}, nil, nil)
			done <- err
		}()
		<-stub.started

		_, err := p.Run(ctx, "u1", Request{}, nil, nil)
		assert.ErrorIs(t, err, ErrGenerationInProgress)

		close(stub.release)
		require.NoError(t, <-done)

		// The guard is released once the first run finishes.
		stub.started = nil
		_, err = p.Run(ctx, "u1", Request{}, nil, nil)
		assert.NoError(t, err)
	})

	t.Run("CancelledContextDoesNotCommit", func(t *testing.T) {
		p := NewPlanner(NewGenerator(NewRandomSource(7), nil), nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		called := false

		_, err := p.Run(cctx, "u1", Request{UserID: "u1", Recipes: coverageRecipes(), Preferences: DefaultPreferences()},
			func(context.Context, *Result) error {
				called = true
				return nil
			}, nil)

		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})
}

func TestNextMonday(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"Wednesday", time.Date(2026, 3, 11, 15, 4, 0, 0, time.UTC), time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)},
		{"Monday", time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC), time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC)},
		{"Sunday", time.Date(2026, 3, 22, 23, 59, 0, 0, time.UTC), time.Date(2026, 3, 23, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextMonday(tt.in))
		})
	}
}

func TestPreferencesDefaults(t *testing.T) {
	prefs := Preferences{}
	assert.Equal(t, float64(DefaultMaxCalories), prefs.DailyCalorieTarget())
	assert.Equal(t, DefaultServingsPerMeal, prefs.PlannedServings(nil))
	assert.Equal(t, 2, prefs.PlannedServings(&Profile{DefaultServings: 2}))

	prefs.ServingsPerMeal = 3
	assert.Equal(t, 3, prefs.PlannedServings(&Profile{DefaultServings: 2}))

	prefs.CommonMenuSettings = CommonMenuSettings{LinkedUsers: []LinkedUser{{ID: "a"}}}
	assert.Nil(t, prefs.SharedParticipants(), "linked users only count when shared mode is on")
}

func mealRecipe(id, mealType string, calories float64) recipe.Recipe {
	return recipe.Recipe{ID: id, Name: id, MealTypes: []string{mealType}, Calories: calories, Servings: 4}
}

// coverageRecipes returns 10 recipes split 4/3/3 over breakfast, lunch and dinner.
func coverageRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		mealRecipe("b1", "breakfast", 400), mealRecipe("b2", "breakfast", 500),
		mealRecipe("b3", "breakfast", 600), mealRecipe("b4", "breakfast", 700),
		mealRecipe("l1", "lunch", 700), mealRecipe("l2", "lunch", 800), mealRecipe("l3", "lunch", 900),
		mealRecipe("d1", "dinner", 600), mealRecipe("d2", "dinner", 750), mealRecipe("d3", "dinner", 800),
	}
}
