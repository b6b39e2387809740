package planner

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"mealmapp/internal/database"
	"mealmapp/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.SQL
}

func TestPreferencesRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPreferencesRepository(newTestDB(t), 2)

	t.Run("DefaultsWhenMissing", func(t *testing.T) {
		prefs, err := repo.GetPreferences(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, DefaultPreferences(), prefs)

		profile, err := repo.GetProfile(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, 2, profile.DefaultServings)
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		prefs := DefaultPreferences()
		prefs.WeeklyBudget = 120
		prefs.TagPreferences = []TagPreference{{Tag: "quick", Percentage: 50}}
		prefs.CommonMenuSettings = CommonMenuSettings{
			Enabled:           true,
			LinkedUsers:       []LinkedUser{{ID: "partner", Ratio: 2}},
			LinkedUserRecipes: []recipe.Recipe{{ID: "x"}},
		}
		require.NoError(t, repo.SavePreferences(ctx, "u1", prefs))

		got, err := repo.GetPreferences(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 120.0, got.WeeklyBudget)
		assert.Equal(t, prefs.TagPreferences, got.TagPreferences)
		assert.Equal(t, prefs.CommonMenuSettings.LinkedUsers, got.CommonMenuSettings.LinkedUsers)
		assert.Empty(t, got.CommonMenuSettings.LinkedUserRecipes)

		prefs.WeeklyBudget = 80
		require.NoError(t, repo.SavePreferences(ctx, "u1", prefs))
		got, err = repo.GetPreferences(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 80.0, got.WeeklyBudget)
	})

	t.Run("Profile", func(t *testing.T) {
		require.NoError(t, repo.SaveProfile(ctx, Profile{UserID: "u1", DisplayName: "Sam", DefaultServings: 3}))
		p, err := repo.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, &Profile{UserID: "u1", DisplayName: "Sam", DefaultServings: 3}, p)
	})
}

func TestMenuRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMenuRepository(newTestDB(t))
	week := time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

	_, err := repo.Latest(ctx, "u1")
	assert.ErrorIs(t, err, ErrMenuNotFound)

	res := generate(t, 1, Request{UserID: "u1", Recipes: coverageRecipes(), Preferences: DefaultPreferences()})
	firstID, err := repo.Save(ctx, "u1", week, res.Grid)
	require.NoError(t, err)
	secondID, err := repo.Save(ctx, "u1", week.AddDate(0, 0, 7), res.Grid)
	require.NoError(t, err)
	assert.Greater(t, secondID, firstID)

	latest, err := repo.Latest(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, secondID, latest.ID)
	assert.Equal(t, week.AddDate(0, 0, 7), latest.WeekStart)
	assert.Equal(t, 21, latest.Grid.FilledCount())
	assert.Equal(t, res.Grid.Days[0].Slots[0].Recipe.ID, latest.Grid.Days[0].Slots[0].Recipe.ID)

	recent, err := repo.ListRecent(ctx, "u1", 5)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	exists, err := repo.ExistsForWeek(ctx, "u1", week)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsForWeek(ctx, "u2", week)
	require.NoError(t, err)
	assert.False(t, exists)
}
