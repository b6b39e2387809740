package planner

import (
	"context"
	"fmt"
	"testing"

	"mealmapp/internal/recipe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generate(t *testing.T, seed uint64, req Request) *Result {
	t.Helper()
	res, err := NewGenerator(NewRandomSource(seed), nil).Generate(context.Background(), req)
	require.NoError(t, err)
	return res
}

func TestGenerateCoversEveryRecipeBeforeRepeating(t *testing.T) {
	recipes := coverageRecipes()
	want := make([]string, 0, len(recipes))
	for _, r := range recipes {
		want = append(want, r.ID)
	}

	for seed := uint64(1); seed <= 25; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			res := generate(t, seed, Request{UserID: "u1", Recipes: recipes, Preferences: DefaultPreferences()})

			planned := res.Grid.PlannedRecipes()
			require.Len(t, planned, 21)

			first := make([]string, 0, len(recipes))
			for _, p := range planned[:len(recipes)] {
				first = append(first, p.BaseID())
			}
			assert.ElementsMatch(t, want, first)
		})
	}
}

func TestGenerateGridShape(t *testing.T) {
	prefs := Preferences{
		Meals: []MealSlot{
			{MealNumber: 1, MealTypes: []string{"breakfast"}, Enabled: true},
			{MealNumber: 2, MealTypes: []string{"lunch"}, Enabled: false},
			{MealNumber: 3, MealTypes: []string{"dinner"}, Enabled: true},
		},
	}
	res := generate(t, 3, Request{UserID: "u1", Recipes: coverageRecipes(), Preferences: prefs})

	assert.Equal(t, 14, res.Total)
	assert.Equal(t, 14, res.Filled)
	assert.False(t, res.Partial())
	for d, day := range res.Grid.Days {
		require.Len(t, day.Slots, 2, "day %d", d)
		assert.Equal(t, 1, day.Slots[0].Recipe.MealNumber)
		assert.Equal(t, 3, day.Slots[1].Recipe.MealNumber)
		assert.Equal(t, DefaultServingsPerMeal, day.Slots[0].Recipe.PlannedServings)
	}
}

func TestGenerateMealTypeConformance(t *testing.T) {
	prefs := DefaultPreferences()
	for seed := uint64(1); seed <= 10; seed++ {
		res := generate(t, seed, Request{UserID: "u1", Recipes: coverageRecipes(), Preferences: prefs})
		for d, day := range res.Grid.Days {
			for i, slot := range day.Slots {
				require.True(t, slot.Filled())
				assert.True(t, slot.Recipe.HasAnyMealType(prefs.Meals[i].MealTypes),
					"day %d slot %d got %s", d, i, slot.Recipe.ID)
			}
		}
		assert.Zero(t, res.FallbackPicks)
	}
}

func TestGenerateFallsBackWhenTypeIsMissing(t *testing.T) {
	recipes := []recipe.Recipe{mealRecipe("b1", "breakfast", 500), mealRecipe("b2", "breakfast", 500)}
	res := generate(t, 5, Request{UserID: "u1", Recipes: recipes, Preferences: DefaultPreferences()})

	assert.Equal(t, 21, res.Filled, "unfiltered base pool fills slots without a matching type")
	assert.Zero(t, res.FallbackPicks)
	for _, day := range res.Grid.Days {
		assert.True(t, day.Slots[1].Recipe.HasAnyMealType([]string{"breakfast"}))
	}
}

func TestGenerateStaysWithinBudget(t *testing.T) {
	var recipes []recipe.Recipe
	for i, mealType := range []string{"breakfast", "breakfast", "breakfast", "lunch", "lunch", "lunch", "dinner", "dinner", "dinner"} {
		r := mealRecipe(fmt.Sprintf("r%d", i), mealType, 600)
		r.EstimatedPrice = recipe.Price(float64(5 + i%4))
		recipes = append(recipes, r)
	}
	prefs := DefaultPreferences()
	prefs.WeeklyBudget = 200

	for seed := uint64(1); seed <= 10; seed++ {
		res := generate(t, seed, Request{UserID: "u1", Recipes: recipes, Preferences: prefs})

		var spent float64
		for _, p := range res.Grid.PlannedRecipes() {
			cost, ok := p.MealCost(p.PlannedServings)
			require.True(t, ok)
			spent += cost
		}
		assert.InDelta(t, spent, res.BudgetSpent, 1e-9)
		assert.LessOrEqual(t, res.BudgetSpent, prefs.WeeklyBudget)
	}
}

func TestGenerateUnknownPriceIsSelectable(t *testing.T) {
	priced := mealRecipe("p1", "dinner", 700)
	priced.EstimatedPrice = recipe.Price(40)
	unpriced := mealRecipe("u1", "dinner", 700)
	prefs := Preferences{
		Meals:        []MealSlot{{MealNumber: 1, MealTypes: []string{"dinner"}, Enabled: true}},
		MaxCalories:  700,
		WeeklyBudget: 50,
	}

	res := generate(t, 11, Request{UserID: "user", Recipes: []recipe.Recipe{priced, unpriced}, Preferences: prefs})

	ids := map[string]int{}
	for _, p := range res.Grid.PlannedRecipes() {
		ids[p.ID]++
	}
	assert.Positive(t, ids["u1"])
	assert.Equal(t, 7, res.Filled)
	assert.InDelta(t, float64(ids["p1"])*40, res.BudgetSpent, 1e-9)
}

func TestGenerateScoring(t *testing.T) {
	single := func(mealType string) Preferences {
		return Preferences{Meals: []MealSlot{{MealNumber: 1, MealTypes: []string{mealType}, Enabled: true}}}
	}

	t.Run("TagPreferenceWins", func(t *testing.T) {
		plain := mealRecipe("plain", "dinner", 2200)
		vegan := mealRecipe("vegan", "dinner", 2200)
		vegan.Tags = []string{"vegan"}
		prefs := single("dinner")
		prefs.TagPreferences = []TagPreference{{Tag: "vegan", Percentage: 100}}

		for seed := uint64(1); seed <= 10; seed++ {
			res := generate(t, seed, Request{UserID: "u", Recipes: []recipe.Recipe{plain, vegan}, Preferences: prefs})
			assert.Equal(t, "vegan", res.Grid.Days[0].Slots[0].Recipe.ID)
		}
	})

	t.Run("CalorieFitWins", func(t *testing.T) {
		light := mealRecipe("light", "dinner", 200)
		fit := mealRecipe("fit", "dinner", 2200)

		for seed := uint64(1); seed <= 10; seed++ {
			res := generate(t, seed, Request{UserID: "u", Recipes: []recipe.Recipe{light, fit}, Preferences: single("dinner")})
			assert.Equal(t, "fit", res.Grid.Days[0].Slots[0].Recipe.ID)
			assert.Equal(t, "light", res.Grid.Days[1].Slots[0].Recipe.ID, "unused recipes are preferred over repeats")
		}
	})
}

func TestGenerateSharedMenu(t *testing.T) {
	var own, linked []recipe.Recipe
	for i := 0; i < 6; i++ {
		r := mealRecipe(fmt.Sprintf("own%d", i), "dinner", 700)
		own = append(own, r)
		l := mealRecipe(fmt.Sprintf("partner%d_copy", i), "dinner", 700)
		l.SourceUserID = "partner"
		linked = append(linked, l)
	}
	prefs := Preferences{
		Meals: []MealSlot{{MealNumber: 1, MealTypes: []string{"dinner"}, Enabled: true}},
		CommonMenuSettings: CommonMenuSettings{
			Enabled:           true,
			LinkedUsers:       []LinkedUser{{ID: "me", Ratio: 1}, {ID: "partner", Ratio: 1}},
			LinkedUserRecipes: linked,
		},
	}

	t.Run("PoolsBothParticipants", func(t *testing.T) {
		res := generate(t, 9, Request{UserID: "me", Recipes: own, Preferences: prefs})
		require.True(t, res.Shared)
		assert.Equal(t, 7, res.Filled)

		owners := map[string]int{}
		for _, p := range res.Grid.PlannedRecipes() {
			owners[p.SourceUserID]++
		}
		assert.Positive(t, owners["me"])
		assert.Positive(t, owners["partner"])
	})

	t.Run("LinkedRecipesIgnoredWhenDisabled", func(t *testing.T) {
		off := prefs
		off.CommonMenuSettings.Enabled = false
		res := generate(t, 9, Request{UserID: "me", Recipes: own, Preferences: off})
		assert.False(t, res.Shared)
		for _, p := range res.Grid.PlannedRecipes() {
			assert.Equal(t, "me", p.SourceUserID)
		}
	})

	t.Run("LinkedRecipesAloneAreEnough", func(t *testing.T) {
		res := generate(t, 9, Request{UserID: "me", Preferences: prefs})
		assert.Equal(t, 7, res.Filled)
	})
}

func TestGenerateIsReproducible(t *testing.T) {
	req := Request{UserID: "u1", Recipes: coverageRecipes(), Preferences: DefaultPreferences()}
	a := generate(t, 42, req)
	b := generate(t, 42, req)

	ids := func(r *Result) []string {
		var out []string
		for _, p := range r.Grid.PlannedRecipes() {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, ids(a), ids(b))
}

func TestGenerateErrors(t *testing.T) {
	gen := NewGenerator(NewRandomSource(1), nil)

	t.Run("NoRecipes", func(t *testing.T) {
		_, err := gen.Generate(context.Background(), Request{UserID: "u1", Preferences: DefaultPreferences()})
		assert.ErrorIs(t, err, ErrNoRecipes)
	})

	t.Run("NoEnabledMeals", func(t *testing.T) {
		prefs := DefaultPreferences()
		for i := range prefs.Meals {
			prefs.Meals[i].Enabled = false
		}
		_, err := gen.Generate(context.Background(), Request{UserID: "u1", Recipes: coverageRecipes(), Preferences: prefs})
		assert.ErrorIs(t, err, ErrNoEnabledMeals)

		_, err = gen.Generate(context.Background(), Request{UserID: "u1", Preferences: prefs})
		assert.ErrorIs(t, err, ErrNoRecipes, "an empty pool is reported first")
	})
}

func TestBuildPoolDeduplicatesAndAssignsOwner(t *testing.T) {
	prefs := DefaultPreferences()
	prefs.CommonMenuSettings = CommonMenuSettings{
		Enabled:           true,
		LinkedUserRecipes: []recipe.Recipe{{ID: "a", SourceUserID: "other"}, {ID: "c", SourceUserID: "other"}, {ID: "d"}},
	}
	pool := buildPool(Request{
		UserID:      "me",
		Recipes:     []recipe.Recipe{{ID: "a"}, {ID: "b"}, {ID: "a"}},
		Preferences: prefs,
	})

	var ids, owners []string
	for _, r := range pool {
		ids = append(ids, r.ID)
		owners = append(owners, r.SourceUserID)
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids)
	assert.Equal(t, []string{"me", "me", "other", "me"}, owners)
}
