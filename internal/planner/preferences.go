package planner

import (
	"math"

	"mealmapp/internal/recipe"
)

const (
	// DefaultMaxCalories is the daily target used when none is configured.
	DefaultMaxCalories = 2200
	// DefaultServingsPerMeal is used when neither preferences nor profile set one.
	DefaultServingsPerMeal = 4
)

// MealSlot is one configurable meal of the day.
type MealSlot struct {
	MealNumber int      `json:"meal_number"`
	MealTypes  []string `json:"meal_types"`
	Enabled    bool     `json:"enabled"`
}

// TagPreference boosts recipes carrying Tag by Percentage/100.
type TagPreference struct {
	Tag        string  `json:"tag"`
	Percentage float64 `json:"percentage"`
}

// LinkedUser is a participant of a shared menu.
type LinkedUser struct {
	ID    string  `json:"id"`
	Ratio float64 `json:"ratio"`
}

// CommonMenuSettings configures menus shared between several users.
type CommonMenuSettings struct {
	Enabled           bool            `json:"enabled"`
	LinkedUsers       []LinkedUser    `json:"linked_users"`
	LinkedUserRecipes []recipe.Recipe `json:"linked_user_recipes,omitempty"`
}

// Preferences drive a menu generation.
type Preferences struct {
	Meals              []MealSlot         `json:"meals"`
	MaxCalories        float64            `json:"max_calories"`
	WeeklyBudget       float64            `json:"weekly_budget"`
	TagPreferences     []TagPreference    `json:"tag_preferences,omitempty"`
	ServingsPerMeal    int                `json:"servings_per_meal,omitempty"`
	CommonMenuSettings CommonMenuSettings `json:"common_menu_settings"`
}

// Profile holds user-level defaults.
type Profile struct {
	UserID          string `json:"user_id"`
	DisplayName     string `json:"display_name"`
	DefaultServings int    `json:"default_servings"`
}

// DefaultPreferences returns the preferences of a user who never saved any.
func DefaultPreferences() Preferences {
	return Preferences{
		Meals: []MealSlot{
			{MealNumber: 1, MealTypes: []string{"breakfast"}, Enabled: true},
			{MealNumber: 2, MealTypes: []string{"lunch"}, Enabled: true},
			{MealNumber: 3, MealTypes: []string{"dinner"}, Enabled: true},
		},
		MaxCalories: DefaultMaxCalories,
	}
}

// EnabledMeals returns a copy of the enabled slots in configured order.
func (p Preferences) EnabledMeals() []MealSlot {
	var out []MealSlot
	for _, m := range p.Meals {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// DailyCalorieTarget returns MaxCalories, or the default when unset.
func (p Preferences) DailyCalorieTarget() float64 {
	if p.MaxCalories <= 0 || math.IsNaN(p.MaxCalories) {
		return DefaultMaxCalories
	}
	return p.MaxCalories
}

// PlannedServings resolves the servings cooked per meal.
func (p Preferences) PlannedServings(profile *Profile) int {
	if p.ServingsPerMeal > 0 {
		return p.ServingsPerMeal
	}
	if profile != nil && profile.DefaultServings > 0 {
		return profile.DefaultServings
	}
	return DefaultServingsPerMeal
}

// SharedParticipants returns the linked users when shared mode is on.
func (p Preferences) SharedParticipants() []LinkedUser {
	if !p.CommonMenuSettings.Enabled {
		return nil
	}
	return p.CommonMenuSettings.LinkedUsers
}
