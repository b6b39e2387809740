package planner

import (
	"time"

	"mealmapp/internal/recipe"
)

// DaysPerWeek is the number of days in every menu grid.
const DaysPerWeek = 7

// PlannedRecipe is a recipe placed into a slot.
type PlannedRecipe struct {
	recipe.Recipe
	MealNumber      int `json:"meal_number"`
	PlannedServings int `json:"planned_servings"`
}

// Slot holds zero or one planned recipe.
type Slot struct {
	Recipe *PlannedRecipe `json:"recipe"`
}

// Filled reports whether the slot received a recipe.
func (s Slot) Filled() bool {
	return s.Recipe != nil
}

// Day is one day of the week with one slot per enabled meal.
type Day struct {
	Slots []Slot `json:"slots"`
}

// WeeklyMenu is the generated grid: always DaysPerWeek days.
type WeeklyMenu struct {
	Days [DaysPerWeek]Day `json:"days"`
}

// newWeeklyMenu returns a grid with mealsPerDay empty slots per day.
func newWeeklyMenu(mealsPerDay int) WeeklyMenu {
	var w WeeklyMenu
	for d := range w.Days {
		w.Days[d].Slots = make([]Slot, mealsPerDay)
	}
	return w
}

// FilledCount returns the number of slots holding a recipe.
func (w WeeklyMenu) FilledCount() int {
	n := 0
	for _, d := range w.Days {
		for _, s := range d.Slots {
			if s.Filled() {
				n++
			}
		}
	}
	return n
}

// PlannedRecipes returns every placed recipe in day and slot order.
func (w WeeklyMenu) PlannedRecipes() []PlannedRecipe {
	var out []PlannedRecipe
	for _, d := range w.Days {
		for _, s := range d.Slots {
			if s.Filled() {
				out = append(out, *s.Recipe)
			}
		}
	}
	return out
}

// Menu is a persisted weekly menu.
type Menu struct {
	ID        int64      `json:"id"`
	UserID    string     `json:"user_id"`
	WeekStart time.Time  `json:"week_start"`
	Grid      WeeklyMenu `json:"grid"`
	CreatedAt time.Time  `json:"created_at"`
}

// NextMonday returns midnight of the Monday following t, in t's location.
// A Monday maps to the Monday one week later.
func NextMonday(t time.Time) time.Time {
	days := (int(time.Monday) - int(t.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := t.AddDate(0, 0, days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
