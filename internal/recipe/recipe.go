package recipe

import (
	"errors"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
)

const (
	// LocalIDPrefix marks recipes created in this application. Such ids are
	// unique on their own and never collapse onto another recipe.
	LocalIDPrefix = "local_"

	// IDSeparator splits a shared recipe id into its base id and the
	// per-copy suffix added when a recipe is duplicated into another pool.
	IDSeparator = "_"
)

// ErrNotFound is returned when a recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

// Ingredient is a single line of a recipe's ingredient list, expressed for
// the recipe's base servings.
type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity,omitempty"`
	Unit     string  `json:"unit,omitempty"`
}

// Recipe is a dish that can be placed into a weekly menu.
type Recipe struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	MealTypes      []string     `json:"meal_types"`
	Calories       float64      `json:"calories"`
	Servings       float64      `json:"servings"`
	EstimatedPrice *float64     `json:"estimated_price,omitempty"`
	Tags           []string     `json:"tags"`
	SourceUserID   string       `json:"source_user_id,omitempty"`
	Ingredients    []Ingredient `json:"ingredients,omitempty"`
	SourceURL      string       `json:"source_url,omitempty"`
	UpdatedAt      string       `json:"updated_at,omitempty"`
}

// NewLocalID returns a fresh id for a recipe created in this application.
func NewLocalID() string {
	return LocalIDPrefix + uuid.NewString()
}

// BaseID returns the identity used to detect repeated dishes.
//
// Locally created ids are their own identity. Any other id is cut at the
// first separator, so "abc_7" and "abc_9" are the same dish.
func BaseID(id string) string {
	if strings.HasPrefix(id, LocalIDPrefix) {
		return id
	}
	if i := strings.Index(id, IDSeparator); i >= 0 {
		return id[:i]
	}
	return id
}

// BaseID returns the repetition identity of the recipe.
func (r Recipe) BaseID() string {
	return BaseID(r.ID)
}

// BaseServings returns the serving count that calories and price refer to.
// Missing or invalid values count as a single serving.
func (r Recipe) BaseServings() float64 {
	if r.Servings <= 0 || math.IsNaN(r.Servings) || math.IsInf(r.Servings, 0) {
		return 1
	}
	return r.Servings
}

// ScaledCalories returns the calories of the recipe cooked for planned servings.
func (r Recipe) ScaledCalories(planned int) float64 {
	if r.Calories <= 0 || math.IsNaN(r.Calories) {
		return 0
	}
	return r.Calories * (float64(planned) / r.BaseServings())
}

// MealCost returns the projected cost of cooking the recipe for planned
// servings. The second value is false when the recipe has no price.
func (r Recipe) MealCost(planned int) (float64, bool) {
	if r.EstimatedPrice == nil || math.IsNaN(*r.EstimatedPrice) {
		return 0, false
	}
	servings := math.Max(r.Servings, 1)
	if math.IsNaN(servings) {
		servings = 1
	}
	return *r.EstimatedPrice / servings * float64(planned), true
}

// HasAnyMealType reports whether the recipe can be served in a slot that
// accepts the given types. An empty accepted list accepts every recipe.
func (r Recipe) HasAnyMealType(accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	for _, t := range r.MealTypes {
		if slices.Contains(accepted, t) {
			return true
		}
	}
	return false
}

// HasTag reports whether the recipe carries the tag.
func (r Recipe) HasTag(tag string) bool {
	return slices.Contains(r.Tags, tag)
}

// NeedsEstimate reports whether nutrition or price data is missing.
func (r Recipe) NeedsEstimate() bool {
	return r.Calories <= 0 || r.EstimatedPrice == nil
}

// Price returns a pointer to v, for building recipes with a known price.
func Price(v float64) *float64 {
	return &v
}
