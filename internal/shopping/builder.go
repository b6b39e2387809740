package shopping

import (
	"math"
	"slices"
	"sort"
	"strings"

	"mealmapp/internal/planner"
)

type itemKey struct {
	name string
	unit string
}

// Build aggregates the ingredients of every planned recipe in grid. Each
// quantity is scaled from the recipe's base servings to the planned servings.
// Lines sharing a name and unit are merged. Items are sorted by name.
func Build(grid planner.WeeklyMenu) []Item {
	index := make(map[itemKey]int)
	var items []Item

	for _, p := range grid.PlannedRecipes() {
		factor := float64(p.PlannedServings) / p.BaseServings()
		for _, ing := range p.Ingredients {
			name := strings.TrimSpace(ing.Name)
			if name == "" {
				continue
			}
			key := itemKey{name: strings.ToLower(name), unit: strings.ToLower(strings.TrimSpace(ing.Unit))}

			i, ok := index[key]
			if !ok {
				i = len(items)
				index[key] = i
				items = append(items, Item{Name: name, Unit: strings.TrimSpace(ing.Unit)})
			}
			if ing.Quantity > 0 {
				items[i].Quantity += ing.Quantity * factor
			}
			if !slices.Contains(items[i].Recipes, p.Name) {
				items[i].Recipes = append(items[i].Recipes, p.Name)
			}
		}
	}

	for i := range items {
		items[i].Quantity = math.Round(items[i].Quantity*100) / 100
	}
	sort.SliceStable(items, func(a, b int) bool {
		na, nb := strings.ToLower(items[a].Name), strings.ToLower(items[b].Name)
		if na != nb {
			return na < nb
		}
		return items[a].Unit < items[b].Unit
	})
	return items
}
