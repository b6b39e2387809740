package clipper

import (
	"regexp"
	"strconv"
	"strings"

	"mealmapp/internal/recipe"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

var (
	numberPattern   = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	quantityPattern = regexp.MustCompile(`^\s*(\d+\s+\d+/\d+|\d+/\d+|\d+(?:[.,]\d+)?)\s*(.*)$`)
)

var knownUnits = map[string]string{
	"g": "g", "gram": "g", "grams": "g",
	"kg": "kg",
	"ml": "ml", "l": "l",
	"tsp": "tsp", "teaspoon": "tsp", "teaspoons": "tsp",
	"tbsp": "tbsp", "tablespoon": "tbsp", "tablespoons": "tbsp",
	"cup": "cup", "cups": "cup",
	"oz": "oz", "lb": "lb", "lbs": "lb",
	"clove": "clove", "cloves": "clove",
	"pinch": "pinch",
}

var categoryMealTypes = map[string][]string{
	"breakfast":   {"breakfast"},
	"brunch":      {"breakfast", "lunch"},
	"lunch":       {"lunch"},
	"dinner":      {"dinner"},
	"main":        {"lunch", "dinner"},
	"main course": {"lunch", "dinner"},
	"main dish":   {"lunch", "dinner"},
	"entree":      {"lunch", "dinner"},
	"supper":      {"dinner"},
	"snack":       {"snack"},
	"appetizer":   {"snack"},
	"dessert":     {"dessert"},
}

// extractJSONLD looks for a schema.org Recipe in the page's JSON-LD blocks.
func extractJSONLD(doc *goquery.Document) (recipe.Recipe, bool) {
	var found gjson.Result
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if r, ok := findRecipeNode(gjson.Parse(s.Text())); ok {
			found = r
			return false
		}
		return true
	})
	if !found.Exists() {
		return recipe.Recipe{}, false
	}
	return mapRecipe(found), true
}

func findRecipeNode(node gjson.Result) (gjson.Result, bool) {
	switch {
	case node.IsArray():
		for _, item := range node.Array() {
			if r, ok := findRecipeNode(item); ok {
				return r, true
			}
		}
	case node.IsObject():
		if isRecipeType(node.Get("@type")) {
			return node, true
		}
		if graph := node.Get("@graph"); graph.Exists() {
			return findRecipeNode(graph)
		}
	}
	return gjson.Result{}, false
}

func isRecipeType(t gjson.Result) bool {
	for _, v := range valueList(t) {
		if strings.EqualFold(v, "Recipe") {
			return true
		}
	}
	return false
}

func mapRecipe(node gjson.Result) recipe.Recipe {
	rec := recipe.Recipe{
		Name:     strings.TrimSpace(node.Get("name").String()),
		Servings: firstNumber(node.Get("recipeYield")),
		Calories: firstNumber(node.Get("nutrition.calories")),
	}

	rec.MealTypes = normalizeMealTypes(valueList(node.Get("recipeCategory")))

	for _, kw := range valueList(node.Get("keywords")) {
		for _, tag := range strings.Split(kw, ",") {
			if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
				rec.Tags = append(rec.Tags, tag)
			}
		}
	}

	for _, line := range valueList(node.Get("recipeIngredient")) {
		if ing, ok := parseIngredient(line); ok {
			rec.Ingredients = append(rec.Ingredients, ing)
		}
	}
	return rec
}

// valueList flattens a JSON-LD value that may be a string or a list.
func valueList(v gjson.Result) []string {
	if !v.Exists() {
		return nil
	}
	if v.IsArray() {
		var out []string
		v.ForEach(func(_, item gjson.Result) bool {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
			return true
		})
		return out
	}
	if s := strings.TrimSpace(v.String()); s != "" {
		return []string{s}
	}
	return nil
}

// firstNumber reads the first number out of values like "4 servings" or ["4"].
func firstNumber(v gjson.Result) float64 {
	if v.Type == gjson.Number {
		return v.Float()
	}
	for _, s := range valueList(v) {
		if m := numberPattern.FindString(s); m != "" {
			f, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
			if err == nil {
				return f
			}
		}
	}
	return 0
}

func normalizeMealTypes(categories []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range categories {
		types, ok := categoryMealTypes[strings.ToLower(strings.TrimSpace(c))]
		if !ok {
			continue
		}
		for _, t := range types {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// parseIngredient splits "200 g spaghetti" into quantity, unit and name.
func parseIngredient(line string) (recipe.Ingredient, bool) {
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return recipe.Ingredient{}, false
	}

	m := quantityPattern.FindStringSubmatch(line)
	if m == nil {
		return recipe.Ingredient{Name: line}, true
	}

	ing := recipe.Ingredient{Quantity: parseQuantity(m[1])}
	rest := m[2]
	if fields := strings.Fields(rest); len(fields) > 1 {
		if unit, ok := knownUnits[strings.ToLower(strings.TrimSuffix(fields[0], "."))]; ok {
			ing.Unit = unit
			rest = strings.Join(fields[1:], " ")
		}
	}
	ing.Name = strings.TrimSpace(rest)
	if ing.Name == "" {
		return recipe.Ingredient{Name: line}, true
	}
	return ing, true
}

func parseQuantity(s string) float64 {
	var total float64
	for _, part := range strings.Fields(s) {
		if num, den, ok := strings.Cut(part, "/"); ok {
			n, err1 := strconv.ParseFloat(num, 64)
			d, err2 := strconv.ParseFloat(den, 64)
			if err1 == nil && err2 == nil && d != 0 {
				total += n / d
			}
			continue
		}
		f, err := strconv.ParseFloat(strings.Replace(part, ",", ".", 1), 64)
		if err == nil {
			total += f
		}
	}
	return total
}
