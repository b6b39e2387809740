package planner

import "mealmapp/internal/recipe"

// candidateSource produces one relaxation level of the candidate set.
type candidateSource func() []*recipe.Recipe

// firstNonEmpty evaluates sources in order and returns the first non-empty
// result with its position. It returns (nil, -1) when every source is empty.
func firstNonEmpty(sources ...candidateSource) ([]*recipe.Recipe, int) {
	for i, src := range sources {
		if out := src(); len(out) > 0 {
			return out, i
		}
	}
	return nil, -1
}

// keep returns the recipes of pool matching pred, preserving order.
func keep(pool []*recipe.Recipe, pred func(*recipe.Recipe) bool) []*recipe.Recipe {
	var out []*recipe.Recipe
	for _, r := range pool {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// from adapts a filtered view of pool into a candidateSource.
func from(pool []*recipe.Recipe, pred func(*recipe.Recipe) bool) candidateSource {
	return func() []*recipe.Recipe { return keep(pool, pred) }
}

// narrow keeps the recipes matching pred when at least one does, and the
// whole set otherwise.
func narrow(cands []*recipe.Recipe, pred func(*recipe.Recipe) bool) []*recipe.Recipe {
	out, _ := firstNonEmpty(from(cands, pred), func() []*recipe.Recipe { return cands })
	return out
}

func all(*recipe.Recipe) bool { return true }

func ofType(types []string) func(*recipe.Recipe) bool {
	return func(r *recipe.Recipe) bool { return r.HasAnyMealType(types) }
}

func ownedBy(owner string) func(*recipe.Recipe) bool {
	return func(r *recipe.Recipe) bool { return r.SourceUserID == owner }
}

func both(a, b func(*recipe.Recipe) bool) func(*recipe.Recipe) bool {
	return func(r *recipe.Recipe) bool { return a(r) && b(r) }
}

// removeInstance drops the exact pointer from pool.
func removeInstance(pool []*recipe.Recipe, r *recipe.Recipe) []*recipe.Recipe {
	for i, p := range pool {
		if p == r {
			return append(pool[:i], pool[i+1:]...)
		}
	}
	return pool
}
