package planner

// Shuffle returns a uniformly permuted copy of items. The input is left untouched.
func Shuffle[T any](rng RandomSource, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
