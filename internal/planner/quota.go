package planner

import (
	"math"
	"sort"
)

// ComputeQuotas splits totalSlots across participants in proportion to their
// ratios using largest-remainder apportionment. The result always sums to
// totalSlots. A zero ratio sum falls back to equal weights.
func ComputeQuotas(participants []LinkedUser, totalSlots int) []int {
	n := len(participants)
	if n == 0 || totalSlots <= 0 {
		return make([]int, n)
	}

	var sum float64
	for _, p := range participants {
		sum += ratioOf(p)
	}

	quotas := make([]int, n)
	remainders := make([]float64, n)
	assigned := 0
	for i, p := range participants {
		weight := 1 / float64(n)
		if sum > 0 {
			weight = ratioOf(p) / sum
		}
		exact := weight * float64(totalSlots)
		floor := math.Floor(exact)
		quotas[i] = int(floor)
		remainders[i] = exact - floor
		assigned += quotas[i]
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for k := 0; assigned < totalSlots; k++ {
		quotas[order[k%n]]++
		assigned++
	}
	return quotas
}

// BuildSchedule lays out one preferred participant id per slot. Each pick is
// random among participants with remaining quota, avoiding the previous
// slot's participant unless nobody else has quota left.
func BuildSchedule(rng RandomSource, participants []LinkedUser, totalSlots int) []string {
	if len(participants) == 0 || totalSlots <= 0 {
		return nil
	}

	remaining := ComputeQuotas(participants, totalSlots)
	schedule := make([]string, 0, totalSlots)
	prev := -1
	for len(schedule) < totalSlots {
		var fresh, open []int
		for i, q := range remaining {
			if q <= 0 {
				continue
			}
			open = append(open, i)
			if i != prev {
				fresh = append(fresh, i)
			}
		}
		if len(open) == 0 {
			break
		}
		pool := fresh
		if len(pool) == 0 {
			pool = open
		}
		pick := pool[rng.IntN(len(pool))]
		remaining[pick]--
		schedule = append(schedule, participants[pick].ID)
		prev = pick
	}
	return schedule
}

func ratioOf(p LinkedUser) float64 {
	if p.Ratio <= 0 || math.IsNaN(p.Ratio) || math.IsInf(p.Ratio, 0) {
		return 0
	}
	return p.Ratio
}
