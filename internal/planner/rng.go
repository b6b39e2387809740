package planner

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource is the randomness consumed by the scheduler. *rand.Rand
// satisfies it.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// NewRandomSource returns a PCG-backed source. A zero seed picks one from the
// clock, any other value makes runs reproducible.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// lockedSource serializes access to a source shared by concurrent runs.
type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
