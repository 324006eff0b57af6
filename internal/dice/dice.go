// Package dice provides the weighted random gate used by every probabilistic
// game rule. All randomness flows through a Roller so tests can fix the source.
package dice

import (
	"math/rand"
	"sync"
	"time"
)

// Source is the random source behind a Roller
type Source interface {
	Intn(n int) int
	Float64() float64
}

// Roller handles dice rolling for the game
type Roller struct {
	mu  sync.Mutex
	src Source
}

// NewRoller creates a new roller with a time-seeded random number generator
func NewRoller() *Roller {
	return NewSeededRoller(time.Now().UnixNano())
}

// NewSeededRoller creates a roller whose sequence is fully determined by seed
func NewSeededRoller(seed int64) *Roller {
	return &Roller{src: rand.New(rand.NewSource(seed))}
}

// NewRollerFromSource wraps an arbitrary source
func NewRollerFromSource(src Source) *Roller {
	return &Roller{src: src}
}

// Roll rolls a die with the specified number of sides, returning 1..sides
func (r *Roller) Roll(sides int) int {
	if sides <= 1 {
		return 1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(sides) + 1
}

// Between returns a uniform integer in [min, max]
func (r *Roller) Between(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.Roll(max-min+1) - 1
}

// Pick returns a uniform index in [0, n)
func (r *Roller) Pick(n int) int {
	if n <= 1 {
		return 0
	}
	return r.Roll(n) - 1
}

// Float returns a uniform float in [0, 1)
func (r *Roller) Float() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

// Factor returns a uniform float in [min, max]
func (r *Roller) Factor(min, max float64) float64 {
	return min + (max-min)*r.Float()
}

// Chance passes with probability p. p <= 0 never passes and p >= 1 always does.
func (r *Roller) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float() < p
}

// Percent passes with probability pct/100
func (r *Roller) Percent(pct int) bool {
	if pct <= 0 {
		return false
	}
	if pct >= 100 {
		return true
	}
	return r.Roll(100) <= pct
}

// CoinFlip returns true half of the time
func (r *Roller) CoinFlip() bool {
	return r.Roll(2) == 1
}

// Shuffle returns a shuffled copy of items
func Shuffle[T any](r *Roller, items []T) []T {
	out := append([]T(nil), items...)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Pick(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Fixed is a Source that always returns the same values, clamped to range.
// Int is the 0-based result of Intn; Float is returned by Float64.
type Fixed struct {
	Int   int
	Float float64
}

// Intn returns Int clamped to [0, n)
func (f Fixed) Intn(n int) int {
	if f.Int < 0 {
		return 0
	}
	if f.Int >= n {
		return n - 1
	}
	return f.Int
}

// Float64 returns Float clamped to [0, 1)
func (f Fixed) Float64() float64 {
	if f.Float < 0 {
		return 0
	}
	if f.Float >= 1 {
		return 0.999999
	}
	return f.Float
}
