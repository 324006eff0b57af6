package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRollStaysInRange(t *testing.T) {
	r := NewSeededRoller(7)
	for i := 0; i < 1000; i++ {
		v := r.Roll(6)
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 6)
	}
	assert.Equal(t, 1, r.Roll(0))
}

func TestBetweenIsInclusive(t *testing.T) {
	r := NewSeededRoller(11)
	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		v := r.Between(8, 31)
		assert.GreaterOrEqual(t, v, 8)
		assert.LessOrEqual(t, v, 31)
		seen[v] = true
	}
	assert.True(t, seen[8])
	assert.True(t, seen[31])
	assert.Equal(t, 5, r.Between(5, 5))
}

func TestSeededRollersAreDeterministic(t *testing.T) {
	a := NewSeededRoller(42)
	b := NewSeededRoller(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Roll(100), b.Roll(100))
		assert.Equal(t, a.Float(), b.Float())
	}
}

func TestChanceExtremes(t *testing.T) {
	r := NewSeededRoller(1)
	for i := 0; i < 100; i++ {
		assert.False(t, r.Chance(0))
		assert.True(t, r.Chance(1))
		assert.False(t, r.Percent(0))
		assert.True(t, r.Percent(100))
	}
}

func TestFixedSource(t *testing.T) {
	high := NewRollerFromSource(Fixed{Int: 99, Float: 0.99})
	assert.Equal(t, 100, high.Roll(100))
	assert.Equal(t, 6, high.Roll(6))
	assert.False(t, high.Chance(0.5))
	assert.False(t, high.Percent(99))

	low := NewRollerFromSource(Fixed{Int: 0, Float: 0})
	assert.Equal(t, 1, low.Roll(100))
	assert.True(t, low.Chance(0.01))
	assert.True(t, low.Percent(1))
	assert.True(t, low.CoinFlip())
	assert.Equal(t, 0.85, low.Factor(0.85, 1.0))
}

func TestShuffleKeepsElements(t *testing.T) {
	r := NewSeededRoller(3)
	in := []string{"a", "b", "c", "d", "e"}
	out := Shuffle(r, in)
	assert.ElementsMatch(t, in, out)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, in)
}
