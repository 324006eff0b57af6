package throttle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestThrottle() (*Throttle, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	th := New(2*time.Second, map[string]time.Duration{
		"explore": 5 * time.Second,
		"status":  0,
	})
	th.SetClock(c.now)
	return th, c
}

func TestAllowRejectsWithinCooldown(t *testing.T) {
	th, c := newTestThrottle()

	ok, _ := th.Allow("alice", "explore")
	assert.True(t, ok)

	c.advance(2 * time.Second)
	ok, wait := th.Allow("alice", "explore")
	assert.False(t, ok)
	assert.InDelta(t, float64(3*time.Second), float64(wait), float64(time.Millisecond))

	c.advance(3*time.Second + 10*time.Millisecond)
	ok, _ = th.Allow("alice", "explore")
	assert.True(t, ok)
}

func TestRejectedCallDoesNotExtendCooldown(t *testing.T) {
	th, c := newTestThrottle()

	ok, _ := th.Allow("alice", "attack")
	assert.True(t, ok)
	for i := 0; i < 5; i++ {
		ok, _ = th.Allow("alice", "attack")
		assert.False(t, ok)
	}
	c.advance(2*time.Second + 10*time.Millisecond)
	ok, _ = th.Allow("alice", "attack")
	assert.True(t, ok)
}

func TestKeysAreIndependent(t *testing.T) {
	th, _ := newTestThrottle()

	ok, _ := th.Allow("alice", "explore")
	assert.True(t, ok)
	ok, _ = th.Allow("bob", "explore")
	assert.True(t, ok)
	ok, _ = th.Allow("alice", "attack")
	assert.True(t, ok)
}

func TestZeroCooldownDisablesGate(t *testing.T) {
	th, _ := newTestThrottle()
	for i := 0; i < 10; i++ {
		ok, _ := th.Allow("alice", "status")
		assert.True(t, ok)
	}
	assert.Equal(t, 0, th.Len())
}

func TestSweepDropsIdleLimiters(t *testing.T) {
	th, c := newTestThrottle()
	th.Allow("alice", "explore")
	th.Allow("bob", "explore")

	c.advance(5 * time.Minute)
	th.Allow("bob", "explore")
	c.advance(6 * time.Minute)

	assert.Equal(t, 1, th.Sweep())
	assert.Equal(t, 1, th.Len())
}
