// Package throttle is the process-local cooldown gate in front of the engine.
// It bounds load; correctness is left to the store's row locks.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle keeps one limiter per (owner, action) pair
type Throttle struct {
	mu        sync.Mutex
	limiters  map[string]*entry
	cooldowns map[string]time.Duration
	fallback  time.Duration
	idleTTL   time.Duration
	now       func() time.Time
}

// New creates a throttle. cooldowns overrides fallback per action; a zero
// cooldown disables the gate for that action.
func New(fallback time.Duration, cooldowns map[string]time.Duration) *Throttle {
	cd := make(map[string]time.Duration, len(cooldowns))
	for k, v := range cooldowns {
		cd[k] = v
	}
	return &Throttle{
		limiters:  make(map[string]*entry),
		cooldowns: cd,
		fallback:  fallback,
		idleTTL:   10 * time.Minute,
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (t *Throttle) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Cooldown returns the minimum interval configured for action
func (t *Throttle) Cooldown(action string) time.Duration {
	if d, ok := t.cooldowns[action]; ok {
		return d
	}
	return t.fallback
}

// Allow reports whether owner may run action now. When refused it returns how
// long the caller has to wait.
func (t *Throttle) Allow(owner, action string) (bool, time.Duration) {
	cooldown := t.Cooldown(action)
	if cooldown <= 0 {
		return true, 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := owner + "|" + action
	e, ok := t.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Every(cooldown), 1)}
		t.limiters[key] = e
	}
	e.lastSeen = now

	r := e.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, cooldown
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Sweep drops limiters idle for longer than the idle TTL
func (t *Throttle) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.idleTTL)
	removed := 0
	for key, e := range t.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(t.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked limiters
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}
