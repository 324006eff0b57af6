package game

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically expires stale battles, raids, challenges, queue
// entries and offers, and drops idle throttle entries. Handlers expire the
// rows they touch on their own; the sweeper keeps the rest from piling up.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSweeper creates a new sweeper running every interval
func NewSweeper(manager *Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		manager:  manager,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the sweep loop
func (s *Sweeper) Start() {
	s.ticker = time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		for {
			select {
			case <-s.ticker.C:
				s.Sweep(context.Background())
			case <-s.stopChan:
				s.ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the sweep loop and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	if s.ticker != nil {
		<-s.done
	}
}

// Sweep runs one expiry pass
func (s *Sweeper) Sweep(ctx context.Context) {
	m := s.manager
	stats, err := m.store.SweepExpired(ctx, m.now())
	if err != nil {
		m.Logger.Error("Failed to sweep expired records", zap.Error(err))
		return
	}
	dropped := m.throttle.Sweep()

	if stats.Total() > 0 || dropped > 0 {
		m.Logger.Info("Swept expired records",
			zap.Int64("battles", stats.Battles),
			zap.Int64("raids", stats.Raids),
			zap.Int64("challenges", stats.Challenges),
			zap.Int64("queue", stats.Queue),
			zap.Int64("trades", stats.Trades),
			zap.Int("throttle_entries", dropped))
		return
	}
	m.Logger.Debug("Sweep found nothing to expire")
}
