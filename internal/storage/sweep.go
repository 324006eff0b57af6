package storage

import (
	"context"
	"time"
)

// SweepStats counts the rows one sweep touched
type SweepStats struct {
	Battles    int64
	Raids      int64
	Challenges int64
	Queue      int64
	Trades     int64
}

// Total returns the number of rows touched
func (s SweepStats) Total() int64 {
	return s.Battles + s.Raids + s.Challenges + s.Queue + s.Trades
}

// ExpireBattles deletes every battle past its expiry
func (t *Tx) ExpireBattles(now time.Time) (int64, error) {
	res := t.db.Where("expires_at <= ?", now).Delete(&Battle{})
	return res.RowsAffected, res.Error
}

// ExpireRaids deletes every raid past its end together with its participants
func (t *Tx) ExpireRaids(now time.Time) (int64, error) {
	expired := t.db.Model(&Raid{}).Select("id").Where("ends_at <= ?", now)
	if err := t.db.Where("raid_id IN (?)", expired).Delete(&RaidParticipant{}).Error; err != nil {
		return 0, err
	}
	res := t.db.Where("ends_at <= ?", now).Delete(&Raid{})
	return res.RowsAffected, res.Error
}

// ExpireChallenges marks open challenges past their expiry as expired
func (t *Tx) ExpireChallenges(now time.Time) (int64, error) {
	res := t.db.Model(&PvpChallenge{}).
		Where("status IN ? AND expires_at <= ?", []string{PvpPending, PvpActive}, now).
		Updates(map[string]any{"status": PvpExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

// ExpireQueue marks waiting queue entries past their expiry as expired
func (t *Tx) ExpireQueue(now time.Time) (int64, error) {
	res := t.db.Model(&PvpQueueEntry{}).
		Where("status = ? AND expires_at <= ?", QueueQueued, now).
		Updates(map[string]any{"status": QueueExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

// ExpireTrades marks pending offers past their expiry as expired
func (t *Tx) ExpireTrades(now time.Time) (int64, error) {
	res := t.db.Model(&TradeOffer{}).
		Where("status = ? AND expires_at <= ?", TradePending, now).
		Updates(map[string]any{"status": TradeExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}

// SweepExpired expires every time-boxed record family in one transaction
func (s *Store) SweepExpired(ctx context.Context, now time.Time) (SweepStats, error) {
	var stats SweepStats
	err := s.Transaction(ctx, func(tx *Tx) error {
		stats = SweepStats{}
		var err error
		if stats.Battles, err = tx.ExpireBattles(now); err != nil {
			return err
		}
		if stats.Raids, err = tx.ExpireRaids(now); err != nil {
			return err
		}
		if stats.Challenges, err = tx.ExpireChallenges(now); err != nil {
			return err
		}
		if stats.Queue, err = tx.ExpireQueue(now); err != nil {
			return err
		}
		stats.Trades, err = tx.ExpireTrades(now)
		return err
	})
	return stats, err
}
