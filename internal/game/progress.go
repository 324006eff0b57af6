package game

import (
	"fmt"
	"time"

	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/evolution"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

const maxCreatureLevel = 100

// Mission events
const (
	missionExplore = "explore"
	missionWin     = "win"
	missionCapture = "capture"
)

// Mission periods
const (
	periodDaily  = "daily"
	periodWeekly = "weekly"
)

// xpForLevel is the total experience a creature holds on reaching level
func xpForLevel(level int) int {
	return level * level * level
}

// grantPlayer pays money and experience, levelling the player at
// XPPerLevel * level experience per level
func (m *Manager) grantPlayer(p *storage.Player, money, xp int, rw *types.Rewards) {
	p.Money += money
	p.XP += xp
	rw.Money += money
	rw.PlayerXP += xp

	per := max(m.cfg.Rewards.XPPerLevel, 1)
	for p.XP >= per*p.Level {
		p.XP -= per * p.Level
		p.Level++
		rw.PlayerLevelUp = true
		rw.NewPlayerLevel = p.Level
	}
}

// grantCreature adds experience and applies level-ups. Each level recomputes
// stats and heals by the max-health gain.
func grantCreature(c *storage.Creature, xp int, rw *types.Rewards) {
	if xp <= 0 {
		return
	}
	c.XP += xp
	rw.CreatureXP += xp

	for c.Level < maxCreatureLevel && c.XP >= xpForLevel(c.Level+1) {
		levelUp(c)
		rw.CreatureLevelUp = true
		rw.NewCreatureLevel = c.Level
	}
}

func levelUp(c *storage.Creature) {
	c.Level++
	stats := combat.ComputeDerivedStats(c.BaseStats, c.IVs, c.Level)
	gain := stats.HP - c.MaxHP
	c.MaxHP = stats.HP
	if c.HP > 0 && gain > 0 {
		c.HP += gain
	}
	c.HP = min(c.HP, c.MaxHP)
}

// applyEvolution turns c into target in place. The health ratio survives the
// stat change, a custom nickname is kept and free move slots are filled from
// the new species' moves. It returns nil when the target
// species cannot be loaded.
func (m *Manager) applyEvolution(a *action, c *storage.Creature, target *evolution.Target) *types.EvolutionOutcome {
	sp, err := m.gateway.GetSpecies(a.ctx, target.SpeciesID)
	if err != nil {
		m.Logger.Warn("Evolution target unavailable",
			zap.Uint64("creature_id", c.ID),
			zap.Int("species_id", target.SpeciesID),
			zap.Error(err))
		return nil
	}

	out := &types.EvolutionOutcome{
		CreatureID:    c.ID,
		FromSpeciesID: c.SpeciesID,
		FromName:      c.SpeciesName,
		ToSpeciesID:   sp.ID,
		ToName:        sp.Name,
	}

	stats := combat.ComputeDerivedStats(sp.BaseStats, c.IVs, c.Level)
	c.HP = combat.ScaleHealth(c.HP, c.MaxHP, stats.HP)
	c.MaxHP = stats.HP
	c.Nickname = evolution.RenameIfDefault(c.Nickname, c.SpeciesName, sp.Name)
	c.SpeciesID = sp.ID
	c.SpeciesName = sp.Name
	c.Types = append([]string(nil), sp.Types...)
	c.BaseStats = sp.BaseStats
	if sp.CaptureRate > 0 {
		c.CaptureRate = sp.CaptureRate
	}
	c.Sprite = sp.Sprite
	if c.Shiny && sp.ShinySprite != "" {
		c.Sprite = sp.ShinySprite
	}

	out.Nickname = c.Nickname
	a.logf("What? %s evolved into %s!", out.FromName, out.ToName)

	var learned []string
	c.Moves, learned = m.encounters.LearnMoves(a.ctx, *sp, c.Moves)
	for _, name := range learned {
		a.logf("%s learned %s!", c.Nickname, name)
	}
	out.LearnedMoves = learned
	return out
}

// tryLevelEvolution applies any level evolution the creature qualifies for
func (m *Manager) tryLevelEvolution(a *action, c *storage.Creature) *types.EvolutionOutcome {
	target := m.evolutions.ResolveByLevel(a.ctx, c.SpeciesID, c.Level)
	if target == nil {
		return nil
	}
	return m.applyEvolution(a, c, target)
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func weekKey(t time.Time) string {
	y, w := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// rollover resets the counters of any period that has ended
func rollover(mp *storage.MissionProgress, now time.Time) {
	if day := dayKey(now); mp.DayKey != day {
		mp.DayKey = day
		mp.DailyExplore, mp.DailyWin, mp.DailyCapture = 0, 0, 0
		mp.DailyBonusPaid = false
		mp.DailyClaimedAt = nil
	}
	if week := weekKey(now); mp.WeekKey != week {
		mp.WeekKey = week
		mp.WeeklyExplore, mp.WeeklyWin, mp.WeeklyCapture = 0, 0, 0
		mp.WeeklyBonusPaid = false
		mp.WeeklyClaimedAt = nil
	}
}

func (m *Manager) dailyDone(mp *storage.MissionProgress) bool {
	c := m.cfg.Missions
	return mp.DailyExplore >= c.DailyExplore && mp.DailyWin >= c.DailyWin && mp.DailyCapture >= c.DailyCapture
}

func (m *Manager) weeklyDone(mp *storage.MissionProgress) bool {
	c := m.cfg.Missions
	return mp.WeeklyExplore >= c.WeeklyExplore && mp.WeeklyWin >= c.WeeklyWin && mp.WeeklyCapture >= c.WeeklyCapture
}

// loadMissions locks the mission row of jid with periods rolled over
func (m *Manager) loadMissions(a *action, jid string) (*storage.MissionProgress, error) {
	mp, err := a.tx.EnsureMission(jid, dayKey(a.now), weekKey(a.now))
	if err != nil {
		return nil, fmt.Errorf("failed to load missions: %w", err)
	}
	rollover(mp, a.now)
	return mp, nil
}

// advanceMission counts one event for p and pays the one-time bonus the first
// time every target of a period is met
func (m *Manager) advanceMission(a *action, p *storage.Player, event string, rw *types.Rewards) error {
	mp, err := m.loadMissions(a, p.JID)
	if err != nil {
		return err
	}

	switch event {
	case missionExplore:
		mp.DailyExplore++
		mp.WeeklyExplore++
	case missionWin:
		mp.DailyWin++
		mp.WeeklyWin++
	case missionCapture:
		mp.DailyCapture++
		mp.WeeklyCapture++
	}

	if !mp.DailyBonusPaid && m.dailyDone(mp) {
		mp.DailyBonusPaid = true
		p.Money += m.cfg.Missions.DailyBonus
		rw.MissionBonus += m.cfg.Missions.DailyBonus
		a.logf("%s completed the daily missions!", p.Name)
	}
	if !mp.WeeklyBonusPaid && m.weeklyDone(mp) {
		mp.WeeklyBonusPaid = true
		p.Money += m.cfg.Missions.WeeklyBonus
		rw.MissionBonus += m.cfg.Missions.WeeklyBonus
		a.logf("%s completed the weekly missions!", p.Name)
	}

	if err := a.tx.SaveMission(mp); err != nil {
		return fmt.Errorf("failed to save missions: %w", err)
	}
	return nil
}

func (m *Manager) handleClaimMission(a *action) error {
	period := a.req.Args.Period
	if period != periodDaily && period != periodWeekly {
		return a.reject(types.ReasonInvalidPeriod)
	}

	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}
	mp, err := m.loadMissions(a, p.JID)
	if err != nil {
		return err
	}

	view := types.MissionView{Period: period}
	var done bool
	var claimed **time.Time
	var money int
	if period == periodDaily {
		view.Explore, view.Win, view.Capture = mp.DailyExplore, mp.DailyWin, mp.DailyCapture
		done, claimed, money = m.dailyDone(mp), &mp.DailyClaimedAt, m.cfg.Missions.DailyMoney
	} else {
		view.Explore, view.Win, view.Capture = mp.WeeklyExplore, mp.WeeklyWin, mp.WeeklyCapture
		done, claimed, money = m.weeklyDone(mp), &mp.WeeklyClaimedAt, m.cfg.Missions.WeeklyMoney
	}
	a.res.Payload = view

	if !done {
		// The rollover may still need persisting.
		if err := a.tx.SaveMission(mp); err != nil {
			return fmt.Errorf("failed to save missions: %w", err)
		}
		return a.reject(types.ReasonMissionIncomplete)
	}
	if *claimed != nil {
		return a.reject(types.ReasonAlreadyClaimed)
	}

	now := a.now
	*claimed = &now
	rw := &types.Rewards{}
	m.grantPlayer(p, money, 0, rw)
	a.res.Rewards = rw
	a.logf("Claimed %s mission reward: $%d.", period, money)

	if err := a.tx.SaveMission(mp); err != nil {
		return fmt.Errorf("failed to save missions: %w", err)
	}
	return a.tx.SavePlayer(p)
}
