// Package combat holds the pure battle math: derived stats, type
// effectiveness, single attacks, battle turns and capture attempts.
// Nothing here performs I/O; randomness comes from an injected dice.Roller.
package combat

import (
	"math"
	"slices"

	"github.com/user/creature-league/internal/types"
)

const (
	minMaxHP  = 10
	minStat   = 1
	maxStage  = 6
	minLevel  = 1
	maxLevel  = 100
	maxIV     = 31
	rateScale = 255.0
)

// DefaultCaptureRate is used when species metadata carries none
const DefaultCaptureRate = 45

// ComputeDerivedStats returns the battle stats of a creature at the given level.
// HP is the max health; it never drops below 10 and other stats never below 1.
func ComputeDerivedStats(base, ivs types.Stats, level int) types.Stats {
	level = clampInt(level, minLevel, maxLevel)

	hp := (2*base.HP+clampInt(ivs.HP, 0, maxIV))*level/100 + level + 10
	stat := func(b, iv int) int {
		return max((2*b+clampInt(iv, 0, maxIV))*level/100+5, minStat)
	}

	return types.Stats{
		HP:        max(hp, minMaxHP),
		Attack:    stat(base.Attack, ivs.Attack),
		Defense:   stat(base.Defense, ivs.Defense),
		SpAttack:  stat(base.SpAttack, ivs.SpAttack),
		SpDefense: stat(base.SpDefense, ivs.SpDefense),
		Speed:     stat(base.Speed, ivs.Speed),
	}
}

// TypeMultiplier compounds the move's relations across every defender type.
// The result is 0 as soon as one defender type is immune.
func TypeMultiplier(move types.Move, defenderTypes []string) float64 {
	mult := 1.0
	for _, t := range defenderTypes {
		switch {
		case slices.Contains(move.Relations.NoEffectTo, t):
			return 0
		case slices.Contains(move.Relations.DoubleTo, t):
			mult *= 2
		case slices.Contains(move.Relations.HalfTo, t):
			mult *= 0.5
		}
	}
	return mult
}

// StageMultiplier converts a stat stage in [-6,6] into its multiplier
func StageMultiplier(stage int) float64 {
	stage = clampInt(stage, -maxStage, maxStage)
	if stage >= 0 {
		return float64(2+stage) / 2
	}
	return 2 / float64(2-stage)
}

// EffectiveStat applies the combatant's stage modifier for key
func EffectiveStat(c types.Combatant, key string) int {
	v := float64(c.Stats.Get(key)) * StageMultiplier(c.Stages[key])
	return max(int(math.Floor(v)), minStat)
}

// NewCombatant builds a full-health battle snapshot for a species at level
func NewCombatant(sp types.Species, ivs types.Stats, level int, moves []types.Move) types.Combatant {
	stats := ComputeDerivedStats(sp.BaseStats, ivs, level)
	rate := sp.CaptureRate
	if rate <= 0 {
		rate = DefaultCaptureRate
	}
	return types.Combatant{
		SpeciesID:   sp.ID,
		Name:        sp.Name,
		Level:       clampInt(level, minLevel, maxLevel),
		Types:       append([]string(nil), sp.Types...),
		BaseStats:   sp.BaseStats,
		IVs:         ivs,
		Stats:       stats,
		HP:          stats.HP,
		MaxHP:       stats.HP,
		Moves:       moves,
		CaptureRate: rate,
		Sprite:      sp.Sprite,
	}
}

// Recalculate refreshes derived stats after a level or species change,
// keeping the current health ratio.
func Recalculate(c types.Combatant) types.Combatant {
	out := c.Clone()
	stats := ComputeDerivedStats(c.BaseStats, c.IVs, c.Level)
	out.HP = ScaleHealth(c.HP, c.MaxHP, stats.HP)
	out.Stats = stats
	out.MaxHP = stats.HP
	return out
}

// ScaleHealth maps hp from an old max to a new max preserving the ratio.
// A living creature keeps at least 1 HP.
func ScaleHealth(hp, oldMax, newMax int) int {
	if oldMax <= 0 || hp <= 0 {
		return 0
	}
	if hp >= oldMax {
		return newMax
	}
	scaled := int(math.Round(float64(hp) * float64(newMax) / float64(oldMax)))
	return clampInt(scaled, 1, newMax)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
