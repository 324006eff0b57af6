package combat

import (
	"fmt"
	"math"

	"github.com/user/creature-league/internal/dice"
	"github.com/user/creature-league/internal/types"
)

// Winners reported by ResolveBattleTurn
const (
	WinnerPlayer = "player"
	WinnerEnemy  = "enemy"
)

const (
	stabBonus = 1.2
	randMin   = 0.85
	randMax   = 1.0
)

// CaptureConfig holds the tunable constants of the capture formula
type CaptureConfig struct {
	Base         float64
	HealthWeight float64
	RateWeight   float64
	Min          float64
	Max          float64
}

// DefaultCaptureConfig returns the stock capture constants
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Base:         0.10,
		HealthWeight: 0.60,
		RateWeight:   0.25,
		Min:          0.05,
		Max:          0.90,
	}
}

// Resolver runs battle math against an injected random source
type Resolver struct {
	roller  *dice.Roller
	capture CaptureConfig
}

// NewResolver creates a new combat resolver
func NewResolver(roller *dice.Roller, capture CaptureConfig) *Resolver {
	return &Resolver{roller: roller, capture: capture}
}

// AttackResult is the outcome of one combatant using one move
type AttackResult struct {
	ValidMove     bool
	Hit           bool
	Blocked       bool
	Damage        int
	Effectiveness float64
	Attacker      types.Combatant
	Defender      types.Combatant
	Log           []string
}

// TurnResult is the outcome of a full player-versus-enemy turn
type TurnResult struct {
	Snapshot   types.BattleSnapshot
	Log        []string
	Winner     string
	ValidTurn  bool
	FirstMover string
}

// CaptureResult is the outcome of a capture attempt
type CaptureResult struct {
	Success  bool
	Chance   float64
	Log      []string
	Player   types.Combatant
	Opponent types.Combatant
	Counter  *AttackResult
}

// ResolveSingleAttack makes attacker use the move in slot (1-based) on defender.
// Inputs are never mutated; the returned snapshots carry every change.
func (r *Resolver) ResolveSingleAttack(attacker, defender types.Combatant, slot int) AttackResult {
	res := AttackResult{
		Attacker:      attacker.Clone(),
		Defender:      defender.Clone(),
		Effectiveness: 1,
	}
	a, d := &res.Attacker, &res.Defender

	if slot < 1 || slot > len(a.Moves) || a.Fainted() {
		return res
	}
	res.ValidMove = true
	move := a.Moves[slot-1]

	acts, lines := r.checkCanAct(a)
	res.Log = append(res.Log, lines...)
	if !acts {
		res.Blocked = true
		res.Log = append(res.Log, applyResidual(a)...)
		return res
	}

	res.Log = append(res.Log, fmt.Sprintf("%s used %s!", a.DisplayName(), move.Name))

	if r.roller.Roll(100) > normalizeAccuracy(move.Accuracy) {
		res.Log = append(res.Log, fmt.Sprintf("%s's attack missed!", a.DisplayName()))
		res.Log = append(res.Log, applyResidual(a)...)
		return res
	}
	res.Hit = true

	if move.Power <= 0 {
		res.Log = append(res.Log, r.applyEffect(move, a, d, 0, true)...)
		res.Log = append(res.Log, applyResidual(a)...)
		return res
	}

	res.Effectiveness = TypeMultiplier(move, d.Types)
	res.Damage = r.damage(move, *a, *d, res.Effectiveness)
	d.HP = max(d.HP-res.Damage, 0)

	switch {
	case res.Effectiveness == 0:
		res.Log = append(res.Log, fmt.Sprintf("It doesn't affect %s...", d.DisplayName()))
	case res.Effectiveness > 1:
		res.Log = append(res.Log, "It's super effective!")
	case res.Effectiveness < 1:
		res.Log = append(res.Log, "It's not very effective...")
	}
	if res.Damage > 0 {
		res.Log = append(res.Log, fmt.Sprintf("%s took %d damage.", d.DisplayName(), res.Damage))
	}
	if d.Fainted() {
		res.Log = append(res.Log, fmt.Sprintf("%s fainted!", d.DisplayName()))
	}

	res.Log = append(res.Log, r.applyEffect(move, a, d, res.Damage, false)...)
	res.Log = append(res.Log, applyResidual(a)...)
	return res
}

// damage applies the level/power/stat formula, STAB, type and random factor
func (r *Resolver) damage(move types.Move, a, d types.Combatant, typeMult float64) int {
	if typeMult == 0 {
		return 0
	}
	atkKey, defKey := types.StatAttack, types.StatDefense
	if move.DamageClass == types.DamageClassSpecial {
		atkKey, defKey = types.StatSpAttack, types.StatSpDefense
	}
	atk := float64(EffectiveStat(a, atkKey))
	def := float64(max(EffectiveStat(d, defKey), 1))

	base := ((2*float64(a.Level)/5+2)*float64(move.Power)*atk/def)/50 + 2
	for _, t := range a.Types {
		if t == move.Type {
			base *= stabBonus
			break
		}
	}
	base *= typeMult
	base *= r.roller.Factor(randMin, randMax)

	return max(int(math.Floor(base)), 1)
}

// applyEffect resolves the non-damage payload of a move.
// Effect chances of 0 mean always for status moves and never for damaging ones.
func (r *Resolver) applyEffect(move types.Move, a, d *types.Combatant, dealt int, statusMove bool) []string {
	var lines []string
	eff := move.Effect

	if len(eff.StatChanges) > 0 && r.effectFires(eff.StatChance, statusMove) {
		for _, sc := range eff.StatChanges {
			target := d
			if eff.Target == types.TargetSelf || (eff.Target == "" && sc.Change > 0) {
				target = a
			}
			if target.Fainted() {
				continue
			}
			lines = append(lines, changeStage(target, sc))
		}
	}

	if eff.Ailment != "" && KnownStatus(eff.Ailment) && r.effectFires(eff.AilmentChance, statusMove) {
		if !d.Fainted() && d.Status == types.StatusNone {
			d.Status = eff.Ailment
			lines = append(lines, fmt.Sprintf("%s is now affected by %s!", d.DisplayName(), eff.Ailment))
		}
	}

	if eff.Healing > 0 && !a.Fainted() && a.HP < a.MaxHP {
		heal := max(a.MaxHP*eff.Healing/100, 1)
		a.HP = min(a.HP+heal, a.MaxHP)
		lines = append(lines, fmt.Sprintf("%s restored its health.", a.DisplayName()))
	}

	if eff.Drain != 0 && dealt > 0 && !a.Fainted() {
		amount := dealt * eff.Drain / 100
		if eff.Drain > 0 {
			amount = max(amount, 1)
			a.HP = min(a.HP+amount, a.MaxHP)
			lines = append(lines, fmt.Sprintf("%s drained %d HP.", a.DisplayName(), amount))
		} else {
			amount = max(-amount, 1)
			a.HP = max(a.HP-amount, 0)
			lines = append(lines, fmt.Sprintf("%s is hit with recoil!", a.DisplayName()))
			if a.Fainted() {
				lines = append(lines, fmt.Sprintf("%s fainted!", a.DisplayName()))
			}
		}
	}
	return lines
}

func (r *Resolver) effectFires(chance int, statusMove bool) bool {
	if chance <= 0 {
		return statusMove
	}
	return r.roller.Percent(chance)
}

func changeStage(c *types.Combatant, sc types.StatChange) string {
	if c.Stages == nil {
		c.Stages = make(map[string]int)
	}
	before := c.Stages[sc.Stat]
	after := clampInt(before+sc.Change, -maxStage, maxStage)
	c.Stages[sc.Stat] = after

	switch {
	case after == before && sc.Change > 0:
		return fmt.Sprintf("%s's %s won't go any higher!", c.DisplayName(), sc.Stat)
	case after == before:
		return fmt.Sprintf("%s's %s won't go any lower!", c.DisplayName(), sc.Stat)
	case after > before:
		return fmt.Sprintf("%s's %s rose!", c.DisplayName(), sc.Stat)
	default:
		return fmt.Sprintf("%s's %s fell!", c.DisplayName(), sc.Stat)
	}
}

// normalizeAccuracy treats a missing accuracy as a move that never misses
func normalizeAccuracy(acc int) int {
	if acc <= 0 {
		return 100
	}
	return clampInt(acc, 1, 100)
}

// ResolveBattleTurn runs one exchange: the player's chosen move and one random
// enemy move, ordered by speed. The second action is skipped once a side faints.
func (r *Resolver) ResolveBattleTurn(snap types.BattleSnapshot, slot int) TurnResult {
	res := TurnResult{Snapshot: types.BattleSnapshot{
		Player: snap.Player.Clone(),
		Enemy:  snap.Enemy.Clone(),
	}}
	if slot < 1 || slot > len(snap.Player.Moves) || snap.Player.Fainted() || snap.Enemy.Fainted() {
		return res
	}
	res.ValidTurn = true

	playerFirst := r.playerMovesFirst(res.Snapshot.Player, res.Snapshot.Enemy)
	order := []string{WinnerEnemy, WinnerPlayer}
	if playerFirst {
		order = []string{WinnerPlayer, WinnerEnemy}
	}
	res.FirstMover = order[0]

	for _, side := range order {
		if side == WinnerPlayer {
			out := r.ResolveSingleAttack(res.Snapshot.Player, res.Snapshot.Enemy, slot)
			res.Snapshot.Player, res.Snapshot.Enemy = out.Attacker, out.Defender
			res.Log = append(res.Log, out.Log...)
		} else {
			res.Log = append(res.Log, r.enemyAction(&res.Snapshot)...)
		}
		if w := winnerAfter(res.Snapshot, side); w != "" {
			res.Winner = w
			break
		}
	}
	return res
}

func (r *Resolver) enemyAction(snap *types.BattleSnapshot) []string {
	if len(snap.Enemy.Moves) == 0 {
		return []string{fmt.Sprintf("%s hesitates.", snap.Enemy.DisplayName())}
	}
	out := r.ResolveSingleAttack(snap.Enemy, snap.Player, r.roller.Between(1, len(snap.Enemy.Moves)))
	snap.Enemy, snap.Player = out.Attacker, out.Defender
	return out.Log
}

func (r *Resolver) playerMovesFirst(p, e types.Combatant) bool {
	ps, es := EffectiveStat(p, types.StatSpeed), EffectiveStat(e, types.StatSpeed)
	if ps == es {
		return r.roller.CoinFlip()
	}
	return ps > es
}

// winnerAfter checks the defender of the last action first, so a creature that
// knocks out its target and then faints to recoil or residual still wins.
func winnerAfter(snap types.BattleSnapshot, actor string) string {
	if actor == WinnerPlayer {
		if snap.Enemy.Fainted() {
			return WinnerPlayer
		}
		if snap.Player.Fainted() {
			return WinnerEnemy
		}
		return ""
	}
	if snap.Player.Fainted() {
		return WinnerEnemy
	}
	if snap.Enemy.Fainted() {
		return WinnerPlayer
	}
	return ""
}

// CaptureChance computes the clamped capture probability
func (r *Resolver) CaptureChance(opponent types.Combatant, ballBonus float64) float64 {
	rate := opponent.CaptureRate
	if rate <= 0 {
		rate = DefaultCaptureRate
	}
	deficit := 1 - opponent.HealthRatio()
	chance := r.capture.Base +
		deficit*r.capture.HealthWeight +
		math.Min(float64(rate)/rateScale, 1)*r.capture.RateWeight +
		ballBonus
	return clampFloat(chance, r.capture.Min, r.capture.Max)
}

// ResolveCapture throws a ball at opponent. On a miss the opponent answers with
// one free attack against player.
func (r *Resolver) ResolveCapture(player, opponent types.Combatant, ballBonus float64, guaranteed bool) CaptureResult {
	res := CaptureResult{Player: player.Clone(), Opponent: opponent.Clone()}

	if guaranteed {
		res.Chance = 1
		res.Success = true
		res.Log = []string{fmt.Sprintf("Gotcha! %s was caught!", opponent.DisplayName())}
		return res
	}

	res.Chance = r.CaptureChance(opponent, ballBonus)
	if r.roller.Chance(res.Chance) {
		res.Success = true
		res.Log = []string{fmt.Sprintf("Gotcha! %s was caught!", opponent.DisplayName())}
		return res
	}

	res.Log = []string{fmt.Sprintf("Oh no! %s broke free!", opponent.DisplayName())}
	if res.Player.Fainted() || res.Opponent.Fainted() || len(res.Opponent.Moves) == 0 {
		return res
	}
	counter := r.ResolveSingleAttack(res.Opponent, res.Player, r.roller.Between(1, len(res.Opponent.Moves)))
	res.Opponent, res.Player = counter.Attacker, counter.Defender
	res.Log = append(res.Log, counter.Log...)
	res.Counter = &counter
	return res
}
