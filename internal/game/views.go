package game

import (
	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
)

// toCombatant builds the battle snapshot of an owned creature
func toCombatant(c *storage.Creature) types.Combatant {
	stats := combat.ComputeDerivedStats(c.BaseStats, c.IVs, c.Level)
	return types.Combatant{
		CreatureID:  c.ID,
		OwnerJID:    c.OwnerJID,
		SpeciesID:   c.SpeciesID,
		Name:        c.SpeciesName,
		Nickname:    c.Nickname,
		Level:       c.Level,
		Types:       append([]string(nil), c.Types...),
		BaseStats:   c.BaseStats,
		IVs:         c.IVs,
		Stats:       stats,
		HP:          c.HP,
		MaxHP:       c.MaxHP,
		Moves:       types.Combatant{Moves: c.Moves}.Clone().Moves,
		Status:      c.Status,
		Shiny:       c.Shiny,
		CaptureRate: c.CaptureRate,
		Sprite:      c.Sprite,
	}
}

// applyBattleState copies the mutable battle fields of a snapshot back to the row
func applyBattleState(c *storage.Creature, snap types.Combatant) {
	c.HP = max(0, min(snap.HP, c.MaxHP))
	c.Status = snap.Status
}

// newCreature turns a snapshot into a row owned by owner
func newCreature(owner string, snap types.Combatant, active bool) *storage.Creature {
	return &storage.Creature{
		OwnerJID:    owner,
		SpeciesID:   snap.SpeciesID,
		SpeciesName: snap.Name,
		Nickname:    snap.Name,
		Level:       snap.Level,
		XP:          xpForLevel(snap.Level),
		HP:          max(0, min(snap.HP, snap.MaxHP)),
		MaxHP:       snap.MaxHP,
		Types:       append([]string(nil), snap.Types...),
		BaseStats:   snap.BaseStats,
		IVs:         snap.IVs,
		Moves:       types.Combatant{Moves: snap.Moves}.Clone().Moves,
		Status:      snap.Status,
		Shiny:       snap.Shiny,
		Active:      active,
		CaptureRate: snap.CaptureRate,
		Sprite:      snap.Sprite,
	}
}

func creatureView(c *storage.Creature) types.CreatureView {
	moves := make([]string, len(c.Moves))
	for i, mv := range c.Moves {
		moves[i] = mv.Name
	}
	return types.CreatureView{
		ID:        c.ID,
		SpeciesID: c.SpeciesID,
		Species:   c.SpeciesName,
		Nickname:  c.Nickname,
		Level:     c.Level,
		XP:        c.XP,
		HP:        c.HP,
		MaxHP:     c.MaxHP,
		Moves:     moves,
		Status:    c.Status,
		Shiny:     c.Shiny,
		Active:    c.Active,
	}
}

func playerView(p *storage.Player) types.PlayerView {
	return types.PlayerView{
		JID:    p.JID,
		Name:   p.Name,
		Level:  p.Level,
		XP:     p.XP,
		Money:  p.Money,
		Badges: p.Badges,
	}
}

func battleView(b *storage.Battle, player types.Combatant) *types.BattleView {
	return &types.BattleView{
		BattleID: b.ID,
		Kind:     b.Kind,
		Turn:     b.Turn,
		Source:   b.Source,
		Snapshot: types.BattleSnapshot{Player: player, Enemy: b.Enemy.Clone()},
	}
}

func raidView(r *storage.Raid) *types.RaidView {
	boss := r.Boss.Clone()
	boss.HP = r.CurrentHP
	return &types.RaidView{
		RaidID:    r.ID,
		Boss:      boss,
		CurrentHP: r.CurrentHP,
		MaxHP:     r.MaxHP,
		EndsAt:    r.EndsAt,
	}
}

func pvpView(c *storage.PvpChallenge) *types.PvpView {
	v := &types.PvpView{
		ChallengeID:   c.ID,
		Status:        c.Status,
		ChallengerJID: c.ChallengerJID,
		OpponentJID:   c.OpponentJID,
		TurnJID:       c.TurnJID,
		WinnerJID:     c.WinnerJID,
		ExpiresAt:     c.ExpiresAt,
	}
	if len(c.Snapshot) > 0 {
		v.Combatants = make(map[string]types.Combatant, len(c.Snapshot))
		for k, s := range c.Snapshot {
			v.Combatants[k] = s.Clone()
		}
	}
	return v
}

func tradeView(o *storage.TradeOffer) *types.TradeView {
	return &types.TradeView{
		OfferID:    o.ID,
		SellerJID:  o.SellerJID,
		BuyerJID:   o.BuyerJID,
		CreatureID: o.CreatureID,
		Price:      o.Price,
		Status:     o.Status,
		ExpiresAt:  o.ExpiresAt,
	}
}
