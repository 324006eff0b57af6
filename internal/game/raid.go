package game

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

// liveRaid locks the chat's raid, removing it when its time is up
func (m *Manager) liveRaid(a *action) (*storage.Raid, error) {
	r, err := a.tx.LockRaid(a.chat())
	if err != nil {
		return nil, fmt.Errorf("failed to lock raid: %w", err)
	}
	if r == nil || a.now.Before(r.EndsAt) {
		return r, nil
	}
	if err := a.tx.DeleteRaid(r); err != nil {
		return nil, fmt.Errorf("failed to expire raid: %w", err)
	}
	a.logf("%s escaped before it could be defeated.", r.Boss.DisplayName())
	return nil, nil
}

func (m *Manager) handleRaidStart(a *action) error {
	r, err := m.liveRaid(a)
	if err != nil {
		return err
	}
	if r != nil {
		a.res.Payload = raidView(r)
		return a.reject(types.ReasonRaidInProgress)
	}
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}

	rc := m.cfg.Raid
	enc := m.encounters.CreateRaidBoss(a.ctx, rc.Candidates, rc.Level, rc.HPMultiplier)
	r = &storage.Raid{
		ID:        uuid.NewString(),
		ChatID:    a.chat(),
		Boss:      enc.Opponent,
		MaxHP:     enc.Opponent.MaxHP,
		CurrentHP: enc.Opponent.MaxHP,
		StartedBy: p.JID,
		StartedAt: a.now,
		EndsAt:    a.now.Add(config.Seconds(m.cfg.RaidDurationSeconds)),
	}
	created, err := a.tx.CreateRaid(r)
	if err != nil {
		return fmt.Errorf("failed to create raid: %w", err)
	}
	if !created {
		return a.reject(types.ReasonRaidInProgress)
	}

	a.logf("A raid boss appeared: %s (Lv. %d, %d HP)!", r.Boss.Name, r.Boss.Level, r.MaxHP)
	a.res.Payload = raidView(r)
	return nil
}

func (m *Manager) handleRaidAttack(a *action) error {
	r, err := m.liveRaid(a)
	if err != nil {
		return err
	}
	if r == nil {
		return a.reject(types.ReasonNoActiveRaid)
	}
	ev, err := a.tx.EnsureCoopEvent(a.chat(), weekKey(a.now), m.cfg.Coop.WeeklyTarget)
	if err != nil {
		return fmt.Errorf("failed to load co-op event: %w", err)
	}
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}
	c, err := m.requireFighter(a)
	if c == nil {
		return err
	}

	boss := r.Boss.Clone()
	boss.HP = r.CurrentHP
	hit := m.combat.ResolveSingleAttack(toCombatant(c), boss, a.req.Args.Slot)
	if !hit.ValidMove {
		return a.reject(types.ReasonInvalidMove)
	}
	a.log(hit.Log...)

	dealt := max(0, r.CurrentHP-hit.Defender.HP)
	r.CurrentHP = max(0, hit.Defender.HP)
	fighter := hit.Attacker

	// The boss answers every hit it survives. Only the attacker's row changes;
	// the boss health stays what the players left it at.
	if r.CurrentHP > 0 && !fighter.Fainted() && len(boss.Moves) > 0 {
		boss.HP = r.CurrentHP
		counter := m.combat.ResolveSingleAttack(boss, fighter, m.roller.Between(1, len(boss.Moves)))
		fighter = counter.Defender
		a.log(counter.Log...)
	}
	applyBattleState(c, fighter)

	part, err := a.tx.EnsureRaidParticipant(r, p.JID)
	if err != nil {
		return fmt.Errorf("failed to load raid participant: %w", err)
	}
	part.Damage += dealt
	part.Hits++
	if err := a.tx.SaveRaidParticipant(part); err != nil {
		return fmt.Errorf("failed to save raid participant: %w", err)
	}

	if err := m.addCoopProgress(a, ev, dealt); err != nil {
		return err
	}

	view := raidView(r)
	view.Damage = dealt
	a.res.Payload = view

	if r.CurrentHP > 0 {
		if err := a.tx.SaveCreature(c); err != nil {
			return fmt.Errorf("failed to save creature: %w", err)
		}
		return a.tx.SaveRaid(r)
	}

	view.Defeated = true
	a.logf("%s was defeated!", r.Boss.DisplayName())
	payouts, err := m.payRaid(a, r, p, c)
	if err != nil {
		return err
	}
	view.Payouts = payouts
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	if err := a.tx.DeleteRaid(r); err != nil {
		return fmt.Errorf("failed to close raid: %w", err)
	}
	return nil
}

// payRaid splits the raid pool between participants by damage share. Every
// participant's active creature shares the creature XP pool and gets one
// evolution check, and the win counts toward their missions. The acting player
// and creature are already locked and passed in as p and c.
func (m *Manager) payRaid(a *action, r *storage.Raid, p *storage.Player, c *storage.Creature) ([]types.Payout, error) {
	parts, err := a.tx.ListRaidParticipants(r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list raid participants: %w", err)
	}
	total := 0
	jids := make([]string, 0, len(parts))
	for _, part := range parts {
		total += part.Damage
		if part.OwnerJID != p.JID && part.Damage > 0 {
			jids = append(jids, part.OwnerJID)
		}
	}
	if total <= 0 {
		return nil, nil
	}
	slices.Sort(jids)

	players, err := a.tx.LockPlayers(jids...)
	if err != nil {
		return nil, fmt.Errorf("failed to lock raid participants: %w", err)
	}
	players[p.JID] = p

	creatures := map[string]*storage.Creature{p.JID: c}
	for _, jid := range jids {
		if players[jid] == nil {
			continue
		}
		cr, err := a.tx.LockActiveCreature(jid)
		if err != nil {
			return nil, fmt.Errorf("failed to lock raid participant creature: %w", err)
		}
		if cr != nil {
			creatures[jid] = cr
		}
	}

	rc := m.cfg.Raid
	payouts := make([]types.Payout, 0, len(parts))
	for _, part := range parts {
		pl := players[part.OwnerJID]
		if pl == nil || part.Damage <= 0 {
			continue
		}
		share := float64(part.Damage) / float64(total)
		rw := &types.Rewards{}
		m.grantPlayer(pl, int(float64(rc.RewardMoney)*share), int(float64(rc.RewardXP)*share), rw)

		var evo *types.EvolutionOutcome
		if cr := creatures[pl.JID]; cr != nil {
			grantCreature(cr, int(float64(rc.RewardCreatureXP)*share), rw)
			evo = m.tryLevelEvolution(a, cr)
			if cr != c {
				if err := a.tx.SaveCreature(cr); err != nil {
					return nil, fmt.Errorf("failed to save raid participant creature: %w", err)
				}
			}
		}
		if err := m.advanceMission(a, pl, missionWin, rw); err != nil {
			return nil, err
		}
		if err := a.tx.SavePlayer(pl); err != nil {
			return nil, fmt.Errorf("failed to pay raid participant: %w", err)
		}

		payouts = append(payouts, types.Payout{
			OwnerJID:   pl.JID,
			Damage:     part.Damage,
			Share:      share,
			Money:      rw.Money,
			XP:         rw.PlayerXP,
			CreatureXP: rw.CreatureXP,
			Evolution:  evo,
		})
		if pl.JID == p.JID {
			a.res.Rewards = rw
			a.res.Evolution = evo
		}
	}

	m.Logger.Info("Raid defeated",
		zap.String("raid_id", r.ID),
		zap.String("chat", r.ChatID),
		zap.Int("participants", len(payouts)))
	return payouts, nil
}

// addCoopProgress feeds raid damage into the chat's weekly event
func (m *Manager) addCoopProgress(a *action, ev *storage.CoopEvent, dealt int) error {
	if dealt <= 0 {
		return nil
	}
	ev.Progress += dealt
	if ev.CompletedAt == nil && ev.Progress >= ev.Target {
		now := a.now
		ev.CompletedAt = &now
		a.log("The weekly co-op target was reached! Everyone who helped can claim a reward.")
	}
	if err := a.tx.SaveCoopEvent(ev); err != nil {
		return fmt.Errorf("failed to save co-op event: %w", err)
	}

	contrib, err := a.tx.EnsureCoopContribution(ev.ID, a.owner())
	if err != nil {
		return fmt.Errorf("failed to load co-op contribution: %w", err)
	}
	contrib.Amount += dealt
	if err := a.tx.SaveCoopContribution(contrib); err != nil {
		return fmt.Errorf("failed to save co-op contribution: %w", err)
	}
	return nil
}

func (m *Manager) handleCoopClaim(a *action) error {
	ev, err := a.tx.LockCoopEvent(a.chat(), weekKey(a.now))
	if err != nil {
		return fmt.Errorf("failed to lock co-op event: %w", err)
	}
	if ev == nil {
		return a.reject(types.ReasonNoContribution)
	}
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}
	contrib, err := a.tx.LockCoopContribution(ev.ID, p.JID)
	if err != nil {
		return fmt.Errorf("failed to lock co-op contribution: %w", err)
	}
	if contrib == nil || contrib.Amount <= 0 {
		return a.reject(types.ReasonNoContribution)
	}

	a.res.Payload = types.CoopView{
		WeekKey:      ev.WeekKey,
		Target:       ev.Target,
		Progress:     ev.Progress,
		Contribution: contrib.Amount,
	}
	if ev.CompletedAt == nil {
		return a.reject(types.ReasonCoopIncomplete)
	}
	if contrib.ClaimedAt != nil {
		return a.reject(types.ReasonAlreadyClaimed)
	}

	cc := m.cfg.Coop
	now := a.now
	contrib.ClaimedAt = &now
	rw := &types.Rewards{}
	m.grantPlayer(p, cc.RewardMoney, 0, rw)
	if cc.RewardItem != "" {
		if err := a.tx.AddItem(p.JID, cc.RewardItem, 1); err != nil {
			return fmt.Errorf("failed to grant co-op item: %w", err)
		}
		rw.AddItem(cc.RewardItem, 1)
	}
	a.res.Rewards = rw
	a.logf("Co-op reward claimed: $%d.", cc.RewardMoney)

	if err := a.tx.SaveCoopContribution(contrib); err != nil {
		return fmt.Errorf("failed to save co-op contribution: %w", err)
	}
	return a.tx.SavePlayer(p)
}
