package game

import (
	"fmt"

	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

const defaultBall = "poke-ball"

// liveBattle locks the owner's battle in the chat, deleting it first when it
// has expired
func (m *Manager) liveBattle(a *action) (*storage.Battle, error) {
	b, err := a.tx.LockBattle(a.chat(), a.owner())
	if err != nil {
		return nil, fmt.Errorf("failed to lock battle: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	if a.now.Before(b.ExpiresAt) {
		return b, nil
	}
	if err := a.tx.DeleteBattle(b); err != nil {
		return nil, fmt.Errorf("failed to expire battle: %w", err)
	}
	a.logf("The %s lost interest and left.", b.Enemy.DisplayName())
	return nil, nil
}

// beginBattle validates the common preconditions of explore and gym
func (m *Manager) beginBattle(a *action) (*storage.Player, *storage.Creature, error) {
	p, err := m.requirePlayer(a)
	if p == nil {
		return nil, nil, err
	}
	b, err := m.liveBattle(a)
	if err != nil {
		return nil, nil, err
	}
	if b != nil {
		a.reject(types.ReasonBattleInProgress)
		return nil, nil, nil
	}
	c, err := m.requireFighter(a)
	if c == nil {
		return nil, nil, err
	}
	return p, c, nil
}

func (m *Manager) handleExplore(a *action) error {
	p, c, err := m.beginBattle(a)
	if p == nil || c == nil {
		return err
	}

	var pool []int
	if area := a.req.Args.Area; area != "" {
		loc, err := m.gateway.GetLocation(a.ctx, area)
		if err != nil {
			m.Logger.Warn("Location unavailable", zap.String("area", area), zap.Error(err))
		} else {
			pool = loc.SpeciesIDs
		}
	}

	enc := m.encounters.CreateWildEncounter(a.ctx, c.Level, a.req.Args.Types, pool)
	battle := &storage.Battle{
		ChatID:     a.chat(),
		OwnerJID:   p.JID,
		Kind:       storage.BattleWild,
		CreatureID: c.ID,
		Enemy:      enc.Opponent,
		Source:     enc.Source,
		ExpiresAt:  a.now.Add(config.Seconds(m.cfg.BattleTTLSeconds)),
	}
	if err := a.tx.CreateBattle(battle); err != nil {
		return fmt.Errorf("failed to create battle: %w", err)
	}

	rw := &types.Rewards{}
	if err := m.advanceMission(a, p, missionExplore, rw); err != nil {
		return err
	}
	if rw.MissionBonus > 0 {
		a.res.Rewards = rw
	}
	if err := a.tx.SavePlayer(p); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}

	a.logf("A wild %s (Lv. %d) appeared!", enc.Opponent.Name, enc.Opponent.Level)
	if enc.Shiny {
		a.log("It's shiny!")
	}
	a.res.Payload = battleView(battle, toCombatant(c))
	return nil
}

func (m *Manager) handleGym(a *action) error {
	p, c, err := m.beginBattle(a)
	if p == nil || c == nil {
		return err
	}
	if p.Badges >= len(m.cfg.Gyms) {
		return a.reject(types.ReasonGymUnavailable)
	}

	gym := m.cfg.Gyms[p.Badges]
	enc := m.encounters.CreateGymOpponent(a.ctx, gym.Type, gym.Level)
	battle := &storage.Battle{
		ChatID:     a.chat(),
		OwnerJID:   p.JID,
		Kind:       storage.BattleGym,
		GymIndex:   p.Badges,
		CreatureID: c.ID,
		Enemy:      enc.Opponent,
		Source:     enc.Source,
		ExpiresAt:  a.now.Add(config.Seconds(m.cfg.BattleTTLSeconds)),
	}
	if err := a.tx.CreateBattle(battle); err != nil {
		return fmt.Errorf("failed to create battle: %w", err)
	}

	a.logf("Gym leader %d sends out %s (Lv. %d)!", p.Badges+1, enc.Opponent.Name, enc.Opponent.Level)
	a.res.Payload = battleView(battle, toCombatant(c))
	return nil
}

// activeBattle loads the battle and its creature for attack, capture and flee
func (m *Manager) activeBattle(a *action) (*storage.Player, *storage.Battle, *storage.Creature, error) {
	p, err := m.requirePlayer(a)
	if p == nil {
		return nil, nil, nil, err
	}
	b, err := m.liveBattle(a)
	if err != nil {
		return nil, nil, nil, err
	}
	if b == nil {
		a.reject(types.ReasonNoActiveBattle)
		return nil, nil, nil, nil
	}
	c, err := a.tx.LockCreature(p.JID, b.CreatureID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to lock creature: %w", err)
	}
	if c == nil {
		a.reject(types.ReasonCreatureNotFound)
		return nil, nil, nil, nil
	}
	return p, b, c, nil
}

func battleSnapshot(b *storage.Battle, c *storage.Creature) types.BattleSnapshot {
	player := toCombatant(c)
	player.Stages = b.PlayerStages
	return types.BattleSnapshot{Player: player, Enemy: b.Enemy}
}

func (m *Manager) handleAttack(a *action) error {
	p, b, c, err := m.activeBattle(a)
	if b == nil {
		return err
	}
	if c.HP <= 0 {
		return a.reject(types.ReasonCreatureFainted)
	}

	turn := m.combat.ResolveBattleTurn(battleSnapshot(b, c), a.req.Args.Slot)
	if !turn.ValidTurn {
		return a.reject(types.ReasonInvalidMove)
	}
	a.log(turn.Log...)

	b.Turn++
	b.Enemy = turn.Snapshot.Enemy
	b.PlayerStages = turn.Snapshot.Player.Stages
	b.ExpiresAt = a.now.Add(config.Seconds(m.cfg.BattleTTLSeconds))
	applyBattleState(c, turn.Snapshot.Player)

	view := battleView(b, turn.Snapshot.Player)
	view.Winner = turn.Winner
	a.res.Payload = view

	switch turn.Winner {
	case combat.WinnerPlayer:
		return m.finishWin(a, p, b, c)
	case combat.WinnerEnemy:
		return m.finishLoss(a, p, b, c)
	}
	if err := a.tx.SaveBattle(b); err != nil {
		return fmt.Errorf("failed to save battle: %w", err)
	}
	return a.tx.SaveCreature(c)
}

// finishWin pays out a won battle, advances missions, tries one evolution
// and removes the battle
func (m *Manager) finishWin(a *action, p *storage.Player, b *storage.Battle, c *storage.Creature) error {
	rc := m.cfg.Rewards
	rw := &types.Rewards{}
	enemyLevel := b.Enemy.Level

	switch b.Kind {
	case storage.BattleGym:
		var gym config.GymConfig
		if b.GymIndex < len(m.cfg.Gyms) {
			gym = m.cfg.Gyms[b.GymIndex]
		}
		m.grantPlayer(p, gym.Money, rc.GymPlayerXP, rw)
		if b.GymIndex == p.Badges {
			p.Badges++
			a.logf("You earned badge #%d!", p.Badges)
		}
	default:
		m.grantPlayer(p, rc.WildMoneyPerLevel*enemyLevel, rc.WildPlayerXP, rw)
		if rc.DropItem != "" && m.roller.Percent(rc.DropPercent) {
			rw.AddItem(rc.DropItem, 1)
		}
	}
	grantCreature(c, rc.CreatureXPPerLevel*enemyLevel, rw)
	a.logf("%s fainted! You won $%d.", b.Enemy.DisplayName(), rw.Money)

	if err := m.advanceMission(a, p, missionWin, rw); err != nil {
		return err
	}
	a.res.Evolution = m.tryLevelEvolution(a, c)
	a.res.Rewards = rw

	if err := a.tx.DeleteBattle(b); err != nil {
		return fmt.Errorf("failed to close battle: %w", err)
	}
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	if err := a.tx.SavePlayer(p); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	for key, qty := range rw.Items {
		if err := a.tx.AddItem(p.JID, key, qty); err != nil {
			return fmt.Errorf("failed to grant items: %w", err)
		}
	}
	return nil
}

// finishLoss closes a lost battle and charges the configured penalty
func (m *Manager) finishLoss(a *action, p *storage.Player, b *storage.Battle, c *storage.Creature) error {
	penalty := p.Money * m.cfg.Rewards.LossMoneyPercent / 100
	p.Money -= penalty
	a.logf("%s fainted! You dropped $%d.", c.Nickname, penalty)
	a.res.Rewards = &types.Rewards{Money: -penalty}

	if err := a.tx.DeleteBattle(b); err != nil {
		return fmt.Errorf("failed to close battle: %w", err)
	}
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	return a.tx.SavePlayer(p)
}

func (m *Manager) handleCapture(a *action) error {
	p, b, c, err := m.activeBattle(a)
	if b == nil {
		return err
	}
	if b.Kind != storage.BattleWild {
		return a.reject(types.ReasonCannotCapture)
	}
	if c.HP <= 0 {
		return a.reject(types.ReasonCreatureFainted)
	}

	key := a.req.Args.Item
	if key == "" {
		key = defaultBall
	}
	ball, err := m.item(a, key)
	if err != nil {
		if key != defaultBall {
			return a.reject(types.ReasonUnknownItem)
		}
		ball = &types.Item{Key: defaultBall, Name: "Poke Ball", Category: types.ItemBall}
	}
	if ball.Category != types.ItemBall {
		return a.reject(types.ReasonNotABall)
	}
	ok, err := a.tx.ConsumeItem(p.JID, ball.Key, 1)
	if err != nil {
		return fmt.Errorf("failed to consume ball: %w", err)
	}
	if !ok {
		return a.reject(types.ReasonNoBall)
	}

	res := m.combat.ResolveCapture(battleSnapshot(b, c).Player, b.Enemy, ball.CatchBonus, ball.Guaranteed)
	a.log(res.Log...)
	applyBattleState(c, res.Player)
	b.Enemy = res.Opponent
	b.PlayerStages = res.Player.Stages

	view := battleView(b, res.Player)
	view.Chance = res.Chance
	a.res.Payload = view

	if !res.Success {
		b.Turn++
		b.ExpiresAt = a.now.Add(config.Seconds(m.cfg.BattleTTLSeconds))
		if res.Player.Fainted() {
			view.Winner = combat.WinnerEnemy
			return m.finishLoss(a, p, b, c)
		}
		if err := a.tx.SaveBattle(b); err != nil {
			return fmt.Errorf("failed to save battle: %w", err)
		}
		return a.tx.SaveCreature(c)
	}

	caught := newCreature(p.JID, res.Opponent, false)
	if err := a.tx.CreateCreature(caught); err != nil {
		return fmt.Errorf("failed to store capture: %w", err)
	}
	cv := creatureView(caught)
	view.Captured = &cv

	rc := m.cfg.Rewards
	rw := &types.Rewards{}
	level := res.Opponent.Level
	m.grantPlayer(p, rc.CaptureMoneyPerLevel*level, rc.CapturePlayerXP, rw)
	grantCreature(c, rc.CreatureXPPerLevel*level*rc.CaptureCreatureXPRatio/100, rw)
	if err := m.advanceMission(a, p, missionCapture, rw); err != nil {
		return err
	}
	a.res.Evolution = m.tryLevelEvolution(a, c)
	a.res.Rewards = rw

	if err := a.tx.DeleteBattle(b); err != nil {
		return fmt.Errorf("failed to close battle: %w", err)
	}
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	return a.tx.SavePlayer(p)
}

func (m *Manager) handleFlee(a *action) error {
	_, b, c, err := m.activeBattle(a)
	if b == nil {
		return err
	}
	if err := a.tx.DeleteBattle(b); err != nil {
		return fmt.Errorf("failed to close battle: %w", err)
	}
	a.res.Payload = battleView(b, toCombatant(c))
	a.log("Got away safely!")
	return nil
}
