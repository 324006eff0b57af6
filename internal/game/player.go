package game

import (
	"fmt"

	"github.com/user/creature-league/internal/encounter"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

func (m *Manager) handleStart(a *action) error {
	existing, err := a.tx.LockPlayer(a.owner())
	if err != nil {
		return fmt.Errorf("failed to lock player: %w", err)
	}
	if existing != nil {
		return a.reject(types.ReasonAlreadyStarted)
	}

	starters := m.cfg.Starters
	choice := a.req.Args.Choice
	if choice < 0 || choice > len(starters) {
		return a.reject(types.ReasonInvalidChoice)
	}

	var sp types.Species
	switch {
	case len(starters) == 0:
		sp = encounter.FallbackSpecies()
	default:
		id := starters[m.roller.Pick(len(starters))]
		if choice > 0 {
			id = starters[choice-1]
		}
		got, err := m.gateway.GetSpecies(a.ctx, id)
		if err != nil {
			m.Logger.Warn("Starter species unavailable", zap.Int("species_id", id), zap.Error(err))
			sp = encounter.FallbackSpecies()
		} else {
			sp = *got
		}
	}

	name := a.req.Args.Name
	if name == "" {
		name = a.owner()
	}
	p := &storage.Player{JID: a.owner(), Name: name, Level: 1, Money: m.cfg.StartingMoney}
	created, err := a.tx.CreatePlayer(p)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	if !created {
		return a.reject(types.ReasonAlreadyStarted)
	}

	snap := m.encounters.BuildCreatureSnapshot(a.ctx, sp, encounter.SnapshotOptions{Level: max(m.cfg.StarterLevel, 1)})
	starter := newCreature(p.JID, snap, true)
	if err := a.tx.CreateCreature(starter); err != nil {
		return fmt.Errorf("failed to create starter: %w", err)
	}
	for key, qty := range m.cfg.StartingItems {
		if err := a.tx.AddItem(p.JID, key, qty); err != nil {
			return fmt.Errorf("failed to grant starting items: %w", err)
		}
	}

	view := playerView(p)
	view.Creatures = []types.CreatureView{creatureView(starter)}
	view.Inventory = copyCounts(m.cfg.StartingItems)
	a.res.Payload = view
	a.logf("Welcome, %s! %s joins your team.", p.Name, starter.Nickname)
	return nil
}

func (m *Manager) handleStatus(a *action) error {
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}

	creatures, err := a.tx.ListCreatures(p.JID)
	if err != nil {
		return fmt.Errorf("failed to list creatures: %w", err)
	}
	inv, err := a.tx.ListInventory(p.JID)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}

	view := playerView(p)
	for i := range creatures {
		view.Creatures = append(view.Creatures, creatureView(&creatures[i]))
	}
	view.Inventory = inv
	a.res.Payload = view
	return nil
}

func (m *Manager) handleSwitch(a *action) error {
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}

	battle, err := m.liveBattle(a)
	if err != nil {
		return err
	}
	if battle != nil {
		return a.reject(types.ReasonBattleInProgress)
	}

	c, err := a.tx.LockCreature(p.JID, a.req.Args.CreatureID)
	if err != nil {
		return fmt.Errorf("failed to lock creature: %w", err)
	}
	if c == nil {
		return a.reject(types.ReasonCreatureNotFound)
	}
	if c.HP <= 0 {
		return a.reject(types.ReasonCreatureFainted)
	}

	if err := a.tx.SetActiveCreature(p.JID, c.ID); err != nil {
		return fmt.Errorf("failed to switch creature: %w", err)
	}
	c.Active = true
	a.res.Payload = creatureView(c)
	a.logf("Go, %s!", c.Nickname)
	return nil
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		if v > 0 {
			out[k] = v
		}
	}
	return out
}
