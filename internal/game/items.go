package game

import (
	"fmt"

	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
)

const (
	maxPurchase  = 99
	rescuePotion = "potion"
)

func (m *Manager) handleBuy(a *action) error {
	qty := a.req.Args.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 || qty > maxPurchase {
		return a.reject(types.ReasonInvalidQuantity)
	}

	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}
	it, err := m.item(a, a.req.Args.Item)
	if err != nil {
		return a.reject(types.ReasonUnknownItem)
	}
	if it.Cost <= 0 {
		return a.reject(types.ReasonNotForSale)
	}

	total := it.Cost * qty
	if p.Money < total {
		if err := m.maybeRescue(a, p, nil); err != nil {
			return err
		}
		return a.reject(types.ReasonInsufficientFunds)
	}

	p.Money -= total
	if err := a.tx.SavePlayer(p); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	if err := a.tx.AddItem(p.JID, it.Key, qty); err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}

	rw := &types.Rewards{Money: -total}
	rw.AddItem(it.Key, qty)
	a.res.Rewards = rw
	a.logf("Bought %d x %s for $%d.", qty, it.Name, total)
	a.res.Payload = playerView(p)
	return nil
}

// useTargets locks the creature an item is used on and the active creature,
// which may be the same row
func (m *Manager) useTargets(a *action) (target, active *storage.Creature, err error) {
	active, err = a.tx.LockActiveCreature(a.owner())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock active creature: %w", err)
	}
	id := a.req.Args.CreatureID
	if id == 0 || (active != nil && active.ID == id) {
		return active, active, nil
	}
	target, err = a.tx.LockCreature(a.owner(), id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock creature: %w", err)
	}
	return target, active, nil
}

func (m *Manager) handleUseItem(a *action) error {
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}
	it, err := m.item(a, a.req.Args.Item)
	if err != nil {
		return a.reject(types.ReasonUnknownItem)
	}
	c, active, err := m.useTargets(a)
	if err != nil {
		return err
	}

	held, err := a.tx.LockInventoryItem(p.JID, it.Key)
	if err != nil {
		return fmt.Errorf("failed to lock inventory: %w", err)
	}
	if held == nil || held.Quantity < 1 {
		if it.Category == types.ItemHealing {
			if err := m.maybeRescue(a, p, active); err != nil {
				return err
			}
		}
		return a.reject(types.ReasonNoItem)
	}
	if c == nil {
		if a.req.Args.CreatureID == 0 {
			return a.reject(types.ReasonNoActiveCreature)
		}
		return a.reject(types.ReasonCreatureNotFound)
	}

	if !m.applyItem(a, it, c) {
		return a.reject(types.ReasonItemNoEffect)
	}
	if _, err := a.tx.ConsumeItem(p.JID, it.Key, 1); err != nil {
		return fmt.Errorf("failed to consume item: %w", err)
	}
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	a.res.Payload = creatureView(c)
	return nil
}

// applyItem mutates c with the item's effect and reports whether it did anything
func (m *Manager) applyItem(a *action, it *types.Item, c *storage.Creature) bool {
	switch it.Category {
	case types.ItemHealing:
		if c.HP <= 0 || (c.HP >= c.MaxHP && !(it.CuresStatus && c.Status != "")) {
			return false
		}
		before := c.HP
		c.HP = min(c.MaxHP, c.HP+it.HealAmount)
		if it.CuresStatus {
			c.Status = types.StatusNone
		}
		a.logf("%s recovered %d HP.", c.Nickname, c.HP-before)
		return true

	case types.ItemRevive:
		if c.HP > 0 {
			return false
		}
		c.HP = max(1, c.MaxHP/2)
		c.Status = types.StatusNone
		a.logf("%s was revived!", c.Nickname)
		return true

	case types.ItemStatusCure:
		if c.Status == types.StatusNone {
			return false
		}
		a.logf("%s was cured of %s.", c.Nickname, c.Status)
		c.Status = types.StatusNone
		return true

	case types.ItemCandy:
		if c.Level >= maxCreatureLevel {
			return false
		}
		levelUp(c)
		c.XP = max(c.XP, xpForLevel(c.Level))
		a.logf("%s grew to level %d!", c.Nickname, c.Level)
		a.res.Evolution = m.tryLevelEvolution(a, c)
		return true

	case types.ItemEvolution:
		target := m.evolutions.ResolveByItem(a.ctx, c.SpeciesID, it.Key)
		if target == nil {
			return false
		}
		a.res.Evolution = m.applyEvolution(a, c, target)
		return a.res.Evolution != nil
	}
	return false
}

// maybeRescue grants the stipend when the player is broke, holds no healing
// items and their active creature is hurt. active may be nil to look it up.
func (m *Manager) maybeRescue(a *action, p *storage.Player, active *storage.Creature) error {
	rc := m.cfg.Rescue
	if p.Money >= rc.MoneyFloor {
		return nil
	}
	if p.LastRescueAt != nil && a.now.Before(p.LastRescueAt.Add(config.Seconds(rc.CooldownSeconds))) {
		return nil
	}

	if active == nil {
		var err error
		if active, err = a.tx.LockActiveCreature(p.JID); err != nil {
			return fmt.Errorf("failed to lock active creature: %w", err)
		}
	}
	if active != nil && active.MaxHP > 0 && float64(active.HP)/float64(active.MaxHP) >= rc.HealthRatio {
		return nil
	}

	inv, err := a.tx.ListInventory(p.JID)
	if err != nil {
		return fmt.Errorf("failed to list inventory: %w", err)
	}
	for key := range inv {
		if key == rescuePotion {
			return nil
		}
		if it, err := m.gateway.GetItem(a.ctx, key); err == nil && it.Category == types.ItemHealing {
			return nil
		}
	}

	now := a.now
	p.Money += rc.Money
	p.LastRescueAt = &now
	if err := a.tx.SavePlayer(p); err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	rw := &types.Rewards{Money: rc.Money}
	if rc.Potions > 0 {
		if err := a.tx.AddItem(p.JID, rescuePotion, rc.Potions); err != nil {
			return fmt.Errorf("failed to grant rescue potions: %w", err)
		}
		rw.AddItem(rescuePotion, rc.Potions)
	}
	a.res.Rescue = rw
	a.logf("The nurse slips you $%d and %d potion(s). Take care out there.", rc.Money, rc.Potions)
	return nil
}

func (m *Manager) handleEvolve(a *action) error {
	p, err := m.requirePlayer(a)
	if p == nil {
		return err
	}

	var c *storage.Creature
	if id := a.req.Args.CreatureID; id != 0 {
		c, err = a.tx.LockCreature(p.JID, id)
	} else {
		c, err = a.tx.LockActiveCreature(p.JID)
	}
	if err != nil {
		return fmt.Errorf("failed to lock creature: %w", err)
	}
	if c == nil {
		return a.reject(types.ReasonCreatureNotFound)
	}

	evo := m.tryLevelEvolution(a, c)
	if evo == nil {
		return a.reject(types.ReasonNoEvolution)
	}
	a.res.Evolution = evo
	if err := a.tx.SaveCreature(c); err != nil {
		return fmt.Errorf("failed to save creature: %w", err)
	}
	a.res.Payload = creatureView(c)
	return nil
}
