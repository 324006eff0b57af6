package combat

import (
	"fmt"

	"github.com/user/creature-league/internal/types"
)

// statusRule describes how a non-volatile status behaves in battle
type statusRule struct {
	// actPercent is the chance the holder still acts; 100 means never blocked
	actPercent int
	// clearsOnAct removes the status when the holder manages to act
	clearsOnAct bool
	// residualDiv is the fraction of max HP lost after acting; 0 means none
	residualDiv int
	blocked     string
	recovered   string
	residual    string
}

var statusRules = map[string]statusRule{
	types.StatusParalysis: {actPercent: 75, blocked: "%s is paralyzed! It can't move!"},
	types.StatusSleep: {
		actPercent: 33, clearsOnAct: true,
		blocked: "%s is fast asleep.", recovered: "%s woke up!",
	},
	types.StatusFreeze: {
		actPercent: 20, clearsOnAct: true,
		blocked: "%s is frozen solid!", recovered: "%s thawed out!",
	},
	types.StatusBurn:   {actPercent: 100, residualDiv: 16, residual: "%s is hurt by its burn!"},
	types.StatusPoison: {actPercent: 100, residualDiv: 8, residual: "%s is hurt by poison!"},
}

// KnownStatus reports whether name is a status the resolver understands
func KnownStatus(name string) bool {
	_, ok := statusRules[name]
	return ok
}

// checkCanAct rolls the status gate before a move executes
func (r *Resolver) checkCanAct(c *types.Combatant) (bool, []string) {
	rule, ok := statusRules[c.Status]
	if !ok || rule.actPercent >= 100 {
		return true, nil
	}
	if r.roller.Percent(rule.actPercent) {
		if rule.clearsOnAct {
			c.Status = types.StatusNone
			return true, []string{fmt.Sprintf(rule.recovered, c.DisplayName())}
		}
		return true, nil
	}
	return false, []string{fmt.Sprintf(rule.blocked, c.DisplayName())}
}

// applyResidual deals end-of-action status damage to c
func applyResidual(c *types.Combatant) []string {
	rule, ok := statusRules[c.Status]
	if !ok || rule.residualDiv == 0 || c.Fainted() {
		return nil
	}
	dmg := max(c.MaxHP/rule.residualDiv, 1)
	c.HP = max(c.HP-dmg, 0)
	lines := []string{fmt.Sprintf(rule.residual, c.DisplayName())}
	if c.Fainted() {
		lines = append(lines, fmt.Sprintf("%s fainted!", c.DisplayName()))
	}
	return lines
}
