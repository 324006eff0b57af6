// Package evolution walks species evolution trees to find the next stage a
// creature may reach by leveling up or by consuming an item.
package evolution

import (
	"context"
	"strings"

	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

// maxStages bounds multi-stage resolution against malformed cyclic data
const maxStages = 8

// Target is the species a creature will evolve into
type Target struct {
	SpeciesID   int
	SpeciesName string
	MinLevel    int
	Stages      int
}

// Resolver finds eligible evolutions through the species gateway
type Resolver struct {
	gateway interfaces.SpeciesGateway
	logger  *zap.Logger
}

// NewResolver creates a new evolution resolver
func NewResolver(gateway interfaces.SpeciesGateway, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{gateway: gateway, logger: logger}
}

// ResolveByLevel returns the furthest stage reachable at level, applying
// every consecutive level-up evolution whose threshold is already met.
// It returns nil when nothing applies or the gateway is unavailable.
func (r *Resolver) ResolveByLevel(ctx context.Context, speciesID, level int) *Target {
	chain, err := r.gateway.GetEvolutionChain(ctx, speciesID)
	if err != nil {
		r.logger.Warn("Evolution chain unavailable",
			zap.Int("species_id", speciesID),
			zap.Error(err))
		return nil
	}

	node := findNode(chain, speciesID)
	if node == nil {
		return nil
	}

	var target *Target
	for i := 0; i < maxStages; i++ {
		next, minLevel := nextByLevel(node, level)
		if next == nil || next.SpeciesID == node.SpeciesID {
			break
		}
		stages := 1
		if target != nil {
			stages = target.Stages + 1
		}
		target = &Target{
			SpeciesID:   next.SpeciesID,
			SpeciesName: next.SpeciesName,
			MinLevel:    minLevel,
			Stages:      stages,
		}
		node = next
	}

	if target == nil || target.SpeciesID == speciesID {
		return nil
	}
	return target
}

// ResolveByItem returns the single stage reached by using item on the species
func (r *Resolver) ResolveByItem(ctx context.Context, speciesID int, item string) *Target {
	item = strings.ToLower(strings.TrimSpace(item))
	return r.resolveStep(ctx, speciesID, types.TriggerUseItem, func(d types.EvolutionDetail) bool {
		return strings.EqualFold(d.Item, item)
	})
}

// ResolveByTrade returns the stage reached when the species changes owner
func (r *Resolver) ResolveByTrade(ctx context.Context, speciesID int) *Target {
	return r.resolveStep(ctx, speciesID, types.TriggerTrade, func(d types.EvolutionDetail) bool {
		return d.Item == ""
	})
}

func (r *Resolver) resolveStep(ctx context.Context, speciesID int, trigger string, match func(types.EvolutionDetail) bool) *Target {
	chain, err := r.gateway.GetEvolutionChain(ctx, speciesID)
	if err != nil {
		r.logger.Warn("Evolution chain unavailable",
			zap.Int("species_id", speciesID),
			zap.String("trigger", trigger),
			zap.Error(err))
		return nil
	}

	node := findNode(chain, speciesID)
	if node == nil {
		return nil
	}

	for i := range node.EvolvesTo {
		child := &node.EvolvesTo[i]
		for _, d := range child.Details {
			if d.Trigger != trigger || d.Blocked() || !match(d) {
				continue
			}
			if child.SpeciesID == speciesID {
				return nil
			}
			return &Target{SpeciesID: child.SpeciesID, SpeciesName: child.SpeciesName, Stages: 1}
		}
	}
	return nil
}

// nextByLevel picks the eligible level-up child with the lowest threshold
func nextByLevel(node *types.EvolutionNode, level int) (*types.EvolutionNode, int) {
	var best *types.EvolutionNode
	bestLevel := 0
	for i := range node.EvolvesTo {
		child := &node.EvolvesTo[i]
		for _, d := range child.Details {
			if d.Trigger != types.TriggerLevelUp || d.Blocked() || d.Item != "" {
				continue
			}
			if d.MinLevel <= 0 || d.MinLevel > level {
				continue
			}
			if best == nil || d.MinLevel < bestLevel {
				best, bestLevel = child, d.MinLevel
			}
		}
	}
	return best, bestLevel
}

func findNode(node *types.EvolutionNode, speciesID int) *types.EvolutionNode {
	if node.SpeciesID == speciesID {
		return node
	}
	for i := range node.EvolvesTo {
		if found := findNode(&node.EvolvesTo[i], speciesID); found != nil {
			return found
		}
	}
	return nil
}

// RenameIfDefault renames only a nickname that still equals the old species name
func RenameIfDefault(nickname, oldName, newName string) string {
	if nickname == oldName {
		return newName
	}
	return nickname
}
