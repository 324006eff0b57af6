package encounter

import (
	"context"

	"github.com/user/creature-league/internal/dice"
	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

// Strategy is one rung of the species selection ladder
type Strategy interface {
	Name() string
	TryResolve(ctx context.Context) (*types.Species, bool)
}

// Strategy names reported as the encounter source
const (
	SourcePool     = "pool"
	SourceType     = "type"
	SourceRandom   = "random"
	SourceFallback = "fallback"
)

// PoolStrategy picks from an area-specific encounter pool
type PoolStrategy struct {
	gateway interfaces.SpeciesGateway
	roller  *dice.Roller
	logger  *zap.Logger
	ids     []int
}

// Name returns the source name
func (s *PoolStrategy) Name() string { return SourcePool }

// TryResolve walks the pool in random order until one species loads
func (s *PoolStrategy) TryResolve(ctx context.Context) (*types.Species, bool) {
	for _, id := range dice.Shuffle(s.roller, s.ids) {
		sp, err := s.gateway.GetSpecies(ctx, id)
		if err == nil {
			return sp, true
		}
		s.logger.Warn("Pool species unavailable", zap.Int("species_id", id), zap.Error(err))
	}
	return nil, false
}

// TypeStrategy picks a random member of one of the preferred types' rosters
type TypeStrategy struct {
	gateway   interfaces.SpeciesGateway
	roller    *dice.Roller
	logger    *zap.Logger
	typeNames []string
	retries   int
}

// Name returns the source name
func (s *TypeStrategy) Name() string { return SourceType }

// TryResolve makes a bounded number of roster draws
func (s *TypeStrategy) TryResolve(ctx context.Context) (*types.Species, bool) {
	if len(s.typeNames) == 0 {
		return nil, false
	}
	for i := 0; i < s.retries; i++ {
		name := s.typeNames[s.roller.Pick(len(s.typeNames))]
		info, err := s.gateway.GetType(ctx, name)
		if err != nil {
			s.logger.Warn("Type roster unavailable", zap.String("type", name), zap.Error(err))
			continue
		}
		if len(info.SpeciesIDs) == 0 {
			continue
		}
		id := info.SpeciesIDs[s.roller.Pick(len(info.SpeciesIDs))]
		sp, err := s.gateway.GetSpecies(ctx, id)
		if err != nil {
			s.logger.Warn("Roster species unavailable", zap.Int("species_id", id), zap.Error(err))
			continue
		}
		return sp, true
	}
	return nil, false
}

// RandomStrategy draws uniform ids below a ceiling
type RandomStrategy struct {
	gateway interfaces.SpeciesGateway
	roller  *dice.Roller
	logger  *zap.Logger
	maxID   int
	retries int
}

// Name returns the source name
func (s *RandomStrategy) Name() string { return SourceRandom }

// TryResolve makes a bounded number of random id draws
func (s *RandomStrategy) TryResolve(ctx context.Context) (*types.Species, bool) {
	if s.maxID <= 0 {
		return nil, false
	}
	for i := 0; i < s.retries; i++ {
		id := s.roller.Roll(s.maxID)
		sp, err := s.gateway.GetSpecies(ctx, id)
		if err == nil {
			return sp, true
		}
		s.logger.Warn("Random species unavailable", zap.Int("species_id", id), zap.Error(err))
	}
	return nil, false
}

// FallbackStrategy always yields the built-in species
type FallbackStrategy struct{}

// Name returns the source name
func (FallbackStrategy) Name() string { return SourceFallback }

// TryResolve never fails
func (FallbackStrategy) TryResolve(ctx context.Context) (*types.Species, bool) {
	sp := FallbackSpecies()
	return &sp, true
}

// FallbackSpecies is used when the gateway cannot produce any species
func FallbackSpecies() types.Species {
	return types.Species{
		ID:          19,
		Name:        "rattata",
		Types:       []string{"normal"},
		BaseStats:   types.Stats{HP: 30, Attack: 56, Defense: 35, SpAttack: 25, SpDefense: 35, Speed: 72},
		CaptureRate: 255,
		Moves:       []string{"tackle", "quick-attack"},
	}
}

// FallbackMove is used when no move can be resolved through the gateway
func FallbackMove() types.Move {
	return types.Move{
		ID:          33,
		Name:        "tackle",
		Type:        "normal",
		Power:       40,
		Accuracy:    100,
		DamageClass: types.DamageClassPhysical,
		Relations: types.TypeRelations{
			HalfTo:     []string{"rock", "steel"},
			NoEffectTo: []string{"ghost"},
		},
	}
}

// Resolve runs the ladder in order and reports which rung answered
func Resolve(ctx context.Context, ladder []Strategy) (*types.Species, string) {
	for _, s := range ladder {
		if sp, ok := s.TryResolve(ctx); ok {
			return sp, s.Name()
		}
	}
	sp := FallbackSpecies()
	return &sp, SourceFallback
}
