// Package encounter generates wild, gym and raid opponents and builds battle
// snapshots for owned creatures.
package encounter

import (
	"context"
	"slices"

	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/dice"
	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

const maxMoves = 4

// Config holds the tunable constants of encounter generation
type Config struct {
	ShinyChance       float64
	MaxSpeciesID      int
	TypeRosterRetries int
	RandomRetries     int
	CandidateMoves    []string
	FallbackMove      string
	IVMin             int
	IVMax             int
	LevelSpread       int
	MinWildLevel      int
}

// DefaultConfig returns the stock encounter constants
func DefaultConfig() Config {
	return Config{
		ShinyChance:       0.01,
		MaxSpeciesID:      151,
		TypeRosterRetries: 3,
		RandomRetries:     3,
		CandidateMoves:    []string{"tackle", "quick-attack", "bite", "body-slam", "growl", "tail-whip"},
		FallbackMove:      "tackle",
		IVMin:             8,
		IVMax:             31,
		LevelSpread:       4,
		MinWildLevel:      2,
	}
}

// Encounter is a generated opponent
type Encounter struct {
	Opponent types.Combatant
	Shiny    bool
	Source   string
}

// SnapshotOptions tunes BuildCreatureSnapshot
type SnapshotOptions struct {
	Level int
	IVs   *types.Stats
	Moves []types.Move
	Shiny bool
}

// Engine creates opponents through the species gateway
type Engine struct {
	gateway interfaces.SpeciesGateway
	roller  *dice.Roller
	cfg     Config
	logger  *zap.Logger
}

// NewEngine creates a new encounter engine
func NewEngine(gateway interfaces.SpeciesGateway, roller *dice.Roller, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{gateway: gateway, roller: roller, cfg: cfg, logger: logger}
}

// Ladder returns the ordered species selection strategies for an encounter
func (e *Engine) Ladder(preferredTypes []string, pool []int) []Strategy {
	var ladder []Strategy
	if len(pool) > 0 {
		ladder = append(ladder, &PoolStrategy{gateway: e.gateway, roller: e.roller, logger: e.logger, ids: pool})
	}
	if len(preferredTypes) > 0 {
		ladder = append(ladder, &TypeStrategy{
			gateway: e.gateway, roller: e.roller, logger: e.logger,
			typeNames: preferredTypes, retries: max(e.cfg.TypeRosterRetries, 1),
		})
	}
	ladder = append(ladder,
		&RandomStrategy{
			gateway: e.gateway, roller: e.roller, logger: e.logger,
			maxID: e.cfg.MaxSpeciesID, retries: max(e.cfg.RandomRetries, 1),
		},
		FallbackStrategy{},
	)
	return ladder
}

// WildLevel draws an opponent level from the window around playerLevel
func (e *Engine) WildLevel(playerLevel int) int {
	low := max(e.cfg.MinWildLevel, playerLevel-2)
	return e.roller.Between(low, low+e.cfg.LevelSpread)
}

// CreateWildEncounter generates a wild opponent. It never fails: when the
// gateway is down the built-in fallback species is used.
func (e *Engine) CreateWildEncounter(ctx context.Context, playerLevel int, preferredTypes []string, pool []int) Encounter {
	level := e.WildLevel(playerLevel)
	shiny := e.roller.Chance(e.cfg.ShinyChance)

	sp, source := Resolve(ctx, e.Ladder(preferredTypes, pool))
	if source == SourceFallback {
		e.logger.Warn("Using fallback species for encounter", zap.Int("level", level))
	}

	opp := e.BuildCreatureSnapshot(ctx, *sp, SnapshotOptions{Level: level, Shiny: shiny})
	return Encounter{Opponent: opp, Shiny: shiny, Source: source}
}

// CreateGymOpponent generates a leader's creature of the gym's type
func (e *Engine) CreateGymOpponent(ctx context.Context, typeName string, level int) Encounter {
	ladder := []Strategy{
		&TypeStrategy{
			gateway: e.gateway, roller: e.roller, logger: e.logger,
			typeNames: []string{typeName}, retries: max(e.cfg.TypeRosterRetries, 1),
		},
		FallbackStrategy{},
	}
	sp, source := Resolve(ctx, ladder)
	ivs := types.Stats{HP: e.cfg.IVMax, Attack: e.cfg.IVMax, Defense: e.cfg.IVMax,
		SpAttack: e.cfg.IVMax, SpDefense: e.cfg.IVMax, Speed: e.cfg.IVMax}
	opp := e.BuildCreatureSnapshot(ctx, *sp, SnapshotOptions{Level: level, IVs: &ivs})
	return Encounter{Opponent: opp, Source: source}
}

// CreateRaidBoss generates a boss from the candidate list with inflated health
func (e *Engine) CreateRaidBoss(ctx context.Context, candidates []int, level, hpMultiplier int) Encounter {
	sp, source := Resolve(ctx, []Strategy{
		&PoolStrategy{gateway: e.gateway, roller: e.roller, logger: e.logger, ids: candidates},
		FallbackStrategy{},
	})
	boss := e.BuildCreatureSnapshot(ctx, *sp, SnapshotOptions{Level: level})
	if hpMultiplier > 1 {
		boss.MaxHP *= hpMultiplier
		boss.HP = boss.MaxHP
	}
	return Encounter{Opponent: boss, Source: source}
}

// RollIVs draws six independent individual values
func (e *Engine) RollIVs() types.Stats {
	roll := func() int { return e.roller.Between(e.cfg.IVMin, e.cfg.IVMax) }
	return types.Stats{
		HP:        roll(),
		Attack:    roll(),
		Defense:   roll(),
		SpAttack:  roll(),
		SpDefense: roll(),
		Speed:     roll(),
	}
}

// BuildCreatureSnapshot composes a full-health combatant for sp
func (e *Engine) BuildCreatureSnapshot(ctx context.Context, sp types.Species, opts SnapshotOptions) types.Combatant {
	var ivs types.Stats
	if opts.IVs != nil {
		ivs = *opts.IVs
	} else {
		ivs = e.RollIVs()
	}

	moves := opts.Moves
	if !validMoves(moves) {
		moves = e.ResolveMoves(ctx, sp)
	}

	c := combat.NewCombatant(sp, ivs, opts.Level, cloneMoves(moves))
	c.Shiny = opts.Shiny
	if opts.Shiny && sp.ShinySprite != "" {
		c.Sprite = sp.ShinySprite
	}
	return c
}

// ResolveMoves samples up to four moves from the species' own list and the
// curated candidates, padding with the fallback move when short.
func (e *Engine) ResolveMoves(ctx context.Context, sp types.Species) []types.Move {
	names := dice.Shuffle(e.roller, sp.Moves)
	for _, n := range dice.Shuffle(e.roller, e.cfg.CandidateMoves) {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}

	var moves []types.Move
	seen := make(map[string]bool)
	for _, name := range names {
		if len(moves) == maxMoves {
			break
		}
		m, err := e.gateway.GetMove(ctx, name)
		if err != nil {
			e.logger.Warn("Move unavailable", zap.String("move", name), zap.Error(err))
			continue
		}
		if seen[m.Name] {
			continue
		}
		seen[m.Name] = true
		moves = append(moves, e.withRelations(ctx, *m))
	}

	if len(moves) < maxMoves && !seen[e.cfg.FallbackMove] {
		moves = append(moves, e.fallbackMove(ctx))
	}
	return moves
}

// LearnMoves fills the free slots of known with the species' own moves in
// list order, skipping moves already known. Known moves are never replaced.
func (e *Engine) LearnMoves(ctx context.Context, sp types.Species, known []types.Move) (moves []types.Move, learned []string) {
	moves = types.Combatant{Moves: known}.Clone().Moves
	seen := make(map[string]bool, len(known))
	for _, m := range known {
		seen[m.Name] = true
	}
	for _, name := range sp.Moves {
		if len(moves) >= maxMoves {
			break
		}
		if seen[name] {
			continue
		}
		m, err := e.gateway.GetMove(ctx, name)
		if err != nil {
			e.logger.Warn("Move unavailable", zap.String("move", name), zap.Error(err))
			continue
		}
		seen[name] = true
		moves = append(moves, e.withRelations(ctx, *m))
		learned = append(learned, m.Name)
	}
	return moves, learned
}

func (e *Engine) fallbackMove(ctx context.Context) types.Move {
	if e.cfg.FallbackMove != "" {
		m, err := e.gateway.GetMove(ctx, e.cfg.FallbackMove)
		if err == nil {
			return e.withRelations(ctx, *m)
		}
		e.logger.Warn("Fallback move unavailable", zap.String("move", e.cfg.FallbackMove), zap.Error(err))
	}
	return FallbackMove()
}

// withRelations freezes the attacking type's damage relations into the move.
// A failed type lookup leaves the move neutral against every type.
func (e *Engine) withRelations(ctx context.Context, m types.Move) types.Move {
	r := m.Relations
	if len(r.DoubleTo)+len(r.HalfTo)+len(r.NoEffectTo) > 0 || m.Type == "" {
		return m
	}
	info, err := e.gateway.GetType(ctx, m.Type)
	if err != nil {
		e.logger.Warn("Type relations unavailable", zap.String("type", m.Type), zap.Error(err))
		return m
	}
	m.Relations = info.Relations
	return m
}

func validMoves(moves []types.Move) bool {
	if len(moves) == 0 || len(moves) > maxMoves {
		return false
	}
	for _, m := range moves {
		if m.Name == "" {
			return false
		}
	}
	return true
}

func cloneMoves(moves []types.Move) []types.Move {
	c := types.Combatant{Moves: moves}
	return c.Clone().Moves
}
