// Package game is the orchestration layer: one handler per player action, each
// running inside a single store transaction.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/dice"
	"github.com/user/creature-league/internal/encounter"
	"github.com/user/creature-league/internal/evolution"
	"github.com/user/creature-league/internal/interfaces"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/throttle"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

// ErrInvalidRequest marks a malformed action request
var ErrInvalidRequest = errors.New("invalid action request")

// action is the per-call state handed to a handler. A fresh one is built for
// every transaction attempt.
type action struct {
	ctx context.Context
	tx  *storage.Tx
	req types.ActionRequest
	res *types.ActionResult
	now time.Time
}

func (a *action) owner() string { return a.req.OwnerJID }
func (a *action) chat() string  { return a.req.ChatID }

// reject records a game-logic refusal. Handlers return its nil error so the
// transaction still commits any lazy expiry it performed.
func (a *action) reject(reason string) error {
	a.res.Outcome = types.OutcomeRejected
	a.res.Reason = reason
	return nil
}

func (a *action) log(lines ...string) {
	a.res.Log = append(a.res.Log, lines...)
}

func (a *action) logf(format string, args ...any) {
	a.res.Log = append(a.res.Log, fmt.Sprintf(format, args...))
}

type handlerFunc func(a *action) error

// Manager executes player actions against the store
type Manager struct {
	cfg        config.GameConfig
	store      *storage.Store
	gateway    interfaces.SpeciesGateway
	roller     *dice.Roller
	combat     *combat.Resolver
	encounters *encounter.Engine
	evolutions *evolution.Resolver
	throttle   *throttle.Throttle
	now        func() time.Time
	handlers   map[types.ActionKind]handlerFunc
	Logger     *zap.Logger
}

// Ensure Manager satisfies the interfaces.ActionExecutor interface
var _ interfaces.ActionExecutor = (*Manager)(nil)

// NewManager creates a new game manager
func NewManager(cfg config.GameConfig, store *storage.Store, gateway interfaces.SpeciesGateway, roller *dice.Roller) *Manager {
	if roller == nil {
		roller = dice.NewRoller()
	}
	m := &Manager{
		cfg:      cfg,
		store:    store,
		gateway:  gateway,
		roller:   roller,
		combat:   combat.NewResolver(roller, combat.CaptureConfig(cfg.Capture)),
		throttle: throttle.New(time.Duration(cfg.DefaultCooldownMs)*time.Millisecond, cfg.Cooldowns()),
		now:      func() time.Time { return time.Now().UTC() },
		Logger:   zap.NewNop(),
	}
	m.SetLogger(m.Logger)
	m.handlers = map[types.ActionKind]handlerFunc{
		types.ActionStart:          m.handleStart,
		types.ActionStatus:         m.handleStatus,
		types.ActionSwitch:         m.handleSwitch,
		types.ActionExplore:        m.handleExplore,
		types.ActionGym:            m.handleGym,
		types.ActionAttack:         m.handleAttack,
		types.ActionCapture:        m.handleCapture,
		types.ActionFlee:           m.handleFlee,
		types.ActionBuy:            m.handleBuy,
		types.ActionUseItem:        m.handleUseItem,
		types.ActionEvolve:         m.handleEvolve,
		types.ActionClaimMission:   m.handleClaimMission,
		types.ActionRaidStart:      m.handleRaidStart,
		types.ActionRaidAttack:     m.handleRaidAttack,
		types.ActionCoopClaim:      m.handleCoopClaim,
		types.ActionPvpChallenge:   m.handlePvpChallenge,
		types.ActionPvpAccept:      m.handlePvpAccept,
		types.ActionPvpReject:      m.handlePvpReject,
		types.ActionPvpAttack:      m.handlePvpAttack,
		types.ActionPvpQueue:       m.handlePvpQueue,
		types.ActionPvpCancelQueue: m.handlePvpCancelQueue,
		types.ActionTradeOffer:     m.handleTradeOffer,
		types.ActionTradeAccept:    m.handleTradeAccept,
		types.ActionTradeCancel:    m.handleTradeCancel,
		types.ActionKarma:          m.handleKarma,
	}
	return m
}

// SetLogger sets the logger and rebuilds the components that log
func (m *Manager) SetLogger(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m.Logger = logger
	m.encounters = encounter.NewEngine(m.gateway, m.roller, encounterConfig(m.cfg.Encounter), logger.Named("encounter"))
	m.evolutions = evolution.NewResolver(m.gateway, logger.Named("evolution"))
}

// SetClock replaces the time source of the manager and its throttle
func (m *Manager) SetClock(now func() time.Time) {
	m.now = func() time.Time { return now().UTC() }
	m.throttle.SetClock(now)
}

// Throttle returns the cooldown gate
func (m *Manager) Throttle() *throttle.Throttle {
	return m.throttle
}

func encounterConfig(c config.EncounterConfig) encounter.Config {
	return encounter.Config{
		ShinyChance:       c.ShinyChance,
		MaxSpeciesID:      c.MaxSpeciesID,
		TypeRosterRetries: c.TypeRosterRetries,
		RandomRetries:     c.RandomRetries,
		CandidateMoves:    c.CandidateMoves,
		FallbackMove:      c.FallbackMove,
		IVMin:             c.IVMin,
		IVMax:             c.IVMax,
		LevelSpread:       c.LevelSpread,
		MinWildLevel:      c.MinWildLevel,
	}
}

// ExecuteAction is the single entry point of the engine. Game-logic refusals
// come back as a rejected result; an error means nothing was written.
func (m *Manager) ExecuteAction(ctx context.Context, req types.ActionRequest) (*types.ActionResult, error) {
	if req.OwnerJID == "" || req.ChatID == "" {
		return nil, fmt.Errorf("%w: owner and chat are required", ErrInvalidRequest)
	}
	start := time.Now()

	handler, ok := m.handlers[req.Kind]
	if !ok {
		res := &types.ActionResult{Kind: req.Kind, Outcome: types.OutcomeRejected, Reason: types.ReasonUnknownAction}
		m.logAction(req, res, start)
		return res, nil
	}

	if allowed, wait := m.throttle.Allow(req.OwnerJID, string(req.Kind)); !allowed {
		res := &types.ActionResult{Kind: req.Kind, Outcome: types.OutcomeRejected, Reason: types.ReasonCooldown, RetryAfter: wait}
		m.logAction(req, res, start)
		return res, nil
	}

	var res *types.ActionResult
	err := m.store.Transaction(ctx, func(tx *storage.Tx) error {
		res = &types.ActionResult{Kind: req.Kind, Outcome: types.OutcomeSuccess}
		return handler(&action{ctx: ctx, tx: tx, req: req, res: res, now: m.now()})
	})
	if err != nil {
		m.Logger.Error("Action failed",
			zap.String("owner", req.OwnerJID),
			zap.String("chat", req.ChatID),
			zap.String("action", string(req.Kind)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to execute %s: %w", req.Kind, err)
	}

	m.logAction(req, res, start)
	return res, nil
}

func (m *Manager) logAction(req types.ActionRequest, res *types.ActionResult, start time.Time) {
	m.Logger.Info("Action executed",
		zap.String("owner", req.OwnerJID),
		zap.String("chat", req.ChatID),
		zap.String("action", string(req.Kind)),
		zap.String("outcome", string(res.Outcome)),
		zap.String("reason", res.Reason),
		zap.Duration("duration", time.Since(start)))
}

// requirePlayer locks the acting player. It returns nil after recording a
// rejection when the player has not started.
func (m *Manager) requirePlayer(a *action) (*storage.Player, error) {
	p, err := a.tx.LockPlayer(a.owner())
	if err != nil {
		return nil, fmt.Errorf("failed to lock player: %w", err)
	}
	if p == nil {
		a.reject(types.ReasonNotStarted)
	}
	return p, nil
}

// requireFighter locks the active creature and rejects when it is missing or
// fainted
func (m *Manager) requireFighter(a *action) (*storage.Creature, error) {
	c, err := a.tx.LockActiveCreature(a.owner())
	if err != nil {
		return nil, fmt.Errorf("failed to lock active creature: %w", err)
	}
	if c == nil {
		a.reject(types.ReasonNoActiveCreature)
		return nil, nil
	}
	if c.HP <= 0 {
		a.reject(types.ReasonCreatureFainted)
		return nil, nil
	}
	return c, nil
}

func (m *Manager) item(a *action, key string) (*types.Item, error) {
	it, err := m.gateway.GetItem(a.ctx, key)
	if err != nil {
		m.Logger.Warn("Item unavailable", zap.String("item", key), zap.Error(err))
		return nil, err
	}
	return it, nil
}
