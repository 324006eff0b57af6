package game

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/creature-league/config"
	"github.com/user/creature-league/internal/combat"
	"github.com/user/creature-league/internal/dice"
	"github.com/user/creature-league/internal/encounter"
	"github.com/user/creature-league/internal/species"
	"github.com/user/creature-league/internal/storage"
	"github.com/user/creature-league/internal/types"
	"go.uber.org/zap"
)

const testChat = "chat-1"

// Monday, so a one-day step stays in the same ISO week
var testEpoch = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

type testGame struct {
	m     *Manager
	store *storage.Store
	now   time.Time
}

func newTestGame(t *testing.T, tweak func(cfg *config.GameConfig)) *testGame {
	t.Helper()
	cfg := config.DefaultConfig().Game
	cfg.DefaultCooldownMs = 0
	cfg.CooldownsMs = nil
	if tweak != nil {
		tweak(&cfg)
	}

	store, err := storage.Open(storage.Config{
		Driver:    storage.DriverSQLite,
		DSN:       filepath.Join(t.TempDir(), "game.db"),
		TxRetries: 3,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	catalog, err := species.LoadCatalog("../../assets/data")
	require.NoError(t, err)

	g := &testGame{store: store, now: testEpoch}
	g.m = NewManager(cfg, store, catalog, dice.NewRollerFromSource(dice.Fixed{}))
	g.m.SetClock(func() time.Time { return g.now })
	return g
}

func (g *testGame) do(t *testing.T, owner string, kind types.ActionKind, args types.ActionArgs) *types.ActionResult {
	t.Helper()
	res, err := g.m.ExecuteAction(context.Background(), types.ActionRequest{
		OwnerJID: owner,
		ChatID:   testChat,
		Kind:     kind,
		Args:     args,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func (g *testGame) tx(t *testing.T, fn func(tx *storage.Tx)) {
	t.Helper()
	require.NoError(t, g.store.Transaction(context.Background(), func(tx *storage.Tx) error {
		fn(tx)
		return nil
	}))
}

func (g *testGame) start(t *testing.T, owner string) {
	t.Helper()
	res := g.do(t, owner, types.ActionStart, types.ActionArgs{Choice: 1, Name: owner})
	require.False(t, res.Rejected(), res.Reason)
}

func (g *testGame) player(t *testing.T, owner string) *storage.Player {
	t.Helper()
	var p *storage.Player
	g.tx(t, func(tx *storage.Tx) {
		var err error
		p, err = tx.LockPlayer(owner)
		require.NoError(t, err)
	})
	require.NotNil(t, p)
	return p
}

func (g *testGame) fighter(t *testing.T, owner string) *storage.Creature {
	t.Helper()
	var c *storage.Creature
	g.tx(t, func(tx *storage.Tx) {
		var err error
		c, err = tx.LockActiveCreature(owner)
		require.NoError(t, err)
	})
	require.NotNil(t, c)
	return c
}

func (g *testGame) inventory(t *testing.T, owner string) map[string]int {
	t.Helper()
	var inv map[string]int
	g.tx(t, func(tx *storage.Tx) {
		var err error
		inv, err = tx.ListInventory(owner)
		require.NoError(t, err)
	})
	return inv
}

func (g *testGame) updatePlayer(t *testing.T, owner string, fn func(p *storage.Player)) {
	t.Helper()
	g.tx(t, func(tx *storage.Tx) {
		p, err := tx.LockPlayer(owner)
		require.NoError(t, err)
		fn(p)
		require.NoError(t, tx.SavePlayer(p))
	})
}

func (g *testGame) updateFighter(t *testing.T, owner string, fn func(c *storage.Creature)) {
	t.Helper()
	g.tx(t, func(tx *storage.Tx) {
		c, err := tx.LockActiveCreature(owner)
		require.NoError(t, err)
		require.NotNil(t, c)
		fn(c)
		require.NoError(t, tx.SaveCreature(c))
	})
}

func (g *testGame) move(t *testing.T, name string) types.Move {
	t.Helper()
	mv, err := g.m.gateway.GetMove(context.Background(), name)
	require.NoError(t, err)
	return *mv
}

// onlyTackle leaves the owner's fighter with a single, always-hitting move
func (g *testGame) onlyTackle(t *testing.T, owner string) {
	t.Helper()
	tackle := g.move(t, "tackle")
	g.updateFighter(t, owner, func(c *storage.Creature) { c.Moves = []types.Move{tackle} })
}

func (g *testGame) seedBattle(t *testing.T, owner, kind string, enemy types.Combatant) {
	t.Helper()
	c := g.fighter(t, owner)
	g.tx(t, func(tx *storage.Tx) {
		require.NoError(t, tx.CreateBattle(&storage.Battle{
			ChatID:     testChat,
			OwnerJID:   owner,
			Kind:       kind,
			CreatureID: c.ID,
			Enemy:      enemy,
			ExpiresAt:  g.now.Add(10 * time.Minute),
		}))
	})
}

func weakEnemy() types.Combatant {
	return types.Combatant{
		SpeciesID:   19,
		Name:        "rattata",
		Level:       5,
		Types:       []string{"normal"},
		Stats:       types.Stats{HP: 20, Attack: 5, Defense: 5, SpAttack: 5, SpDefense: 5, Speed: 1},
		HP:          1,
		MaxHP:       20,
		CaptureRate: 255,
	}
}

// useDice swaps the random source behind combat resolution
func (g *testGame) useDice(src dice.Source) {
	g.m.roller = dice.NewRollerFromSource(src)
	g.m.combat = combat.NewResolver(g.m.roller, combat.CaptureConfig(g.m.cfg.Capture))
}

func (g *testGame) missions(t *testing.T, owner string) *storage.MissionProgress {
	t.Helper()
	var mp *storage.MissionProgress
	g.tx(t, func(tx *storage.Tx) {
		var err error
		mp, err = tx.EnsureMission(owner, dayKey(g.now), weekKey(g.now))
		require.NoError(t, err)
	})
	return mp
}

func TestStartAndStatus(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)

	// Test case 1: Start a new player
	res := g.do(t, "ash", types.ActionStart, types.ActionArgs{Choice: 2, Name: "Ash"})
	require.False(t, res.Rejected(), res.Reason)
	view, ok := res.Payload.(types.PlayerView)
	require.True(t, ok)
	assert.Equal(t, "Ash", view.Name)
	assert.Equal(t, 500, view.Money)
	require.Len(t, view.Creatures, 1)
	assert.Equal(t, "charmander", view.Creatures[0].Species)
	assert.Equal(t, 5, view.Creatures[0].Level)
	assert.True(t, view.Creatures[0].Active)
	assert.Equal(t, map[string]int{"poke-ball": 5, "potion": 2}, view.Inventory)

	// Test case 2: Starting twice is refused
	res = g.do(t, "ash", types.ActionStart, types.ActionArgs{})
	assert.Equal(t, types.ReasonAlreadyStarted, res.Reason)

	// Test case 3: Status reflects the stored state
	res = g.do(t, "ash", types.ActionStatus, types.ActionArgs{})
	require.False(t, res.Rejected())
	status := res.Payload.(types.PlayerView)
	assert.Equal(t, view.Creatures, status.Creatures)
	assert.Equal(t, 5, status.Inventory["poke-ball"])

	// Test case 4: Unknown players and bad choices
	assert.Equal(t, types.ReasonNotStarted, g.do(t, "gary", types.ActionStatus, types.ActionArgs{}).Reason)
	assert.Equal(t, types.ReasonInvalidChoice, g.do(t, "gary", types.ActionStart, types.ActionArgs{Choice: 9}).Reason)
}

func TestExecuteActionValidation(t *testing.T) {
	g := newTestGame(t, nil)

	_, err := g.m.ExecuteAction(context.Background(), types.ActionRequest{ChatID: testChat, Kind: types.ActionStatus})
	assert.True(t, errors.Is(err, ErrInvalidRequest))

	res := g.do(t, "ash", types.ActionKind("dance"), types.ActionArgs{})
	assert.Equal(t, types.ReasonUnknownAction, res.Reason)
}

func TestCooldown(t *testing.T) {
	g := newTestGame(t, func(cfg *config.GameConfig) {
		cfg.CooldownsMs = map[string]int{"status": 60000}
	})
	g.start(t, "ash")

	assert.False(t, g.do(t, "ash", types.ActionStatus, types.ActionArgs{}).Rejected())

	res := g.do(t, "ash", types.ActionStatus, types.ActionArgs{})
	assert.Equal(t, types.ReasonCooldown, res.Reason)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// Other actions and other players are gated separately
	assert.False(t, g.do(t, "misty", types.ActionStart, types.ActionArgs{}).Rejected())

	g.now = g.now.Add(61 * time.Second)
	assert.False(t, g.do(t, "ash", types.ActionStatus, types.ActionArgs{}).Rejected())
}

func TestExploreAndFlee(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")

	// Test case 1: Explore opens a wild battle
	res := g.do(t, "ash", types.ActionExplore, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	view, ok := res.Payload.(*types.BattleView)
	require.True(t, ok)
	assert.Equal(t, storage.BattleWild, view.Kind)
	assert.Equal(t, 3, view.Snapshot.Enemy.Level)
	assert.NotEmpty(t, view.Source)
	assert.NotEmpty(t, res.Log)

	// Test case 2: Only one battle at a time, and no switching mid-battle
	assert.Equal(t, types.ReasonBattleInProgress, g.do(t, "ash", types.ActionExplore, types.ActionArgs{}).Reason)
	assert.Equal(t, types.ReasonBattleInProgress, g.do(t, "ash", types.ActionSwitch, types.ActionArgs{CreatureID: 1}).Reason)

	// Test case 3: Invalid slots are refused without consuming the turn
	assert.Equal(t, types.ReasonInvalidMove, g.do(t, "ash", types.ActionAttack, types.ActionArgs{Slot: 9}).Reason)

	// Test case 4: Flee closes the battle
	assert.False(t, g.do(t, "ash", types.ActionFlee, types.ActionArgs{}).Rejected())
	assert.Equal(t, types.ReasonNoActiveBattle, g.do(t, "ash", types.ActionFlee, types.ActionArgs{}).Reason)
	assert.Equal(t, types.ReasonNoActiveBattle, g.do(t, "ash", types.ActionAttack, types.ActionArgs{Slot: 1}).Reason)
}

func TestExploreInArea(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")

	res := g.do(t, "ash", types.ActionExplore, types.ActionArgs{Area: "Viridian Forest"})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, encounter.SourcePool, res.Payload.(*types.BattleView).Source)

	g.do(t, "ash", types.ActionFlee, types.ActionArgs{})

	// An unknown area degrades to the normal ladder
	res = g.do(t, "ash", types.ActionExplore, types.ActionArgs{Area: "Nowhere"})
	require.False(t, res.Rejected(), res.Reason)
	assert.NotEqual(t, encounter.SourcePool, res.Payload.(*types.BattleView).Source)
}

func TestBattleExpires(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")

	require.False(t, g.do(t, "ash", types.ActionExplore, types.ActionArgs{}).Rejected())
	g.now = g.now.Add(config.Seconds(g.m.cfg.BattleTTLSeconds) + time.Second)

	res := g.do(t, "ash", types.ActionAttack, types.ActionArgs{Slot: 1})
	assert.Equal(t, types.ReasonNoActiveBattle, res.Reason)
	require.NotEmpty(t, res.Log)
	assert.Contains(t, res.Log[0], "lost interest")

	// The lazy expiry committed, so a new battle can start
	assert.False(t, g.do(t, "ash", types.ActionExplore, types.ActionArgs{}).Rejected())
}

func TestAttackWinsWildBattle(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.onlyTackle(t, "ash")
	g.seedBattle(t, "ash", storage.BattleWild, weakEnemy())

	// Test case 1: The enemy faints and the battle pays out
	res := g.do(t, "ash", types.ActionAttack, types.ActionArgs{Slot: 1})
	require.False(t, res.Rejected(), res.Reason)
	view := res.Payload.(*types.BattleView)
	assert.Equal(t, "player", view.Winner)
	assert.True(t, view.Snapshot.Enemy.Fainted())

	require.NotNil(t, res.Rewards)
	assert.Equal(t, 60, res.Rewards.Money)
	assert.Equal(t, 20, res.Rewards.PlayerXP)
	assert.Equal(t, 75, res.Rewards.CreatureXP)
	assert.Equal(t, 1, res.Rewards.Items["poke-ball"])

	// Test case 2: State was persisted
	p := g.player(t, "ash")
	assert.Equal(t, 560, p.Money)
	assert.Equal(t, 20, p.XP)
	assert.Equal(t, 6, g.inventory(t, "ash")["poke-ball"])
	assert.Equal(t, xpForLevel(5)+75, g.fighter(t, "ash").XP)
	assert.Equal(t, types.ReasonNoActiveBattle, g.do(t, "ash", types.ActionFlee, types.ActionArgs{}).Reason)
}

func TestAttackLosesWildBattle(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.onlyTackle(t, "ash")
	g.updateFighter(t, "ash", func(c *storage.Creature) { c.HP = 1 })

	enemy := weakEnemy()
	enemy.Level = 50
	enemy.Stats = types.Stats{HP: 100, Attack: 200, Defense: 200, SpAttack: 200, SpDefense: 200, Speed: 200}
	enemy.HP, enemy.MaxHP = 100, 100
	enemy.Moves = []types.Move{g.move(t, "tackle")}
	g.seedBattle(t, "ash", storage.BattleWild, enemy)

	res := g.do(t, "ash", types.ActionAttack, types.ActionArgs{Slot: 1})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, "enemy", res.Payload.(*types.BattleView).Winner)
	assert.Equal(t, -50, res.Rewards.Money)

	assert.Equal(t, 450, g.player(t, "ash").Money)
	assert.Equal(t, 0, g.fighter(t, "ash").HP)
	assert.Equal(t, types.ReasonCreatureFainted, g.do(t, "ash", types.ActionExplore, types.ActionArgs{}).Reason)
}

func TestCapture(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.seedBattle(t, "ash", storage.BattleWild, weakEnemy())

	// Test case 1: Non-balls and balls not held are refused
	assert.Equal(t, types.ReasonNotABall, g.do(t, "ash", types.ActionCapture, types.ActionArgs{Item: "potion"}).Reason)
	assert.Equal(t, types.ReasonNoBall, g.do(t, "ash", types.ActionCapture, types.ActionArgs{Item: "great-ball"}).Reason)

	// Test case 2: A capture with the default ball
	res := g.do(t, "ash", types.ActionCapture, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	view := res.Payload.(*types.BattleView)
	require.NotNil(t, view.Captured)
	assert.Equal(t, "rattata", view.Captured.Species)
	assert.False(t, view.Captured.Active)
	assert.Equal(t, 25, res.Rewards.Money)
	assert.Equal(t, 37, res.Rewards.CreatureXP)

	status := g.do(t, "ash", types.ActionStatus, types.ActionArgs{}).Payload.(types.PlayerView)
	assert.Len(t, status.Creatures, 2)
	assert.Equal(t, 4, status.Inventory["poke-ball"])

	// Test case 3: The battle is over
	assert.Equal(t, types.ReasonNoActiveBattle, g.do(t, "ash", types.ActionCapture, types.ActionArgs{}).Reason)

	// Test case 4: The new creature can be switched in
	res = g.do(t, "ash", types.ActionSwitch, types.ActionArgs{CreatureID: view.Captured.ID})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, "rattata", g.fighter(t, "ash").SpeciesName)
}

func TestFailedCaptureKeepsStatStages(t *testing.T) {
	// Setup: every chance roll fails, so the ball breaks and the enemy answers
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.useDice(dice.Fixed{Float: 0.99})

	enemy := weakEnemy()
	enemy.Moves = []types.Move{g.move(t, "growl")}
	g.seedBattle(t, "ash", storage.BattleWild, enemy)
	g.tx(t, func(tx *storage.Tx) {
		b, err := tx.LockBattle(testChat, "ash")
		require.NoError(t, err)
		require.NotNil(t, b)
		b.PlayerStages = map[string]int{types.StatDefense: 1}
		require.NoError(t, tx.SaveBattle(b))
	})

	res := g.do(t, "ash", types.ActionCapture, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	view := res.Payload.(*types.BattleView)
	assert.Nil(t, view.Captured)
	assert.Equal(t, 1, view.Snapshot.Player.Stages[types.StatDefense])
	assert.Equal(t, -1, view.Snapshot.Player.Stages[types.StatAttack])

	g.tx(t, func(tx *storage.Tx) {
		b, err := tx.LockBattle(testChat, "ash")
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.Equal(t, map[string]int{types.StatDefense: 1, types.StatAttack: -1}, b.PlayerStages)
	})
	assert.Equal(t, 4, g.inventory(t, "ash")["poke-ball"])
}

func TestGymBattle(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.onlyTackle(t, "ash")

	// Test case 1: Gym opens a battle that cannot be captured
	res := g.do(t, "ash", types.ActionGym, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	view := res.Payload.(*types.BattleView)
	assert.Equal(t, storage.BattleGym, view.Kind)
	assert.Equal(t, 12, view.Snapshot.Enemy.Level)
	assert.Equal(t, types.ReasonCannotCapture, g.do(t, "ash", types.ActionCapture, types.ActionArgs{}).Reason)
	g.do(t, "ash", types.ActionFlee, types.ActionArgs{})

	// Test case 2: Beating the leader awards the badge
	g.seedBattle(t, "ash", storage.BattleGym, weakEnemy())
	res = g.do(t, "ash", types.ActionAttack, types.ActionArgs{Slot: 1})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, 800, res.Rewards.Money)

	p := g.player(t, "ash")
	assert.Equal(t, 1, p.Badges)
	assert.Equal(t, 1300, p.Money)

	// Test case 3: No gyms left
	g.updatePlayer(t, "ash", func(p *storage.Player) { p.Badges = len(g.m.cfg.Gyms) })
	assert.Equal(t, types.ReasonGymUnavailable, g.do(t, "ash", types.ActionGym, types.ActionArgs{}).Reason)
}

func TestBuyAndUseItems(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")

	// Test case 1: Buying
	assert.Equal(t, types.ReasonInvalidQuantity, g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "potion", Quantity: 100}).Reason)
	assert.Equal(t, types.ReasonUnknownItem, g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "golden-egg"}).Reason)
	assert.Equal(t, types.ReasonNotForSale, g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "master-ball"}).Reason)
	assert.Equal(t, types.ReasonInsufficientFunds, g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "revive"}).Reason)

	res := g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "poke-ball", Quantity: 2})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, -400, res.Rewards.Money)
	assert.Equal(t, 100, g.player(t, "ash").Money)
	assert.Equal(t, 7, g.inventory(t, "ash")["poke-ball"])

	// Test case 2: Healing
	g.updateFighter(t, "ash", func(c *storage.Creature) { c.HP = 1 })
	res = g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "potion"})
	require.False(t, res.Rejected(), res.Reason)
	c := g.fighter(t, "ash")
	assert.Equal(t, min(c.MaxHP, 21), c.HP)
	assert.Equal(t, 1, g.inventory(t, "ash")["potion"])

	// Test case 3: Items without effect are kept
	assert.Equal(t, types.ReasonNoItem, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "revive"}).Reason)
	g.tx(t, func(tx *storage.Tx) {
		require.NoError(t, tx.AddItem("ash", "revive", 1))
		require.NoError(t, tx.AddItem("ash", "full-heal", 1))
		require.NoError(t, tx.AddItem("ash", "fire-stone", 1))
		require.NoError(t, tx.AddItem("ash", "rare-candy", 1))
	})
	assert.Equal(t, types.ReasonItemNoEffect, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "revive"}).Reason)
	assert.Equal(t, types.ReasonItemNoEffect, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "full-heal"}).Reason)
	assert.Equal(t, types.ReasonItemNoEffect, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "fire-stone"}).Reason)
	assert.Equal(t, types.ReasonItemNoEffect, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "poke-ball"}).Reason)
	assert.Equal(t, 1, g.inventory(t, "ash")["revive"])

	// Test case 4: Status cure and revive
	g.updateFighter(t, "ash", func(c *storage.Creature) { c.Status = types.StatusPoison })
	assert.False(t, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "full-heal"}).Rejected())
	assert.Empty(t, g.fighter(t, "ash").Status)

	g.updateFighter(t, "ash", func(c *storage.Creature) { c.HP = 0 })
	assert.False(t, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "revive"}).Rejected())
	c = g.fighter(t, "ash")
	assert.Equal(t, max(1, c.MaxHP/2), c.HP)
	assert.NotContains(t, g.inventory(t, "ash"), "revive")

	// Test case 5: Rare candy levels up
	res = g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "rare-candy"})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, 6, g.fighter(t, "ash").Level)
}

func TestEvolve(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")

	assert.Equal(t, types.ReasonNoEvolution, g.do(t, "ash", types.ActionEvolve, types.ActionArgs{}).Reason)

	g.onlyTackle(t, "ash")
	g.updateFighter(t, "ash", func(c *storage.Creature) {
		c.Level = 16
		c.XP = xpForLevel(16)
		c.HP = c.MaxHP / 2
	})
	before := g.fighter(t, "ash")

	res := g.do(t, "ash", types.ActionEvolve, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	require.NotNil(t, res.Evolution)
	assert.Equal(t, "ivysaur", res.Evolution.ToName)

	after := g.fighter(t, "ash")
	assert.Equal(t, 2, after.SpeciesID)
	assert.Equal(t, "ivysaur", after.Nickname)
	assert.Equal(t, before.ID, after.ID)
	assert.InDelta(t, float64(before.HP)/float64(before.MaxHP), float64(after.HP)/float64(after.MaxHP), 0.1)

	// Free move slots are filled from the new species, known moves stay
	require.Len(t, after.Moves, 4)
	assert.Equal(t, "tackle", after.Moves[0].Name)
	assert.Len(t, res.Evolution.LearnedMoves, 3)
	assert.NotContains(t, res.Evolution.LearnedMoves, "tackle")
}

func TestRescue(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.updatePlayer(t, "ash", func(p *storage.Player) { p.Money = 0 })
	g.updateFighter(t, "ash", func(c *storage.Creature) { c.HP = 1 })
	g.tx(t, func(tx *storage.Tx) {
		ok, err := tx.ConsumeItem("ash", "potion", 2)
		require.NoError(t, err)
		require.True(t, ok)
	})

	// Test case 1: A broke player with a hurt creature is rescued once
	res := g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "potion"})
	assert.Equal(t, types.ReasonInsufficientFunds, res.Reason)
	require.NotNil(t, res.Rescue)
	assert.Equal(t, 200, res.Rescue.Money)
	assert.Equal(t, 1, res.Rescue.Items["potion"])
	assert.Equal(t, 200, g.player(t, "ash").Money)
	assert.Equal(t, 1, g.inventory(t, "ash")["potion"])

	// Test case 2: Holding a potion and the cooldown both block a second stipend
	res = g.do(t, "ash", types.ActionBuy, types.ActionArgs{Item: "potion"})
	assert.Equal(t, types.ReasonInsufficientFunds, res.Reason)
	assert.Nil(t, res.Rescue)

	require.False(t, g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "potion"}).Rejected())
	g.updateFighter(t, "ash", func(c *storage.Creature) { c.HP = 1 })
	res = g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "potion"})
	assert.Equal(t, types.ReasonNoItem, res.Reason)
	assert.Nil(t, res.Rescue)

	// Test case 3: After the cooldown the valve opens again
	g.now = g.now.Add(config.Seconds(g.m.cfg.Rescue.CooldownSeconds) + time.Second)
	res = g.do(t, "ash", types.ActionUseItem, types.ActionArgs{Item: "potion"})
	assert.Equal(t, types.ReasonNoItem, res.Reason)
	require.NotNil(t, res.Rescue)
	assert.Equal(t, 400, g.player(t, "ash").Money)
}

func TestMissions(t *testing.T) {
	// Setup
	g := newTestGame(t, func(cfg *config.GameConfig) {
		cfg.Missions = config.MissionConfig{
			DailyExplore:  1,
			WeeklyExplore: 2,
			DailyMoney:    300,
			WeeklyMoney:   1500,
			DailyBonus:    100,
			WeeklyBonus:   500,
		}
	})
	g.start(t, "ash")

	assert.Equal(t, types.ReasonInvalidPeriod, g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "monthly"}).Reason)
	assert.Equal(t, types.ReasonMissionIncomplete, g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "daily"}).Reason)

	// Test case 1: Completing the daily target pays the one-time bonus
	res := g.do(t, "ash", types.ActionExplore, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	require.NotNil(t, res.Rewards)
	assert.Equal(t, 100, res.Rewards.MissionBonus)
	assert.Equal(t, 600, g.player(t, "ash").Money)

	// Test case 2: Claiming the daily reward once
	res = g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "daily"})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, 300, res.Rewards.Money)
	assert.Equal(t, types.ReasonAlreadyClaimed, g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "daily"}).Reason)
	assert.Equal(t, types.ReasonMissionIncomplete, g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "weekly"}).Reason)

	// Test case 3: The weekly bonus fires on the second explore, the daily one does not repeat
	g.do(t, "ash", types.ActionFlee, types.ActionArgs{})
	res = g.do(t, "ash", types.ActionExplore, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, 500, res.Rewards.MissionBonus)
	assert.False(t, g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "weekly"}).Rejected())
	assert.Equal(t, 600+300+500+1500, g.player(t, "ash").Money)

	// Test case 4: A new day resets the daily counters but not the week
	g.now = g.now.Add(24 * time.Hour)
	res = g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "daily"})
	assert.Equal(t, types.ReasonMissionIncomplete, res.Reason)
	assert.Equal(t, 0, res.Payload.(types.MissionView).Explore)
	assert.Equal(t, types.ReasonAlreadyClaimed, g.do(t, "ash", types.ActionClaimMission, types.ActionArgs{Period: "weekly"}).Reason)
}

func TestMissionKeys(t *testing.T) {
	assert.Equal(t, "2026-03-02", dayKey(testEpoch))
	assert.Equal(t, "2026-W10", weekKey(testEpoch))
	assert.Equal(t, "2025-W01", weekKey(time.Date(2024, time.December, 30, 0, 0, 0, 0, time.UTC)))
}

func TestRaidConcurrentAttacks(t *testing.T) {
	// Setup
	g := newTestGame(t, func(cfg *config.GameConfig) { cfg.Coop.WeeklyTarget = 1 })
	owners := []string{"p1", "p2", "p3", "p4"}
	for _, o := range owners {
		g.start(t, o)
		g.onlyTackle(t, o)
	}
	g.start(t, "lurker")

	// Test case 1: One raid per chat
	assert.Equal(t, types.ReasonNoActiveRaid, g.do(t, "p1", types.ActionRaidAttack, types.ActionArgs{Slot: 1}).Reason)
	res := g.do(t, "p1", types.ActionRaidStart, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	raid := res.Payload.(*types.RaidView)
	assert.Equal(t, raid.MaxHP, raid.CurrentHP)
	assert.Equal(t, types.ReasonRaidInProgress, g.do(t, "p2", types.ActionRaidStart, types.ActionArgs{}).Reason)

	// Test case 2: Concurrent hits never lose an update
	var wg sync.WaitGroup
	for _, o := range owners {
		wg.Add(1)
		go func(owner string) {
			defer wg.Done()
			res, err := g.m.ExecuteAction(context.Background(), types.ActionRequest{
				OwnerJID: owner, ChatID: testChat, Kind: types.ActionRaidAttack, Args: types.ActionArgs{Slot: 1},
			})
			assert.NoError(t, err)
			if assert.NotNil(t, res) {
				assert.False(t, res.Rejected(), res.Reason)
			}
		}(o)
	}
	wg.Wait()

	var total int
	g.tx(t, func(tx *storage.Tx) {
		r, err := tx.LockRaid(testChat)
		require.NoError(t, err)
		require.NotNil(t, r)
		parts, err := tx.ListRaidParticipants(r.ID)
		require.NoError(t, err)
		require.Len(t, parts, len(owners))
		for _, p := range parts {
			assert.Equal(t, 1, p.Hits)
			total += p.Damage
		}
		assert.Equal(t, max(0, r.MaxHP-total), r.CurrentHP)

		ev, err := tx.LockCoopEvent(testChat, weekKey(g.now))
		require.NoError(t, err)
		require.NotNil(t, ev)
		assert.Equal(t, total, ev.Progress)
		assert.NotNil(t, ev.CompletedAt)

		// Leave the boss one hit from defeat
		r.CurrentHP = 1
		require.NoError(t, tx.SaveRaid(r))
	})
	require.Greater(t, total, 0)

	// Test case 3: The final hit splits the pool by damage
	g.updateFighter(t, "p1", func(c *storage.Creature) { c.HP = c.MaxHP })
	res = g.do(t, "p1", types.ActionRaidAttack, types.ActionArgs{Slot: 1})
	require.False(t, res.Rejected(), res.Reason)
	view := res.Payload.(*types.RaidView)
	assert.True(t, view.Defeated)
	assert.Len(t, view.Payouts, len(owners))
	paid := 0
	for _, p := range view.Payouts {
		paid += p.Money
	}
	assert.LessOrEqual(t, paid, g.m.cfg.Raid.RewardMoney)
	require.NotNil(t, res.Rewards)
	assert.Equal(t, types.ReasonNoActiveRaid, g.do(t, "p1", types.ActionRaidAttack, types.ActionArgs{Slot: 1}).Reason)

	// Test case 4: Co-op claims
	res = g.do(t, "p2", types.ActionCoopClaim, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, 1000, res.Rewards.Money)
	assert.Equal(t, 1, g.inventory(t, "p2")["ultra-ball"])
	assert.Equal(t, types.ReasonAlreadyClaimed, g.do(t, "p2", types.ActionCoopClaim, types.ActionArgs{}).Reason)
	assert.Equal(t, types.ReasonNoContribution, g.do(t, "lurker", types.ActionCoopClaim, types.ActionArgs{}).Reason)
}

func TestRaidExpires(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")

	require.False(t, g.do(t, "ash", types.ActionRaidStart, types.ActionArgs{}).Rejected())
	g.now = g.now.Add(config.Seconds(g.m.cfg.RaidDurationSeconds))

	assert.Equal(t, types.ReasonNoActiveRaid, g.do(t, "ash", types.ActionRaidAttack, types.ActionArgs{Slot: 1}).Reason)
	assert.False(t, g.do(t, "ash", types.ActionRaidStart, types.ActionArgs{}).Rejected())
}

func TestRaidVictoryProgressesParticipants(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	for _, o := range []string{"ash", "misty"} {
		g.start(t, o)
		g.onlyTackle(t, o)
	}
	g.updateFighter(t, "ash", func(c *storage.Creature) {
		c.Level = 15
		c.XP = xpForLevel(16) - 1
	})

	require.False(t, g.do(t, "ash", types.ActionRaidStart, types.ActionArgs{}).Rejected())
	for _, o := range []string{"ash", "misty"} {
		res := g.do(t, o, types.ActionRaidAttack, types.ActionArgs{Slot: 1})
		require.False(t, res.Rejected(), res.Reason)
	}
	g.tx(t, func(tx *storage.Tx) {
		r, err := tx.LockRaid(testChat)
		require.NoError(t, err)
		require.NotNil(t, r)
		r.CurrentHP = 1
		require.NoError(t, tx.SaveRaid(r))
	})
	g.updateFighter(t, "ash", func(c *storage.Creature) { c.HP = c.MaxHP })
	mistyBefore := g.fighter(t, "misty")

	// Test case 1: The final hit pays creature XP and evolves the attacker
	res := g.do(t, "ash", types.ActionRaidAttack, types.ActionArgs{Slot: 1})
	require.False(t, res.Rejected(), res.Reason)
	view := res.Payload.(*types.RaidView)
	require.True(t, view.Defeated)
	require.NotNil(t, res.Rewards)
	assert.Positive(t, res.Rewards.CreatureXP)
	require.NotNil(t, res.Evolution)
	assert.Equal(t, "ivysaur", res.Evolution.ToName)

	ash := g.fighter(t, "ash")
	assert.Equal(t, 2, ash.SpeciesID)
	assert.Equal(t, xpForLevel(16)-1+res.Rewards.CreatureXP, ash.XP)
	assert.GreaterOrEqual(t, ash.Level, 16)

	// Test case 2: Every participant's creature shares the XP pool
	var mistyPayout *types.Payout
	for i := range view.Payouts {
		if view.Payouts[i].OwnerJID == "misty" {
			mistyPayout = &view.Payouts[i]
		}
	}
	require.NotNil(t, mistyPayout)
	assert.Positive(t, mistyPayout.CreatureXP)
	assert.Equal(t, mistyBefore.XP+mistyPayout.CreatureXP, g.fighter(t, "misty").XP)

	// Test case 3: The win counts toward everyone's missions
	for _, o := range []string{"ash", "misty"} {
		mp := g.missions(t, o)
		assert.Equal(t, 1, mp.DailyWin, o)
		assert.Equal(t, 1, mp.WeeklyWin, o)
	}
}

func TestPvpChallengeFlow(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	for _, o := range []string{"ash", "misty"} {
		g.start(t, o)
		g.onlyTackle(t, o)
	}

	// Test case 1: Challenge validation
	assert.Equal(t, types.ReasonSelfTarget, g.do(t, "ash", types.ActionPvpChallenge, types.ActionArgs{Target: "ash"}).Reason)
	assert.Equal(t, types.ReasonTargetNotFound, g.do(t, "ash", types.ActionPvpChallenge, types.ActionArgs{Target: "gary"}).Reason)

	res := g.do(t, "ash", types.ActionPvpChallenge, types.ActionArgs{Target: "misty"})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.PvpPending, res.Payload.(*types.PvpView).Status)
	assert.Equal(t, types.ReasonMatchInProgress, g.do(t, "misty", types.ActionPvpChallenge, types.ActionArgs{Target: "ash"}).Reason)

	// Test case 2: Only the opponent can accept
	assert.Equal(t, types.ReasonNoChallenge, g.do(t, "ash", types.ActionPvpAccept, types.ActionArgs{}).Reason)
	res = g.do(t, "misty", types.ActionPvpAccept, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	match := res.Payload.(*types.PvpView)
	assert.Equal(t, storage.PvpActive, match.Status)
	require.Len(t, match.Combatants, 2)

	// Test case 3: Turns alternate until one side faints
	waiting := match.ChallengerJID
	if match.TurnJID == waiting {
		waiting = match.OpponentJID
	}
	assert.Equal(t, types.ReasonNotYourTurn, g.do(t, waiting, types.ActionPvpAttack, types.ActionArgs{Slot: 1}).Reason)

	xpBefore := map[string]int{}
	for _, o := range []string{"ash", "misty"} {
		xpBefore[o] = g.fighter(t, o).XP
	}

	turn := match.TurnJID
	var final *types.PvpView
	for i := 0; i < 200 && final == nil; i++ {
		res = g.do(t, turn, types.ActionPvpAttack, types.ActionArgs{Slot: 1})
		require.False(t, res.Rejected(), res.Reason)
		view := res.Payload.(*types.PvpView)
		if view.Status == storage.PvpFinished {
			final = view
			break
		}
		assert.NotEqual(t, turn, view.TurnJID)
		turn = view.TurnJID
	}
	require.NotNil(t, final)
	require.NotEmpty(t, final.WinnerJID)
	assert.Equal(t, 500+g.m.cfg.Rewards.PvpMoney, g.player(t, final.WinnerJID).Money)

	// The winner's creature gains experience and the win counts toward missions
	loser := "ash"
	if final.WinnerJID == "ash" {
		loser = "misty"
	}
	assert.Equal(t, xpBefore[final.WinnerJID]+g.m.cfg.Rewards.PvpCreatureXP, g.fighter(t, final.WinnerJID).XP)
	assert.Equal(t, xpBefore[loser], g.fighter(t, loser).XP)
	assert.Equal(t, 1, g.missions(t, final.WinnerJID).DailyWin)
	assert.Equal(t, 0, g.missions(t, loser).DailyWin)

	// Exhibition matches leave the creatures untouched
	for _, o := range []string{"ash", "misty"} {
		c := g.fighter(t, o)
		assert.Equal(t, c.MaxHP, c.HP)
	}
	g.tx(t, func(tx *storage.Tx) {
		link, err := tx.EnsureSocialLink("misty", "ash")
		require.NoError(t, err)
		assert.Equal(t, 1, link.Rivalry)
	})

	// Test case 4: A new challenge can be rejected
	require.False(t, g.do(t, "ash", types.ActionPvpChallenge, types.ActionArgs{Target: "misty"}).Rejected())
	res = g.do(t, "misty", types.ActionPvpReject, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.PvpRejected, res.Payload.(*types.PvpView).Status)
	assert.Equal(t, types.ReasonNoChallenge, g.do(t, "misty", types.ActionPvpReject, types.ActionArgs{}).Reason)
}

func TestPvpChallengeExpires(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.start(t, "misty")

	require.False(t, g.do(t, "ash", types.ActionPvpChallenge, types.ActionArgs{Target: "misty"}).Rejected())
	g.now = g.now.Add(config.Seconds(g.m.cfg.PvpTTLSeconds))

	assert.Equal(t, types.ReasonNoChallenge, g.do(t, "misty", types.ActionPvpAccept, types.ActionArgs{}).Reason)
	assert.False(t, g.do(t, "misty", types.ActionPvpChallenge, types.ActionArgs{Target: "ash"}).Rejected())
}

func TestPvpQueue(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	for _, o := range []string{"ash", "misty", "brock"} {
		g.start(t, o)
	}

	// Test case 1: The first player waits
	res := g.do(t, "ash", types.ActionPvpQueue, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.QueueQueued, res.Payload.(types.QueueView).Status)
	assert.Equal(t, types.ReasonAlreadyQueued, g.do(t, "ash", types.ActionPvpQueue, types.ActionArgs{}).Reason)

	// Test case 2: The second player is matched against the first
	res = g.do(t, "misty", types.ActionPvpQueue, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	qv := res.Payload.(types.QueueView)
	assert.Equal(t, storage.QueueMatched, qv.Status)
	require.NotNil(t, qv.Match)
	assert.Equal(t, "ash", qv.Match.ChallengerJID)
	assert.Equal(t, "misty", qv.Match.OpponentJID)
	assert.Equal(t, storage.PvpActive, qv.Match.Status)

	assert.Equal(t, types.ReasonNotQueued, g.do(t, "ash", types.ActionPvpCancelQueue, types.ActionArgs{}).Reason)
	assert.Equal(t, types.ReasonMatchInProgress, g.do(t, "ash", types.ActionPvpQueue, types.ActionArgs{}).Reason)

	// Test case 3: Leaving the queue
	require.False(t, g.do(t, "brock", types.ActionPvpQueue, types.ActionArgs{}).Rejected())
	res = g.do(t, "brock", types.ActionPvpCancelQueue, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.QueueCancelled, res.Payload.(types.QueueView).Status)

	// Test case 4: Expired entries are not matched
	require.False(t, g.do(t, "brock", types.ActionPvpQueue, types.ActionArgs{}).Rejected())
	g.now = g.now.Add(config.Seconds(g.m.cfg.QueueTTLSeconds) + time.Second)
	assert.Equal(t, types.ReasonNotQueued, g.do(t, "brock", types.ActionPvpCancelQueue, types.ActionArgs{}).Reason)
}

func TestPvpQueueSkipsPlayersInMatch(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	for _, o := range []string{"ash", "misty", "brock", "gary"} {
		g.start(t, o)
	}
	countActive := func(owner string) int64 {
		var n int64
		g.tx(t, func(tx *storage.Tx) {
			require.NoError(t, tx.DB().Model(&storage.PvpChallenge{}).
				Where("status = ? AND (challenger_jid = ? OR opponent_jid = ?)", storage.PvpActive, owner, owner).
				Count(&n).Error)
		})
		return n
	}

	// Test case 1: Accepting a challenge takes the player out of the queue
	require.False(t, g.do(t, "ash", types.ActionPvpQueue, types.ActionArgs{}).Rejected())
	require.False(t, g.do(t, "misty", types.ActionPvpChallenge, types.ActionArgs{Target: "ash"}).Rejected())
	require.False(t, g.do(t, "ash", types.ActionPvpAccept, types.ActionArgs{}).Rejected())
	assert.Equal(t, types.ReasonNotQueued, g.do(t, "ash", types.ActionPvpCancelQueue, types.ActionArgs{}).Reason)

	res := g.do(t, "brock", types.ActionPvpQueue, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	qv := res.Payload.(types.QueueView)
	assert.Equal(t, storage.QueueQueued, qv.Status)
	assert.Nil(t, qv.Match)
	assert.EqualValues(t, 1, countActive("ash"))

	// Test case 2: A stale entry of a busy player is dropped and the next
	// waiting player is matched instead
	g.tx(t, func(tx *storage.Tx) {
		require.NoError(t, tx.CreateQueueEntry(&storage.PvpQueueEntry{
			ID:        "stale",
			ChatID:    testChat,
			OwnerJID:  "misty",
			Status:    storage.QueueQueued,
			CreatedAt: g.now.Add(-time.Minute),
			ExpiresAt: g.now.Add(time.Minute),
		}))
	})

	res = g.do(t, "gary", types.ActionPvpQueue, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	qv = res.Payload.(types.QueueView)
	assert.Equal(t, storage.QueueMatched, qv.Status)
	require.NotNil(t, qv.Match)
	assert.Equal(t, "brock", qv.Match.ChallengerJID)
	assert.EqualValues(t, 1, countActive("misty"))

	g.tx(t, func(tx *storage.Tx) {
		e, err := tx.LockQueueEntry(testChat, "misty")
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, storage.QueueCancelled, e.Status)
	})
}

func (g *testGame) giveCreature(t *testing.T, owner string, speciesID, level int) *storage.Creature {
	t.Helper()
	ctx := context.Background()
	sp, err := g.m.gateway.GetSpecies(ctx, speciesID)
	require.NoError(t, err)
	c := newCreature(owner, g.m.encounters.BuildCreatureSnapshot(ctx, *sp, encounter.SnapshotOptions{Level: level}), false)
	g.tx(t, func(tx *storage.Tx) { require.NoError(t, tx.CreateCreature(c)) })
	return c
}

func TestTrade(t *testing.T) {
	// Setup
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.start(t, "misty")
	graveler := g.giveCreature(t, "ash", 75, 30)
	active := g.fighter(t, "ash")

	// Test case 1: Offer validation
	offer := func(target string, id uint64, price int) *types.ActionResult {
		return g.do(t, "ash", types.ActionTradeOffer, types.ActionArgs{Target: target, CreatureID: id, Price: price})
	}
	assert.Equal(t, types.ReasonInvalidPrice, offer("misty", graveler.ID, 0).Reason)
	assert.Equal(t, types.ReasonSelfTarget, offer("ash", graveler.ID, 100).Reason)
	assert.Equal(t, types.ReasonTargetNotFound, offer("gary", graveler.ID, 100).Reason)
	assert.Equal(t, types.ReasonCreatureActive, offer("misty", active.ID, 100).Reason)
	assert.Equal(t, types.ReasonCreatureNotFound, offer("misty", 999, 100).Reason)

	res := offer("misty", graveler.ID, 100)
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.TradePending, res.Payload.(*types.TradeView).Status)
	assert.Equal(t, types.ReasonAlreadyOffered, offer("misty", graveler.ID, 150).Reason)

	// Test case 2: Only the buyer accepts; the trade evolves the creature
	assert.Equal(t, types.ReasonNoOffer, g.do(t, "ash", types.ActionTradeAccept, types.ActionArgs{}).Reason)
	res = g.do(t, "misty", types.ActionTradeAccept, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.TradeAccepted, res.Payload.(*types.TradeView).Status)
	require.NotNil(t, res.Evolution)
	assert.Equal(t, 76, res.Evolution.ToSpeciesID)

	assert.Equal(t, 600, g.player(t, "ash").Money)
	assert.Equal(t, 400, g.player(t, "misty").Money)
	g.tx(t, func(tx *storage.Tx) {
		c, err := tx.LockCreature("misty", graveler.ID)
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "golem", c.Nickname)
		assert.False(t, c.Active)

		link, err := tx.EnsureSocialLink("ash", "misty")
		require.NoError(t, err)
		assert.Equal(t, 2, link.Friendship)
	})

	// Test case 3: Cancelled offers cannot be accepted
	other := g.giveCreature(t, "ash", 19, 5)
	require.False(t, offer("misty", other.ID, 50).Rejected())
	res = g.do(t, "ash", types.ActionTradeCancel, types.ActionArgs{})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, storage.TradeCancelled, res.Payload.(*types.TradeView).Status)
	assert.Equal(t, types.ReasonNoOffer, g.do(t, "misty", types.ActionTradeAccept, types.ActionArgs{}).Reason)

	// Test case 4: Buyers need the money
	res = offer("misty", other.ID, 5000)
	require.False(t, res.Rejected(), res.Reason)
	id := res.Payload.(*types.TradeView).OfferID
	assert.Equal(t, types.ReasonInsufficientFunds, g.do(t, "misty", types.ActionTradeAccept, types.ActionArgs{ID: id}).Reason)

	// Test case 5: Expired offers are gone
	g.now = g.now.Add(config.Seconds(g.m.cfg.TradeTTLSeconds))
	assert.Equal(t, types.ReasonNoOffer, g.do(t, "misty", types.ActionTradeAccept, types.ActionArgs{ID: id}).Reason)
}

func TestKarma(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.start(t, "misty")

	res := g.do(t, "ash", types.ActionKarma, types.ActionArgs{Target: "misty"})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, types.KarmaView{TargetJID: "misty", Karma: 1}, res.Payload)

	res = g.do(t, "ash", types.ActionKarma, types.ActionArgs{Target: "misty"})
	assert.Equal(t, types.ReasonCooldown, res.Reason)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	// The cooldown is per giver
	assert.False(t, g.do(t, "misty", types.ActionKarma, types.ActionArgs{Target: "ash"}).Rejected())

	g.now = g.now.Add(config.Seconds(g.m.cfg.Social.KarmaCooldownSeconds))
	res = g.do(t, "ash", types.ActionKarma, types.ActionArgs{Target: "misty"})
	require.False(t, res.Rejected(), res.Reason)
	assert.Equal(t, 2, res.Payload.(types.KarmaView).Karma)

	g.tx(t, func(tx *storage.Tx) {
		link, err := tx.EnsureSocialLink("ash", "misty")
		require.NoError(t, err)
		assert.Equal(t, 3, link.Friendship)
	})
}

func TestSweeper(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.seedBattle(t, "ash", storage.BattleWild, weakEnemy())

	g.now = g.now.Add(time.Hour)
	NewSweeper(g.m, time.Minute).Sweep(context.Background())

	g.tx(t, func(tx *storage.Tx) {
		b, err := tx.LockBattle(testChat, "ash")
		require.NoError(t, err)
		assert.Nil(t, b)
	})

	s := NewSweeper(g.m, time.Millisecond)
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	s.Stop()
}

func TestActionFailureRollsBack(t *testing.T) {
	g := newTestGame(t, nil)
	g.start(t, "ash")
	g.m.handlers[types.ActionKind("broken")] = func(a *action) error {
		p, err := a.tx.LockPlayer(a.owner())
		require.NoError(t, err)
		p.Money = 0
		require.NoError(t, a.tx.SavePlayer(p))
		return fmt.Errorf("boom")
	}

	_, err := g.m.ExecuteAction(context.Background(), types.ActionRequest{
		OwnerJID: "ash", ChatID: testChat, Kind: "broken",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to execute broken")
	assert.Equal(t, 500, g.player(t, "ash").Money)
}
