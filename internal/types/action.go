package types

import "time"

// ActionKind identifies a player action
type ActionKind string

// Player actions accepted by the executor
const (
	ActionStart          ActionKind = "start"
	ActionStatus         ActionKind = "status"
	ActionExplore        ActionKind = "explore"
	ActionGym            ActionKind = "gym"
	ActionAttack         ActionKind = "attack"
	ActionCapture        ActionKind = "capture"
	ActionFlee           ActionKind = "flee"
	ActionSwitch         ActionKind = "switch"
	ActionBuy            ActionKind = "buy"
	ActionUseItem        ActionKind = "use-item"
	ActionEvolve         ActionKind = "evolve"
	ActionClaimMission   ActionKind = "claim-mission"
	ActionRaidStart      ActionKind = "raid-start"
	ActionRaidAttack     ActionKind = "raid-attack"
	ActionPvpChallenge   ActionKind = "pvp-challenge"
	ActionPvpAccept      ActionKind = "pvp-accept"
	ActionPvpReject      ActionKind = "pvp-reject"
	ActionPvpAttack      ActionKind = "pvp-attack"
	ActionPvpQueue       ActionKind = "pvp-queue"
	ActionPvpCancelQueue ActionKind = "pvp-cancel-queue"
	ActionTradeOffer     ActionKind = "trade-offer"
	ActionTradeAccept    ActionKind = "trade-accept"
	ActionTradeCancel    ActionKind = "trade-cancel"
	ActionKarma          ActionKind = "karma"
	ActionCoopClaim      ActionKind = "coop-claim"
)

// ActionArgs carries the arguments of an action; each action reads only what it needs
type ActionArgs struct {
	Slot       int      `json:"slot,omitempty"`
	Item       string   `json:"item,omitempty"`
	Quantity   int      `json:"quantity,omitempty"`
	Target     string   `json:"target,omitempty"`
	CreatureID uint64   `json:"creature_id,omitempty"`
	Area       string   `json:"area,omitempty"`
	Types      []string `json:"types,omitempty"`
	Price      int      `json:"price,omitempty"`
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name,omitempty"`
	Period     string   `json:"period,omitempty"`
	Choice     int      `json:"choice,omitempty"`
}

// ActionRequest is the single inbound call shape
type ActionRequest struct {
	OwnerJID string     `json:"owner_jid"`
	ChatID   string     `json:"chat_id"`
	Kind     ActionKind `json:"kind"`
	Args     ActionArgs `json:"args"`
}

// Outcome of an action
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeRejected Outcome = "rejected"
)

// Rejection reasons
const (
	ReasonCooldown          = "cooldown"
	ReasonUnknownAction     = "unknown_action"
	ReasonNotStarted        = "not_started"
	ReasonAlreadyStarted    = "already_started"
	ReasonNoActiveCreature  = "no_active_creature"
	ReasonCreatureFainted   = "creature_fainted"
	ReasonCreatureNotFound  = "creature_not_found"
	ReasonBattleInProgress  = "battle_in_progress"
	ReasonNoActiveBattle    = "no_active_battle"
	ReasonInvalidMove       = "invalid_move"
	ReasonNoBall            = "no_ball"
	ReasonNotABall          = "not_a_ball"
	ReasonUnknownItem       = "unknown_item"
	ReasonNotForSale        = "not_for_sale"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonNoItem            = "no_item"
	ReasonItemNoEffect      = "item_no_effect"
	ReasonNoEvolution       = "no_evolution"
	ReasonMissionIncomplete = "mission_incomplete"
	ReasonAlreadyClaimed    = "already_claimed"
	ReasonInvalidPeriod     = "invalid_period"
	ReasonRaidInProgress    = "raid_in_progress"
	ReasonNoActiveRaid      = "no_active_raid"
	ReasonTargetNotFound    = "target_not_found"
	ReasonSelfTarget        = "self_target"
	ReasonMatchInProgress   = "match_in_progress"
	ReasonNoChallenge       = "no_challenge"
	ReasonNotYourTurn       = "not_your_turn"
	ReasonAlreadyQueued     = "already_queued"
	ReasonNotQueued         = "not_queued"
	ReasonNoOffer           = "no_offer"
	ReasonCreatureActive    = "creature_active"
	ReasonAlreadyOffered    = "already_offered"
	ReasonCannotCapture     = "cannot_capture"
	ReasonInvalidPrice      = "invalid_price"
	ReasonGymUnavailable    = "gym_unavailable"
	ReasonNoContribution    = "no_contribution"
	ReasonCoopIncomplete    = "coop_incomplete"
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonInvalidChoice     = "invalid_choice"
)

// Rewards is the structured reward breakdown of an action
type Rewards struct {
	Money            int            `json:"money,omitempty"`
	PlayerXP         int            `json:"player_xp,omitempty"`
	CreatureXP       int            `json:"creature_xp,omitempty"`
	Items            map[string]int `json:"items,omitempty"`
	PlayerLevelUp    bool           `json:"player_level_up,omitempty"`
	NewPlayerLevel   int            `json:"new_player_level,omitempty"`
	CreatureLevelUp  bool           `json:"creature_level_up,omitempty"`
	NewCreatureLevel int            `json:"new_creature_level,omitempty"`
	MissionBonus     int            `json:"mission_bonus,omitempty"`
}

// AddItem records an item grant
func (r *Rewards) AddItem(key string, qty int) {
	if qty <= 0 {
		return
	}
	if r.Items == nil {
		r.Items = make(map[string]int)
	}
	r.Items[key] += qty
}

// EvolutionOutcome describes an evolution applied during an action
type EvolutionOutcome struct {
	CreatureID    uint64   `json:"creature_id"`
	FromSpeciesID int      `json:"from_species_id"`
	FromName      string   `json:"from_name"`
	ToSpeciesID   int      `json:"to_species_id"`
	ToName        string   `json:"to_name"`
	Nickname      string   `json:"nickname"`
	LearnedMoves  []string `json:"learned_moves,omitempty"`
}

// ActionResult is returned for every action that did not fail hard
type ActionResult struct {
	Kind       ActionKind        `json:"kind"`
	Outcome    Outcome           `json:"outcome"`
	Reason     string            `json:"reason,omitempty"`
	RetryAfter time.Duration     `json:"retry_after,omitempty"`
	Log        []string          `json:"log,omitempty"`
	Payload    any               `json:"payload,omitempty"`
	Rewards    *Rewards          `json:"rewards,omitempty"`
	Evolution  *EvolutionOutcome `json:"evolution,omitempty"`
	Rescue     *Rewards          `json:"rescue,omitempty"`
}

// Rejected reports whether the action was refused by game logic
func (r *ActionResult) Rejected() bool {
	return r.Outcome == OutcomeRejected
}
