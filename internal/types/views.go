package types

import "time"

// PlayerView is the read model of a player returned in payloads
type PlayerView struct {
	JID       string         `json:"jid"`
	Name      string         `json:"name"`
	Level     int            `json:"level"`
	XP        int            `json:"xp"`
	Money     int            `json:"money"`
	Badges    int            `json:"badges"`
	Creatures []CreatureView `json:"creatures,omitempty"`
	Inventory map[string]int `json:"inventory,omitempty"`
}

// CreatureView is the read model of an owned creature
type CreatureView struct {
	ID        uint64   `json:"id"`
	SpeciesID int      `json:"species_id"`
	Species   string   `json:"species"`
	Nickname  string   `json:"nickname"`
	Level     int      `json:"level"`
	XP        int      `json:"xp"`
	HP        int      `json:"hp"`
	MaxHP     int      `json:"max_hp"`
	Moves     []string `json:"moves"`
	Status    string   `json:"status,omitempty"`
	Shiny     bool     `json:"shiny,omitempty"`
	Active    bool     `json:"active"`
}

// BattleView is returned by explore, gym, attack, capture and flee
type BattleView struct {
	BattleID uint64         `json:"battle_id"`
	Kind     string         `json:"kind"`
	Turn     int            `json:"turn"`
	Snapshot BattleSnapshot `json:"snapshot"`
	Winner   string         `json:"winner,omitempty"`
	Captured *CreatureView  `json:"captured,omitempty"`
	Chance   float64        `json:"chance,omitempty"`
	Source   string         `json:"source,omitempty"`
}

// RaidView is returned by raid actions
type RaidView struct {
	RaidID    string    `json:"raid_id"`
	Boss      Combatant `json:"boss"`
	CurrentHP int       `json:"current_hp"`
	MaxHP     int       `json:"max_hp"`
	EndsAt    time.Time `json:"ends_at"`
	Damage    int       `json:"damage,omitempty"`
	Defeated  bool      `json:"defeated,omitempty"`
	Payouts   []Payout  `json:"payouts,omitempty"`
}

// Payout is one participant's share of a split reward
type Payout struct {
	OwnerJID   string            `json:"owner_jid"`
	Damage     int               `json:"damage"`
	Share      float64           `json:"share"`
	Money      int               `json:"money"`
	XP         int               `json:"xp"`
	CreatureXP int               `json:"creature_xp"`
	Evolution  *EvolutionOutcome `json:"evolution,omitempty"`
}

// PvpView is returned by PvP actions
type PvpView struct {
	ChallengeID   string               `json:"challenge_id"`
	Status        string               `json:"status"`
	ChallengerJID string               `json:"challenger_jid"`
	OpponentJID   string               `json:"opponent_jid"`
	TurnJID       string               `json:"turn_jid,omitempty"`
	WinnerJID     string               `json:"winner_jid,omitempty"`
	Combatants    map[string]Combatant `json:"combatants,omitempty"`
	ExpiresAt     time.Time            `json:"expires_at"`
}

// QueueView is returned by matchmaking actions
type QueueView struct {
	Status  string    `json:"status"`
	Match   *PvpView  `json:"match,omitempty"`
	Expires time.Time `json:"expires_at"`
}

// MissionView is returned by mission claims
type MissionView struct {
	Period  string `json:"period"`
	Explore int    `json:"explore"`
	Win     int    `json:"win"`
	Capture int    `json:"capture"`
}

// TradeView is returned by trade actions
type TradeView struct {
	OfferID    string    `json:"offer_id"`
	SellerJID  string    `json:"seller_jid"`
	BuyerJID   string    `json:"buyer_jid"`
	CreatureID uint64    `json:"creature_id"`
	Price      int       `json:"price"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// CoopView is returned by co-op claims
type CoopView struct {
	WeekKey      string `json:"week_key"`
	Target       int    `json:"target"`
	Progress     int    `json:"progress"`
	Contribution int    `json:"contribution"`
}

// KarmaView is returned by karma actions
type KarmaView struct {
	TargetJID string `json:"target_jid"`
	Karma     int    `json:"karma"`
}
