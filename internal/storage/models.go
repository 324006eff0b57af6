package storage

import (
	"time"

	"github.com/user/creature-league/internal/types"
)

// Battle kinds
const (
	BattleWild = "wild"
	BattleGym  = "gym"
)

// PvP challenge statuses
const (
	PvpPending  = "pending"
	PvpActive   = "active"
	PvpFinished = "finished"
	PvpRejected = "rejected"
	PvpExpired  = "expired"
)

// Queue entry statuses
const (
	QueueQueued    = "queued"
	QueueMatched   = "matched"
	QueueExpired   = "expired"
	QueueCancelled = "cancelled"
)

// Trade offer statuses
const (
	TradePending   = "pending"
	TradeAccepted  = "accepted"
	TradeCancelled = "cancelled"
	TradeExpired   = "expired"
)

// Player is the root record of every owner
type Player struct {
	JID          string `gorm:"column:jid;primaryKey"`
	Name         string `gorm:"not null"`
	Level        int    `gorm:"not null;default:1"`
	XP           int    `gorm:"column:xp;not null;default:0"`
	Money        int    `gorm:"not null;default:0"`
	Badges       int    `gorm:"not null;default:0"`
	LastRescueAt *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Player) TableName() string { return "players" }

// Creature is an owned creature with its frozen species data
type Creature struct {
	ID          uint64       `gorm:"primaryKey;autoIncrement"`
	OwnerJID    string       `gorm:"column:owner_jid;not null;index"`
	SpeciesID   int          `gorm:"not null"`
	SpeciesName string       `gorm:"not null"`
	Nickname    string       `gorm:"not null"`
	Level       int          `gorm:"not null"`
	XP          int          `gorm:"column:xp;not null;default:0"`
	HP          int          `gorm:"column:hp;not null"`
	MaxHP       int          `gorm:"column:max_hp;not null"`
	Types       []string     `gorm:"serializer:json;not null"`
	BaseStats   types.Stats  `gorm:"serializer:json;not null"`
	IVs         types.Stats  `gorm:"column:ivs;serializer:json;not null"`
	Moves       []types.Move `gorm:"serializer:json;not null"`
	Nature      string
	Ability     string
	Status      string
	Shiny       bool `gorm:"not null;default:false"`
	Active      bool `gorm:"not null;default:false"`
	CaptureRate int  `gorm:"not null"`
	Sprite      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Creature) TableName() string { return "creatures" }

// InventoryItem is a positive item count of one owner
type InventoryItem struct {
	OwnerJID  string `gorm:"column:owner_jid;primaryKey"`
	ItemKey   string `gorm:"primaryKey"`
	Quantity  int    `gorm:"not null"`
	UpdatedAt time.Time
}

func (InventoryItem) TableName() string { return "inventory_items" }

// Battle is an in-progress wild or gym encounter of one owner in one chat
type Battle struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement"`
	ChatID       string          `gorm:"not null;uniqueIndex:idx_battle_owner"`
	OwnerJID     string          `gorm:"column:owner_jid;not null;uniqueIndex:idx_battle_owner"`
	Kind         string          `gorm:"not null"`
	GymIndex     int             `gorm:"not null;default:0"`
	CreatureID   uint64          `gorm:"not null"`
	Enemy        types.Combatant `gorm:"serializer:json;not null"`
	PlayerStages map[string]int  `gorm:"serializer:json"`
	Source       string
	Turn         int       `gorm:"not null;default:0"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Battle) TableName() string { return "battles" }

// Raid is the shared boss fight of one chat. CurrentHP is authoritative;
// Boss is frozen except for its health.
type Raid struct {
	ID        string          `gorm:"primaryKey"`
	ChatID    string          `gorm:"not null;uniqueIndex"`
	Boss      types.Combatant `gorm:"serializer:json;not null"`
	MaxHP     int             `gorm:"column:max_hp;not null"`
	CurrentHP int             `gorm:"column:current_hp;not null"`
	StartedBy string          `gorm:"not null"`
	StartedAt time.Time       `gorm:"not null"`
	EndsAt    time.Time       `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Raid) TableName() string { return "raids" }

// RaidParticipant accumulates the damage one owner dealt to one raid
type RaidParticipant struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	RaidID    string `gorm:"not null;uniqueIndex:idx_raid_owner"`
	ChatID    string `gorm:"not null"`
	OwnerJID  string `gorm:"column:owner_jid;not null;uniqueIndex:idx_raid_owner"`
	Damage    int    `gorm:"not null;default:0"`
	Hits      int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (RaidParticipant) TableName() string { return "raid_participants" }

// PvpChallenge is a duel between two owners fought on snapshots
type PvpChallenge struct {
	ID            string                     `gorm:"primaryKey"`
	ChatID        string                     `gorm:"not null;index"`
	ChallengerJID string                     `gorm:"column:challenger_jid;not null;index"`
	OpponentJID   string                     `gorm:"column:opponent_jid;not null;index"`
	Status        string                     `gorm:"not null;index"`
	TurnJID       string                     `gorm:"column:turn_jid"`
	WinnerJID     string                     `gorm:"column:winner_jid"`
	Snapshot      map[string]types.Combatant `gorm:"serializer:json"`
	Turn          int                        `gorm:"not null;default:0"`
	ExpiresAt     time.Time                  `gorm:"not null;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (PvpChallenge) TableName() string { return "pvp_challenges" }

// Other returns the party facing jid
func (c *PvpChallenge) Other(jid string) string {
	if jid == c.ChallengerJID {
		return c.OpponentJID
	}
	return c.ChallengerJID
}

// PvpQueueEntry is an owner waiting for automatic matchmaking in a chat
type PvpQueueEntry struct {
	ID        string    `gorm:"primaryKey"`
	ChatID    string    `gorm:"not null;uniqueIndex:idx_queue_owner"`
	OwnerJID  string    `gorm:"column:owner_jid;not null;uniqueIndex:idx_queue_owner"`
	Status    string    `gorm:"not null;index"`
	MatchID   string    `gorm:"column:match_id"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PvpQueueEntry) TableName() string { return "pvp_queue" }

// MissionProgress holds an owner's daily and weekly counters
type MissionProgress struct {
	OwnerJID        string `gorm:"column:owner_jid;primaryKey"`
	DayKey          string `gorm:"not null"`
	WeekKey         string `gorm:"not null"`
	DailyExplore    int    `gorm:"not null;default:0"`
	DailyWin        int    `gorm:"not null;default:0"`
	DailyCapture    int    `gorm:"not null;default:0"`
	WeeklyExplore   int    `gorm:"not null;default:0"`
	WeeklyWin       int    `gorm:"not null;default:0"`
	WeeklyCapture   int    `gorm:"not null;default:0"`
	DailyBonusPaid  bool   `gorm:"not null;default:false"`
	WeeklyBonusPaid bool   `gorm:"not null;default:false"`
	DailyClaimedAt  *time.Time
	WeeklyClaimedAt *time.Time
	UpdatedAt       time.Time
}

func (MissionProgress) TableName() string { return "mission_progress" }

// CoopEvent is the weekly group target of one chat
type CoopEvent struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement"`
	ChatID      string `gorm:"not null;uniqueIndex:idx_coop_week"`
	WeekKey     string `gorm:"not null;uniqueIndex:idx_coop_week"`
	Target      int    `gorm:"not null"`
	Progress    int    `gorm:"not null;default:0"`
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (CoopEvent) TableName() string { return "coop_events" }

// CoopContribution is one member's share of a weekly co-op event
type CoopContribution struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	EventID   uint64 `gorm:"not null;uniqueIndex:idx_coop_member"`
	OwnerJID  string `gorm:"column:owner_jid;not null;uniqueIndex:idx_coop_member"`
	Amount    int    `gorm:"not null;default:0"`
	ClaimedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CoopContribution) TableName() string { return "coop_contributions" }

// TradeOffer is a creature put up for sale to a named buyer
type TradeOffer struct {
	ID         string    `gorm:"primaryKey"`
	ChatID     string    `gorm:"not null"`
	SellerJID  string    `gorm:"column:seller_jid;not null;index"`
	BuyerJID   string    `gorm:"column:buyer_jid;not null;index"`
	CreatureID uint64    `gorm:"not null;index"`
	Price      int       `gorm:"not null"`
	Status     string    `gorm:"not null;index"`
	ExpiresAt  time.Time `gorm:"not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (TradeOffer) TableName() string { return "trade_offers" }

// SocialLink scores the relationship of an unordered pair; PlayerA < PlayerB
type SocialLink struct {
	PlayerA    string `gorm:"column:player_a;primaryKey"`
	PlayerB    string `gorm:"column:player_b;primaryKey"`
	Friendship int    `gorm:"not null;default:0"`
	Rivalry    int    `gorm:"not null;default:0"`
	UpdatedAt  time.Time
}

func (SocialLink) TableName() string { return "social_links" }

// KarmaProfile tracks karma received and the last time the owner gave some
type KarmaProfile struct {
	OwnerJID    string `gorm:"column:owner_jid;primaryKey"`
	Karma       int    `gorm:"not null;default:0"`
	Given       int    `gorm:"not null;default:0"`
	LastGivenAt *time.Time
	UpdatedAt   time.Time
}

func (KarmaProfile) TableName() string { return "karma_profiles" }
