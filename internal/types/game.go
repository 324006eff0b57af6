package types

// Stats represents the six core stats of a creature
type Stats struct {
	HP        int `json:"hp"`
	Attack    int `json:"attack"`
	Defense   int `json:"defense"`
	SpAttack  int `json:"sp_attack"`
	SpDefense int `json:"sp_defense"`
	Speed     int `json:"speed"`
}

// Stat keys used by stat-stage effects
const (
	StatAttack    = "attack"
	StatDefense   = "defense"
	StatSpAttack  = "special-attack"
	StatSpDefense = "special-defense"
	StatSpeed     = "speed"
)

// Get returns the stat identified by key, or 0 for unknown keys
func (s Stats) Get(key string) int {
	switch key {
	case "hp":
		return s.HP
	case StatAttack:
		return s.Attack
	case StatDefense:
		return s.Defense
	case StatSpAttack:
		return s.SpAttack
	case StatSpDefense:
		return s.SpDefense
	case StatSpeed:
		return s.Speed
	default:
		return 0
	}
}

// Species represents a normalized species record from the data gateway
type Species struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Types       []string `json:"types"`
	BaseStats   Stats    `json:"base_stats"`
	CaptureRate int      `json:"capture_rate"`
	Moves       []string `json:"moves"`
	Sprite      string   `json:"sprite"`
	ShinySprite string   `json:"shiny_sprite"`
}

// Damage classes
const (
	DamageClassPhysical = "physical"
	DamageClassSpecial  = "special"
	DamageClassStatus   = "status"
)

// Move represents a move with its type relations frozen in
type Move struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Type        string        `json:"type"`
	Power       int           `json:"power"`
	Accuracy    int           `json:"accuracy"`
	DamageClass string        `json:"damage_class"`
	Effect      MoveEffect    `json:"effect"`
	Relations   TypeRelations `json:"relations"`
}

// Effect targets
const (
	TargetSelf     = "self"
	TargetOpponent = "opponent"
)

// MoveEffect describes what a move does besides raw damage.
//
// A chance of 0 means "always" for zero-power moves and "never" for damaging
// moves, mirroring how the data provider reports secondary effects.
type MoveEffect struct {
	Target        string       `json:"target,omitempty"`
	StatChanges   []StatChange `json:"stat_changes,omitempty"`
	StatChance    int          `json:"stat_chance,omitempty"`
	Ailment       string       `json:"ailment,omitempty"`
	AilmentChance int          `json:"ailment_chance,omitempty"`
	Healing       int          `json:"healing,omitempty"`
	Drain         int          `json:"drain,omitempty"`
}

// StatChange is a stage delta applied to a stat
type StatChange struct {
	Stat   string `json:"stat"`
	Change int    `json:"change"`
}

// TypeRelations holds the damage relations of an attacking type
type TypeRelations struct {
	DoubleTo   []string `json:"double_damage_to,omitempty"`
	HalfTo     []string `json:"half_damage_to,omitempty"`
	NoEffectTo []string `json:"no_damage_to,omitempty"`
}

// TypeInfo represents a type record with its roster of species
type TypeInfo struct {
	Name       string        `json:"name"`
	Relations  TypeRelations `json:"relations"`
	SpeciesIDs []int         `json:"species_ids"`
}

// Item categories
const (
	ItemBall       = "ball"
	ItemHealing    = "healing"
	ItemRevive     = "revive"
	ItemStatusCure = "status-cure"
	ItemEvolution  = "evolution"
	ItemCandy      = "candy"
)

// Item represents a usable or purchasable item
type Item struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Cost        int     `json:"cost"`
	HealAmount  int     `json:"heal_amount,omitempty"`
	CatchBonus  float64 `json:"catch_bonus,omitempty"`
	Guaranteed  bool    `json:"guaranteed,omitempty"`
	CuresStatus bool    `json:"cures_status,omitempty"`
}

// Location represents an explorable area with its encounter pool
type Location struct {
	Name       string `json:"name"`
	SpeciesIDs []int  `json:"species_ids"`
}

// Evolution triggers
const (
	TriggerLevelUp = "level-up"
	TriggerUseItem = "use-item"
	TriggerTrade   = "trade"
)

// EvolutionNode is one species in an evolution tree
type EvolutionNode struct {
	SpeciesID   int               `json:"species_id"`
	SpeciesName string            `json:"species_name"`
	Details     []EvolutionDetail `json:"details,omitempty"`
	EvolvesTo   []EvolutionNode   `json:"evolves_to,omitempty"`
}

// EvolutionDetail describes one way of reaching an evolution node
type EvolutionDetail struct {
	Trigger       string `json:"trigger"`
	MinLevel      int    `json:"min_level,omitempty"`
	Item          string `json:"item,omitempty"`
	HeldItem      string `json:"held_item,omitempty"`
	KnownMove     string `json:"known_move,omitempty"`
	KnownMoveType string `json:"known_move_type,omitempty"`
	Location      string `json:"location,omitempty"`
	MinHappiness  int    `json:"min_happiness,omitempty"`
	MinAffection  int    `json:"min_affection,omitempty"`
	TimeOfDay     string `json:"time_of_day,omitempty"`
	Gender        int    `json:"gender,omitempty"`
}

// Blocked reports whether the detail carries a condition other than level or item
func (d EvolutionDetail) Blocked() bool {
	return d.HeldItem != "" ||
		d.KnownMove != "" ||
		d.KnownMoveType != "" ||
		d.Location != "" ||
		d.MinHappiness > 0 ||
		d.MinAffection > 0 ||
		d.TimeOfDay != "" ||
		d.Gender != 0
}

// Non-volatile statuses
const (
	StatusNone      = ""
	StatusParalysis = "paralysis"
	StatusBurn      = "burn"
	StatusPoison    = "poison"
	StatusSleep     = "sleep"
	StatusFreeze    = "freeze"
)

// Combatant is a frozen snapshot of one side of a fight
type Combatant struct {
	CreatureID  uint64         `json:"creature_id,omitempty"`
	OwnerJID    string         `json:"owner_jid,omitempty"`
	SpeciesID   int            `json:"species_id"`
	Name        string         `json:"name"`
	Nickname    string         `json:"nickname,omitempty"`
	Level       int            `json:"level"`
	Types       []string       `json:"types"`
	BaseStats   Stats          `json:"base_stats"`
	IVs         Stats          `json:"ivs"`
	Stats       Stats          `json:"stats"`
	HP          int            `json:"hp"`
	MaxHP       int            `json:"max_hp"`
	Moves       []Move         `json:"moves"`
	Status      string         `json:"status,omitempty"`
	Stages      map[string]int `json:"stages,omitempty"`
	Shiny       bool           `json:"shiny,omitempty"`
	CaptureRate int            `json:"capture_rate"`
	Sprite      string         `json:"sprite,omitempty"`
}

// DisplayName returns the nickname when set, otherwise the species name
func (c Combatant) DisplayName() string {
	if c.Nickname != "" {
		return c.Nickname
	}
	return c.Name
}

// Fainted reports whether the combatant has no health left
func (c Combatant) Fainted() bool {
	return c.HP <= 0
}

// HealthRatio returns current health over max health in [0,1]
func (c Combatant) HealthRatio() float64 {
	if c.MaxHP <= 0 {
		return 0
	}
	return float64(c.HP) / float64(c.MaxHP)
}

// Clone returns a deep copy so resolvers never mutate caller state
func (c Combatant) Clone() Combatant {
	out := c
	out.Types = append([]string(nil), c.Types...)
	if c.Moves != nil {
		out.Moves = make([]Move, len(c.Moves))
		for i, m := range c.Moves {
			out.Moves[i] = m.clone()
		}
	}
	if c.Stages != nil {
		out.Stages = make(map[string]int, len(c.Stages))
		for k, v := range c.Stages {
			out.Stages[k] = v
		}
	}
	return out
}

func (m Move) clone() Move {
	out := m
	out.Effect.StatChanges = append([]StatChange(nil), m.Effect.StatChanges...)
	out.Relations.DoubleTo = append([]string(nil), m.Relations.DoubleTo...)
	out.Relations.HalfTo = append([]string(nil), m.Relations.HalfTo...)
	out.Relations.NoEffectTo = append([]string(nil), m.Relations.NoEffectTo...)
	return out
}

// BattleSnapshot holds both sides of a wild or gym battle
type BattleSnapshot struct {
	Player Combatant `json:"player"`
	Enemy  Combatant `json:"enemy"`
}
