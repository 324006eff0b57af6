package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the application
type Config struct {
	// Database configuration
	Database DatabaseConfig `json:"database"`

	// Species data configuration
	Species SpeciesConfig `json:"species"`

	// Game configuration
	Game GameConfig `json:"game"`

	// Server configuration
	Server ServerConfig `json:"server"`
}

// DatabaseConfig holds database specific configuration
type DatabaseConfig struct {
	// Database driver (sqlite, postgres)
	Driver string `json:"driver" env:"CL_DB_DRIVER"`

	// Database connection string
	DSN string `json:"dsn" env:"CL_DB_DSN"`

	MaxOpenConns  int `json:"max_open_conns" env:"CL_DB_MAX_OPEN_CONNS"`
	MaxIdleConns  int `json:"max_idle_conns"`
	BusyTimeoutMs int `json:"busy_timeout_ms"`

	// Statements slower than this are logged at warn level
	SlowQueryMs int `json:"slow_query_ms"`

	// Retries after a deadlock or busy error
	TxRetries int `json:"tx_retries" env:"CL_DB_TX_RETRIES"`
}

// SpeciesConfig holds species data configuration
type SpeciesConfig struct {
	// Directory of the species catalog files
	DataDir string `json:"data_dir" env:"CL_DATA_DIR"`

	// Gateway cache size and time-to-live in seconds
	CacheSize       int `json:"cache_size"`
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
}

// CacheTTL returns the gateway cache time-to-live
func (c SpeciesConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// GameConfig holds game specific configuration
type GameConfig struct {
	// Money and items granted on start
	StartingMoney int            `json:"starting_money"`
	StartingItems map[string]int `json:"starting_items"`

	// Species offered as starters and their level
	Starters     []int `json:"starters"`
	StarterLevel int   `json:"starter_level"`

	// Minimum milliseconds between two uses of the same action per player;
	// DefaultCooldownMs applies to actions not listed
	DefaultCooldownMs int            `json:"default_cooldown_ms"`
	CooldownsMs       map[string]int `json:"cooldowns_ms"`

	// Lifetimes of time-boxed records in seconds
	BattleTTLSeconds     int `json:"battle_ttl_seconds"`
	RaidDurationSeconds  int `json:"raid_duration_seconds"`
	PvpTTLSeconds        int `json:"pvp_ttl_seconds"`
	QueueTTLSeconds      int `json:"queue_ttl_seconds"`
	TradeTTLSeconds      int `json:"trade_ttl_seconds"`
	SweepIntervalSeconds int `json:"sweep_interval_seconds"`

	Rewards   RewardConfig    `json:"rewards"`
	Capture   CaptureConfig   `json:"capture"`
	Encounter EncounterConfig `json:"encounter"`
	Gyms      []GymConfig     `json:"gyms"`
	Raid      RaidConfig      `json:"raid"`
	Missions  MissionConfig   `json:"missions"`
	Rescue    RescueConfig    `json:"rescue"`
	Coop      CoopConfig      `json:"coop"`
	Social    SocialConfig    `json:"social"`
}

// RewardConfig holds payout constants
type RewardConfig struct {
	// Player XP needed per level is XPPerLevel * current level
	XPPerLevel int `json:"xp_per_level"`

	// Wild win payouts, scaled by the opponent's level
	WildMoneyPerLevel      int `json:"wild_money_per_level"`
	WildPlayerXP           int `json:"wild_player_xp"`
	CreatureXPPerLevel     int `json:"creature_xp_per_level"`
	CaptureMoneyPerLevel   int `json:"capture_money_per_level"`
	CapturePlayerXP        int `json:"capture_player_xp"`
	CaptureCreatureXPRatio int `json:"capture_creature_xp_ratio"`

	// Gym wins pay the gym's money plus this much player XP
	GymPlayerXP int `json:"gym_player_xp"`

	// PvP winner payout
	PvpMoney      int `json:"pvp_money"`
	PvpPlayerXP   int `json:"pvp_player_xp"`
	PvpCreatureXP int `json:"pvp_creature_xp"`

	// Percent of the balance lost when the player's creature faints
	LossMoneyPercent int `json:"loss_money_percent"`

	// Item dropped after a wild win with this percent chance
	DropItem    string `json:"drop_item"`
	DropPercent int    `json:"drop_percent"`
}

// CaptureConfig holds capture formula constants
type CaptureConfig struct {
	Base         float64 `json:"base"`
	HealthWeight float64 `json:"health_weight"`
	RateWeight   float64 `json:"rate_weight"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

// EncounterConfig holds encounter generation constants
type EncounterConfig struct {
	ShinyChance       float64  `json:"shiny_chance"`
	MaxSpeciesID      int      `json:"max_species_id"`
	TypeRosterRetries int      `json:"type_roster_retries"`
	RandomRetries     int      `json:"random_retries"`
	CandidateMoves    []string `json:"candidate_moves"`
	FallbackMove      string   `json:"fallback_move"`
	IVMin             int      `json:"iv_min"`
	IVMax             int      `json:"iv_max"`
	LevelSpread       int      `json:"level_spread"`
	MinWildLevel      int      `json:"min_wild_level"`
}

// GymConfig describes one gym leader
type GymConfig struct {
	Type  string `json:"type"`
	Level int    `json:"level"`
	Money int    `json:"money"`
}

// RaidConfig holds raid constants
type RaidConfig struct {
	Candidates   []int `json:"candidates"`
	Level        int   `json:"level"`
	HPMultiplier int   `json:"hp_multiplier"`

	// Pool split between participants by damage share
	RewardMoney      int `json:"reward_money"`
	RewardXP         int `json:"reward_xp"`
	RewardCreatureXP int `json:"reward_creature_xp"`
}

// MissionConfig holds daily and weekly mission targets and rewards
type MissionConfig struct {
	DailyExplore  int `json:"daily_explore"`
	DailyWin      int `json:"daily_win"`
	DailyCapture  int `json:"daily_capture"`
	WeeklyExplore int `json:"weekly_explore"`
	WeeklyWin     int `json:"weekly_win"`
	WeeklyCapture int `json:"weekly_capture"`

	// Paid by claim-mission
	DailyMoney  int `json:"daily_money"`
	WeeklyMoney int `json:"weekly_money"`

	// Paid once, the first time every target of the period is met
	DailyBonus  int `json:"daily_bonus"`
	WeeklyBonus int `json:"weekly_bonus"`
}

// RescueConfig holds the stipend thresholds for broke players
type RescueConfig struct {
	MoneyFloor      int     `json:"money_floor"`
	HealthRatio     float64 `json:"health_ratio"`
	Money           int     `json:"money"`
	Potions         int     `json:"potions"`
	CooldownSeconds int     `json:"cooldown_seconds"`
}

// CoopConfig holds the weekly co-op event constants
type CoopConfig struct {
	WeeklyTarget int    `json:"weekly_target"`
	RewardMoney  int    `json:"reward_money"`
	RewardItem   string `json:"reward_item"`
}

// SocialConfig holds relationship and karma constants
type SocialConfig struct {
	RivalryPerMatch      int `json:"rivalry_per_match"`
	FriendshipPerTrade   int `json:"friendship_per_trade"`
	KarmaCooldownSeconds int `json:"karma_cooldown_seconds"`
}

// ServerConfig holds server specific configuration
type ServerConfig struct {
	// Server port
	Port string `json:"port" env:"CL_PORT"`

	// Log level (debug, info, warn, error)
	LogLevel string `json:"log_level" env:"CL_LOG_LEVEL"`

	// Per-request timeout in seconds
	RequestTimeoutSeconds int `json:"request_timeout_seconds"`
}

// Seconds converts a seconds field to a duration
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Cooldowns returns the per-action cooldowns as durations
func (g GameConfig) Cooldowns() map[string]time.Duration {
	out := make(map[string]time.Duration, len(g.CooldownsMs))
	for k, v := range g.CooldownsMs {
		out[k] = time.Duration(v) * time.Millisecond
	}
	return out
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver:        "sqlite",
			DSN:           "./data/creature-league.db",
			BusyTimeoutMs: 5000,
			SlowQueryMs:   200,
			TxRetries:     3,
		},
		Species: SpeciesConfig{
			DataDir:         "./assets/data",
			CacheSize:       1024,
			CacheTTLSeconds: 3600,
		},
		Game: GameConfig{
			StartingMoney: 500,
			StartingItems: map[string]int{"poke-ball": 5, "potion": 2},
			Starters:      []int{1, 4, 7},
			StarterLevel:  5,

			DefaultCooldownMs: 1500,
			CooldownsMs: map[string]int{
				"status":     0,
				"explore":    3000,
				"raid-start": 60000,
			},

			BattleTTLSeconds:     600,
			RaidDurationSeconds:  1800,
			PvpTTLSeconds:        600,
			QueueTTLSeconds:      300,
			TradeTTLSeconds:      900,
			SweepIntervalSeconds: 60,

			Rewards: RewardConfig{
				XPPerLevel:             100,
				WildMoneyPerLevel:      12,
				WildPlayerXP:           20,
				CreatureXPPerLevel:     15,
				CaptureMoneyPerLevel:   5,
				CapturePlayerXP:        15,
				CaptureCreatureXPRatio: 50,
				GymPlayerXP:            80,
				PvpMoney:               150,
				PvpPlayerXP:            40,
				PvpCreatureXP:          60,
				LossMoneyPercent:       10,
				DropItem:               "poke-ball",
				DropPercent:            15,
			},
			Capture: CaptureConfig{
				Base:         0.10,
				HealthWeight: 0.60,
				RateWeight:   0.25,
				Min:          0.05,
				Max:          0.90,
			},
			Encounter: EncounterConfig{
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
			},
			Gyms: []GymConfig{
				{Type: "rock", Level: 12, Money: 800},
				{Type: "water", Level: 18, Money: 1200},
				{Type: "electric", Level: 24, Money: 1600},
				{Type: "grass", Level: 30, Money: 2000},
				{Type: "poison", Level: 36, Money: 2400},
				{Type: "psychic", Level: 42, Money: 2800},
				{Type: "fire", Level: 48, Money: 3200},
				{Type: "ground", Level: 54, Money: 3600},
			},
			Raid: RaidConfig{
				Candidates:       []int{143, 150, 130, 94},
				Level:            40,
				HPMultiplier:     8,
				RewardMoney:      3000,
				RewardXP:         300,
				RewardCreatureXP: 600,
			},
			Missions: MissionConfig{
				DailyExplore:  5,
				DailyWin:      3,
				DailyCapture:  1,
				WeeklyExplore: 25,
				WeeklyWin:     15,
				WeeklyCapture: 5,
				DailyMoney:    300,
				WeeklyMoney:   1500,
				DailyBonus:    100,
				WeeklyBonus:   500,
			},
			Rescue: RescueConfig{
				MoneyFloor:      300,
				HealthRatio:     0.25,
				Money:           200,
				Potions:         1,
				CooldownSeconds: 86400,
			},
			Coop: CoopConfig{
				WeeklyTarget: 5000,
				RewardMoney:  1000,
				RewardItem:   "ultra-ball",
			},
			Social: SocialConfig{
				RivalryPerMatch:      1,
				FriendshipPerTrade:   2,
				KarmaCooldownSeconds: 3600,
			},
		},
		Server: ServerConfig{
			Port:                  "8080",
			LogLevel:              "info",
			RequestTimeoutSeconds: 30,
		},
	}
}

// LoadConfig loads configuration from a file, then applies environment
// overrides
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return config, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := SaveConfig(config, path); err != nil {
			return config, err
		}
	} else {
		file, err := os.Open(path)
		if err != nil {
			return config, err
		}
		defer file.Close()

		decoder := json.NewDecoder(file)
		if err := decoder.Decode(&config); err != nil {
			return config, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("failed to parse environment: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to a file
func SaveConfig(config Config, path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// Create or truncate file
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	// Write config to file
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(config)
}
