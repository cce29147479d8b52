package config

import (
	"github.com/aristath/runebot/internal/world"
)

// MiningConfig selects rocks and what to do with a full inventory.
type MiningConfig struct {
	Rocks         []string         `json:"rocks" yaml:"rocks"`                     // rock types, e.g. "copper", "iron"
	Mode          string           `json:"mode" yaml:"mode"`                       // "bank" or "power"
	Mine          world.WorldPoint `json:"mine" yaml:"mine"`                       // walked to on start when far away
	Bank          world.WorldPoint `json:"bank" yaml:"bank"`                       // tile next to the booth
	HoverNextRock bool             `json:"hover_next_rock" yaml:"hover_next_rock"` // pre-target the next rock
}

// WoodcuttingConfig selects trees and what to do with a full inventory.
type WoodcuttingConfig struct {
	Trees         []string         `json:"trees" yaml:"trees"` // tree types, e.g. "oak", "willow"
	Mode          string           `json:"mode" yaml:"mode"`   // "bank" or "power"
	Grove         world.WorldPoint `json:"grove" yaml:"grove"`
	Bank          world.WorldPoint `json:"bank" yaml:"bank"`
	HoverNextTree bool             `json:"hover_next_tree" yaml:"hover_next_tree"`
}

// CombatConfig selects targets, food and potions.
type CombatConfig struct {
	NPCNames              string `json:"npc_names" yaml:"npc_names"` // comma separated, matched as substrings
	EatAtPercent          int    `json:"eat_at_percent" yaml:"eat_at_percent"`
	FoodIDs               []int  `json:"food_ids,omitempty" yaml:"food_ids,omitempty"`
	PrayerPotionAtPercent int    `json:"prayer_potion_at_percent" yaml:"prayer_potion_at_percent"` // 0 disables
	CombatPotions         bool   `json:"combat_potions" yaml:"combat_potions"`
	Antipoison            bool   `json:"antipoison" yaml:"antipoison"`
}

// FishingConfig places the fishing spots and the range and bank they feed.
type FishingConfig struct {
	Area  world.WorldPoint `json:"area" yaml:"area"`
	Cook  bool             `json:"cook" yaml:"cook"`
	Range world.WorldPoint `json:"range" yaml:"range"`
	Bank  world.WorldPoint `json:"bank" yaml:"bank"`
}

// CookingConfig selects the range and the raw food to cook.
type CookingConfig struct {
	Range   world.WorldPoint `json:"range" yaml:"range"`
	RangeID int              `json:"range_id" yaml:"range_id"`
	RawIDs  []int            `json:"raw_ids" yaml:"raw_ids"`
}

// WindmouseConfig tunes humanized cursor movement.
type WindmouseConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled"`
	Gravity        float64 `json:"gravity" yaml:"gravity"`
	Wind           float64 `json:"wind" yaml:"wind"`
	MaxVelocity    float64 `json:"max_velocity" yaml:"max_velocity"`
	TargetArea     float64 `json:"target_area" yaml:"target_area"`
	MinStepDelayMs int     `json:"min_step_delay_ms" yaml:"min_step_delay_ms"`
	MaxStepDelayMs int     `json:"max_step_delay_ms" yaml:"max_step_delay_ms"`
	PreClickMinMs  int     `json:"pre_click_min_ms" yaml:"pre_click_min_ms"`
	PreClickMaxMs  int     `json:"pre_click_max_ms" yaml:"pre_click_max_ms"`
}

// ActionConfig tunes action timing.
type ActionConfig struct {
	DropDelayMinMs     int `json:"drop_delay_min_ms" yaml:"drop_delay_min_ms"`
	DropDelayMaxMs     int `json:"drop_delay_max_ms" yaml:"drop_delay_max_ms"`
	InteractionDelayMs int `json:"interaction_delay_ms" yaml:"interaction_delay_ms"`
	MenuDelayMs        int `json:"menu_delay_ms" yaml:"menu_delay_ms"`
}

// InputConfig locates the input injector and optionally launches its helper.
type InputConfig struct {
	Address        string   `json:"address" yaml:"address"`                         // pipe path, unix://, tcp:// or ws:// URL
	Command        string   `json:"command,omitempty" yaml:"command,omitempty"`     // helper started before connecting
	Args           []string `json:"args,omitempty" yaml:"args,omitempty"`
	StartupDelayMs int      `json:"startup_delay_ms" yaml:"startup_delay_ms"`
	RetryInitialMs int      `json:"retry_initial_ms" yaml:"retry_initial_ms"`
	RetryMaxMs     int      `json:"retry_max_ms" yaml:"retry_max_ms"`
	RetryElapsedMs int      `json:"retry_elapsed_ms" yaml:"retry_elapsed_ms"` // give up connecting after this long
}

// BridgeConfig sets where the host client feed is served.
type BridgeConfig struct {
	Listen string `json:"listen" yaml:"listen"`
}

// StoreConfig locates the session database.
type StoreConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty"` // defaults to ~/.runebot/sessions.db
}

// PathfindingConfig tunes route planning.
type PathfindingConfig struct {
	TransportsFile string `json:"transports_file,omitempty" yaml:"transports_file,omitempty"` // built-in table when empty
	TimeoutMs      int    `json:"timeout_ms" yaml:"timeout_ms"`
	MaxNodes       int    `json:"max_nodes" yaml:"max_nodes"`
	Teleports      bool   `json:"teleports" yaml:"teleports"`
}

// LogConfig selects log verbosity and format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// BotConfig is the top-level configuration.
type BotConfig struct {
	Bot         string            `json:"bot" yaml:"bot"` // mining, woodcutting, combat, fishing or cooking
	Mining      MiningConfig      `json:"mining" yaml:"mining"`
	Woodcutting WoodcuttingConfig `json:"woodcutting" yaml:"woodcutting"`
	Combat      CombatConfig      `json:"combat" yaml:"combat"`
	Fishing     FishingConfig     `json:"fishing" yaml:"fishing"`
	Cooking     CookingConfig     `json:"cooking" yaml:"cooking"`
	Windmouse   WindmouseConfig   `json:"windmouse" yaml:"windmouse"`
	Action      ActionConfig      `json:"action" yaml:"action"`
	Input       InputConfig       `json:"input" yaml:"input"`
	Bridge      BridgeConfig      `json:"bridge" yaml:"bridge"`
	Store       StoreConfig       `json:"store" yaml:"store"`
	Pathfinding PathfindingConfig `json:"pathfinding" yaml:"pathfinding"`
	Log         LogConfig         `json:"log" yaml:"log"`
}
