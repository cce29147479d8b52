package config

import (
	"slices"
	"time"

	"github.com/aristath/runebot/internal/action"
	"github.com/aristath/runebot/internal/bot"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/ipc"
	"github.com/aristath/runebot/internal/pathfinding"
)

// DefaultAddress is the injector pipe used when nothing is configured.
const DefaultAddress = "/tmp/runebot-input"

// DefaultListen is the bridge address used when nothing is configured.
const DefaultListen = "127.0.0.1:7331"

// DefaultConfig returns the default configuration: a banking copper and tin
// miner with humanized mouse movement.
func DefaultConfig() *BotConfig {
	settings := bot.DefaultSettings()
	wind := input.DefaultWindParams()
	act := action.DefaultOptions()
	retry := ipc.DefaultRetryConfig()

	return &BotConfig{
		Bot: string(bot.KindMining),
		Mining: MiningConfig{
			Rocks:         slices.Clone(settings.Mining.Rocks),
			Mode:          string(settings.Mining.Mode),
			Mine:          settings.Mining.Mine,
			Bank:          settings.Mining.Bank,
			HoverNextRock: settings.Mining.HoverNextRock,
		},
		Woodcutting: WoodcuttingConfig{
			Trees:         slices.Clone(settings.Woodcutting.Trees),
			Mode:          string(settings.Woodcutting.Mode),
			Grove:         settings.Woodcutting.Grove,
			Bank:          settings.Woodcutting.Bank,
			HoverNextTree: settings.Woodcutting.HoverNextTree,
		},
		Combat: CombatConfig{
			NPCNames:              "chicken",
			EatAtPercent:          settings.Combat.EatAtPercent,
			FoodIDs:               slices.Clone(settings.Combat.FoodIDs),
			PrayerPotionAtPercent: settings.Combat.PrayerPotionAt,
			CombatPotions:         settings.Combat.CombatPotions,
			Antipoison:            settings.Combat.Antipoison,
		},
		Fishing: FishingConfig{
			Area:  settings.Fishing.Area,
			Cook:  settings.Fishing.Cook,
			Range: settings.Fishing.Range,
			Bank:  settings.Fishing.Bank,
		},
		Cooking: CookingConfig{
			Range:   settings.Cooking.Range,
			RangeID: settings.Cooking.RangeID,
			RawIDs:  slices.Clone(settings.Cooking.RawIDs),
		},
		Windmouse: WindmouseConfig{
			Enabled:        true,
			Gravity:        wind.Gravity,
			Wind:           wind.Wind,
			MaxVelocity:    wind.MaxVelocity,
			TargetArea:     wind.TargetArea,
			MinStepDelayMs: millis(wind.MinStepDelay),
			MaxStepDelayMs: millis(wind.MaxStepDelay),
			PreClickMinMs:  millis(act.PreClickMin),
			PreClickMaxMs:  millis(act.PreClickMax),
		},
		Action: ActionConfig{
			DropDelayMinMs:     millis(act.DropDelayMin),
			DropDelayMaxMs:     millis(act.DropDelayMax),
			InteractionDelayMs: millis(act.InteractionDelay),
			MenuDelayMs:        millis(act.MenuDelay),
		},
		Input: InputConfig{
			Address:        DefaultAddress,
			StartupDelayMs: 500,
			RetryInitialMs: millis(retry.InitialInterval),
			RetryMaxMs:     millis(retry.MaxInterval),
			RetryElapsedMs: millis(retry.MaxElapsedTime),
		},
		Bridge: BridgeConfig{
			Listen: DefaultListen,
		},
		Pathfinding: PathfindingConfig{
			TimeoutMs: 10_000,
			MaxNodes:  pathfinding.DefaultMaxNodes,
			Teleports: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func millis(d time.Duration) int {
	return int(d / time.Millisecond)
}
