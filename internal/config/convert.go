package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/aristath/runebot/internal/action"
	"github.com/aristath/runebot/internal/bot"
	"github.com/aristath/runebot/internal/engine"
	"github.com/aristath/runebot/internal/injector"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/ipc"
	"github.com/aristath/runebot/internal/pathfinding"
)

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Kind returns the selected bot type.
func (c *BotConfig) Kind() bot.Kind {
	return bot.Kind(c.Bot)
}

// Settings maps the per-bot sections onto task options.
func (c *BotConfig) Settings() bot.Settings {
	return bot.Settings{
		Mining: bot.MiningOptions{
			Rocks:         slices.Clone(c.Mining.Rocks),
			Mode:          bot.MiningMode(c.Mining.Mode),
			Mine:          c.Mining.Mine,
			Bank:          c.Mining.Bank,
			HoverNextRock: c.Mining.HoverNextRock,
		},
		Woodcutting: bot.WoodcuttingOptions{
			Trees:         slices.Clone(c.Woodcutting.Trees),
			Mode:          bot.WoodcuttingMode(c.Woodcutting.Mode),
			Grove:         c.Woodcutting.Grove,
			Bank:          c.Woodcutting.Bank,
			HoverNextTree: c.Woodcutting.HoverNextTree,
		},
		Combat: bot.CombatOptions{
			NPCNames:       c.NPCNames(),
			EatAtPercent:   c.Combat.EatAtPercent,
			FoodIDs:        slices.Clone(c.Combat.FoodIDs),
			PrayerPotionAt: c.Combat.PrayerPotionAtPercent,
			CombatPotions:  c.Combat.CombatPotions,
			Antipoison:     c.Combat.Antipoison,
		},
		Fishing: bot.FishingOptions{
			Area:  c.Fishing.Area,
			Cook:  c.Fishing.Cook,
			Range: c.Fishing.Range,
			Bank:  c.Fishing.Bank,
		},
		Cooking: bot.CookingOptions{
			Range:   c.Cooking.Range,
			RangeID: c.Cooking.RangeID,
			RawIDs:  slices.Clone(c.Cooking.RawIDs),
		},
	}
}

// WindParams returns the Windmouse physics.
func (c *BotConfig) WindParams() input.WindParams {
	return input.WindParams{
		Gravity:      c.Windmouse.Gravity,
		Wind:         c.Windmouse.Wind,
		MaxVelocity:  c.Windmouse.MaxVelocity,
		TargetArea:   c.Windmouse.TargetArea,
		MinStepDelay: ms(c.Windmouse.MinStepDelayMs),
		MaxStepDelay: ms(c.Windmouse.MaxStepDelayMs),
	}
}

// ActionOptions returns the action timing.
func (c *BotConfig) ActionOptions() action.Options {
	return action.Options{
		DropDelayMin:     ms(c.Action.DropDelayMinMs),
		DropDelayMax:     ms(c.Action.DropDelayMaxMs),
		InteractionDelay: ms(c.Action.InteractionDelayMs),
		MenuDelay:        ms(c.Action.MenuDelayMs),
		PreClickMin:      ms(c.Windmouse.PreClickMinMs),
		PreClickMax:      ms(c.Windmouse.PreClickMaxMs),
	}
}

// EngineOptions assembles the engine options, loading the transport table.
func (c *BotConfig) EngineOptions() (engine.Options, error) {
	transports, err := pathfinding.LoadTransports(c.Pathfinding.TransportsFile)
	if err != nil {
		return engine.Options{}, err
	}
	return engine.Options{
		Settings: c.Settings(),
		Action:   c.ActionOptions(),
		Humanize: c.Windmouse.Enabled,
		Wind:     c.WindParams(),
		Planner: pathfinding.Options{
			MaxNodes:  c.Pathfinding.MaxNodes,
			Teleports: c.Pathfinding.Teleports,
		},
		Transports:  transports,
		PathTimeout: ms(c.Pathfinding.TimeoutMs),
	}, nil
}

// RetryConfig returns the injector connect retry policy.
func (c *BotConfig) RetryConfig() ipc.RetryConfig {
	retry := ipc.DefaultRetryConfig()
	retry.InitialInterval = ms(c.Input.RetryInitialMs)
	retry.MaxInterval = ms(c.Input.RetryMaxMs)
	retry.MaxElapsedTime = ms(c.Input.RetryElapsedMs)
	return retry
}

// Helper returns the injector helper command. It is disabled when no command
// is configured.
func (c *BotConfig) Helper() injector.Helper {
	return injector.Helper{
		Command:      c.Input.Command,
		Args:         slices.Clone(c.Input.Args),
		StartupDelay: ms(c.Input.StartupDelayMs),
	}
}

// StorePath returns the session database path.
func (c *BotConfig) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, Dir, "sessions.db"), nil
}

// Logger builds the logger selected by the log section. An unknown level
// falls back to info.
func (c *BotConfig) Logger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
