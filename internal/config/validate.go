package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/aristath/runebot/internal/bot"
)

// ErrInvalid is returned by Validate for a configuration the bot cannot run.
var ErrInvalid = errors.New("invalid configuration")

// Validate reports every configuration gap at once.
func (c *BotConfig) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	kind := bot.Kind(c.Bot)
	if !slices.Contains(bot.Kinds(), kind) {
		add("unknown bot type %q", c.Bot)
	}

	switch kind {
	case bot.KindMining:
		if len(c.Mining.Rocks) == 0 {
			add("mining.rocks is empty")
		}
		for _, name := range c.Mining.Rocks {
			if _, ok := bot.RockByName(name); !ok {
				add("mining.rocks: unknown rock %q", name)
			}
		}
		switch bot.MiningMode(c.Mining.Mode) {
		case bot.MiningBank, bot.MiningPower:
		default:
			add("mining.mode must be bank or power, got %q", c.Mining.Mode)
		}
	case bot.KindWoodcutting:
		if len(c.Woodcutting.Trees) == 0 {
			add("woodcutting.trees is empty")
		}
		for _, name := range c.Woodcutting.Trees {
			if _, ok := bot.TreeByName(name); !ok {
				add("woodcutting.trees: unknown tree %q", name)
			}
		}
		switch bot.WoodcuttingMode(c.Woodcutting.Mode) {
		case bot.WoodcuttingBank, bot.WoodcuttingPower:
		default:
			add("woodcutting.mode must be bank or power, got %q", c.Woodcutting.Mode)
		}
	case bot.KindCombat:
		if len(c.NPCNames()) == 0 {
			add("combat.npc_names is empty")
		}
	case bot.KindCooking:
		if len(c.Cooking.RawIDs) == 0 {
			add("cooking.raw_ids is empty")
		}
	}
	if c.Combat.EatAtPercent < 0 || c.Combat.EatAtPercent > 100 {
		add("combat.eat_at_percent must be between 0 and 100")
	}
	if c.Combat.PrayerPotionAtPercent < 0 || c.Combat.PrayerPotionAtPercent > 100 {
		add("combat.prayer_potion_at_percent must be between 0 and 100")
	}

	checkRange := func(name string, lo, hi int) {
		if lo < 0 || hi < lo {
			add("%s: need 0 <= min <= max, got %d..%d", name, lo, hi)
		}
	}
	checkRange("action.drop_delay_ms", c.Action.DropDelayMinMs, c.Action.DropDelayMaxMs)
	checkRange("windmouse.step_delay_ms", c.Windmouse.MinStepDelayMs, c.Windmouse.MaxStepDelayMs)
	checkRange("windmouse.pre_click_ms", c.Windmouse.PreClickMinMs, c.Windmouse.PreClickMaxMs)
	if c.Action.InteractionDelayMs < 0 || c.Action.MenuDelayMs < 0 {
		add("action delays must not be negative")
	}
	if c.Windmouse.Enabled && (c.Windmouse.Gravity <= 0 || c.Windmouse.MaxVelocity <= 0) {
		add("windmouse.gravity and windmouse.max_velocity must be positive")
	}

	if c.Input.Address == "" {
		add("input.address is empty")
	}
	if c.Bridge.Listen == "" {
		add("bridge.listen is empty")
	}
	if c.Pathfinding.TimeoutMs < 0 || c.Pathfinding.MaxNodes < 0 {
		add("pathfinding limits must not be negative")
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		add("log.level: unknown level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		add("log.format must be text or json, got %q", c.Log.Format)
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// NPCNames splits the combat target list.
func (c *BotConfig) NPCNames() []string {
	var names []string
	for _, name := range strings.Split(c.Combat.NPCNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}
