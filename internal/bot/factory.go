package bot

import (
	"errors"
	"fmt"

	"github.com/aristath/runebot/internal/scheduler"
)

// Kind names a bot type, the root task pushed when the bot starts.
type Kind string

const (
	KindMining      Kind = "mining"
	KindWoodcutting Kind = "woodcutting"
	KindCombat      Kind = "combat"
	KindFishing     Kind = "fishing"
	KindCooking     Kind = "cooking"
)

// ErrUnknownKind is returned by NewRoot for an unsupported bot type.
var ErrUnknownKind = errors.New("unknown bot type")

// Kinds returns every supported bot type.
func Kinds() []Kind {
	return []Kind{KindMining, KindWoodcutting, KindCombat, KindFishing, KindCooking}
}

// Settings carries the options of every bot type.
type Settings struct {
	Mining      MiningOptions
	Woodcutting WoodcuttingOptions
	Combat      CombatOptions
	Fishing     FishingOptions
	Cooking     CookingOptions
}

// DefaultSettings returns the stock options of every bot type.
func DefaultSettings() Settings {
	return Settings{
		Mining:      DefaultMiningOptions(),
		Woodcutting: DefaultWoodcuttingOptions(),
		Combat:      DefaultCombatOptions(),
		Fishing:     DefaultFishingOptions(),
		Cooking:     DefaultCookingOptions(),
	}
}

// NewRoot creates the root task for kind.
func NewRoot(kind Kind, env *Env, s Settings) (scheduler.Task, error) {
	switch kind {
	case KindMining:
		return NewMining(env, s.Mining), nil
	case KindWoodcutting:
		return NewWoodcutting(env, s.Woodcutting), nil
	case KindCombat:
		return NewCombat(env, s.Combat), nil
	case KindFishing:
		return NewFishing(env, s.Fishing), nil
	case KindCooking:
		return NewCooking(env, s.Cooking), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
