package game

import (
	"slices"

	"github.com/aristath/runebot/internal/world"
)

// Player animation ids for the gathering and processing skills.
var (
	MiningAnimations = []int{
		624,  // rune pickaxe
		625,  // bronze
		626,  // iron
		627,  // steel
		628,  // adamant
		629,  // mithril
		3873, // black
		4482, // infernal
		7139, // dragon
		7283, // 3rd age
		8313, // gilded
		8346, // dragon (or)
		8347, // crystal
	}
	WoodcuttingAnimations = []int{
		867,  // rune axe
		869,  // adamant
		871,  // mithril
		873,  // black
		875,  // steel
		877,  // iron
		879,  // bronze
		2117, // infernal
		2846, // dragon
		7264, // 3rd age
		8303, // gilded
		8324, // crystal
	}
	FishingAnimations = []int{
		618,  // harpoon
		619,  // lobster pot
		620,  // big net
		621,  // small net
		622,  // rod
		623,  // fly rod
		5108, // barbarian rod
		6703, // dragon harpoon
		7401, // infernal harpoon
	}
	CookingAnimations = []int{
		883, // cooking on a fire
		896, // cooking on a range
		897,
	}
)

// IsPlayerIdle reports whether the player has no animation playing.
func (s *Service) IsPlayerIdle() bool {
	return s.world.PlayerAnimation() == world.IdleAnimation
}

// IsCurrentlyMining reports whether the player plays a mining animation.
func (s *Service) IsCurrentlyMining() bool {
	return IsMiningAnimation(s.world.PlayerAnimation())
}

// IsCurrentlyWoodcutting reports whether the player plays a woodcutting
// animation.
func (s *Service) IsCurrentlyWoodcutting() bool {
	return IsWoodcuttingAnimation(s.world.PlayerAnimation())
}

// IsCurrentlyFishing reports whether the player plays a fishing animation.
func (s *Service) IsCurrentlyFishing() bool {
	return slices.Contains(FishingAnimations, s.world.PlayerAnimation())
}

// IsCurrentlyCooking reports whether the player plays a cooking animation.
func (s *Service) IsCurrentlyCooking() bool {
	return slices.Contains(CookingAnimations, s.world.PlayerAnimation())
}

// IsMiningAnimation reports whether anim is one of MiningAnimations.
func IsMiningAnimation(anim int) bool {
	return slices.Contains(MiningAnimations, anim)
}

// IsWoodcuttingAnimation reports whether anim is one of WoodcuttingAnimations.
func IsWoodcuttingAnimation(anim int) bool {
	return slices.Contains(WoodcuttingAnimations, anim)
}

// HealthPercent returns boosted hitpoints as a percentage of the real level.
// An unknown level reads as full health.
func (s *Service) HealthPercent() int {
	hp := s.world.Skill(world.SkillHitpoints)
	if hp.Real <= 0 {
		return 100
	}
	return hp.Boosted * 100 / hp.Real
}

// SkillXP returns the experience of sk.
func (s *Service) SkillXP(sk world.Skill) int {
	return s.world.Skill(sk).XP
}

// PrayerPercent returns boosted prayer as a percentage of the real level. A
// player without prayer levels reads as full.
func (s *Service) PrayerPercent() int {
	p := s.world.Skill(world.SkillPrayer)
	if p.Real <= 0 {
		return 100
	}
	return p.Boosted * 100 / p.Real
}

// IsPoisoned reports whether the player takes poison or venom damage.
func (s *Service) IsPoisoned() bool {
	return s.world.PlayerPoisoned()
}

// CombatBoosted reports whether attack, strength and defence are all boosted
// above their real levels.
func (s *Service) CombatBoosted() bool {
	for _, sk := range []world.Skill{world.SkillAttack, world.SkillStrength, world.SkillDefence} {
		st := s.world.Skill(sk)
		if st.Boosted <= st.Real {
			return false
		}
	}
	return true
}
