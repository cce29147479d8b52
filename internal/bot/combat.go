package bot

import (
	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

// DefaultFoodIDs are lobster, shark, monkfish, tuna, swordfish, cooked meat
// and salmon.
var DefaultFoodIDs = []int{379, 385, 7946, 361, 373, 2142, 329}

// Potion is a potion type and its item ids from four doses down to one.
type Potion struct {
	Name string
	IDs  []int
}

var (
	PrayerPotion = Potion{Name: "prayer potion", IDs: []int{2434, 139, 141, 143}}
	SuperCombat  = Potion{Name: "super combat", IDs: []int{12695, 12697, 12699, 12701}}
	Antipoison   = Potion{Name: "antipoison", IDs: []int{175, 177, 179, 181}}
)

// CombatOptions configures a Combat task.
type CombatOptions struct {
	// NPCNames are matched case-insensitively as substrings.
	NPCNames []string
	// EatAtPercent triggers eating at or below this health percentage.
	// Zero disables eating.
	EatAtPercent int
	FoodIDs      []int
	// PrayerPotionAt drinks a prayer potion at or below this prayer
	// percentage. Zero disables prayer potions.
	PrayerPotionAt int
	// CombatPotions drinks a super combat whenever attack, strength or
	// defence is not boosted.
	CombatPotions bool
	// Antipoison drinks an antipoison while poisoned.
	Antipoison bool
}

// DefaultCombatOptions fights chickens, eats at half health and restores
// prayer at 20%.
func DefaultCombatOptions() CombatOptions {
	return CombatOptions{
		NPCNames:       []string{"chicken"},
		EatAtPercent:   50,
		FoodIDs:        DefaultFoodIDs,
		PrayerPotionAt: 20,
		CombatPotions:  true,
	}
}

type combatState int

const (
	combatIdle combatState = iota
	combatFindingNPC
	combatVerifyAttack
	combatAttacking
	combatWaitingForCombatEnd
	combatLooting
	combatEating
	combatDrinkingPotion
)

func (s combatState) String() string {
	switch s {
	case combatIdle:
		return "IDLE"
	case combatFindingNPC:
		return "FINDING_NPC"
	case combatVerifyAttack:
		return "VERIFY_ATTACK"
	case combatAttacking:
		return "ATTACKING"
	case combatWaitingForCombatEnd:
		return "WAITING_FOR_COMBAT_END"
	case combatLooting:
		return "LOOTING"
	case combatEating:
		return "EATING"
	case combatDrinkingPotion:
		return "DRINKING_POTION"
	}
	return "UNKNOWN"
}

const (
	verifyAttackTicks   = 5
	combatTimeoutTicks  = 100
	combatEndWaitTicks  = 5
	combatNoTargetTicks = 3
)

// Combat attacks the nearest matching NPC, eats when health runs low, drinks
// potions when a stat needs restoring and picks a new target when the fight
// ends. It never finishes on its own.
type Combat struct {
	core[combatState]

	opts      CombatOptions
	target    world.NPC
	hasTarget bool
	ticks     int
}

// NewCombat creates a combat task. A nil food list uses DefaultFoodIDs.
func NewCombat(env *Env, opts CombatOptions) *Combat {
	if opts.FoodIDs == nil {
		opts.FoodIDs = DefaultFoodIDs
	}
	return &Combat{
		core: newCore(env, "Combat", combatIdle),
		opts: opts,
	}
}

func (c *Combat) Start() {
	c.track(events.On(c.env.Bus, c.onInteractingChanged))
	c.track(events.On(c.env.Bus, c.onInteractionCompleted))

	if len(c.opts.NPCNames) == 0 {
		c.log().Error("no npc names configured, stopping bot")
		c.env.stop("combat: no npc names configured")
		return
	}
	c.log().Info("starting combat", "npcs", c.opts.NPCNames, "eat_at", c.opts.EatAtPercent)
	c.set(combatFindingNPC)
}

func (c *Combat) Loop() {
	if c.state == combatIdle {
		return
	}
	// Low health pre-empts every other state, even during a delay.
	if c.state != combatEating && c.shouldEat() {
		c.log().Info("health low, eating", "health", c.env.Game.HealthPercent())
		c.set(combatEating)
	}
	if c.waiting() {
		return
	}
	if c.state != combatEating && c.state != combatDrinkingPotion {
		if p, ok := c.potionNeeded(); ok {
			c.log().Info("potion needed", "potion", p.Name)
			c.set(combatDrinkingPotion)
		}
	}

	switch c.state {
	case combatFindingNPC:
		c.findNPC()
	case combatVerifyAttack:
		c.verifyAttack()
	case combatAttacking:
		c.attacking()
	case combatWaitingForCombatEnd:
		c.ticks++
		if c.hasTarget && c.env.Game.World().PlayerTarget() == c.target.Index {
			c.set(combatAttacking)
		} else if c.ticks > combatEndWaitTicks {
			c.set(combatLooting)
		}
	case combatLooting:
		c.loot()
	case combatEating:
		c.eat()
	case combatDrinkingPotion:
		c.drink()
	}
}

func (c *Combat) Stop() {
	c.untrack()
	c.log().Info("combat stopped")
}

func (c *Combat) Finished() bool { return false }

func (c *Combat) shouldEat() bool {
	if c.opts.EatAtPercent <= 0 {
		return false
	}
	return c.env.Game.HealthPercent() <= c.opts.EatAtPercent && c.env.Game.HasItem(c.opts.FoodIDs...)
}

// potionNeeded picks the potion to drink, in priority order: prayer, super
// combat, antipoison. Only potions in the inventory are considered.
func (c *Combat) potionNeeded() (Potion, bool) {
	g := c.env.Game
	switch {
	case c.opts.PrayerPotionAt > 0 && g.PrayerPercent() <= c.opts.PrayerPotionAt && g.HasItem(PrayerPotion.IDs...):
		return PrayerPotion, true
	case c.opts.CombatPotions && !g.CombatBoosted() && g.HasItem(SuperCombat.IDs...):
		return SuperCombat, true
	case c.opts.Antipoison && g.IsPoisoned() && g.HasItem(Antipoison.IDs...):
		return Antipoison, true
	}
	return Potion{}, false
}

func (c *Combat) findNPC() {
	npc, ok := c.env.Game.FindNearestNPC(c.opts.NPCNames...)
	if !ok {
		c.log().Debug("no target found")
		c.wait(combatNoTargetTicks, combatNoTargetTicks*2)
		return
	}
	if !c.env.Actions.InteractWithEntity(world.NPCEntity{NPC: npc}, "Attack") {
		c.wait(1, 2)
		return
	}

	c.log().Info("attacking", "npc", npc.Name, "index", npc.Index)
	c.target, c.hasTarget = npc, true
	c.ticks = 0
	c.set(combatVerifyAttack)
}

func (c *Combat) verifyAttack() {
	if c.env.Game.World().PlayerTarget() == c.target.Index {
		c.ticks = 0
		c.set(combatAttacking)
		return
	}
	c.ticks++
	if c.ticks >= verifyAttackTicks {
		c.log().Warn("attack did not start, picking a new target", "npc", c.target.Name)
		c.retarget(1, 2)
	}
}

func (c *Combat) attacking() {
	c.ticks++
	if c.ticks > combatTimeoutTicks {
		c.log().Warn("combat timed out", "npc", c.target.Name)
		c.retarget(1, 2)
		return
	}
	if c.env.Game.World().PlayerTarget() != world.NoActor {
		return
	}

	cur, ok := c.env.Game.World().NPC(c.target.Index)
	if !ok || cur.HealthRatio == 0 {
		c.log().Info("target died", "npc", c.target.Name)
		c.set(combatLooting)
		c.wait(2, 3)
		return
	}
	c.log().Info("no longer in combat", "npc", c.target.Name)
	c.retarget(1, 3)
}

// loot is a pass-through: drops are left on the ground.
func (c *Combat) loot() {
	c.retarget(3, 5)
}

func (c *Combat) eat() {
	slot, ok := c.env.Game.FirstSlotOf(c.opts.FoodIDs...)
	if !ok {
		c.log().Warn("no food left")
		c.retarget(1, 2)
		return
	}
	c.log().Info("eating food", "slot", slot, "item", c.env.Game.InventoryItemID(slot))
	c.env.Actions.SendClickRequest(c.env.Game.InventoryItemPoint(slot), false)
	c.wait(3, 5)
	c.backToFight()
}

func (c *Combat) drink() {
	p, ok := c.potionNeeded()
	if !ok {
		c.log().Warn("no suitable potion, carrying on")
		c.backToFight()
		return
	}
	slot, _ := c.env.Game.FirstSlotOf(p.IDs...)
	c.log().Info("drinking potion", "potion", p.Name, "slot", slot, "item", c.env.Game.InventoryItemID(slot))
	c.env.Actions.SendClickRequest(c.env.Game.InventoryItemPoint(slot), false)
	c.wait(3, 5)
	c.backToFight()
}

// backToFight resumes the current target if it is still alive, otherwise
// looks for a new one.
func (c *Combat) backToFight() {
	if c.hasTarget {
		if cur, ok := c.env.Game.World().NPC(c.target.Index); ok && cur.HealthRatio > 0 {
			c.ticks = 0
			c.set(combatAttacking)
			return
		}
	}
	c.hasTarget = false
	c.set(combatFindingNPC)
}

// retarget drops the current target and looks for a new one after a delay.
func (c *Combat) retarget(minTicks, maxTicks int) {
	c.hasTarget = false
	c.ticks = 0
	c.set(combatFindingNPC)
	c.wait(minTicks, maxTicks)
}

func (c *Combat) onInteractingChanged(e events.InteractingChangedEvent) {
	switch c.state {
	case combatVerifyAttack:
		if e.Target != world.NoActor {
			c.log().Info("attack started", "npc", c.target.Name)
			c.ticks = 0
			c.set(combatAttacking)
		}
	case combatAttacking:
		if e.Target == world.NoActor {
			c.ticks = 0
			c.set(combatWaitingForCombatEnd)
		}
	}
}

func (c *Combat) onInteractionCompleted(e events.InteractionCompletedEvent) {
	if c.state != combatVerifyAttack || e.Success || e.Action != "Attack" {
		return
	}
	c.log().Warn("attack interaction failed", "reason", e.FailureReason)
	c.retarget(1, 2)
}
