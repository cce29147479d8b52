package world

import "strings"

// Actor references used by NPC.Interacting and Query.PlayerTarget.
const (
	NoActor     = -1 // not interacting with anything
	LocalPlayer = -2 // interacting with the local player
)

// IdleAnimation is the animation id of a player doing nothing.
const IdleAnimation = -1

// InventorySize is the fixed number of inventory slots.
const InventorySize = 28

// Skill names as reported by the host client.
type Skill string

const (
	SkillHitpoints   Skill = "hitpoints"
	SkillAttack      Skill = "attack"
	SkillStrength    Skill = "strength"
	SkillDefence     Skill = "defence"
	SkillPrayer      Skill = "prayer"
	SkillMining      Skill = "mining"
	SkillWoodcutting Skill = "woodcutting"
	SkillFishing     Skill = "fishing"
	SkillCooking     Skill = "cooking"
	SkillMagic       Skill = "magic"
)

// SkillState is the level and experience of a single skill.
type SkillState struct {
	Real    int `json:"real"`
	Boosted int `json:"boosted"`
	XP      int `json:"xp"`
}

// GameObject is a scene object (rock, booth, range, door, staircase).
type GameObject struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Location WorldPoint `json:"location"`
	Hull     Polygon    `json:"hull,omitempty"`
	Actions  []string   `json:"actions,omitempty"`
	Wall     bool       `json:"wall,omitempty"`
}

// HasAction reports whether the object offers the menu action (case-insensitive).
func (o GameObject) HasAction(action string) bool {
	for _, a := range o.Actions {
		if strings.EqualFold(a, action) {
			return true
		}
	}
	return false
}

// NPC is a non-player character.
type NPC struct {
	Index       int        `json:"index"`
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Location    WorldPoint `json:"location"`
	Hull        Polygon    `json:"hull,omitempty"`
	HealthRatio int        `json:"health_ratio"`
	Interacting int        `json:"interacting"`
}

// Dead reports whether the NPC is at zero health while engaged.
func (n NPC) Dead() bool {
	return n.HealthRatio == 0 && n.Interacting != NoActor
}

// InventoryItem occupies one inventory slot.
type InventoryItem struct {
	Slot     int  `json:"slot"`
	ID       int  `json:"id"`
	Quantity int  `json:"quantity"`
	Bounds   Rect `json:"bounds"`
}

// WidgetID names an interface component.
type WidgetID string

// Widgets the core looks up.
const (
	WidgetBankItems          WidgetID = "bank.items"
	WidgetBankDepositAll     WidgetID = "bank.deposit_inventory"
	WidgetMinimap            WidgetID = "minimap"
	WidgetHomeTeleport       WidgetID = "spell.home_teleport"
	WidgetHomeTeleportLunar  WidgetID = "spell.home_teleport_lunar"
	WidgetHomeTeleportArceus WidgetID = "spell.home_teleport_arceuus"
	WidgetHomeTeleportZaros  WidgetID = "spell.home_teleport_zaros"
	WidgetVarrockTeleport    WidgetID = "spell.varrock_teleport"
	WidgetLumbridgeTeleport  WidgetID = "spell.lumbridge_teleport"
	WidgetFaladorTeleport    WidgetID = "spell.falador_teleport"
	WidgetCamelotTeleport    WidgetID = "spell.camelot_teleport"
)

// Widget is an interface component's visibility and bounds.
type Widget struct {
	Bounds Rect `json:"bounds"`
	Hidden bool `json:"hidden"`
}

// Visible reports whether the widget is shown with a non-empty area.
func (w Widget) Visible() bool {
	return !w.Hidden && !w.Bounds.Empty()
}

// MenuEntry is one option of the open (or hover) context menu.
// Entries are in visual order: index 0 is the left-click default.
type MenuEntry struct {
	Option string `json:"option"`
	Target string `json:"target"`
	Bounds Rect   `json:"bounds"`
}

// Query is read-only access to the host client's world state.
type Query interface {
	CollisionSource

	PlayerLocation() WorldPoint
	// PlayerDestination is the tile the player is currently walking to, if any.
	PlayerDestination() (WorldPoint, bool)
	PlayerAnimation() int
	// PlayerTarget is the index of the NPC the player interacts with, or NoActor.
	PlayerTarget() int
	// PlayerPoisoned reports poison or venom damage over time.
	PlayerPoisoned() bool
	Skill(s Skill) SkillState

	Inventory() []InventoryItem
	// Bank returns the visible bank items. Bounds are canvas rectangles.
	Bank() []InventoryItem
	GameObjects() []GameObject
	NPCs() []NPC
	NPC(index int) (NPC, bool)

	Widget(id WidgetID) (Widget, bool)
	Menu() []MenuEntry
	// MinimapPoint projects a world point onto the minimap.
	// ok is false when the point is outside the drawable minimap area.
	MinimapPoint(p WorldPoint) (Point, bool)
	MousePosition() Point
}
