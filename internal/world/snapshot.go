package world

import (
	"math"
	"sync/atomic"
)

// minimapEdgeMargin keeps clicks away from the minimap's rim.
const minimapEdgeMargin = 7

// Minimap describes how world tiles project onto the minimap.
type Minimap struct {
	Center        Point   `json:"center"`
	Radius        int     `json:"radius"`
	PixelsPerTile float64 `json:"pixels_per_tile"`
	// Angle is the camera yaw in radians; 0 means north is up.
	Angle float64 `json:"angle"`
}

// CollisionTile carries the collision flags of one tile.
type CollisionTile struct {
	X     int `json:"x"`
	Y     int `json:"y"`
	Plane int `json:"plane"`
	Flags int `json:"flags"`
}

// Snapshot is one immutable copy of the world as sent by the host client.
// Call Index before sharing it between goroutines.
type Snapshot struct {
	Tick        int64                `json:"tick"`
	Player      WorldPoint           `json:"player"`
	Destination *WorldPoint          `json:"destination,omitempty"`
	Animation   int                  `json:"animation"`
	Target      int                  `json:"target"`
	Poisoned    bool                 `json:"poisoned,omitempty"`
	Skills      map[Skill]SkillState `json:"skills,omitempty"`
	Items       []InventoryItem      `json:"inventory,omitempty"`
	BankItems   []InventoryItem      `json:"bank,omitempty"`
	Objects     []GameObject         `json:"objects,omitempty"`
	Npcs        []NPC                `json:"npcs,omitempty"`
	Widgets     map[WidgetID]Widget  `json:"widgets,omitempty"`
	MenuEntries []MenuEntry          `json:"menu,omitempty"`
	Map         Minimap              `json:"minimap"`
	Mouse       Point                `json:"mouse"`
	Collision   []CollisionTile      `json:"collision,omitempty"`

	collision CollisionMap
	npcs      map[int]int
}

// NewSnapshot returns an empty snapshot of an idle player at loc.
func NewSnapshot(loc WorldPoint) *Snapshot {
	return &Snapshot{
		Player:    loc,
		Animation: IdleAnimation,
		Target:    NoActor,
		Skills:    map[Skill]SkillState{},
		Widgets:   map[WidgetID]Widget{},
	}
}

// Index builds lookup tables. It must not be called once the snapshot is shared.
func (s *Snapshot) Index() *Snapshot {
	s.collision = make(CollisionMap, len(s.Collision))
	for _, t := range s.Collision {
		s.collision[WorldPoint{X: t.X, Y: t.Y, Plane: t.Plane}] = t.Flags
	}
	s.npcs = make(map[int]int, len(s.Npcs))
	for i, n := range s.Npcs {
		s.npcs[n.Index] = i
	}
	return s
}

func (s *Snapshot) PlayerLocation() WorldPoint { return s.Player }

func (s *Snapshot) PlayerDestination() (WorldPoint, bool) {
	if s.Destination == nil {
		return WorldPoint{}, false
	}
	return *s.Destination, true
}

func (s *Snapshot) PlayerAnimation() int { return s.Animation }
func (s *Snapshot) PlayerTarget() int    { return s.Target }
func (s *Snapshot) PlayerPoisoned() bool { return s.Poisoned }

func (s *Snapshot) Skill(sk Skill) SkillState { return s.Skills[sk] }

func (s *Snapshot) Inventory() []InventoryItem { return s.Items }
func (s *Snapshot) Bank() []InventoryItem      { return s.BankItems }
func (s *Snapshot) GameObjects() []GameObject  { return s.Objects }
func (s *Snapshot) NPCs() []NPC                { return s.Npcs }

func (s *Snapshot) NPC(index int) (NPC, bool) {
	if s.npcs != nil {
		i, ok := s.npcs[index]
		if !ok {
			return NPC{}, false
		}
		return s.Npcs[i], true
	}
	for _, n := range s.Npcs {
		if n.Index == index {
			return n, true
		}
	}
	return NPC{}, false
}

func (s *Snapshot) Widget(id WidgetID) (Widget, bool) {
	w, ok := s.Widgets[id]
	return w, ok
}

func (s *Snapshot) Menu() []MenuEntry   { return s.MenuEntries }
func (s *Snapshot) MousePosition() Point { return s.Mouse }

func (s *Snapshot) CollisionFlags(p WorldPoint) (int, bool) {
	if s.collision != nil {
		return s.collision.CollisionFlags(p)
	}
	for _, t := range s.Collision {
		if t.X == p.X && t.Y == p.Y && t.Plane == p.Plane {
			return t.Flags, true
		}
	}
	return 0, false
}

// MinimapPoint rotates the tile offset from the player by the camera yaw and
// scales it into minimap pixels.
func (s *Snapshot) MinimapPoint(p WorldPoint) (Point, bool) {
	m := s.Map
	if m.Radius <= minimapEdgeMargin || m.PixelsPerTile <= 0 || p.Plane != s.Player.Plane {
		return InvalidPoint, false
	}
	dx := float64(p.X-s.Player.X) * m.PixelsPerTile
	dy := float64(p.Y-s.Player.Y) * m.PixelsPerTile
	sin, cos := math.Sincos(m.Angle)
	rx := dx*cos + dy*sin
	ry := dy*cos - dx*sin

	limit := float64(m.Radius - minimapEdgeMargin)
	if rx*rx+ry*ry > limit*limit {
		return InvalidPoint, false
	}
	return Point{
		X: m.Center.X + int(math.Round(rx)),
		Y: m.Center.Y - int(math.Round(ry)),
	}, true
}

// Live holds the most recent snapshot and is safe for concurrent use.
// It satisfies Query by delegating every call to the current snapshot.
type Live struct {
	cur atomic.Pointer[Snapshot]
}

// NewLive creates a Live view starting from an empty snapshot.
func NewLive() *Live {
	l := &Live{}
	l.cur.Store(NewSnapshot(WorldPoint{}).Index())
	return l
}

// Update indexes and publishes a new snapshot.
func (l *Live) Update(s *Snapshot) {
	if s == nil {
		return
	}
	l.cur.Store(s.Index())
}

// Current returns the snapshot readers currently see.
func (l *Live) Current() *Snapshot {
	return l.cur.Load()
}

func (l *Live) PlayerLocation() WorldPoint            { return l.Current().PlayerLocation() }
func (l *Live) PlayerDestination() (WorldPoint, bool) { return l.Current().PlayerDestination() }
func (l *Live) PlayerAnimation() int                  { return l.Current().PlayerAnimation() }
func (l *Live) PlayerTarget() int                     { return l.Current().PlayerTarget() }
func (l *Live) PlayerPoisoned() bool                  { return l.Current().PlayerPoisoned() }
func (l *Live) Skill(sk Skill) SkillState             { return l.Current().Skill(sk) }
func (l *Live) Inventory() []InventoryItem            { return l.Current().Inventory() }
func (l *Live) Bank() []InventoryItem                 { return l.Current().Bank() }
func (l *Live) GameObjects() []GameObject             { return l.Current().GameObjects() }
func (l *Live) NPCs() []NPC                           { return l.Current().NPCs() }
func (l *Live) NPC(index int) (NPC, bool)             { return l.Current().NPC(index) }
func (l *Live) Widget(id WidgetID) (Widget, bool)     { return l.Current().Widget(id) }
func (l *Live) Menu() []MenuEntry                     { return l.Current().Menu() }
func (l *Live) MousePosition() Point                  { return l.Current().MousePosition() }
func (l *Live) CollisionFlags(p WorldPoint) (int, bool) {
	return l.Current().CollisionFlags(p)
}
func (l *Live) MinimapPoint(p WorldPoint) (Point, bool) {
	return l.Current().MinimapPoint(p)
}
