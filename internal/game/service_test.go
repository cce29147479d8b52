package game

import (
	"math/rand/v2"
	"testing"

	"github.com/aristath/runebot/internal/world"
)

func newTestService(s *world.Snapshot) *Service {
	return NewServiceWithSource(s.Index(), rand.NewPCG(1, 2))
}

func square(x, y, size int) world.Polygon {
	return world.Polygon{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

func TestFindNearest(t *testing.T) {
	s := world.NewSnapshot(world.NewWorldPoint(3200, 3200, 0))
	s.Objects = []world.GameObject{
		{ID: 11360, Name: "Rocks", Location: world.NewWorldPoint(3205, 3200, 0)},
		{ID: 11361, Name: "Rocks", Location: world.NewWorldPoint(3203, 3201, 0)},
		{ID: 11161, Name: "Rocks", Location: world.NewWorldPoint(3201, 3201, 0)},
	}
	svc := newTestService(s)

	obj, ok := svc.FindNearestObject(11360, 11361)
	if !ok {
		t.Fatal("expected a tin rock")
	}
	if obj.ID != 11361 {
		t.Errorf("nearest tin rock = %d, want 11361", obj.ID)
	}

	if _, ok := svc.FindNearestObject(99999); ok {
		t.Error("unexpected match for unknown id")
	}
	if _, ok := svc.FindNearestObject(); ok {
		t.Error("no ids must never match")
	}
}

// TestFindNearestTieBreak verifies equal distances resolve to scan order.
func TestFindNearestTieBreak(t *testing.T) {
	s := world.NewSnapshot(world.NewWorldPoint(3200, 3200, 0))
	s.Objects = []world.GameObject{
		{ID: 1, Location: world.NewWorldPoint(3202, 3200, 0)},
		{ID: 2, Location: world.NewWorldPoint(3198, 3200, 0)},
	}
	s.Npcs = []world.NPC{
		{Index: 5, ID: 3, Location: world.NewWorldPoint(3200, 3202, 0), HealthRatio: -1, Interacting: world.NoActor},
	}
	svc := newTestService(s)

	for range 5 {
		got := svc.FindNearest(func(world.Interactable) bool { return true })
		if got == nil || got.ID() != 1 {
			t.Fatalf("FindNearest() = %v, want first object", got)
		}
	}
}

func TestFindNearestNPC(t *testing.T) {
	s := world.NewSnapshot(world.NewWorldPoint(3200, 3200, 0))
	s.Npcs = []world.NPC{
		{Index: 1, Name: "Goblin", Location: world.NewWorldPoint(3201, 3200, 0), HealthRatio: 0, Interacting: world.NoActor},
		{Index: 2, Name: "Goblin", Location: world.NewWorldPoint(3202, 3200, 0), HealthRatio: -1, Interacting: 99},
		{Index: 3, Name: "Cow", Location: world.NewWorldPoint(3200, 3201, 0), HealthRatio: -1, Interacting: world.NoActor},
		{Index: 4, Name: "Goblin", Location: world.NewWorldPoint(3206, 3200, 0), HealthRatio: -1, Interacting: world.NoActor},
		{Index: 5, Name: "Cow calf", Location: world.NewWorldPoint(3204, 3200, 0), HealthRatio: 40, Interacting: world.LocalPlayer},
	}
	svc := newTestService(s)

	tests := []struct {
		name      string
		names     []string
		wantIndex int
		wantOK    bool
	}{
		{"skips dead and engaged", []string{"goblin"}, 4, true},
		{"substring case-insensitive", []string{" GOB "}, 4, true},
		{"first of several names", []string{"cow", "goblin"}, 3, true},
		{"engaged with us is fine", []string{"calf"}, 5, true},
		{"no match", []string{"dragon"}, 0, false},
		{"blank names", []string{" ", ""}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			npc, ok := svc.FindNearestNPC(tt.names...)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && npc.Index != tt.wantIndex {
				t.Errorf("index = %d, want %d", npc.Index, tt.wantIndex)
			}
		})
	}
}

// TestRandomClickablePointContainment verifies every sampled point is inside
// the shape or is the bounding-box center.
func TestRandomClickablePointContainment(t *testing.T) {
	l := world.Polygon{{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 40, Y: 8}, {X: 8, Y: 8}, {X: 8, Y: 40}, {X: 0, Y: 40}}
	rock := world.ObjectEntity{Object: world.GameObject{ID: 1, Hull: l}}
	svc := newTestService(world.NewSnapshot(world.WorldPoint{}))
	center := l.Bounds().Center()

	for range 500 {
		p := svc.RandomClickablePoint(rock)
		if !l.Contains(p) && p != center {
			t.Fatalf("point %v is neither inside the shape nor the center %v", p, center)
		}
	}
}

// sliver is a shape whose bounding box almost never intersects its body.
type sliver struct{ bounds world.Rect }

func (s sliver) Bounds() world.Rect          { return s.bounds }
func (s sliver) Contains(p world.Point) bool { return false }

func TestRandomClickablePointFallback(t *testing.T) {
	svc := newTestService(world.NewSnapshot(world.WorldPoint{}))
	shape := sliver{bounds: world.Rect{X: 100, Y: 200, Width: 50, Height: 20}}

	if got := svc.RandomPointInShape(shape); got != (world.Point{X: 125, Y: 210}) {
		t.Errorf("fallback = %v, want [125,210]", got)
	}
}

func TestRandomClickablePointInvalid(t *testing.T) {
	svc := newTestService(world.NewSnapshot(world.WorldPoint{}))

	if got := svc.RandomClickablePoint(nil); got.Valid() {
		t.Errorf("nil entity gave %v", got)
	}
	offscreen := world.NPCEntity{NPC: world.NPC{Name: "Goblin"}}
	if got := svc.RandomClickablePoint(offscreen); got != world.InvalidPoint {
		t.Errorf("entity without hull gave %v", got)
	}
	if got := svc.RandomPointInShape(world.Rect{}); got != world.InvalidPoint {
		t.Errorf("empty rect gave %v", got)
	}
}

func TestRandomPointInRect(t *testing.T) {
	svc := newTestService(world.NewSnapshot(world.WorldPoint{}))
	r := world.Rect{X: 10, Y: 10, Width: 5, Height: 5}
	for range 100 {
		if p := svc.RandomPointInRect(r); !r.Contains(p) {
			t.Fatalf("point %v outside %+v", p, r)
		}
	}
}

func TestWidgetPoint(t *testing.T) {
	s := world.NewSnapshot(world.WorldPoint{})
	s.Widgets[world.WidgetBankItems] = world.Widget{Bounds: world.Rect{X: 5, Y: 5, Width: 10, Height: 10}}
	s.Widgets[world.WidgetMinimap] = world.Widget{Bounds: world.Rect{X: 5, Y: 5, Width: 10, Height: 10}, Hidden: true}
	svc := newTestService(s)

	if _, ok := svc.WidgetPoint(world.WidgetBankItems); !ok {
		t.Error("visible widget should yield a point")
	}
	if _, ok := svc.WidgetPoint(world.WidgetMinimap); ok {
		t.Error("hidden widget should not yield a point")
	}
	if svc.IsWidgetVisible(world.WidgetBankDepositAll) {
		t.Error("missing widget reported visible")
	}
}
