package bot

import (
	"slices"
	"testing"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

const (
	bronzeAxeID = 1351
	oakLogID    = 1521
)

func woodcuttingSnapshot() *world.Snapshot {
	loc := world.NewWorldPoint(3290, 3360, 0)
	s := minimapped(loc)
	s.Skills[world.SkillWoodcutting] = world.SkillState{Real: 20, Boosted: 20, XP: 4500}
	s.Items = inventory(bronzeAxeID)
	s.Objects = []world.GameObject{
		{ID: 1281, Name: "Oak tree", Location: loc.Dx(1, 0), Hull: square(300, 200, 30)},
		{ID: 10820, Name: "Oak tree", Location: loc.Dx(4, 2), Hull: square(380, 160, 30)},
		{ID: 1308, Name: "Willow tree", Location: loc.Dx(0, 1), Hull: square(280, 170, 30)},
	}
	return s
}

func TestWoodcuttingCycle(t *testing.T) {
	h := newHarness(t, woodcuttingSnapshot())
	w := NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"Oak"}, Mode: WoodcuttingPower, HoverNextTree: true})
	h.tasks.Push(w)
	h.step()

	want := []string{"FINDING_TREE", "CUTTING", "WAIT_CUTTING"}
	if got := h.statesOf("Woodcutting"); !slices.Equal(got, want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	if !h.actions.Has("interact 1281 Chop down") {
		t.Fatalf("calls = %v, want the adjacent oak chopped", h.actions.Calls())
	}

	h.update(func(s *world.Snapshot) { s.Animation = 879 })
	if !h.stepFor(10, func() bool { return h.actions.hasPrefix("move") }) {
		t.Fatalf("calls = %v, want a hover over the next oak", h.actions.Calls())
	}
	if !w.hasNext || w.next.ID != 10820 {
		t.Fatalf("next tree = %+v, want the far oak, never the willow", w.next)
	}

	// Logs keep coming while the axe swings.
	for xp := 4537; xp < 4537*2; xp += 37 * 10 {
		h.update(func(s *world.Snapshot) {
			s.Skills[world.SkillWoodcutting] = world.SkillState{Real: 20, Boosted: 20, XP: xp}
		})
		h.bus.Publish(events.StatChangedEvent{Skill: world.SkillWoodcutting, XP: xp, Level: 20, BoostedLevel: 20})
		h.step()
	}
	if w.State() != "WAIT_CUTTING" {
		t.Fatalf("state = %s, want WAIT_CUTTING while the tree stands", w.State())
	}
	if w.logs == 0 {
		t.Error("no logs counted")
	}

	// The oak falls and the player goes idle.
	h.update(func(s *world.Snapshot) {
		s.Animation = world.IdleAnimation
		s.Objects = s.Objects[1:]
	})
	if !h.stepFor(20, func() bool { return h.actions.Has("interact 10820 Chop down") }) {
		t.Fatalf("calls = %v, want the hovered oak chopped next", h.actions.Calls())
	}
	if !h.sawState("Woodcutting", "CHECK_INVENTORY") {
		t.Errorf("states = %v, want CHECK_INVENTORY after the tree fell", h.statesOf("Woodcutting"))
	}
}

func TestWoodcuttingFullInventoryEndsCut(t *testing.T) {
	h := newHarness(t, woodcuttingSnapshot())
	w := NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"oak", "willow"}, Mode: WoodcuttingPower})
	h.tasks.Push(w)
	h.step()
	h.update(func(s *world.Snapshot) { s.Animation = 879 })
	h.steps(5)

	h.update(func(s *world.Snapshot) {
		s.Items = fullInventory(oakLogID)
		s.Skills[world.SkillWoodcutting] = world.SkillState{Real: 20, Boosted: 20, XP: 4537}
	})
	h.bus.Publish(events.StatChangedEvent{Skill: world.SkillWoodcutting, XP: 4537, Level: 20, BoostedLevel: 20})
	if w.State() != "CHECK_INVENTORY" {
		t.Fatalf("state = %s, want CHECK_INVENTORY on the last log", w.State())
	}

	h.step()
	if !h.actions.Has("drop [1521 1519]") {
		t.Fatalf("calls = %v, want oak and willow logs dropped", h.actions.Calls())
	}
	if w.State() != "DROPPING" {
		t.Fatalf("state = %s, want DROPPING", w.State())
	}

	h.actions.setDropping(false)
	h.step()
	if w.State() != "FINDING_TREE" {
		t.Errorf("state = %s, want FINDING_TREE", w.State())
	}
}

func TestWoodcuttingIgnoresOtherSkills(t *testing.T) {
	h := newHarness(t, woodcuttingSnapshot())
	w := NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"oak"}})
	h.tasks.Push(w)
	h.step()

	h.bus.Publish(events.StatChangedEvent{Skill: world.SkillMining, XP: 99999})
	if w.logs != 0 {
		t.Error("mining xp counted as a log")
	}
}

func TestWoodcuttingBankRun(t *testing.T) {
	snap := woodcuttingSnapshot()
	snap.Items = fullInventory(oakLogID)
	h := newHarness(t, snap)
	bank := world.NewWorldPoint(3253, 3420, 0)
	w := NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"oak"}, Mode: WoodcuttingBank, Bank: bank})
	h.tasks.Push(w)

	h.steps(2)

	want := []string{"Woodcutting", "Walk to (3290, 3360, 0)", "Bank", "Walk to (3253, 3420, 0)"}
	if got := h.tasks.Names(); !slices.Equal(got, want) {
		t.Errorf("stack = %v, want %v", got, want)
	}
	if w.State() != "WAITING_FOR_SUBTASK" {
		t.Errorf("state = %s, want WAITING_FOR_SUBTASK", w.State())
	}
}

func TestWoodcuttingWalksToGrove(t *testing.T) {
	h := newHarness(t, woodcuttingSnapshot())
	grove := world.NewWorldPoint(3160, 3450, 0)
	h.tasks.Push(NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"yew"}, Grove: grove}))
	h.step()

	if got := h.tasks.Names(); !slices.Equal(got, []string{"Woodcutting", "Walk to (3160, 3450, 0)"}) {
		t.Errorf("stack = %v, want a walk to the grove", got)
	}
}

func TestWoodcuttingWithoutTreesStopsBot(t *testing.T) {
	h := newHarness(t, woodcuttingSnapshot())
	h.tasks.Push(NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"redwood"}}))
	h.step()

	if len(h.stops) != 1 {
		t.Fatalf("stops = %v, want one stop request", h.stops)
	}
	if len(h.actions.Calls()) != 0 {
		t.Errorf("calls = %v, want none", h.actions.Calls())
	}
}

// TestWoodcuttingNoTreeWaits verifies the task keeps looking instead of
// giving up when every tree is down.
func TestWoodcuttingNoTreeWaits(t *testing.T) {
	snap := woodcuttingSnapshot()
	snap.Objects = nil
	h := newHarness(t, snap)
	w := NewWoodcutting(h.env, WoodcuttingOptions{Trees: []string{"oak"}})
	h.tasks.Push(w)
	h.steps(10)

	if w.State() != "FINDING_TREE" {
		t.Errorf("state = %s, want FINDING_TREE", w.State())
	}
	if len(h.stops) != 0 || len(h.actions.Calls()) != 0 {
		t.Errorf("stops = %v, calls = %v, want neither", h.stops, h.actions.Calls())
	}
}

func TestTreeByName(t *testing.T) {
	tree, ok := TreeByName(" Willow ")
	if !ok || tree.LogID != 1519 || !slices.Contains(tree.TreeIDs, 10829) {
		t.Errorf("TreeByName(willow) = %+v, %v", tree, ok)
	}
	if _, ok := TreeByName("redwood"); ok {
		t.Error("redwood should be unknown")
	}
}
