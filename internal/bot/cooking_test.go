package bot

import (
	"testing"

	"github.com/aristath/runebot/internal/world"
)

const cookedShrimpsID = 315

func cookingSnapshot(loc world.WorldPoint) *world.Snapshot {
	s := minimapped(loc)
	s.Items = inventory(RawShrimpsID, RawShrimpsID, RawAnchoviesID)
	s.Objects = []world.GameObject{{
		ID:       LumbridgeRangeID,
		Name:     "Cooking range",
		Location: world.NewWorldPoint(3212, 3215, 0),
		Hull:     square(310, 190, 28),
		Actions:  []string{"Cook"},
	}}
	return s
}

func TestCookingConfirmsPromptAndFinishes(t *testing.T) {
	h := newHarness(t, cookingSnapshot(world.NewWorldPoint(3211, 3215, 0)))
	c := NewCooking(h.env, DefaultCookingOptions())
	h.tasks.Push(c)

	h.steps(2)
	if !h.actions.Has("interact 114 Cook") {
		t.Fatalf("calls = %v, want the range used", h.actions.Calls())
	}
	if c.State() != "WAIT_COOKING" {
		t.Fatalf("state = %s, want WAIT_COOKING", c.State())
	}

	if !h.stepFor(10, func() bool { return h.actions.Has("space") }) {
		t.Fatalf("calls = %v, want the make-all prompt confirmed", h.actions.Calls())
	}

	h.update(func(s *world.Snapshot) { s.Animation = 896 })
	h.step()
	if !c.started {
		t.Fatal("cooking animation not noticed")
	}

	h.update(func(s *world.Snapshot) {
		s.Animation = world.IdleAnimation
		s.Items = inventory(cookedShrimpsID, cookedShrimpsID, 319)
	})
	if !h.stepFor(10, c.Finished) {
		t.Fatalf("state = %s, want FINISHED", c.State())
	}
	if got := h.actions.Calls(); len(got) != 2 {
		t.Errorf("calls = %v, want one cook and one spacebar", got)
	}
}

func TestCookingRecooksLeftovers(t *testing.T) {
	h := newHarness(t, cookingSnapshot(world.NewWorldPoint(3211, 3215, 0)))
	c := NewCooking(h.env, DefaultCookingOptions())
	h.tasks.Push(c)
	h.steps(2)

	h.update(func(s *world.Snapshot) { s.Animation = 896 })
	h.stepFor(5, func() bool { return c.started })
	h.update(func(s *world.Snapshot) {
		s.Animation = world.IdleAnimation
		s.Items = inventory(cookedShrimpsID, RawAnchoviesID)
	})

	if !h.stepFor(10, func() bool { return c.State() == "COOKING" }) {
		t.Fatalf("state = %s, want COOKING with raw fish left", c.State())
	}
}

func TestCookingNothingToCook(t *testing.T) {
	snap := cookingSnapshot(world.NewWorldPoint(3211, 3215, 0))
	snap.Items = inventory(cookedShrimpsID)
	h := newHarness(t, snap)
	c := NewCooking(h.env, DefaultCookingOptions())
	h.tasks.Push(c)
	h.steps(2)

	if !c.Finished() || c.Failed() {
		t.Errorf("state = %s, failed = %v, want a clean finish", c.State(), c.Failed())
	}
	if len(h.actions.Calls()) != 0 {
		t.Errorf("calls = %v, want none", h.actions.Calls())
	}
}

func TestCookingWalksToRangeOnce(t *testing.T) {
	h := newHarness(t, cookingSnapshot(world.NewWorldPoint(3240, 3240, 0)))
	c := NewCooking(h.env, DefaultCookingOptions())
	h.tasks.Push(c)
	h.step()

	if c.State() != "WAITING_FOR_SUBTASK" || h.tasks.Len() != 2 {
		t.Fatalf("state = %s, stack = %v, want a walk to the range", c.State(), h.tasks.Names())
	}

	// Without a planner the walk fails and the task gives up on the range.
	h.stepFor(10, c.Finished)
	if !c.Finished() || !c.Failed() {
		t.Errorf("state = %s, failed = %v, want a failed finish", c.State(), c.Failed())
	}
}

func TestCookingFailsWithoutRange(t *testing.T) {
	snap := cookingSnapshot(world.NewWorldPoint(3211, 3215, 0))
	snap.Objects = nil
	h := newHarness(t, snap)
	c := NewCooking(h.env, DefaultCookingOptions())
	h.tasks.Push(c)

	if !h.stepFor(100, c.Finished) {
		t.Fatalf("state = %s, want FINISHED once attempts run out", c.State())
	}
	if !c.Failed() {
		t.Error("giving up with raw fish left should count as a failure")
	}
	if len(h.actions.Calls()) != 0 {
		t.Errorf("calls = %v, want none", h.actions.Calls())
	}
}
