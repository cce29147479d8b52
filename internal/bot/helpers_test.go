package bot

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/game"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/scheduler"
	"github.com/aristath/runebot/internal/world"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeActions records every request as a short string.
type fakeActions struct {
	mu            sync.Mutex
	calls         []string
	interacting   bool
	dropping      bool
	castFails     bool
	interactFails bool
}

func (f *fakeActions) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeActions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeActions) Has(call string) bool {
	return slices.Contains(f.Calls(), call)
}

func (f *fakeActions) setDropping(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropping = v
}

func (f *fakeActions) hasPrefix(prefix string) bool {
	return slices.ContainsFunc(f.Calls(), func(c string) bool { return strings.HasPrefix(c, prefix) })
}

func (f *fakeActions) SendClickRequest(p world.Point, move bool) bool {
	f.record(fmt.Sprintf("click %d,%d move=%v", p.X, p.Y, move))
	return true
}

func (f *fakeActions) SendMouseMoveRequest(p world.Point) bool {
	f.record(fmt.Sprintf("move %d,%d", p.X, p.Y))
	return true
}

func (f *fakeActions) PressSpacebar() bool {
	f.record("space")
	return true
}

func (f *fakeActions) PowerDrop(ids []int) {
	f.record(fmt.Sprintf("drop %v", ids))
	f.mu.Lock()
	f.dropping = true
	f.mu.Unlock()
}

func (f *fakeActions) IsDropping() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropping
}

func (f *fakeActions) IsInteracting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.interacting
}

func (f *fakeActions) InteractWithGameObject(obj world.GameObject, action string) bool {
	f.record(fmt.Sprintf("interact %d %s", obj.ID, action))
	return !f.interactFails
}

func (f *fakeActions) InteractWithWallObject(obj world.GameObject, action string) bool {
	f.record(fmt.Sprintf("wall %d %s", obj.ID, action))
	return !f.interactFails
}

func (f *fakeActions) InteractWithEntity(it world.Interactable, action string) bool {
	f.record(fmt.Sprintf("interact %d %s", it.ID(), action))
	return !f.interactFails
}

func (f *fakeActions) OpenMagicInterface() {
	f.record("magic")
}

func (f *fakeActions) CastSpell(name string) bool {
	f.record("cast " + name)
	return !f.castFails
}

// harness drives tasks through a real task stack and event bus over a
// snapshot the test edits between ticks.
type harness struct {
	t       *testing.T
	snap    *world.Snapshot
	live    *world.Live
	bus     *events.Bus
	tasks   *scheduler.Manager
	actions *fakeActions
	env     *Env

	tick   int64
	states []string
	stops  []string
}

func newHarness(t *testing.T, snap *world.Snapshot) *harness {
	t.Helper()
	logger := testLogger()
	h := &harness{
		t:       t,
		live:    world.NewLive(),
		bus:     events.NewBus(logger),
		actions: &fakeActions{},
	}
	t.Cleanup(h.bus.Close)
	h.tasks = scheduler.NewManager(h.bus, logger)
	h.env = &Env{
		Game:    game.NewServiceWithSource(h.live, rand.NewPCG(1, 2)),
		Actions: h.actions,
		Human:   input.NewHumanizerWithSource(rand.NewPCG(3, 4), logger),
		Bus:     h.bus,
		Tasks:   h.tasks,
		Stop:    h.recordStop,
		Logger:  logger,
	}
	events.On(h.bus, func(e events.TaskStateChangedEvent) {
		h.states = append(h.states, e.Task+":"+e.To)
	})
	h.set(snap)
	return h
}

func (h *harness) recordStop(reason string) {
	h.stops = append(h.stops, reason)
}

func (h *harness) set(snap *world.Snapshot) {
	h.snap = snap
	h.live.Update(snap)
}

// update publishes an edited copy of the snapshot. Slices and maps are
// replaced, never mutated, so readers of the old snapshot are unaffected.
func (h *harness) update(edit func(s *world.Snapshot)) {
	next := *h.snap
	next.Skills = maps.Clone(h.snap.Skills)
	next.Widgets = maps.Clone(h.snap.Widgets)
	edit(&next)
	h.set(&next)
}

// step runs one engine tick: drain handed-off events, publish the tick,
// advance the task stack.
func (h *harness) step() {
	h.tick++
	h.bus.Drain()
	h.bus.Publish(events.GameTickEvent{Tick: h.tick})
	h.tasks.Loop()
}

func (h *harness) steps(n int) {
	for range n {
		h.step()
	}
}

// stepUntil ticks until cond holds, giving background work such as path
// computation real time to finish.
func (h *harness) stepUntil(what string, cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			h.t.Fatalf("timeout waiting for %s; states %v; calls %v", what, h.states, h.actions.Calls())
		}
		h.step()
		time.Sleep(time.Millisecond)
	}
}

// stepFor ticks until cond holds or n ticks have passed.
func (h *harness) stepFor(n int, cond func() bool) bool {
	for range n {
		if cond() {
			return true
		}
		h.step()
	}
	return cond()
}

func (h *harness) sawState(task, state string) bool {
	return slices.Contains(h.states, task+":"+state)
}

// statesOf returns the states task went through, in order.
func (h *harness) statesOf(task string) []string {
	var out []string
	for _, s := range h.states {
		if rest, ok := strings.CutPrefix(s, task+":"); ok {
			out = append(out, rest)
		}
	}
	return out
}

func square(x, y, size int) world.Polygon {
	return world.Polygon{{X: x, Y: y}, {X: x + size, Y: y}, {X: x + size, Y: y + size}, {X: x, Y: y + size}}
}

// inventory fills slots 0.. with ids.
func inventory(ids ...int) []world.InventoryItem {
	items := make([]world.InventoryItem, 0, len(ids))
	for slot, id := range ids {
		items = append(items, world.InventoryItem{
			Slot:     slot,
			ID:       id,
			Quantity: 1,
			Bounds:   world.Rect{X: 560 + slot%4*42, Y: 210 + slot/4*36, Width: 30, Height: 30},
		})
	}
	return items
}

func fullInventory(id int) []world.InventoryItem {
	ids := make([]int, world.InventorySize)
	for i := range ids {
		ids[i] = id
	}
	return inventory(ids...)
}

// minimapped returns a snapshot at loc with a minimap reaching about 17 tiles.
func minimapped(loc world.WorldPoint) *world.Snapshot {
	s := world.NewSnapshot(loc)
	s.Map = world.Minimap{Center: world.Point{X: 640, Y: 80}, Radius: 75, PixelsPerTile: 4}
	return s
}
