package action

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/game"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/world"
)

// fakeSender records commands as short strings.
type fakeSender struct {
	mu           sync.Mutex
	disconnected bool
	failAll      bool
	cmds         []string
}

func (f *fakeSender) record(cmd string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cmds = append(f.cmds, cmd)
	return !f.failAll
}

func (f *fakeSender) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected
}

func (f *fakeSender) SendClick(x, y int, move bool) bool {
	return f.record(fmt.Sprintf("click %d,%d move=%v", x, y, move))
}

func (f *fakeSender) SendRightClick(x, y int, move bool) bool {
	return f.record(fmt.Sprintf("right_click %d,%d move=%v", x, y, move))
}

func (f *fakeSender) SendMouseMove(x, y int) bool {
	return f.record(fmt.Sprintf("move %d,%d", x, y))
}

func (f *fakeSender) SendKeyPress(key string) bool   { return f.record("key_press " + key) }
func (f *fakeSender) SendKeyHold(key string) bool    { return f.record("key_hold " + key) }
func (f *fakeSender) SendKeyRelease(key string) bool { return f.record("key_release " + key) }

func (f *fakeSender) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cmds...)
}

type harness struct {
	svc    *Service
	sender *fakeSender
	live   *world.Live
	bus    *events.Bus

	mu       sync.Mutex
	stops    []string
	complete []events.InteractionCompletedEvent
	started  int
}

func fastOptions() Options {
	return Options{
		DropDelayMin:     time.Millisecond,
		DropDelayMax:     2 * time.Millisecond,
		InteractionDelay: 30 * time.Millisecond,
		MenuDelay:        5 * time.Millisecond,
		PreClickMin:      time.Millisecond,
		PreClickMax:      time.Millisecond,
	}
}

func newHarness(t *testing.T, snap *world.Snapshot, mover Mover) *harness {
	t.Helper()
	h := &harness{sender: &fakeSender{}, live: world.NewLive()}
	h.live.Update(snap)
	h.bus = events.NewBus(testLogger())
	events.On(h.bus, func(e events.InteractionCompletedEvent) {
		h.mu.Lock()
		h.complete = append(h.complete, e)
		h.mu.Unlock()
	})
	events.On(h.bus, func(events.InteractionStartedEvent) {
		h.mu.Lock()
		h.started++
		h.mu.Unlock()
	})

	h.svc = NewService(Deps{
		Sender: h.sender,
		Game:   game.NewServiceWithSource(h.live, rand.NewPCG(3, 4)),
		Human:  input.NewHumanizerWithSource(rand.NewPCG(5, 6), testLogger()),
		Bus:    h.bus,
		Mover:  mover,
		Stop:   h.recordStop,
		Logger: testLogger(),
	}, fastOptions())
	t.Cleanup(h.svc.Close)
	return h
}

func (h *harness) recordStop(reason string) {
	h.mu.Lock()
	h.stops = append(h.stops, reason)
	h.mu.Unlock()
}

func (h *harness) Stops() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.stops...)
}

// waitCompletion drains posted events until an InteractionCompletedEvent arrives.
func (h *harness) waitCompletion(t *testing.T) events.InteractionCompletedEvent {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.bus.Drain()
		h.mu.Lock()
		if len(h.complete) > 0 {
			e := h.complete[0]
			h.mu.Unlock()
			return e
		}
		h.mu.Unlock()
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timeout waiting for interaction completion")
	return events.InteractionCompletedEvent{}
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func inventory(ids ...int) []world.InventoryItem {
	var items []world.InventoryItem
	for slot, id := range ids {
		if id <= 0 {
			continue
		}
		items = append(items, world.InventoryItem{
			Slot:   slot,
			ID:     id,
			Bounds: world.Rect{X: 600 + slot, Y: 300, Width: 1, Height: 1},
		})
	}
	return items
}

func TestPowerDropOrderAndModifier(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	snap.Items = inventory(1265, 440, 0, 440, 453, 440)
	h := newHarness(t, snap, nil)

	h.svc.PowerDrop([]int{440})
	if !h.svc.IsDropping() {
		t.Fatal("IsDropping() should be true right after PowerDrop")
	}

	waitUntil(t, "drop to finish", func() bool { return !h.svc.IsDropping() })

	want := []string{
		"key_hold shift",
		"click 601,300 move=true",
		"click 603,300 move=true",
		"click 605,300 move=true",
		"key_release shift",
	}
	got := h.sender.Commands()
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("commands = %v\nwant       %v", got, want)
	}
}

// TestPowerDropOverlapIgnored verifies a second call during a drop schedules nothing.
func TestPowerDropOverlapIgnored(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	snap.Items = inventory(440, 440)
	h := newHarness(t, snap, nil)
	h.svc.opts.DropDelayMin, h.svc.opts.DropDelayMax = 30*time.Millisecond, 30*time.Millisecond

	h.svc.PowerDrop([]int{440})
	pending := h.svc.sched.Pending()
	h.svc.PowerDrop([]int{440})
	h.svc.PowerDrop(nil)

	if got := h.svc.sched.Pending(); got != pending {
		t.Errorf("pending actions grew from %d to %d on overlapping calls", pending, got)
	}
	if len(h.Stops()) != 0 {
		t.Error("overlapping call with no ids must not stop the bot")
	}

	waitUntil(t, "drop to finish", func() bool { return !h.svc.IsDropping() })
	holds := 0
	for _, c := range h.sender.Commands() {
		if c == "key_hold shift" {
			holds++
		}
	}
	if holds != 1 {
		t.Errorf("shift held %d times, want 1", holds)
	}
}

// TestPowerDropNoIDsStopsBot verifies an empty id list stops the bot and
// never schedules a click.
func TestPowerDropNoIDsStopsBot(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	snap.Items = inventory(440)
	h := newHarness(t, snap, nil)

	h.svc.PowerDrop([]int{})

	if len(h.Stops()) != 1 {
		t.Fatalf("stop called %d times, want 1", len(h.Stops()))
	}
	if h.svc.IsDropping() {
		t.Error("IsDropping() should stay false")
	}
	if h.svc.sched.Pending() != 0 || len(h.sender.Commands()) != 0 {
		t.Errorf("unexpected activity: pending=%d commands=%v", h.svc.sched.Pending(), h.sender.Commands())
	}
}

// TestPowerDropAbortsWhenShiftHoldFails verifies a failed modifier hold stops
// the bot once and leaves no drop in flight.
func TestPowerDropAbortsWhenShiftHoldFails(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	snap.Items = inventory(440, 440, 440)
	h := newHarness(t, snap, nil)
	h.sender.failAll = true

	h.svc.PowerDrop([]int{440})

	if h.svc.IsDropping() {
		t.Error("IsDropping() should be false after the hold failed")
	}
	if got := len(h.Stops()); got != 1 {
		t.Errorf("stop called %d times, want 1", got)
	}
	if n := h.svc.sched.Pending(); n != 0 {
		t.Errorf("pending actions = %d, want 0", n)
	}
	if got := h.sender.Commands(); len(got) != 1 || got[0] != "key_hold shift" {
		t.Errorf("commands = %v, want only the failed hold", got)
	}

	h.sender.failAll = false
	h.svc.PowerDrop([]int{440})
	waitUntil(t, "retry to finish", func() bool { return !h.svc.IsDropping() })
	if got := len(h.sender.Commands()); got != 6 {
		t.Errorf("retry sent %d commands in total, want 6", got)
	}
}

func TestClickRequestValidation(t *testing.T) {
	h := newHarness(t, world.NewSnapshot(world.WorldPoint{}), nil)

	if h.svc.SendClickRequest(world.InvalidPoint, true) {
		t.Error("invalid point must be rejected")
	}
	if len(h.Stops()) != 0 {
		t.Error("invalid point must not stop the bot")
	}

	if !h.svc.SendClickRequest(world.Point{X: 10, Y: 20}, true) {
		t.Fatal("valid click failed")
	}
	if got := h.sender.Commands(); len(got) != 1 || got[0] != "click 10,20 move=true" {
		t.Errorf("commands = %v", got)
	}
}

func TestDisconnectedTransportStopsBot(t *testing.T) {
	h := newHarness(t, world.NewSnapshot(world.WorldPoint{}), nil)
	h.sender.disconnected = true

	if h.svc.SendClickRequest(world.Point{X: 1, Y: 1}, false) {
		t.Error("click on a disconnected transport must fail")
	}
	if h.svc.SendKeyRequest(KeyHold, KeyShift) {
		t.Error("key request on a disconnected transport must fail")
	}
	if got := len(h.Stops()); got != 2 {
		t.Errorf("stop called %d times, want 2", got)
	}
	if len(h.sender.Commands()) != 0 {
		t.Error("nothing may be sent on a disconnected transport")
	}
}

func TestSendFailureStopsBot(t *testing.T) {
	h := newHarness(t, world.NewSnapshot(world.WorldPoint{}), nil)
	h.sender.failAll = true

	if h.svc.PressSpacebar() {
		t.Error("failed send must report false")
	}
	if len(h.Stops()) != 1 {
		t.Errorf("stop called %d times, want 1", len(h.Stops()))
	}
}

func TestOpenMagicInterface(t *testing.T) {
	h := newHarness(t, world.NewSnapshot(world.WorldPoint{}), nil)
	h.svc.OpenMagicInterface()

	waitUntil(t, "spellbook keys", func() bool { return len(h.sender.Commands()) == 4 })
	want := "key_hold esc|key_release esc|key_hold F6|key_release F6"
	if got := strings.Join(h.sender.Commands(), "|"); got != want {
		t.Errorf("commands = %s, want %s", got, want)
	}
}

func TestCastSpell(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	snap.Widgets[world.WidgetHomeTeleport] = world.Widget{Hidden: true, Bounds: world.Rect{X: 1, Y: 1, Width: 4, Height: 4}}
	snap.Widgets[world.WidgetHomeTeleportLunar] = world.Widget{Bounds: world.Rect{X: 100, Y: 200, Width: 20, Height: 10}}
	snap.Widgets[world.WidgetVarrockTeleport] = world.Widget{Bounds: world.Rect{X: 40, Y: 40, Width: 10, Height: 10}}

	tests := []struct {
		spell   string
		wantOK  bool
		wantCmd string
	}{
		{"Lumbridge Home Teleport", true, "click 110,205 move=true"},
		{"varrock teleport", true, "click 45,45 move=true"},
		{"Falador Teleport", false, ""},
		{"High Level Alchemy", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.spell, func(t *testing.T) {
			h := newHarness(t, snap, nil)
			if got := h.svc.CastSpell(tt.spell); got != tt.wantOK {
				t.Fatalf("CastSpell() = %v, want %v", got, tt.wantOK)
			}
			cmds := h.sender.Commands()
			if tt.wantCmd == "" {
				if len(cmds) != 0 {
					t.Errorf("unexpected commands %v", cmds)
				}
				return
			}
			if len(cmds) != 1 || cmds[0] != tt.wantCmd {
				t.Errorf("commands = %v, want [%s]", cmds, tt.wantCmd)
			}
		})
	}
}

func rockSnapshot(menu ...world.MenuEntry) *world.Snapshot {
	snap := world.NewSnapshot(world.NewWorldPoint(3200, 3200, 0))
	snap.Objects = []world.GameObject{{
		ID:       11361,
		Name:     "Rocks",
		Location: world.NewWorldPoint(3201, 3200, 0),
		Hull:     world.Polygon{{X: 300, Y: 300}, {X: 320, Y: 300}, {X: 320, Y: 320}, {X: 300, Y: 320}},
		Actions:  []string{"Mine", "Prospect"},
	}}
	snap.MenuEntries = menu
	snap.Mouse = world.Point{X: 10, Y: 10}
	return snap
}

func TestInteractLeftClick(t *testing.T) {
	snap := rockSnapshot(world.MenuEntry{Option: "<col=ffffff>Mine</col>", Target: "<col=ffff>Rocks"})
	h := newHarness(t, snap, nil)

	if !h.svc.InteractWithGameObject(snap.Objects[0], "Mine") {
		t.Fatal("interaction was not started")
	}
	if !h.svc.IsInteracting() {
		t.Error("IsInteracting() should be true while waiting for the hover menu")
	}
	if h.svc.InteractWithGameObject(snap.Objects[0], "Mine") {
		t.Error("second interaction must be rejected while one is in progress")
	}

	e := h.waitCompletion(t)
	if !e.Success || e.Action != "Mine" {
		t.Errorf("completion = %+v", e)
	}
	if h.svc.IsInteracting() {
		t.Error("IsInteracting() should be false after completion")
	}

	cmds := h.sender.Commands()
	if len(cmds) != 2 || !strings.HasPrefix(cmds[0], "move 3") || cmds[1] != "click 10,10 move=false" {
		t.Errorf("commands = %v", cmds)
	}
	if h.started != 1 {
		t.Errorf("started events = %d, want 1", h.started)
	}
}

func TestInteractViaContextMenu(t *testing.T) {
	snap := rockSnapshot(
		world.MenuEntry{Option: "Prospect", Target: "Rocks", Bounds: world.Rect{X: 280, Y: 330, Width: 1, Height: 1}},
		world.MenuEntry{Option: "Mine", Target: "Rocks", Bounds: world.Rect{X: 280, Y: 345, Width: 1, Height: 1}},
	)
	h := newHarness(t, snap, nil)

	h.svc.InteractWithGameObject(snap.Objects[0], "Mine")
	e := h.waitCompletion(t)
	if !e.Success {
		t.Fatalf("completion = %+v", e)
	}

	cmds := h.sender.Commands()
	want := []string{"right_click 0,0 move=false", "click 280,345 move=true"}
	if len(cmds) != 3 || cmds[1] != want[0] || cmds[2] != want[1] {
		t.Errorf("commands = %v, want move then %v", cmds, want)
	}
}

func TestInteractMenuOptionMissing(t *testing.T) {
	snap := rockSnapshot(world.MenuEntry{Option: "Walk here"})
	h := newHarness(t, snap, nil)

	h.svc.InteractWithGameObject(snap.Objects[0], "Mine")
	e := h.waitCompletion(t)
	if e.Success || e.FailureReason != "menu option not found" {
		t.Errorf("completion = %+v", e)
	}
}

func TestInteractNoMenu(t *testing.T) {
	snap := rockSnapshot()
	h := newHarness(t, snap, nil)

	h.svc.InteractWithGameObject(snap.Objects[0], "Mine")
	e := h.waitCompletion(t)
	if e.Success || e.FailureReason != "no menu detected" {
		t.Errorf("completion = %+v", e)
	}
}

func TestInteractRejectsDeadNPCAndOffscreen(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	h := newHarness(t, snap, nil)

	dead := world.NPCEntity{NPC: world.NPC{Name: "Goblin", HealthRatio: 0, Interacting: world.LocalPlayer,
		Hull: world.Polygon{{X: 0, Y: 0}, {X: 9, Y: 0}, {X: 9, Y: 9}}}}
	if h.svc.InteractWithEntity(dead, "Attack") {
		t.Error("dead npc must be rejected")
	}
	if e := h.waitCompletion(t); e.Success || e.FailureReason != "npc is dead" {
		t.Errorf("completion = %+v", e)
	}

	h.complete = nil
	offscreen := world.ObjectEntity{Object: world.GameObject{ID: 1, Name: "Bank booth"}}
	if h.svc.InteractWithEntity(offscreen, "Bank") {
		t.Error("entity without click shape must be rejected")
	}
	if e := h.waitCompletion(t); e.FailureReason != "could not get clickable point" {
		t.Errorf("completion = %+v", e)
	}
	if len(h.sender.Commands()) != 0 {
		t.Errorf("no input expected, got %v", h.sender.Commands())
	}
}

// instantMover completes every movement on its own goroutine.
type instantMover struct {
	bus *events.Bus
	n   int
	mu  sync.Mutex
}

func (m *instantMover) Move(start, dest world.Point) string {
	m.mu.Lock()
	m.n++
	id := fmt.Sprintf("mv-%d", m.n)
	m.mu.Unlock()
	go m.bus.Publish(events.MouseMovementCompletedEvent{MovementID: id, Final: dest})
	return id
}

func TestHumanizedClickFiresAfterMovement(t *testing.T) {
	snap := world.NewSnapshot(world.WorldPoint{})
	mover := &instantMover{}
	h := newHarness(t, snap, mover)
	mover.bus = h.bus

	if !h.svc.SendClickRequest(world.Point{X: 50, Y: 60}, true) {
		t.Fatal("click request failed")
	}
	waitUntil(t, "pending click", func() bool { return len(h.sender.Commands()) == 1 })
	if got := h.sender.Commands()[0]; got != "click 50,60 move=false" {
		t.Errorf("command = %s, want click without move", got)
	}
}

func TestHumanizedInteraction(t *testing.T) {
	snap := rockSnapshot(world.MenuEntry{Option: "Mine"})
	mover := &instantMover{}
	h := newHarness(t, snap, mover)
	mover.bus = h.bus

	h.svc.InteractWithGameObject(snap.Objects[0], "Mine")
	if e := h.waitCompletion(t); !e.Success {
		t.Errorf("completion = %+v", e)
	}
	if cmds := h.sender.Commands(); len(cmds) != 1 || cmds[0] != "click 10,10 move=false" {
		t.Errorf("commands = %v", cmds)
	}
}

func TestStripTags(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Mine", "Mine"},
		{"<col=ffffff>Attack</col>", "Attack"},
		{"<col=ff9040>Goblin<col=ff00>  ", "Goblin  "},
	}
	for _, tt := range tests {
		if got := stripTags(tt.in); got != tt.want {
			t.Errorf("stripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
