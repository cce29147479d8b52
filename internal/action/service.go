// Package action is the only component allowed to emit input commands. It
// turns task intents (click this rock, drop these ores, cast that spell) into
// timed injector commands.
package action

import (
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/game"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/world"
)

// Key names understood by the injector.
const (
	KeyShift  = "shift"
	KeyEscape = "esc"
	KeySpace  = "space"
	KeyF6     = "F6"
)

// KeyKind selects between holding and releasing a key.
type KeyKind int

const (
	KeyHold KeyKind = iota
	KeyRelease
)

func (k KeyKind) String() string {
	if k == KeyHold {
		return "hold"
	}
	return "release"
}

// Sender is the injector command channel.
type Sender interface {
	IsConnected() bool
	SendClick(x, y int, move bool) bool
	SendRightClick(x, y int, move bool) bool
	SendMouseMove(x, y int) bool
	SendKeyPress(key string) bool
	SendKeyHold(key string) bool
	SendKeyRelease(key string) bool
}

// Mover runs humanized cursor movements and reports completion through a
// MouseMovementCompletedEvent carrying the returned id.
type Mover interface {
	Move(start, dest world.Point) string
}

// Options tunes action timing.
type Options struct {
	DropDelayMin     time.Duration
	DropDelayMax     time.Duration
	InteractionDelay time.Duration // wait for the hover menu after moving onto an entity
	MenuDelay        time.Duration // wait for a right-click menu to open
	PreClickMin      time.Duration // pause between a humanized move and its click
	PreClickMax      time.Duration
}

// DefaultOptions returns the stock action timing.
func DefaultOptions() Options {
	return Options{
		DropDelayMin:     250 * time.Millisecond,
		DropDelayMax:     350 * time.Millisecond,
		InteractionDelay: 600 * time.Millisecond,
		MenuDelay:        100 * time.Millisecond,
		PreClickMin:      20 * time.Millisecond,
		PreClickMax:      80 * time.Millisecond,
	}
}

// Deps are the collaborators of a Service.
type Deps struct {
	Sender Sender
	Game   *game.Service
	Human  *input.Humanizer
	Bus    *events.Bus
	// Mover is optional; without it moving clicks are delegated to the injector.
	Mover Mover
	// Stop is called on a fatal condition such as a dead transport.
	Stop   func(reason string)
	Logger *slog.Logger
}

// pending is work waiting for a humanized movement to finish.
type pending struct {
	point       world.Point
	right       bool
	interaction *interaction
}

type interaction struct {
	subject world.Interactable
	action  string
}

// Service issues input on behalf of the bot tasks.
//
// Interaction results are handed back through Bus.Post, so they reach task
// handlers on the tick goroutine during the next drain.
type Service struct {
	sender Sender
	game   *game.Service
	human  *input.Humanizer
	bus    *events.Bus
	mover  Mover
	stop   func(reason string)
	opts   Options
	logger *slog.Logger

	sched *Scheduler
	sub   *events.Subscription

	dropping    atomic.Bool
	interacting atomic.Bool

	mu      sync.Mutex
	pending map[string]pending
}

// NewService creates a Service and starts its action scheduler.
func NewService(deps Deps, opts Options) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Stop == nil {
		deps.Stop = func(string) {}
	}
	logger := deps.Logger.With("component", "action")
	s := &Service{
		sender:  deps.Sender,
		game:    deps.Game,
		human:   deps.Human,
		bus:     deps.Bus,
		mover:   deps.Mover,
		stop:    deps.Stop,
		opts:    opts,
		logger:  logger,
		sched:   NewScheduler(logger),
		pending: make(map[string]pending),
	}
	if s.bus != nil {
		s.sub = events.On(s.bus, s.onMovementCompleted)
	}
	return s
}

// Close stops the scheduler, discarding queued actions.
func (s *Service) Close() {
	if s.bus != nil {
		s.bus.Unsubscribe(s.sub)
	}
	s.sched.Close()
}

// IsDropping reports whether a power drop is in progress.
func (s *Service) IsDropping() bool {
	return s.dropping.Load()
}

// IsInteracting reports whether an entity interaction is in progress.
func (s *Service) IsInteracting() bool {
	return s.interacting.Load()
}

// SendClickRequest clicks at p. With move set the cursor travels to p first,
// as a humanized movement when a Mover is configured. An invalid point is
// rejected; a dead transport stops the bot.
func (s *Service) SendClickRequest(p world.Point, move bool) bool {
	if !p.Valid() {
		s.logger.Warn("invalid point provided to click request")
		return false
	}
	if !s.ensureConnected() {
		return false
	}
	if move && s.mover != nil {
		s.moveThen(p, pending{point: p})
		return true
	}
	return s.click(p, move)
}

// ClickHere clicks wherever the cursor currently is.
func (s *Service) ClickHere() bool {
	if !s.ensureConnected() {
		return false
	}
	return s.click(s.game.World().MousePosition(), false)
}

// SendRightClickRequest right-clicks at p, moving there first when move is set.
func (s *Service) SendRightClickRequest(p world.Point, move bool) bool {
	if !p.Valid() {
		s.logger.Warn("invalid point provided to right click request")
		return false
	}
	if !s.ensureConnected() {
		return false
	}
	if move && s.mover != nil {
		s.moveThen(p, pending{point: p, right: true})
		return true
	}
	if !s.sender.SendRightClick(p.X, p.Y, move) {
		s.fail("failed to send right click command")
		return false
	}
	return true
}

// SendMouseMoveRequest moves the cursor to p.
func (s *Service) SendMouseMoveRequest(p world.Point) bool {
	if !p.Valid() {
		s.logger.Warn("invalid point provided to mouse move request")
		return false
	}
	if !s.ensureConnected() {
		return false
	}
	if s.mover != nil {
		s.moveThen(p, pending{})
		return true
	}
	if !s.sender.SendMouseMove(p.X, p.Y) {
		s.fail("failed to send mouse move command")
		return false
	}
	return true
}

// SendKeyRequest holds or releases key.
func (s *Service) SendKeyRequest(kind KeyKind, key string) bool {
	if !s.ensureConnected() {
		return false
	}
	var ok bool
	switch kind {
	case KeyHold:
		ok = s.sender.SendKeyHold(key)
	case KeyRelease:
		ok = s.sender.SendKeyRelease(key)
	default:
		s.logger.Warn("unknown key request", "kind", int(kind))
		return false
	}
	if !ok {
		s.fail("failed to send key " + kind.String() + " command")
		return false
	}
	return true
}

// PressKey presses and releases key.
func (s *Service) PressKey(key string) bool {
	if !s.ensureConnected() {
		return false
	}
	if !s.sender.SendKeyPress(key) {
		s.fail("failed to send key press command")
		return false
	}
	return true
}

// PressSpacebar confirms make-all style dialogs.
func (s *Service) PressSpacebar() bool {
	s.logger.Info("sending spacebar key press")
	return s.PressKey(KeySpace)
}

// PowerDrop shift-clicks every inventory slot holding one of ids, in slot
// order with a random stagger, on the scheduler goroutine. A call while a drop
// is running is ignored. Calling it with no ids stops the bot: the bot type
// has nothing it is allowed to drop.
func (s *Service) PowerDrop(ids []int) {
	if s.dropping.Load() {
		return
	}
	if len(ids) == 0 {
		s.logger.Error("no item ids to drop, stopping bot")
		s.stop("no item ids configured for dropping")
		return
	}
	if !s.dropping.CompareAndSwap(false, true) {
		return
	}

	slots := s.game.SlotsOf(ids...)
	s.logger.Info("starting to drop inventory", "slots", len(slots))
	if !s.SendKeyRequest(KeyHold, KeyShift) {
		s.dropping.Store(false)
		return
	}

	delay := s.dropDelay()
	for _, slot := range slots {
		s.sched.Schedule(delay, func() {
			p := s.game.InventoryItemPoint(slot)
			if !p.Valid() {
				s.logger.Debug("slot emptied before drop", "slot", slot)
				return
			}
			s.click(p, true)
		})
		delay += s.dropDelay()
	}

	s.sched.Schedule(delay, func() {
		s.SendKeyRequest(KeyRelease, KeyShift)
		s.logger.Info("finished dropping inventory")
		s.dropping.Store(false)
	})
}

// OpenMagicInterface closes any open interface with escape, then opens the
// spellbook with F6.
func (s *Service) OpenMagicInterface() {
	s.SendKeyRequest(KeyHold, KeyEscape)
	s.sched.Schedule(100*time.Millisecond, func() { s.SendKeyRequest(KeyRelease, KeyEscape) })
	s.sched.Schedule(700*time.Millisecond, func() { s.SendKeyRequest(KeyHold, KeyF6) })
	s.sched.Schedule(800*time.Millisecond, func() { s.SendKeyRequest(KeyRelease, KeyF6) })
}

var homeTeleports = []world.WidgetID{
	world.WidgetHomeTeleport,
	world.WidgetHomeTeleportLunar,
	world.WidgetHomeTeleportArceus,
	world.WidgetHomeTeleportZaros,
}

var cityTeleports = []struct {
	name   string
	widget world.WidgetID
}{
	{"varrock", world.WidgetVarrockTeleport},
	{"lumbridge", world.WidgetLumbridgeTeleport},
	{"falador", world.WidgetFaladorTeleport},
	{"camelot", world.WidgetCamelotTeleport},
}

// CastSpell clicks a teleport spell in the open spellbook. It reports whether
// a cast was initiated.
func (s *Service) CastSpell(name string) bool {
	lower := strings.ToLower(name)
	s.logger.Info("attempting to cast spell", "spell", name)

	q := s.game.World()
	if strings.Contains(lower, "home teleport") {
		for _, id := range homeTeleports {
			if w, ok := q.Widget(id); ok && w.Visible() {
				return s.SendClickRequest(w.Bounds.Center(), true)
			}
		}
		s.logger.Warn("home teleport widget not found")
		return false
	}

	for _, city := range cityTeleports {
		if !strings.Contains(lower, city.name) {
			continue
		}
		if w, ok := q.Widget(city.widget); ok && w.Visible() {
			return s.SendClickRequest(w.Bounds.Center(), true)
		}
		s.logger.Warn("teleport spell widget not visible", "spell", name)
		return false
	}

	s.logger.Warn("spell casting not supported", "spell", name)
	return false
}

// InteractWithGameObject runs the hover-verify-click sequence on a game object.
func (s *Service) InteractWithGameObject(obj world.GameObject, action string) bool {
	return s.InteractWithEntity(world.ObjectEntity{Object: obj}, action)
}

// InteractWithWallObject clicks a wall object (door, gate) directly. The caller
// verifies the result from world state.
func (s *Service) InteractWithWallObject(obj world.GameObject, action string) bool {
	p := s.game.RandomClickablePoint(world.ObjectEntity{Object: obj})
	if !p.Valid() {
		s.logger.Warn("could not get clickable point for wall object", "object", obj.ID)
		return false
	}
	s.logger.Info("interacting with wall object", "object", obj.ID, "action", action)
	return s.SendClickRequest(p, true)
}

// InteractWithEntity moves the cursor onto it, waits for the hover menu and
// either left-clicks (default option matches action) or opens the context
// menu and picks action from it. Exactly one InteractionCompletedEvent is
// posted for every call that is not rejected by an interaction already in
// progress.
func (s *Service) InteractWithEntity(it world.Interactable, action string) bool {
	if it == nil {
		s.logger.Warn("cannot interact with nil entity")
		return false
	}
	if s.interacting.Load() {
		s.logger.Debug("already interacting, ignoring request", "entity", it.Name())
		return false
	}
	if npc, ok := it.(world.NPCEntity); ok && npc.NPC.Dead() {
		s.logger.Warn("cannot interact with dead npc", "npc", npc.NPC.Name)
		s.complete(it, action, false, "npc is dead")
		return false
	}

	p := s.game.RandomClickablePoint(it)
	if !p.Valid() {
		s.logger.Warn("could not get clickable point", "entity", it.Name())
		s.complete(it, action, false, "could not get clickable point")
		return false
	}
	if !s.ensureConnected() {
		s.complete(it, action, false, "injector not connected")
		return false
	}
	if !s.interacting.CompareAndSwap(false, true) {
		return false
	}

	s.logger.Info("interacting with entity", "entity", it.Name(), "id", it.ID(), "action", action)
	s.post(events.InteractionStartedEvent{Subject: it, Action: action, Timestamp: time.Now()})

	ix := &interaction{subject: it, action: action}
	if shape := it.ClickShape(); shape != nil && shape.Contains(s.game.World().MousePosition()) {
		s.sched.Schedule(0, func() { s.performInteraction(ix) })
		return true
	}

	if s.mover != nil {
		s.moveThen(p, pending{point: p, interaction: ix})
		return true
	}
	if !s.sender.SendMouseMove(p.X, p.Y) {
		s.fail("failed to send mouse move command")
		s.finishInteraction(ix, false, "mouse move failed")
		return false
	}
	s.sched.Schedule(s.opts.InteractionDelay, func() { s.performInteraction(ix) })
	return true
}

// performInteraction runs on the scheduler goroutine once the cursor rests on
// the entity.
func (s *Service) performInteraction(ix *interaction) {
	q := s.game.World()

	if npc, ok := ix.subject.(world.NPCEntity); ok {
		if cur, found := q.NPC(npc.NPC.Index); found && cur.Dead() {
			s.finishInteraction(ix, false, "npc died")
			return
		}
	}

	menu := q.Menu()
	if len(menu) == 0 {
		s.logger.Warn("no menu detected", "entity", ix.subject.Name())
		s.finishInteraction(ix, false, "no menu detected")
		return
	}

	if stripTags(menu[0].Option) == ix.action {
		s.logger.Debug("left-click option matches", "action", ix.action, "target", stripTags(menu[0].Target))
		if !s.click(q.MousePosition(), false) {
			s.finishInteraction(ix, false, "click failed")
			return
		}
		s.finishInteraction(ix, true, "")
		return
	}

	s.logger.Debug("left-click option did not match, right-clicking", "default", stripTags(menu[0].Option), "action", ix.action)
	if !s.sender.SendRightClick(0, 0, false) {
		s.fail("failed to send right click command")
		s.finishInteraction(ix, false, "right click failed")
		return
	}

	s.sched.Schedule(s.opts.MenuDelay, func() {
		for _, entry := range s.game.World().Menu() {
			if stripTags(entry.Option) != ix.action {
				continue
			}
			p := s.game.RandomPointInRect(entry.Bounds)
			if !p.Valid() || !s.click(p, true) {
				s.finishInteraction(ix, false, "menu click failed")
				return
			}
			s.finishInteraction(ix, true, "")
			return
		}
		s.logger.Warn("menu did not contain expected option", "action", ix.action)
		s.finishInteraction(ix, false, "menu option not found")
	})
}

func (s *Service) finishInteraction(ix *interaction, success bool, reason string) {
	s.interacting.Store(false)
	s.complete(ix.subject, ix.action, success, reason)
}

func (s *Service) complete(it world.Interactable, action string, success bool, reason string) {
	s.post(events.InteractionCompletedEvent{
		Subject:       it,
		Action:        action,
		Success:       success,
		FailureReason: reason,
		Timestamp:     time.Now(),
	})
}

func (s *Service) post(e events.Event) {
	if s.bus != nil {
		s.bus.Post(e)
	}
}

// moveThen starts a humanized movement and parks work for its completion.
func (s *Service) moveThen(p world.Point, next pending) {
	start := s.game.World().MousePosition()
	s.mu.Lock()
	id := s.mover.Move(start, p)
	s.pending[id] = next
	s.mu.Unlock()
}

// onMovementCompleted may run on the mover goroutine; it only touches
// the pending map and the scheduler.
func (s *Service) onMovementCompleted(e events.MouseMovementCompletedEvent) {
	s.mu.Lock()
	next, ok := s.pending[e.MovementID]
	delete(s.pending, e.MovementID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if e.Cancelled {
		s.logger.Debug("movement cancelled, dropping pending action", "movement", e.MovementID)
		if next.interaction != nil {
			s.finishInteraction(next.interaction, false, "mouse movement cancelled")
		}
		return
	}

	switch {
	case next.interaction != nil:
		s.sched.Schedule(s.preClickDelay(), func() { s.performInteraction(next.interaction) })
	case next.point.Valid() && next.right:
		s.sched.Schedule(s.preClickDelay(), func() {
			if !s.sender.SendRightClick(next.point.X, next.point.Y, false) {
				s.fail("failed to send right click command")
			}
		})
	case next.point.Valid():
		s.sched.Schedule(s.preClickDelay(), func() { s.click(next.point, false) })
	}
}

func (s *Service) click(p world.Point, move bool) bool {
	if !s.sender.SendClick(p.X, p.Y, move) {
		s.fail("failed to send click command")
		return false
	}
	return true
}

func (s *Service) ensureConnected() bool {
	if s.sender == nil || !s.sender.IsConnected() {
		s.fail("injector not connected")
		return false
	}
	return true
}

func (s *Service) fail(reason string) {
	s.logger.Error("input failure, stopping bot", "reason", reason)
	s.stop(reason)
}

func (s *Service) dropDelay() time.Duration {
	return s.human.Millis(int(s.opts.DropDelayMin/time.Millisecond), int(s.opts.DropDelayMax/time.Millisecond))
}

func (s *Service) preClickDelay() time.Duration {
	return s.human.Millis(int(s.opts.PreClickMin/time.Millisecond), int(s.opts.PreClickMax/time.Millisecond))
}

// stripTags removes client markup such as <col=ff9040> from menu text.
func stripTags(text string) string {
	if !strings.Contains(text, "<") {
		return text
	}
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
