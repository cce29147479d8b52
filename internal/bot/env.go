// Package bot holds the task state machines: Walk, Mining, Woodcutting,
// Combat, Fishing, Cooking and Bank. Every task runs on the tick goroutine;
// it reads the world through game.Service and acts only through Actions.
package bot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/game"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/pathfinding"
	"github.com/aristath/runebot/internal/scheduler"
	"github.com/aristath/runebot/internal/world"
)

// Actions is the input surface tasks use. *action.Service implements it.
type Actions interface {
	SendClickRequest(p world.Point, move bool) bool
	SendMouseMoveRequest(p world.Point) bool
	PressSpacebar() bool
	PowerDrop(ids []int)
	IsDropping() bool
	IsInteracting() bool
	InteractWithGameObject(obj world.GameObject, action string) bool
	InteractWithWallObject(obj world.GameObject, action string) bool
	InteractWithEntity(it world.Interactable, action string) bool
	OpenMagicInterface()
	CastSpell(name string) bool
}

// Env is everything a task needs from the running bot.
type Env struct {
	Game       *game.Service
	Actions    Actions
	Human      *input.Humanizer
	Bus        *events.Bus
	Tasks      *scheduler.Manager
	Planner    pathfinding.Planner
	Transports *pathfinding.Transports
	// PathTimeout bounds one route computation. Zero means no limit.
	PathTimeout time.Duration
	// Stop switches the whole bot off. Tasks call it for configuration gaps
	// they cannot work around.
	Stop   func(reason string)
	Logger *slog.Logger
}

func (e *Env) stop(reason string) {
	if e.Stop != nil {
		e.Stop(reason)
	}
}

// Stateful is implemented by tasks that expose their current state.
type Stateful interface {
	State() string
}

type state interface {
	comparable
	fmt.Stringer
}

// maxChildFailures is how many delegations in a row may fail before a task
// stops the bot.
const maxChildFailures = 3

// failer is implemented by tasks that can end without reaching their goal.
type failer interface {
	Failed() bool
}

// core carries what every task state machine shares: the current state,
// delay-tick gating, delegated children and the event subscriptions released
// on Stop.
type core[S state] struct {
	env      *Env
	name     string
	state    S
	delay    int
	children []scheduler.Task
	failures int
	subs     []*events.Subscription
	logger   *slog.Logger
}

func newCore[S state](env *Env, name string, initial S) core[S] {
	logger := env.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return core[S]{
		env:    env,
		name:   name,
		state:  initial,
		logger: logger.With("component", "bot", "task", name),
	}
}

// Name implements scheduler.Task.
func (c *core[S]) Name() string { return c.name }

// State returns the current state name.
func (c *core[S]) State() string { return c.state.String() }

func (c *core[S]) set(next S) {
	if next == c.state {
		return
	}
	prev := c.state
	c.state = next
	c.logger.Info("state changed", "from", prev.String(), "to", next.String())
	if c.env.Bus != nil {
		c.env.Bus.Publish(events.TaskStateChangedEvent{
			Task:      c.name,
			From:      prev.String(),
			To:        next.String(),
			Timestamp: time.Now(),
		})
	}
}

func (c *core[S]) log() *slog.Logger {
	return c.logger.With("state", c.state.String())
}

// waiting consumes one delay tick and reports whether the loop must return.
func (c *core[S]) waiting() bool {
	if c.delay > 0 {
		c.delay--
		return true
	}
	return false
}

// wait sets the delay to a random number of ticks in [minTicks, maxTicks].
func (c *core[S]) wait(minTicks, maxTicks int) {
	c.delay = c.env.Human.Random(minTicks, maxTicks)
}

// covered reports whether a child task is on top of self.
func (c *core[S]) covered(self scheduler.Task) bool {
	return c.env.Tasks.Current() != self
}

// delegate pushes children in order, so the last one runs first.
func (c *core[S]) delegate(children ...scheduler.Task) {
	for _, t := range children {
		c.env.Tasks.Push(t)
		c.children = append(c.children, t)
	}
}

// resumed checks the children of the last delegation once they are gone. It
// stops the bot after maxChildFailures failed delegations in a row and
// reports whether the task may go on.
func (c *core[S]) resumed() bool {
	failed := false
	for _, t := range c.children {
		if f, ok := t.(failer); ok && f.Failed() {
			failed = true
			c.log().Warn("subtask failed", "subtask", t.Name())
		}
	}
	c.children = nil
	if !failed {
		c.failures = 0
		return true
	}
	c.failures++
	if c.failures >= maxChildFailures {
		c.log().Error("giving up after repeated subtask failures", "failures", c.failures)
		c.env.stop(c.name + ": subtasks keep failing")
		return false
	}
	return true
}

func (c *core[S]) track(sub *events.Subscription) {
	c.subs = append(c.subs, sub)
}

func (c *core[S]) untrack() {
	if c.env.Bus != nil {
		for _, sub := range c.subs {
			c.env.Bus.Unsubscribe(sub)
		}
	}
	c.subs = nil
}

// Release drops the task's event subscriptions without running Stop. The
// scheduler calls it on paused tasks discarded by a teardown.
func (c *core[S]) Release() {
	c.untrack()
}

func (c *core[S]) location() world.WorldPoint {
	return c.env.Game.PlayerLocation()
}
