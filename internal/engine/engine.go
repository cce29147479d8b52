// Package engine is the bot core: it owns the task stack, switches the bot on
// and off and drives one tick at a time.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/aristath/runebot/internal/action"
	"github.com/aristath/runebot/internal/bot"
	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/game"
	"github.com/aristath/runebot/internal/input"
	"github.com/aristath/runebot/internal/pathfinding"
	"github.com/aristath/runebot/internal/scheduler"
	"github.com/aristath/runebot/internal/world"
)

// ErrRunning is returned by Start while a bot is already running.
var ErrRunning = errors.New("bot already running")

// Stop reasons set by the engine itself.
const (
	ReasonFinished = "all tasks finished"
	ReasonShutdown = "shutdown"
)

// Options tunes the bot.
type Options struct {
	Settings bot.Settings
	Action   action.Options
	// Humanize runs moving clicks as Windmouse trajectories.
	Humanize bool
	Wind     input.WindParams
	Planner  pathfinding.Options
	// Transports defaults to the built-in table.
	Transports  *pathfinding.Transports
	PathTimeout time.Duration
}

// DefaultOptions returns the stock bot options.
func DefaultOptions() Options {
	return Options{
		Settings:    bot.DefaultSettings(),
		Action:      action.DefaultOptions(),
		Wind:        input.DefaultWindParams(),
		PathTimeout: 10 * time.Second,
	}
}

// Deps are the collaborators of an Engine. Only Sender is required.
type Deps struct {
	Sender  action.Sender
	Live    *world.Live
	Bus     *events.Bus
	Game    *game.Service
	Human   *input.Humanizer
	Planner pathfinding.Planner
	Logger  *slog.Logger
}

// Status describes what the bot is doing.
type Status struct {
	Running bool     `json:"running"`
	Bot     string   `json:"bot,omitempty"`
	Tick    int64    `json:"tick"`
	Task    string   `json:"task,omitempty"`
	State   string   `json:"state,omitempty"`
	Stack   []string `json:"stack,omitempty"`
	Reason  string   `json:"reason,omitempty"` // why the bot last stopped
}

// Engine drives the task stack. Tick, Start and Stop are serialized, so the
// stack and every task only ever run on one goroutine at a time.
type Engine struct {
	live    *world.Live
	bus     *events.Bus
	tasks   *scheduler.Manager
	actions *action.Service
	env     *bot.Env
	opts    Options
	logger  *slog.Logger

	tickMu  sync.Mutex
	tick    int64
	running bool
	kind    string
	reason  string

	// stop requests raised by tasks or background goroutines, applied at
	// the end of the current tick.
	reqMu   sync.Mutex
	request string
}

// New wires an engine around deps.Sender.
func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Sender == nil {
		return nil, errors.New("engine needs an input sender")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	logger := deps.Logger
	if deps.Live == nil {
		deps.Live = world.NewLive()
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus(logger)
	}
	if deps.Game == nil {
		deps.Game = game.NewService(deps.Live)
	}
	if deps.Human == nil {
		deps.Human = input.NewHumanizer(logger)
	}
	if opts.Transports == nil {
		transports, err := pathfinding.LoadTransports("")
		if err != nil {
			return nil, fmt.Errorf("loading transports: %w", err)
		}
		opts.Transports = transports
	}
	if deps.Planner == nil {
		deps.Planner = pathfinding.NewGridPlanner(deps.Live, opts.Transports, opts.Planner, logger)
	}

	e := &Engine{
		live:   deps.Live,
		bus:    deps.Bus,
		tasks:  scheduler.NewManager(deps.Bus, logger),
		opts:   opts,
		logger: logger.With("component", "engine"),
	}

	actionDeps := action.Deps{
		Sender: deps.Sender,
		Game:   deps.Game,
		Human:  deps.Human,
		Bus:    deps.Bus,
		Stop:   e.RequestStop,
		Logger: logger,
	}
	if opts.Humanize {
		actionDeps.Mover = input.NewMover(deps.Human, deps.Sender, deps.Bus, opts.Wind, logger)
	}
	e.actions = action.NewService(actionDeps, opts.Action)

	e.env = &bot.Env{
		Game:        deps.Game,
		Actions:     e.actions,
		Human:       deps.Human,
		Bus:         deps.Bus,
		Tasks:       e.tasks,
		Planner:     deps.Planner,
		Transports:  opts.Transports,
		PathTimeout: opts.PathTimeout,
		Stop:        e.RequestStop,
		Logger:      logger,
	}
	return e, nil
}

// Live returns the world snapshot the tasks read.
func (e *Engine) Live() *world.Live { return e.live }

// Bus returns the event bus.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Start pushes the root task of kind. It starts on the next tick.
func (e *Engine) Start(kind bot.Kind) error {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	if e.running {
		return fmt.Errorf("%w: %s", ErrRunning, e.kind)
	}
	root, err := bot.NewRoot(kind, e.env, e.opts.Settings)
	if err != nil {
		return err
	}
	e.begin(string(kind), root)
	return nil
}

func (e *Engine) begin(kind string, root scheduler.Task) {
	e.takeRequest()
	e.tasks.Push(root)
	e.running = true
	e.kind = kind
	e.reason = ""

	e.logger.Info("bot started", "bot", kind)
	e.bus.Publish(events.BotStartedEvent{BotType: kind, Timestamp: time.Now()})
}

// Stop switches the bot off, tearing down the task stack. It waits for a
// running tick to end. Stopping an idle bot does nothing.
func (e *Engine) Stop(reason string) {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	e.takeRequest()
	e.stop(reason, slog.LevelInfo)
}

// RequestStop asks for the bot to be switched off at the end of the current
// tick. Tasks and background goroutines call it; it never blocks. The first
// reason wins.
func (e *Engine) RequestStop(reason string) {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	if e.request == "" {
		e.request = reason
	}
}

func (e *Engine) takeRequest() string {
	e.reqMu.Lock()
	defer e.reqMu.Unlock()
	reason := e.request
	e.request = ""
	return reason
}

// Tick runs one game tick: posted events are drained, GameTickEvent is
// published and the task stack advances. A panicking task stops the bot.
func (e *Engine) Tick() Status {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	if reason := e.takeRequest(); reason != "" {
		e.stop(reason, slog.LevelError)
	}
	e.tick++
	e.bus.Drain()
	if !e.running {
		return e.status()
	}

	e.bus.Publish(events.GameTickEvent{Tick: e.tick})
	e.loop()

	if reason := e.takeRequest(); reason != "" {
		e.stop(reason, slog.LevelError)
	} else if e.running && e.tasks.Len() == 0 {
		e.stop(ReasonFinished, slog.LevelInfo)
	}
	return e.status()
}

func (e *Engine) loop() {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("task loop panicked",
				"task", taskName(e.tasks.Current()),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			e.RequestStop(fmt.Sprintf("task panicked: %v", r))
		}
	}()
	e.tasks.Loop()
}

func (e *Engine) stop(reason string, level slog.Level) {
	if !e.running {
		return
	}
	e.tasks.Clear()
	e.running = false
	e.reason = reason

	e.logger.Log(context.Background(), level, "bot stopped", "bot", e.kind, "reason", reason)
	e.bus.Publish(events.BotStoppedEvent{Reason: reason, Timestamp: time.Now()})
}

// Status reports the current task and its state.
func (e *Engine) Status() Status {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	return e.status()
}

func (e *Engine) status() Status {
	st := Status{
		Running: e.running,
		Bot:     e.kind,
		Tick:    e.tick,
		Reason:  e.reason,
	}
	if cur := e.tasks.Current(); cur != nil {
		st.Task = cur.Name()
		if s, ok := cur.(bot.Stateful); ok {
			st.State = s.State()
		}
		st.Stack = e.tasks.Names()
	}
	return st
}

// Close stops the bot and the action scheduler.
func (e *Engine) Close() {
	e.Stop(ReasonShutdown)
	e.actions.Close()
}

func taskName(t scheduler.Task) string {
	if t == nil {
		return ""
	}
	return t.Name()
}
