package persistence

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

const (
	trackerQueueSize    = 256
	trackerFlushTimeout = 5 * time.Second
)

type record func(ctx context.Context) error

// SessionTracker turns bus events into session records. Handlers only queue
// the writes, so the tick goroutine never waits on the database; Run performs
// them in order.
type SessionTracker struct {
	store  Store
	bus    *events.Bus
	logger *slog.Logger
	queue  chan record
	subs   []*events.Subscription

	mu      sync.Mutex
	session string
	xp      map[world.Skill]int
}

// NewSessionTracker subscribes a tracker to bus.
func NewSessionTracker(store Store, bus *events.Bus, logger *slog.Logger) *SessionTracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &SessionTracker{
		store:  store,
		bus:    bus,
		logger: logger.With("component", "sessions"),
		queue:  make(chan record, trackerQueueSize),
		xp:     make(map[world.Skill]int),
	}
	t.subs = []*events.Subscription{
		events.On(bus, t.onBotStarted),
		events.On(bus, t.onBotStopped),
		events.On(bus, t.onTaskStarted),
		events.On(bus, t.onTaskStopped),
		events.On(bus, t.onStatChanged),
		events.On(bus, t.onInteractionCompleted),
	}
	return t
}

// Session returns the id of the running session, or "" between sessions.
func (t *SessionTracker) Session() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// Run writes queued records until ctx is cancelled, then flushes what is
// left. Write failures are logged and never stop the loop.
func (t *SessionTracker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			t.flush(ctx)
			return nil
		case rec := <-t.queue:
			t.write(ctx, rec)
		}
	}
}

func (t *SessionTracker) flush(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), trackerFlushTimeout)
	defer cancel()
	for {
		select {
		case rec := <-t.queue:
			t.write(ctx, rec)
		default:
			return
		}
	}
}

func (t *SessionTracker) write(ctx context.Context, rec record) {
	if err := rec(ctx); err != nil {
		t.logger.Warn("failed to record session activity", "error", err)
	}
}

// Close unsubscribes the tracker. Queued records are still written by Run.
func (t *SessionTracker) Close() {
	for _, sub := range t.subs {
		t.bus.Unsubscribe(sub)
	}
	t.subs = nil
}

func (t *SessionTracker) enqueue(rec record) {
	select {
	case t.queue <- rec:
	default:
		t.logger.Warn("session record queue full, dropping record")
	}
}

func (t *SessionTracker) onBotStarted(e events.BotStartedEvent) {
	id := uuid.NewString()
	t.mu.Lock()
	t.session = id
	t.mu.Unlock()

	t.logger.Info("session started", "session", id, "bot", e.BotType)
	at := stamp(e.Timestamp)
	t.enqueue(func(ctx context.Context) error {
		return t.store.StartSession(ctx, id, e.BotType, at)
	})
}

func (t *SessionTracker) onBotStopped(e events.BotStoppedEvent) {
	t.mu.Lock()
	id := t.session
	t.session = ""
	t.mu.Unlock()
	if id == "" {
		return
	}

	t.logger.Info("session ended", "session", id, "reason", e.Reason)
	at := stamp(e.Timestamp)
	t.enqueue(func(ctx context.Context) error {
		return t.store.EndSession(ctx, id, e.Reason, at)
	})
}

func (t *SessionTracker) onTaskStarted(e events.TaskStartedEvent) {
	id := t.Session()
	if id == "" {
		return
	}
	at := stamp(e.Timestamp)
	t.enqueue(func(ctx context.Context) error {
		return t.store.RecordTaskStart(ctx, id, e.Name, e.Depth, at)
	})
}

func (t *SessionTracker) onTaskStopped(e events.TaskStoppedEvent) {
	id := t.Session()
	if id == "" {
		return
	}
	at := stamp(e.Timestamp)
	t.enqueue(func(ctx context.Context) error {
		return t.store.RecordTaskStop(ctx, id, e.Name, e.Finished, at)
	})
}

// onStatChanged records experience gains. The first report of a skill only
// sets its baseline.
func (t *SessionTracker) onStatChanged(e events.StatChangedEvent) {
	t.mu.Lock()
	id := t.session
	prev, known := t.xp[e.Skill]
	t.xp[e.Skill] = e.XP
	t.mu.Unlock()

	gained := e.XP - prev
	if id == "" || !known || gained <= 0 {
		return
	}
	at := time.Now()
	t.enqueue(func(ctx context.Context) error {
		return t.store.RecordXP(ctx, id, string(e.Skill), e.XP, gained, at)
	})
}

func (t *SessionTracker) onInteractionCompleted(e events.InteractionCompletedEvent) {
	id := t.Session()
	if id == "" {
		return
	}
	in := Interaction{
		Action:     e.Action,
		Success:    e.Success,
		Reason:     e.FailureReason,
		RecordedAt: stamp(e.Timestamp),
	}
	if e.Subject != nil {
		in.Target = e.Subject.Name()
	}
	t.enqueue(func(ctx context.Context) error {
		return t.store.RecordInteraction(ctx, id, in)
	})
}

func stamp(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now()
	}
	return at
}
