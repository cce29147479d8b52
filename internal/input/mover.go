package input

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

// CursorSender delivers cursor positions to the input injector.
type CursorSender interface {
	SendMouseMove(x, y int) bool
}

// Mover runs Windmouse trajectories on a background goroutine. At most one
// movement is active; starting a new one cancels the previous one.
// Every movement ends with exactly one MouseMovementCompletedEvent.
type Mover struct {
	human  *Humanizer
	sender CursorSender
	bus    *events.Bus
	params WindParams
	logger *slog.Logger

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMover creates a mover that publishes completions on bus.
func NewMover(human *Humanizer, sender CursorSender, bus *events.Bus, params WindParams, logger *slog.Logger) *Mover {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mover{
		human:  human,
		sender: sender,
		bus:    bus,
		params: params,
		logger: logger.With("component", "windmouse"),
	}
}

// Move starts a movement from start to dest and returns its id.
func (m *Mover) Move(start, dest world.Point) string {
	id := uuid.NewString()
	steps := m.human.Path(start, dest, m.params)

	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	if m.cancel != nil {
		m.logger.Debug("cancelling movement", "movement", m.current)
		m.cancel()
	}
	m.current = id
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		m.run(ctx, id, start, steps)
	}()
	return id
}

// Cancel stops the active movement, if any.
func (m *Mover) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.current = ""
	}
}

// Moving reports whether a movement is in progress.
func (m *Mover) Moving() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != ""
}

// Current returns the id of the active movement, or "".
func (m *Mover) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Wait blocks until every started movement goroutine has returned.
func (m *Mover) Wait() {
	m.wg.Wait()
}

func (m *Mover) run(ctx context.Context, id string, start world.Point, steps []Step) {
	began := time.Now()
	final := start
	cancelled := false

	m.logger.Debug("movement started", "movement", id, "steps", len(steps))

	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

loop:
	for _, st := range steps {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if !m.sender.SendMouseMove(st.Point.X, st.Point.Y) {
			m.logger.Warn("mouse move not delivered", "movement", id, "point", st.Point)
			cancelled = true
			break
		}
		final = st.Point

		if st.Delay <= 0 {
			continue
		}
		timer.Reset(st.Delay)
		select {
		case <-ctx.Done():
			cancelled = true
			break loop
		case <-timer.C:
		}
	}

	m.mu.Lock()
	if m.current == id {
		m.current = ""
		m.cancel = nil
	}
	m.mu.Unlock()

	duration := time.Since(began)
	m.logger.Debug("movement completed", "movement", id, "duration", duration, "cancelled", cancelled)
	if m.bus != nil {
		m.bus.Publish(events.MouseMovementCompletedEvent{
			MovementID: id,
			Final:      final,
			Duration:   duration,
			Cancelled:  cancelled,
			Timestamp:  time.Now(),
		})
	}
}
