package input

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

func TestPathReachesDestination(t *testing.T) {
	h := newTestHumanizer()
	p := DefaultWindParams()

	tests := []struct {
		name        string
		start, dest world.Point
	}{
		{"long diagonal", world.Point{X: 10, Y: 10}, world.Point{X: 700, Y: 480}},
		{"short hop", world.Point{X: 300, Y: 300}, world.Point{X: 304, Y: 298}},
		{"already there", world.Point{X: 50, Y: 50}, world.Point{X: 50, Y: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			steps := h.Path(tt.start, tt.dest, p)
			if tt.start == tt.dest {
				if len(steps) != 0 {
					t.Fatalf("expected no steps, got %d", len(steps))
				}
				return
			}
			if len(steps) == 0 {
				t.Fatal("expected steps")
			}
			if last := steps[len(steps)-1].Point; last != tt.dest {
				t.Errorf("last step %v, want %v", last, tt.dest)
			}

			prev := tt.start
			for i, st := range steps {
				if st.Point == prev {
					t.Fatalf("step %d repeats position %v", i, st.Point)
				}
				jump := math.Hypot(float64(st.Point.X-prev.X), float64(st.Point.Y-prev.Y))
				if i < len(steps)-1 && jump > p.MaxVelocity+2 {
					t.Fatalf("step %d jumps %.1fpx, above max velocity", i, jump)
				}
				if st.Delay < p.MinStepDelay || st.Delay > p.MaxStepDelay {
					t.Fatalf("step %d delay %v outside bounds", i, st.Delay)
				}
				prev = st.Point
			}
		})
	}
}

type cursorRecorder struct {
	mu     sync.Mutex
	points []world.Point
	fail   bool
}

func (c *cursorRecorder) SendMouseMove(x, y int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points = append(c.points, world.Point{X: x, Y: y})
	return !c.fail
}

func newTestMover(sender CursorSender, params WindParams) (*Mover, chan events.MouseMovementCompletedEvent) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(logger)
	done := make(chan events.MouseMovementCompletedEvent, 4)
	events.On(bus, func(e events.MouseMovementCompletedEvent) { done <- e })
	return NewMover(newTestHumanizer(), sender, bus, params, logger), done
}

func TestMoverCompletes(t *testing.T) {
	rec := &cursorRecorder{}
	params := DefaultWindParams()
	params.MinStepDelay, params.MaxStepDelay = 0, 0
	m, done := newTestMover(rec, params)

	dest := world.Point{X: 400, Y: 220}
	id := m.Move(world.Point{X: 20, Y: 20}, dest)

	select {
	case e := <-done:
		if e.MovementID != id {
			t.Errorf("movement id = %q, want %q", e.MovementID, id)
		}
		if e.Cancelled {
			t.Error("movement reported cancelled")
		}
		if e.Final != dest {
			t.Errorf("final = %v, want %v", e.Final, dest)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for completion event")
	}

	m.Wait()
	if m.Moving() {
		t.Error("mover still reports moving")
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.points) == 0 || rec.points[len(rec.points)-1] != dest {
		t.Errorf("cursor did not end on destination: %v", rec.points)
	}
}

// TestMoverCancelsPrevious verifies a second Move cancels the first and both
// publish a completion.
func TestMoverCancelsPrevious(t *testing.T) {
	rec := &cursorRecorder{}
	params := DefaultWindParams()
	params.MinStepDelay, params.MaxStepDelay = 50*time.Millisecond, 50*time.Millisecond
	m, done := newTestMover(rec, params)

	first := m.Move(world.Point{X: 0, Y: 0}, world.Point{X: 800, Y: 600})
	second := m.Move(world.Point{X: 0, Y: 0}, world.Point{X: 800, Y: 600})
	m.Cancel()

	got := map[string]bool{}
	for range 2 {
		select {
		case e := <-done:
			got[e.MovementID] = e.Cancelled
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for completion events")
		}
	}

	if cancelled, ok := got[first]; !ok || !cancelled {
		t.Errorf("first movement: reported=%v cancelled=%v", ok, cancelled)
	}
	if cancelled, ok := got[second]; !ok || !cancelled {
		t.Errorf("second movement: reported=%v cancelled=%v", ok, cancelled)
	}
	m.Wait()
}

func TestMoverSendFailure(t *testing.T) {
	rec := &cursorRecorder{fail: true}
	m, done := newTestMover(rec, DefaultWindParams())

	m.Move(world.Point{X: 0, Y: 0}, world.Point{X: 100, Y: 100})

	select {
	case e := <-done:
		if !e.Cancelled {
			t.Error("failed send should end the movement as cancelled")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for completion event")
	}
	m.Wait()
}
