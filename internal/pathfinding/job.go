package pathfinding

import (
	"context"
	"sync"
	"time"

	"github.com/aristath/runebot/internal/world"
)

// Job is a route computation running on its own goroutine. The tick loop
// polls Done instead of waiting.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	path []world.WorldPoint
	err  error
}

// StartJob begins computing a route. A positive timeout bounds the search.
func StartJob(planner Planner, start, dest world.WorldPoint, timeout time.Duration) *Job {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	j := &Job{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(j.done)
		defer cancel()
		path, err := planner.FindPath(ctx, start, dest)
		j.mu.Lock()
		j.path, j.err = path, err
		j.mu.Unlock()
	}()
	return j
}

// Done reports whether the computation has finished. It never blocks.
func (j *Job) Done() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Wait returns a channel closed when the computation finishes.
func (j *Job) Wait() <-chan struct{} {
	return j.done
}

// Result returns the route or the search error. It is only meaningful once
// Done reports true.
func (j *Job) Result() ([]world.WorldPoint, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.path, j.err
}

// Cancel aborts the computation. The job still finishes, with the context error.
func (j *Job) Cancel() {
	j.cancel()
}
