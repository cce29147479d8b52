package action

import (
	"container/heap"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// job is one delayed action. seq keeps jobs with equal due times in
// scheduling order.
type job struct {
	due time.Time
	seq uint64
	fn  func()
}

type jobHeap []*job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}
func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *jobHeap) Push(x any)   { *h = append(*h, x.(*job)) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return j
}

// Scheduler runs delayed actions one at a time on a single goroutine, in due
// order. Close discards actions that have not run yet.
type Scheduler struct {
	mu     sync.Mutex
	jobs   jobHeap
	seq    uint64
	closed bool

	wake   chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewScheduler starts the scheduler goroutine.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Schedule runs fn after delay. It reports false once the scheduler is closed.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.seq++
	heap.Push(&s.jobs, &job{due: time.Now().Add(delay), seq: s.seq, fn: fn})
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of actions waiting to run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Close stops the goroutine and drops pending actions. It waits for a running
// action to return. Safe to call multiple times.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	dropped := len(s.jobs)
	s.jobs = nil
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	if dropped > 0 {
		s.logger.Debug("scheduler closed with pending actions", "dropped", dropped)
	}
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		fn, wait := s.next()
		if fn != nil {
			s.exec(fn)
			continue
		}

		if wait > 0 {
			timer.Reset(wait)
		}
		select {
		case <-s.done:
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// next pops the first due job. Otherwise it returns how long until the
// earliest job is due, or 0 when there is nothing queued.
func (s *Scheduler) next() (func(), time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || len(s.jobs) == 0 {
		return nil, 0
	}
	now := time.Now()
	if first := s.jobs[0]; !first.due.After(now) {
		heap.Pop(&s.jobs)
		return first.fn, 0
	}
	return nil, s.jobs[0].due.Sub(now)
}

func (s *Scheduler) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled action panicked",
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
