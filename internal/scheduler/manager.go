package scheduler

import (
	"log/slog"
	"time"

	"github.com/aristath/runebot/internal/events"
)

// Manager is a last-in-first-out stack of tasks. Only the top task runs; tasks
// beneath it are paused simply by not being scheduled.
//
// Start is lazy: a task is started the first time the manager finds it on top
// of the stack, either at the beginning of a tick or when the pop of a finished
// child uncovers it. A resumed parent is never started twice.
//
// Manager is owned by the tick goroutine and is not safe for concurrent use.
// Tasks may call Push from inside their own Loop.
type Manager struct {
	stack  []*entry
	bus    *events.Bus
	logger *slog.Logger
}

// NewManager creates an empty task stack. bus may be nil.
func NewManager(bus *events.Bus, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		bus:    bus,
		logger: logger.With("component", "scheduler"),
	}
}

// Push places task on top of the stack. The task is started on its first tick.
func (m *Manager) Push(task Task) {
	if task == nil {
		return
	}
	m.stack = append(m.stack, &entry{task: task, status: TaskPending})
	m.logger.Debug("task pushed", "task", task.Name(), "depth", len(m.stack))
}

// Loop advances the stack by one tick.
//
// If the top task is finished it is stopped and popped, the newly uncovered
// task (if any) is started when it has not been started yet, and the tick ends
// there. Otherwise the top task's Loop runs.
func (m *Manager) Loop() {
	top := m.top()
	if top == nil {
		return
	}
	if top.status == TaskPending {
		m.start(top)
	}

	if top.task.Finished() {
		m.pop(true)
		if next := m.top(); next != nil && next.status == TaskPending {
			m.start(next)
		}
		return
	}

	top.task.Loop()
}

// Clear stops the top task, if it was started, and discards the whole stack.
// Tasks beneath the top are dropped without their Stop being called; started
// ones that implement Releaser are released instead.
func (m *Manager) Clear() {
	top := m.top()
	if top == nil {
		return
	}
	if top.status == TaskRunning {
		m.stop(top, false)
	}
	paused := m.stack[:len(m.stack)-1]
	if len(paused) > 0 {
		m.logger.Debug("discarding paused tasks", "count", len(paused))
	}
	for i := len(paused) - 1; i >= 0; i-- {
		e := paused[i]
		if r, ok := e.task.(Releaser); ok && e.status == TaskRunning {
			r.Release()
		}
		e.status = TaskStopped
	}
	m.stack = nil
}

// Current returns the task on top of the stack, or nil when it is empty.
// A task compares Current against itself to detect that a child is running.
func (m *Manager) Current() Task {
	if top := m.top(); top != nil {
		return top.task
	}
	return nil
}

// Len returns the stack depth.
func (m *Manager) Len() int {
	return len(m.stack)
}

// Names returns the task names from bottom to top.
func (m *Manager) Names() []string {
	names := make([]string, len(m.stack))
	for i, e := range m.stack {
		names[i] = e.task.Name()
	}
	return names
}

func (m *Manager) top() *entry {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

func (m *Manager) start(e *entry) {
	e.status = TaskRunning
	m.logger.Info("task started", "task", e.task.Name(), "depth", len(m.stack))
	e.task.Start()
	if m.bus != nil {
		m.bus.Publish(events.TaskStartedEvent{
			Name:      e.task.Name(),
			Depth:     len(m.stack),
			Timestamp: time.Now(),
		})
	}
}

func (m *Manager) stop(e *entry, finished bool) {
	e.status = TaskStopped
	e.task.Stop()
	m.logger.Info("task stopped", "task", e.task.Name(), "finished", finished)
	if m.bus != nil {
		m.bus.Publish(events.TaskStoppedEvent{
			Name:      e.task.Name(),
			Finished:  finished,
			Timestamp: time.Now(),
		})
	}
}

func (m *Manager) pop(finished bool) {
	top := m.top()
	m.stack[len(m.stack)-1] = nil
	m.stack = m.stack[:len(m.stack)-1]
	m.stop(top, finished)
}
