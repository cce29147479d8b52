package scheduler

// Task is a stateful unit of bot behaviour polled once per tick while it is on
// top of the Manager's stack.
type Task interface {
	// Name identifies the task in logs and lifecycle events.
	Name() string
	// Start runs exactly once, immediately before the first Loop.
	Start()
	// Loop advances the task by one tick. It must never block.
	Loop()
	// Stop runs once when the task is popped after finishing or torn down by Clear.
	Stop()
	// Finished reports whether the task reached its terminal state.
	Finished() bool
}

// Releaser is implemented by tasks that hold resources beyond their Stop, such
// as event subscriptions. Clear calls Release on every started task it discards
// without stopping it.
type Releaser interface {
	Release()
}

// TaskStatus is the lifecycle position of a task on the stack.
type TaskStatus int

const (
	TaskPending TaskStatus = iota // Pushed, Start not yet called
	TaskRunning                   // Started, not yet stopped
	TaskStopped                   // Stopped and discarded
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// entry tracks one stacked task and whether its Start has run.
type entry struct {
	task   Task
	status TaskStatus
}
