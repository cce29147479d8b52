package events

import (
	"time"

	"github.com/aristath/runebot/internal/world"
)

// Event is the base interface for all events.
// Handlers are dispatched on the exact event type name.
type Event interface {
	EventType() string
}

// Event type constants
const (
	EventTypeGameTick               = "game.tick"
	EventTypeStatChanged            = "game.stat_changed"
	EventTypeAnimationChanged       = "game.animation_changed"
	EventTypeInteractingChanged     = "game.interacting_changed"
	EventTypeInteractionStarted     = "action.interaction_started"
	EventTypeInteractionCompleted   = "action.interaction_completed"
	EventTypeMouseMovementCompleted = "action.mouse_movement_completed"
	EventTypeTaskStarted            = "task.started"
	EventTypeTaskStopped            = "task.stopped"
	EventTypeTaskStateChanged       = "task.state_changed"
	EventTypeBotStarted             = "bot.started"
	EventTypeBotStopped             = "bot.stopped"
)

// GameTickEvent is published once per tick before the task stack runs.
type GameTickEvent struct {
	Tick int64
}

func (e GameTickEvent) EventType() string { return EventTypeGameTick }

// StatChangedEvent is published when a skill's experience or level changes.
type StatChangedEvent struct {
	Skill        world.Skill
	XP           int
	Level        int
	BoostedLevel int
}

func (e StatChangedEvent) EventType() string { return EventTypeStatChanged }

// AnimationChangedEvent is published when the local player's animation changes.
type AnimationChangedEvent struct {
	Animation int
}

func (e AnimationChangedEvent) EventType() string { return EventTypeAnimationChanged }

// InteractingChangedEvent is published when the local player starts or stops
// interacting with an actor. Target is world.NoActor when the interaction ended.
type InteractingChangedEvent struct {
	Target int
}

func (e InteractingChangedEvent) EventType() string { return EventTypeInteractingChanged }

// InteractionStartedEvent is published when an entity interaction begins.
type InteractionStartedEvent struct {
	Subject   world.Interactable
	Action    string
	Timestamp time.Time
}

func (e InteractionStartedEvent) EventType() string { return EventTypeInteractionStarted }

// InteractionCompletedEvent is published once per asynchronous entity interaction.
type InteractionCompletedEvent struct {
	Subject       world.Interactable
	Action        string
	Success       bool
	FailureReason string
	Timestamp     time.Time
}

func (e InteractionCompletedEvent) EventType() string { return EventTypeInteractionCompleted }

// MouseMovementCompletedEvent is published when a humanized mouse movement ends.
type MouseMovementCompletedEvent struct {
	MovementID string
	Final      world.Point
	Duration   time.Duration
	Cancelled  bool
	Timestamp  time.Time
}

func (e MouseMovementCompletedEvent) EventType() string { return EventTypeMouseMovementCompleted }

// TaskStartedEvent is published when a task becomes active for the first time.
type TaskStartedEvent struct {
	Name      string
	Depth     int
	Timestamp time.Time
}

func (e TaskStartedEvent) EventType() string { return EventTypeTaskStarted }

// TaskStoppedEvent is published when a task is stopped and discarded.
// Finished is false when the task was torn down by a clear.
type TaskStoppedEvent struct {
	Name      string
	Finished  bool
	Timestamp time.Time
}

func (e TaskStoppedEvent) EventType() string { return EventTypeTaskStopped }

// TaskStateChangedEvent is published when a task's state machine moves to a
// new state.
type TaskStateChangedEvent struct {
	Task      string
	From      string
	To        string
	Timestamp time.Time
}

func (e TaskStateChangedEvent) EventType() string { return EventTypeTaskStateChanged }

// BotStartedEvent is published when the bot is switched on.
type BotStartedEvent struct {
	BotType   string
	Timestamp time.Time
}

func (e BotStartedEvent) EventType() string { return EventTypeBotStarted }

// BotStoppedEvent is published when the bot is switched off.
type BotStoppedEvent struct {
	Reason    string
	Timestamp time.Time
}

func (e BotStoppedEvent) EventType() string { return EventTypeBotStopped }
