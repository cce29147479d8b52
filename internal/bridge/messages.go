package bridge

import (
	"github.com/aristath/runebot/internal/engine"
	"github.com/aristath/runebot/internal/world"
)

// Message types sent by the host client.
const (
	TypeSnapshot           = "snapshot"
	TypeTick               = "tick"
	TypeStatus             = "status"
	TypeStatChanged        = "stat_changed"
	TypeAnimationChanged   = "animation_changed"
	TypeInteractingChanged = "interacting_changed"
)

// TypeError marks a reply to a message the bridge could not apply.
const TypeError = "error"

// Message is one line of the host feed. Only the fields of its type are set.
type Message struct {
	Type string `json:"type"`

	Snapshot *world.Snapshot `json:"snapshot,omitempty"`

	Skill        world.Skill `json:"skill,omitempty"`
	XP           int         `json:"xp,omitempty"`
	Level        int         `json:"level,omitempty"`
	BoostedLevel int         `json:"boosted_level,omitempty"`

	Animation int `json:"animation,omitempty"`
	Target    int `json:"target,omitempty"`
}

// Reply is sent back on the feed.
type Reply struct {
	Type   string         `json:"type"`
	Status *engine.Status `json:"status,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func statusReply(st engine.Status) Reply {
	return Reply{Type: TypeStatus, Status: &st}
}

func errorReply(msg string) Reply {
	return Reply{Type: TypeError, Error: msg}
}
