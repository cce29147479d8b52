package bot

import (
	"slices"

	"github.com/aristath/runebot/internal/world"
)

// StepKind is how the player gets from one path point to the next.
type StepKind int

const (
	StepWalk StepKind = iota
	StepDoor
	StepStairs
	StepTeleport
)

func (k StepKind) String() string {
	switch k {
	case StepDoor:
		return "door"
	case StepStairs:
		return "stairs"
	case StepTeleport:
		return "teleport"
	default:
		return "walk"
	}
}

// Thresholds used by ClassifyStep, in tiles.
const (
	teleportDistance      = 20
	planeTeleportDistance = 10
)

// ClassifyStep decides which transport, if any, joins two consecutive path
// points. A jump of more than 20 tiles, or a plane change of more than 10,
// is a teleport. A shorter plane change is a staircase or ladder. A
// same-plane step blocked by a wall flag is a door.
func ClassifyStep(src world.CollisionSource, a, b world.WorldPoint) StepKind {
	d := a.DistanceTo2D(b)
	switch {
	case d > teleportDistance:
		return StepTeleport
	case a.Plane != b.Plane && d > planeTeleportDistance:
		return StepTeleport
	case a.Plane != b.Plane:
		return StepStairs
	case src != nil && world.BlockedByWall(src, a, b):
		return StepDoor
	}
	return StepWalk
}

type teleportArea struct {
	spell      string
	minX, maxX int
	minY, maxY int
}

var teleportAreas = []teleportArea{
	{spell: "Varrock Teleport", minX: 3200, maxX: 3230, minY: 3420, maxY: 3450},
	{spell: "Lumbridge Teleport", minX: 3200, maxX: 3230, minY: 3200, maxY: 3230},
	{spell: "Falador Teleport", minX: 2960, maxX: 2990, minY: 3380, maxY: 3410},
}

// TeleportSpell returns the spell that lands at dest, or "" when no known
// teleport arrives there.
func TeleportSpell(dest world.WorldPoint) string {
	for _, a := range teleportAreas {
		if dest.X >= a.minX && dest.X <= a.maxX && dest.Y >= a.minY && dest.Y <= a.maxY {
			return a.spell
		}
	}
	return ""
}

// StairIDs are the staircase objects recognised when the transport table has
// no entry for a plane change.
var StairIDs = []int{16671, 16672, 16673}

// DoorIDs are the closed door objects recognised next to a blocked step.
var DoorIDs = []int{
	1516, 1517, 1518, 1519, 1520, 1521, 1522, 1523, 1524, 1525,
	1530, 1531, 1532, 1533, 1534, 1535, 1536, 1537, 1538, 1539,
	9398, 9399, 9400, 9401, 9402, 9403, 9404, 9405, 9406, 9407,
	11707, 11708, 11709, 11710, 11711, 11712, 11713, 11714, 11715, 11716,
	11780,
	24306, 24307, 24308, 24309, 24310, 24311, 24312, 24313, 24314, 24315,
	50048,
}

func isDoor(o world.GameObject) bool {
	return slices.Contains(DoorIDs, o.ID) || o.HasAction("Open")
}

func climbAction(from, to world.WorldPoint) string {
	if to.Plane > from.Plane {
		return "Climb-up"
	}
	return "Climb-down"
}
