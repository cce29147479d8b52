package world

// Collision flag bits, matching the host client's per-tile collision data.
const (
	BlockMovementNorthWest = 0x1
	BlockMovementNorth     = 0x2
	BlockMovementNorthEast = 0x4
	BlockMovementEast      = 0x8
	BlockMovementSouthEast = 0x10
	BlockMovementSouth     = 0x20
	BlockMovementSouthWest = 0x40
	BlockMovementWest      = 0x80
	BlockMovementObject    = 0x100
	BlockMovementFloor     = 0x200000
	BlockMovementFull      = BlockMovementObject | BlockMovementFloor
)

// CollisionSource reports the collision flags of a tile.
// ok is false when the tile is outside the loaded scene.
type CollisionSource interface {
	CollisionFlags(p WorldPoint) (flags int, ok bool)
}

// BlockedByWall reports whether a single cardinal step from -> to is blocked by a
// directional wall flag on the origin tile. Non-adjacent or diagonal steps and
// tiles outside the scene are never reported as blocked.
func BlockedByWall(src CollisionSource, from, to WorldPoint) bool {
	if from.Plane != to.Plane || from.DistanceTo(to) > 1 {
		return false
	}
	flags, ok := src.CollisionFlags(from)
	if !ok {
		return false
	}
	dx := to.X - from.X
	dy := to.Y - from.Y
	switch {
	case dx == 1 && dy == 0:
		return flags&BlockMovementEast != 0
	case dx == -1 && dy == 0:
		return flags&BlockMovementWest != 0
	case dx == 0 && dy == 1:
		return flags&BlockMovementNorth != 0
	case dx == 0 && dy == -1:
		return flags&BlockMovementSouth != 0
	}
	return false
}

// Walkable reports whether a tile can be stood on. Unknown tiles are walkable.
func Walkable(src CollisionSource, p WorldPoint) bool {
	flags, ok := src.CollisionFlags(p)
	if !ok {
		return true
	}
	return flags&BlockMovementFull == 0
}

// CanStep reports whether the player can move one tile from -> to, including diagonals.
func CanStep(src CollisionSource, from, to WorldPoint) bool {
	if !Walkable(src, to) {
		return false
	}
	dx := to.X - from.X
	dy := to.Y - from.Y
	if dx == 0 || dy == 0 {
		return !BlockedByWall(src, from, to)
	}
	// A diagonal needs both orthogonal legs open.
	viaX := from.Dx(dx, 0)
	viaY := from.Dx(0, dy)
	return CanStep(src, from, viaX) && CanStep(src, viaX, to) &&
		CanStep(src, from, viaY) && CanStep(src, viaY, to)
}

// CollisionMap is an in-memory CollisionSource keyed by world point.
type CollisionMap map[WorldPoint]int

// CollisionFlags implements CollisionSource.
func (m CollisionMap) CollisionFlags(p WorldPoint) (int, bool) {
	f, ok := m[p]
	return f, ok
}
