package world

import (
	"fmt"
	"math"
)

// MaxDistance is returned by WorldPoint.DistanceTo for points on different planes.
const MaxDistance = math.MaxInt32

// WorldPoint is a tile coordinate in the game world.
type WorldPoint struct {
	X     int `json:"x" yaml:"x"`
	Y     int `json:"y" yaml:"y"`
	Plane int `json:"plane" yaml:"plane"`
}

// NewWorldPoint creates a world point.
func NewWorldPoint(x, y, plane int) WorldPoint {
	return WorldPoint{X: x, Y: y, Plane: plane}
}

// DistanceTo returns the Chebyshev (grid) distance between two points.
// Points on different planes are MaxDistance apart.
func (p WorldPoint) DistanceTo(o WorldPoint) int {
	if p.Plane != o.Plane {
		return MaxDistance
	}
	return p.DistanceTo2D(o)
}

// DistanceTo2D returns the Chebyshev distance ignoring the plane.
func (p WorldPoint) DistanceTo2D(o WorldPoint) int {
	return max(abs(p.X-o.X), abs(p.Y-o.Y))
}

// EuclideanTo2D returns the truncated straight-line distance ignoring the plane.
func (p WorldPoint) EuclideanTo2D(o WorldPoint) int {
	dx := float64(p.X - o.X)
	dy := float64(p.Y - o.Y)
	return int(math.Sqrt(dx*dx + dy*dy))
}

// Dx returns a copy shifted by (dx, dy) on the same plane.
func (p WorldPoint) Dx(dx, dy int) WorldPoint {
	return WorldPoint{X: p.X + dx, Y: p.Y + dy, Plane: p.Plane}
}

// IsZero reports whether p is the zero value.
func (p WorldPoint) IsZero() bool {
	return p == WorldPoint{}
}

func (p WorldPoint) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Plane)
}

// Point is a canvas (screen) coordinate.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InvalidPoint marks a click point that could not be resolved.
var InvalidPoint = Point{X: -1, Y: -1}

// Valid reports whether p is not the invalid sentinel.
func (p Point) Valid() bool {
	return p.X >= 0 && p.Y >= 0
}

func (p Point) String() string {
	return fmt.Sprintf("[%d,%d]", p.X, p.Y)
}

// Rect is an axis-aligned canvas rectangle.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Center returns the center point of the rectangle.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Bounds returns r itself so a Rect satisfies Shape.
func (r Rect) Bounds() Rect {
	return r
}

// Shape is a clickable area on the canvas.
type Shape interface {
	Bounds() Rect
	Contains(p Point) bool
}

// Polygon is a closed, possibly non-convex, canvas polygon.
type Polygon []Point

// Bounds returns the bounding rectangle of the polygon.
func (pg Polygon) Bounds() Rect {
	if len(pg) == 0 {
		return Rect{}
	}
	minX, minY := pg[0].X, pg[0].Y
	maxX, maxY := pg[0].X, pg[0].Y
	for _, p := range pg[1:] {
		minX = min(minX, p.X)
		minY = min(minY, p.Y)
		maxX = max(maxX, p.X)
		maxY = max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Contains uses even-odd ray casting.
func (pg Polygon) Contains(p Point) bool {
	if len(pg) < 3 {
		return false
	}
	inside := false
	px, py := float64(p.X), float64(p.Y)
	j := len(pg) - 1
	for i := range pg {
		xi, yi := float64(pg[i].X), float64(pg[i].Y)
		xj, yj := float64(pg[j].X), float64(pg[j].Y)
		if (yi > py) != (yj > py) && px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
