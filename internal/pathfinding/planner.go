// Package pathfinding computes tile routes for the walk task. Routes are
// ordered world points from the start tile to the destination; a step
// between two non-adjacent points is a transport (door, stairs or teleport).
package pathfinding

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aristath/runebot/internal/world"
)

// ErrNoPath is returned when no route exists within the search limits.
var ErrNoPath = errors.New("no path found")

// DefaultMaxNodes bounds the number of tiles a search may expand.
const DefaultMaxNodes = 200_000

// Planner computes a route between two tiles.
type Planner interface {
	FindPath(ctx context.Context, start, dest world.WorldPoint) ([]world.WorldPoint, error)
}

// Options tunes a GridPlanner.
type Options struct {
	MaxNodes  int
	Teleports bool // allow teleport transports from the start tile
}

// GridPlanner is an A* search over the collision grid with transport edges.
// The heuristic ignores transports, so a route that teleports is valid but
// not guaranteed to be the shortest.
type GridPlanner struct {
	collision  world.CollisionSource
	transports *Transports
	opts       Options
	logger     *slog.Logger
}

// NewGridPlanner creates a planner over src. transports may be nil.
func NewGridPlanner(src world.CollisionSource, transports *Transports, opts Options, logger *slog.Logger) *GridPlanner {
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GridPlanner{
		collision:  src,
		transports: transports,
		opts:       opts,
		logger:     logger.With("component", "pathfinding"),
	}
}

// Transports returns the planner's transport table.
func (g *GridPlanner) Transports() *Transports {
	return g.transports
}

var neighbours = [8][2]int{
	{0, 1}, {1, 0}, {0, -1}, {-1, 0},
	{1, 1}, {1, -1}, {-1, -1}, {-1, 1},
}

// FindPath returns the route from start to dest, both included.
func (g *GridPlanner) FindPath(ctx context.Context, start, dest world.WorldPoint) ([]world.WorldPoint, error) {
	if start == dest {
		return []world.WorldPoint{start}, nil
	}

	open := &nodeHeap{}
	cost := map[world.WorldPoint]int{start: 0}
	prev := make(map[world.WorldPoint]world.WorldPoint)
	heap.Push(open, node{point: start, priority: heuristic(start, dest)})

	expanded := 0
	for open.Len() > 0 {
		cur := heap.Pop(open).(node)
		if cur.cost > cost[cur.point] {
			continue // stale entry
		}
		if cur.point == dest {
			path := reconstruct(prev, start, dest)
			g.logger.Debug("path found", "from", start, "to", dest, "steps", len(path), "expanded", expanded)
			return path, nil
		}

		expanded++
		if expanded > g.opts.MaxNodes {
			return nil, fmt.Errorf("%w: search limit of %d tiles reached", ErrNoPath, g.opts.MaxNodes)
		}
		if expanded%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		relax := func(next world.WorldPoint, step int) {
			c := cur.cost + step
			if old, seen := cost[next]; seen && old <= c {
				return
			}
			cost[next] = c
			prev[next] = cur.point
			heap.Push(open, node{point: next, cost: c, priority: c + heuristic(next, dest)})
		}

		for _, d := range neighbours {
			next := cur.point.Dx(d[0], d[1])
			if world.CanStep(g.collision, cur.point, next) {
				relax(next, 1)
			}
		}
		for _, tr := range g.transports.From(cur.point) {
			relax(tr.Destination, tr.cost())
		}
		if g.opts.Teleports && cur.point == start {
			for _, tr := range g.transports.Teleports() {
				relax(tr.Destination, tr.cost())
			}
		}
	}

	return nil, fmt.Errorf("%w: from %s to %s", ErrNoPath, start, dest)
}

// heuristic is the grid distance ignoring planes.
func heuristic(a, b world.WorldPoint) int {
	return a.DistanceTo2D(b)
}

func reconstruct(prev map[world.WorldPoint]world.WorldPoint, start, dest world.WorldPoint) []world.WorldPoint {
	var rev []world.WorldPoint
	for p := dest; p != start; p = prev[p] {
		rev = append(rev, p)
	}
	rev = append(rev, start)

	path := make([]world.WorldPoint, len(rev))
	for i, p := range rev {
		path[len(rev)-1-i] = p
	}
	return path
}

type node struct {
	point    world.WorldPoint
	cost     int
	priority int
}

// nodeHeap orders nodes by priority, then by cost (deeper first).
type nodeHeap []node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].cost > h[j].cost
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
