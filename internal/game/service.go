// Package game is the entity-query facade the bot tasks use to look at the
// world: nearest-entity search, click-point sampling, inventory and activity
// helpers. It only reads world state.
package game

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aristath/runebot/internal/world"
)

// clickSamples bounds the rejection sampling in RandomClickablePoint.
const clickSamples = 10

// Service answers questions about the current world state.
type Service struct {
	world world.Query

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewService creates a facade over q seeded from the clock.
func NewService(q world.Query) *Service {
	seed := uint64(time.Now().UnixNano())
	return NewServiceWithSource(q, rand.NewPCG(seed, seed>>1|1))
}

// NewServiceWithSource creates a facade with a fixed random source, for tests.
func NewServiceWithSource(q world.Query, src rand.Source) *Service {
	return &Service{world: q, rng: rand.New(src)}
}

// World returns the underlying query.
func (s *Service) World() world.Query {
	return s.world
}

// PlayerLocation returns the local player's world location.
func (s *Service) PlayerLocation() world.WorldPoint {
	return s.world.PlayerLocation()
}

// Interactables returns every visible game object followed by every NPC.
func (s *Service) Interactables() []world.Interactable {
	objects := s.world.GameObjects()
	npcs := s.world.NPCs()
	all := make([]world.Interactable, 0, len(objects)+len(npcs))
	for _, o := range objects {
		all = append(all, world.ObjectEntity{Object: o})
	}
	for _, n := range npcs {
		all = append(all, world.NPCEntity{NPC: n})
	}
	return all
}

// FindNearest returns the matching entity closest to the player, or nil.
// Ties go to the first match in scan order (objects before NPCs).
func (s *Service) FindNearest(match func(world.Interactable) bool) world.Interactable {
	player := s.world.PlayerLocation()

	var best world.Interactable
	bestDist := 0
	for _, it := range s.Interactables() {
		if !match(it) {
			continue
		}
		d := it.Location().DistanceTo(player)
		if best == nil || d < bestDist {
			best, bestDist = it, d
		}
	}
	return best
}

// FindNearestObject returns the nearest game object with one of ids.
func (s *Service) FindNearestObject(ids ...int) (world.GameObject, bool) {
	if len(ids) == 0 {
		return world.GameObject{}, false
	}
	found := s.FindNearest(func(it world.Interactable) bool {
		return it.Kind() == world.KindObject && slices.Contains(ids, it.ID())
	})
	if found == nil {
		return world.GameObject{}, false
	}
	return found.(world.ObjectEntity).Object, true
}

// FindNearestObjectWhere returns the nearest game object accepted by match.
func (s *Service) FindNearestObjectWhere(match func(world.GameObject) bool) (world.GameObject, bool) {
	found := s.FindNearest(func(it world.Interactable) bool {
		e, ok := it.(world.ObjectEntity)
		return ok && match(e.Object)
	})
	if found == nil {
		return world.GameObject{}, false
	}
	return found.(world.ObjectEntity).Object, true
}

// FindNearestNPC returns the nearest attackable NPC whose name contains one of
// names, case-insensitively. NPCs at zero health and NPCs engaged with someone
// other than the local player are skipped.
func (s *Service) FindNearestNPC(names ...string) (world.NPC, bool) {
	var wanted []string
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			wanted = append(wanted, n)
		}
	}
	if len(wanted) == 0 {
		return world.NPC{}, false
	}

	found := s.FindNearest(func(it world.Interactable) bool {
		e, ok := it.(world.NPCEntity)
		if !ok || e.NPC.Name == "" {
			return false
		}
		name := strings.ToLower(e.NPC.Name)
		if !slices.ContainsFunc(wanted, func(w string) bool { return strings.Contains(name, w) }) {
			return false
		}
		if e.NPC.HealthRatio == 0 {
			return false
		}
		return e.NPC.Interacting == world.NoActor || e.NPC.Interacting == world.LocalPlayer
	})
	if found == nil {
		return world.NPC{}, false
	}
	return found.(world.NPCEntity).NPC, true
}

// RandomClickablePoint samples up to ten points inside the bounding box of the
// entity's click shape and returns the first one inside the shape itself,
// falling back to the bounding-box center. It returns world.InvalidPoint when
// the entity has no usable click shape.
func (s *Service) RandomClickablePoint(it world.Interactable) world.Point {
	if it == nil {
		return world.InvalidPoint
	}
	return s.RandomPointInShape(it.ClickShape())
}

// RandomPointInShape is RandomClickablePoint for a bare shape.
func (s *Service) RandomPointInShape(shape world.Shape) world.Point {
	if shape == nil {
		return world.InvalidPoint
	}
	bounds := shape.Bounds()
	if bounds.Empty() {
		return world.InvalidPoint
	}

	for range clickSamples {
		p := s.randomPoint(bounds)
		if shape.Contains(p) {
			return p
		}
	}
	return bounds.Center()
}

// RandomPointInRect returns a uniform point inside r, or world.InvalidPoint if r is empty.
func (s *Service) RandomPointInRect(r world.Rect) world.Point {
	if r.Empty() {
		return world.InvalidPoint
	}
	return s.randomPoint(r)
}

// WidgetPoint returns a random point inside a visible widget.
func (s *Service) WidgetPoint(id world.WidgetID) (world.Point, bool) {
	w, ok := s.world.Widget(id)
	if !ok || !w.Visible() {
		return world.InvalidPoint, false
	}
	return s.randomPoint(w.Bounds), true
}

// IsWidgetVisible reports whether the widget exists and is shown.
func (s *Service) IsWidgetVisible(id world.WidgetID) bool {
	w, ok := s.world.Widget(id)
	return ok && w.Visible()
}

// Intn returns a uniform int in [0, n).
func (s *Service) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *Service) randomPoint(r world.Rect) world.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return world.Point{
		X: r.X + s.rng.IntN(r.Width),
		Y: r.Y + s.rng.IntN(r.Height),
	}
}
