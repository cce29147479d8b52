package bot

import (
	"slices"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/pathfinding"
	"github.com/aristath/runebot/internal/world"
)

type walkState int

const (
	walkIdle walkState = iota
	walkCalculatingPath
	walkWalking
	walkExecutingTeleport
	walkOpeningDoor
	walkUsingStairs
	walkWaitingForTransport
	walkFinished
	walkFailed
)

func (s walkState) String() string {
	switch s {
	case walkIdle:
		return "IDLE"
	case walkCalculatingPath:
		return "CALCULATING_PATH"
	case walkWalking:
		return "WALKING"
	case walkExecutingTeleport:
		return "EXECUTING_TELEPORT"
	case walkOpeningDoor:
		return "OPENING_DOOR"
	case walkUsingStairs:
		return "USING_STAIRS"
	case walkWaitingForTransport:
		return "WAITING_FOR_TRANSPORT"
	case walkFinished:
		return "FINISHED"
	case walkFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

const (
	walkRetryLimit        = 5  // consecutive failures before the path is recalculated
	walkMaxPaths          = 10 // path computations before the walk gives up
	walkLookahead         = 15 // path points inspected ahead of the current index
	teleportArrival       = 5
	teleportTimeoutTicks  = 50
	transportTimeoutTicks = 10
)

// pathStep is a transport the walk is currently taking.
type pathStep struct {
	at     int // path index of the step's origin
	kind   StepKind
	from   world.WorldPoint
	to     world.WorldPoint
	object world.GameObject
	action string
	spell  string
	opened bool
	cast   bool
}

// Walk moves the player to a destination along a planned route, opening
// doors, climbing stairs and casting teleports on the way.
type Walk struct {
	core[walkState]

	dest    world.WorldPoint
	job     *pathfinding.Job
	path    []world.WorldPoint
	index   int
	retries int
	paths   int
	step    *pathStep
	ticks   int
}

// NewWalk creates a task that walks to dest.
func NewWalk(env *Env, dest world.WorldPoint) *Walk {
	return &Walk{
		core: newCore(env, "Walk to "+dest.String(), walkIdle),
		dest: dest,
	}
}

// Destination returns the tile the walk heads for.
func (w *Walk) Destination() world.WorldPoint { return w.dest }

// Path returns the current route, or nil before it is calculated.
func (w *Walk) Path() []world.WorldPoint { return w.path }

func (w *Walk) Start() {
	w.log().Info("starting walk", "from", w.location(), "to", w.dest)
	w.track(events.On(w.env.Bus, w.onInteractionCompleted))
}

func (w *Walk) Loop() {
	if w.waiting() {
		return
	}

	switch w.state {
	case walkIdle:
		w.calculatePath()
	case walkCalculatingPath:
		w.checkPath()
	case walkWalking:
		w.walk()
	case walkExecutingTeleport:
		w.teleport()
	case walkOpeningDoor:
		w.openDoor()
	case walkUsingStairs:
		w.interactStep("could not use staircase")
	case walkWaitingForTransport:
		w.waitTransport()
	}
}

func (w *Walk) Stop() {
	if w.job != nil {
		w.job.Cancel()
		w.job = nil
	}
	w.untrack()
	w.log().Info("walk stopped")
}

func (w *Walk) Finished() bool {
	return w.state == walkFinished || w.state == walkFailed
}

// Failed reports whether the walk gave up before reaching its destination.
func (w *Walk) Failed() bool {
	return w.state == walkFailed
}

func (w *Walk) calculatePath() {
	start := w.location()
	if start == w.dest {
		w.log().Info("already at destination")
		w.set(walkFinished)
		return
	}
	if w.env.Planner == nil {
		w.log().Error("no route planner configured")
		w.set(walkFailed)
		return
	}
	if w.paths >= walkMaxPaths {
		w.log().Warn("giving up after repeated path calculations", "attempts", w.paths)
		w.set(walkFailed)
		return
	}

	w.paths++
	w.log().Info("calculating path", "from", start, "to", w.dest)
	w.job = pathfinding.StartJob(w.env.Planner, start, w.dest, w.env.PathTimeout)
	w.set(walkCalculatingPath)
}

func (w *Walk) checkPath() {
	if !w.job.Done() {
		return
	}
	path, err := w.job.Result()
	w.job = nil
	if err != nil || len(path) == 0 {
		w.log().Warn("no path found", "to", w.dest, "error", err)
		w.set(walkFailed)
		return
	}

	w.path, w.index, w.retries = path, 0, 0
	w.log().Info("path calculated", "steps", len(path))
	w.set(walkWalking)
}

func (w *Walk) walk() {
	if _, moving := w.env.Game.World().PlayerDestination(); moving {
		return
	}

	loc := w.location()
	if loc == w.dest {
		w.log().Info("arrived at destination")
		w.set(walkFinished)
		return
	}
	if w.index >= len(w.path) {
		w.log().Warn("reached end of path but not at destination, recalculating")
		w.set(walkIdle)
		return
	}

	w.updatePathIndex(loc)

	end, kind := w.segmentEnd()
	if kind != StepWalk && end < w.index+walkLookahead {
		w.approach(loc, &pathStep{at: end, kind: kind, from: w.path[end], to: w.path[end+1]})
		return
	}
	w.walkToward(w.nextMinimapTarget(loc, end))
}

// segmentEnd returns the index of the first path point that starts a
// transport step, or the last index when the rest of the path is walkable.
func (w *Walk) segmentEnd() (int, StepKind) {
	src := w.env.Game.World()
	for i := w.index; i < len(w.path)-1; i++ {
		if kind := ClassifyStep(src, w.path[i], w.path[i+1]); kind != StepWalk {
			return i, kind
		}
	}
	return len(w.path) - 1, StepWalk
}

// updatePathIndex advances the index to the closest upcoming path point when
// the player is clearly past the current one.
func (w *Walk) updatePathIndex(loc world.WorldPoint) {
	closest, closestDist := w.index, world.MaxDistance
	for i := w.index; i < min(w.index+walkLookahead, len(w.path)); i++ {
		if d := w.path[i].DistanceTo(loc); d < closestDist {
			closest, closestDist = i, d
		}
	}
	if (closestDist <= 2 && closest > w.index) || (closestDist <= 5 && closest > w.index+3) {
		w.log().Debug("path index advanced", "from", w.index, "to", closest)
		w.index = closest
	}
}

// nextMinimapTarget picks the farthest path point up to end that is drawn on
// the minimap and more than one tile away.
func (w *Walk) nextMinimapTarget(loc world.WorldPoint, end int) world.WorldPoint {
	q := w.env.Game.World()
	for i := end; i >= w.index; i-- {
		p := w.path[i]
		if loc.DistanceTo(p) <= 1 {
			continue
		}
		if _, ok := q.MinimapPoint(p); ok {
			return p
		}
	}
	if w.index+1 <= end {
		return w.path[w.index+1]
	}
	return w.path[w.index]
}

func (w *Walk) walkToward(p world.WorldPoint) {
	w.walkTo(p)
	w.delay = w.env.Human.Custom(6, 2, 2)
}

func (w *Walk) walkTo(p world.WorldPoint) {
	mp, ok := w.env.Game.World().MinimapPoint(p)
	if !ok {
		w.retry("walk target not on minimap", "target", p)
		return
	}
	if !w.env.Actions.SendClickRequest(mp, true) {
		w.retry("walk click failed", "target", p)
		return
	}
	w.retries = 0
	w.log().Debug("walking", "target", p, "minimap", mp)
}

// retry records a failed attempt. After walkRetryLimit consecutive failures
// the path is recalculated, otherwise walking resumes.
func (w *Walk) retry(msg string, args ...any) {
	w.retries++
	w.log().Warn(msg, append(args, "retries", w.retries)...)
	w.step = nil
	if w.retries >= walkRetryLimit {
		w.log().Warn("too many failed attempts, recalculating path")
		w.retries = 0
		w.set(walkIdle)
		return
	}
	w.set(walkWalking)
}

// approach walks up to a transport's origin, then hands it to the matching
// transport state.
func (w *Walk) approach(loc world.WorldPoint, step *pathStep) {
	switch step.kind {
	case StepTeleport:
		if step.spell = w.spellFor(step); step.spell == "" {
			w.log().Warn("no teleport spell reaches destination", "to", step.to)
			w.set(walkFailed)
			return
		}
		if loc.DistanceTo(step.from) > 2 {
			w.walkToward(step.from)
			return
		}
		w.log().Info("executing teleport", "spell", step.spell, "to", step.to)
		w.begin(step, walkExecutingTeleport)

	case StepStairs:
		if loc.DistanceTo(step.from) > 2 {
			w.walkToward(step.from)
			return
		}
		obj, action, ok := w.stairsFor(step)
		if !ok {
			w.retry("staircase not found", "at", step.from)
			return
		}
		step.object, step.action = obj, action
		w.log().Info("using staircase", "object", obj.ID, "action", action)
		w.begin(step, walkUsingStairs)
		w.wait(1, 5)

	case StepDoor:
		if loc.DistanceTo(step.from) > 1 {
			w.walkToward(step.from)
			return
		}
		obj, action, ok := w.doorFor(step)
		if !ok {
			w.retry("door not found", "at", step.from)
			return
		}
		step.object, step.action = obj, action
		w.log().Info("door blocking path", "object", obj.ID, "from", step.from, "to", step.to)
		w.begin(step, walkOpeningDoor)
		w.wait(1, 5)
	}
}

func (w *Walk) begin(step *pathStep, next walkState) {
	w.step = step
	w.ticks = 0
	w.set(next)
}

// arrive completes the current transport and resumes walking from its
// destination.
func (w *Walk) arrive() {
	w.index = min(w.step.at+1, len(w.path)-1)
	w.step = nil
	w.retries = 0
	w.set(walkWalking)
}

func (w *Walk) teleport() {
	step := w.step
	w.ticks++

	if loc := w.location(); loc.DistanceTo(step.to) <= teleportArrival {
		w.log().Info("teleport completed", "spell", step.spell, "arrived", loc)
		w.arrive()
		return
	}
	if w.ticks > teleportTimeoutTicks {
		w.retry("teleport timed out", "spell", step.spell)
		return
	}

	switch {
	case !step.opened:
		w.env.Actions.OpenMagicInterface()
		step.opened = true
		w.wait(2, 3)
	case !step.cast:
		if !w.env.Actions.CastSpell(step.spell) {
			w.log().Warn("could not cast teleport, reopening spellbook", "spell", step.spell)
			step.opened = false
			return
		}
		step.cast = true
		w.wait(2, 5)
	}
}

func (w *Walk) openDoor() {
	step := w.step
	if !step.object.Wall {
		w.interactStep("could not open door")
		return
	}
	if !w.env.Actions.InteractWithWallObject(step.object, step.action) {
		w.retry("could not click door", "object", step.object.ID)
		return
	}
	w.log().Info("clicked door", "object", step.object.ID)
	w.doorClicked()
	w.wait(0, 2)
}

// doorClicked resumes walking after a door interaction. Whether the door
// opened shows in the collision flags on the next walk, so every click counts
// as an attempt until the player moves on.
func (w *Walk) doorClicked() {
	w.step = nil
	w.retries++
	if w.retries >= walkRetryLimit {
		w.log().Warn("door still closed, recalculating path")
		w.retries = 0
		w.set(walkIdle)
		return
	}
	w.set(walkWalking)
}

// interactStep runs the hover-and-click interaction for the current
// transport object and waits for it to take effect.
func (w *Walk) interactStep(failure string) {
	if w.env.Actions.IsInteracting() {
		return
	}
	if !w.env.Actions.InteractWithGameObject(w.step.object, w.step.action) {
		w.retry(failure, "object", w.step.object.ID)
		return
	}
	w.ticks = 0
	w.set(walkWaitingForTransport)
}

func (w *Walk) waitTransport() {
	w.ticks++
	loc := w.location()
	switch {
	case w.step.kind == StepStairs && loc.DistanceTo(w.step.to) <= 2:
		w.log().Info("changed plane", "plane", loc.Plane)
		w.arrive()
		w.delay = w.env.Human.Short()
	case w.ticks > transportTimeoutTicks:
		w.retry("transport did not complete", "kind", w.step.kind.String())
	}
}

func (w *Walk) onInteractionCompleted(e events.InteractionCompletedEvent) {
	if w.state != walkWaitingForTransport || w.step == nil {
		return
	}
	if e.Subject == nil || e.Subject.ID() != w.step.object.ID {
		return
	}
	if !e.Success {
		w.retry("transport interaction failed", "reason", e.FailureReason)
		return
	}
	if w.step.kind == StepDoor {
		w.log().Info("door opened", "object", w.step.object.ID)
		w.doorClicked()
		w.delay = w.env.Human.Short()
	}
}

func (w *Walk) spellFor(step *pathStep) string {
	if tr, ok := w.env.Transports.Between(step.from, step.to); ok && tr.Spell != "" {
		return tr.Spell
	}
	return TeleportSpell(step.to)
}

func (w *Walk) stairsFor(step *pathStep) (world.GameObject, string, bool) {
	if tr, ok := w.env.Transports.Between(step.from, step.to); ok && tr.ObjectID != 0 {
		if obj, found := w.objectNear(step.from, 2, tr.ObjectID); found {
			action := tr.Action
			if action == "" {
				action = climbAction(step.from, step.to)
			}
			return obj, action, true
		}
	}
	obj, found := w.objectNear(step.from, 2, StairIDs...)
	return obj, climbAction(step.from, step.to), found
}

func (w *Walk) doorFor(step *pathStep) (world.GameObject, string, bool) {
	if tr, ok := w.env.Transports.Between(step.from, step.to); ok && tr.ObjectID != 0 {
		if obj, found := w.objectNear(step.to, 1, tr.ObjectID); found {
			action := tr.Action
			if action == "" {
				action = "Open"
			}
			return obj, action, true
		}
	}
	obj, found := w.env.Game.FindNearestObjectWhere(func(o world.GameObject) bool {
		near := o.Location.DistanceTo(step.from) <= 1 || o.Location.DistanceTo(step.to) <= 1
		return near && isDoor(o)
	})
	return obj, "Open", found
}

func (w *Walk) objectNear(p world.WorldPoint, radius int, ids ...int) (world.GameObject, bool) {
	return w.env.Game.FindNearestObjectWhere(func(o world.GameObject) bool {
		return slices.Contains(ids, o.ID) && o.Location.DistanceTo(p) <= radius
	})
}
