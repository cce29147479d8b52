package bot

import "github.com/aristath/runebot/internal/world"

// CookingOptions configures a Cooking task.
type CookingOptions struct {
	Range   world.WorldPoint
	RangeID int
	RawIDs  []int
}

// DefaultCookingOptions cooks shrimps and anchovies on the Lumbridge range.
func DefaultCookingOptions() CookingOptions {
	return CookingOptions{
		Range:   world.NewWorldPoint(3211, 3215, 0),
		RangeID: LumbridgeRangeID,
		RawIDs:  []int{RawShrimpsID, RawAnchoviesID},
	}
}

type cookingState int

const (
	cookingIdle cookingState = iota
	cookingWalkingToRange
	cookingCooking
	cookingWaitCooking
	cookingWaitingForSubtask
	cookingFinished
)

func (s cookingState) String() string {
	switch s {
	case cookingIdle:
		return "IDLE"
	case cookingWalkingToRange:
		return "WALKING_TO_RANGE"
	case cookingCooking:
		return "COOKING"
	case cookingWaitCooking:
		return "WAIT_COOKING"
	case cookingWaitingForSubtask:
		return "WAITING_FOR_SUBTASK"
	case cookingFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

const (
	rangeRadius         = 10
	cookingIdleTicks    = 3
	cookingTimeoutTicks = 30
	cookingMaxAttempts  = 5
)

// Cooking cooks every raw item in the inventory on a range and finishes when
// none are left.
type Cooking struct {
	core[cookingState]

	opts     CookingOptions
	walked   bool
	started  bool
	spaced   bool
	idle     int
	attempts int
	failed   bool
}

// NewCooking creates a cooking task.
func NewCooking(env *Env, opts CookingOptions) *Cooking {
	return &Cooking{
		core: newCore(env, "Cooking", cookingIdle),
		opts: opts,
	}
}

func (c *Cooking) Start() {
	c.log().Info("starting cooking", "range", c.opts.Range, "raw", c.env.Game.CountItem(c.opts.RawIDs...))
	c.set(cookingWalkingToRange)
}

func (c *Cooking) Loop() {
	if c.waiting() {
		return
	}

	switch c.state {
	case cookingWalkingToRange:
		c.walkToRange()
	case cookingWaitingForSubtask:
		if !c.covered(c) && c.resumed() {
			c.set(cookingWalkingToRange)
		}
	case cookingCooking:
		c.cook()
	case cookingWaitCooking:
		c.waitCooking()
	}
}

func (c *Cooking) Stop() {
	c.untrack()
	c.log().Info("cooking stopped")
}

func (c *Cooking) Finished() bool {
	return c.state == cookingFinished
}

// Failed reports whether the task gave up with raw items left: the range was
// out of reach or every cooking attempt was used up.
func (c *Cooking) Failed() bool {
	return c.failed
}

func (c *Cooking) giveUp() {
	c.failed = true
	c.set(cookingFinished)
}

func (c *Cooking) nearRange() bool {
	return c.opts.Range.IsZero() || c.location().DistanceTo(c.opts.Range) <= rangeRadius
}

func (c *Cooking) walkToRange() {
	switch {
	case c.nearRange():
		c.set(cookingCooking)
	case !c.walked:
		c.walked = true
		c.log().Info("walking to range", "range", c.opts.Range)
		c.delegate(NewWalk(c.env, c.opts.Range))
		c.set(cookingWaitingForSubtask)
	default:
		c.log().Warn("could not reach range")
		c.giveUp()
	}
}

func (c *Cooking) cook() {
	if !c.env.Game.HasItem(c.opts.RawIDs...) {
		c.log().Info("nothing left to cook")
		c.set(cookingFinished)
		return
	}
	if c.attempts >= cookingMaxAttempts {
		c.log().Warn("giving up on cooking", "attempts", c.attempts)
		c.giveUp()
		return
	}

	stove, ok := c.env.Game.FindNearestObject(c.opts.RangeID)
	if !ok {
		c.attempts++
		c.log().Warn("range not found", "range", c.opts.RangeID)
		c.wait(1, 2)
		return
	}
	if !c.env.Actions.InteractWithGameObject(stove, "Cook") {
		c.attempts++
		c.wait(1, 2)
		return
	}
	c.attempts++
	c.started, c.spaced, c.idle = false, false, 0
	c.set(cookingWaitCooking)
	c.wait(2, 3)
}

// waitCooking confirms the make-all prompt with the spacebar when cooking
// does not start on its own, and finishes once the animation stops.
func (c *Cooking) waitCooking() {
	if c.env.Game.IsCurrentlyCooking() {
		if !c.started {
			c.log().Info("cooking started")
		}
		c.started, c.idle, c.attempts = true, 0, 0
		return
	}

	c.idle++
	switch {
	case c.started && c.idle > cookingIdleTicks:
		c.log().Info("cooking stopped")
		c.finishCooking()
	case !c.started && !c.spaced && c.idle > cookingIdleTicks:
		c.log().Debug("confirming cook prompt")
		c.env.Actions.PressSpacebar()
		c.spaced = true
	case c.idle > cookingTimeoutTicks:
		c.log().Warn("cooking did not start", "idle_ticks", c.idle)
		c.finishCooking()
	}
}

func (c *Cooking) finishCooking() {
	if c.env.Game.HasItem(c.opts.RawIDs...) {
		c.set(cookingCooking)
		return
	}
	c.log().Info("all food cooked")
	c.set(cookingFinished)
}
