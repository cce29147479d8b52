package bot

import (
	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/world"
)

// Item, object and NPC ids used by the fishing and cooking tasks.
const (
	SmallFishingNetID = 303
	RawShrimpsID      = 317
	RawAnchoviesID    = 321
	NetFishingSpotID  = 1530
	LumbridgeRangeID  = 114
)

// FishingOptions configures a Fishing task.
type FishingOptions struct {
	// Area is the fishing spot cluster.
	Area world.WorldPoint
	// Cook cooks the catch on the range before banking it.
	Cook  bool
	Range world.WorldPoint
	Bank  world.WorldPoint
}

// DefaultFishingOptions net-fishes in the Lumbridge swamp, cooks in the
// castle kitchen and banks on the castle's top floor.
func DefaultFishingOptions() FishingOptions {
	return FishingOptions{
		Area:  world.NewWorldPoint(3241, 3149, 0),
		Cook:  true,
		Range: world.NewWorldPoint(3211, 3215, 0),
		Bank:  world.NewWorldPoint(3208, 3220, 2),
	}
}

var rawFishIDs = []int{RawShrimpsID, RawAnchoviesID}

type fishingState int

const (
	fishingIdle fishingState = iota
	fishingWalkingToFishing
	fishingFishing
	fishingWaitFishing
	fishingWalkingToCooking
	fishingWalkingToBank
	fishingDepositing
	fishingWaitingForSubtask
)

func (s fishingState) String() string {
	switch s {
	case fishingIdle:
		return "IDLE"
	case fishingWalkingToFishing:
		return "WALKING_TO_FISHING"
	case fishingFishing:
		return "FISHING"
	case fishingWaitFishing:
		return "WAIT_FISHING"
	case fishingWalkingToCooking:
		return "WALKING_TO_COOKING"
	case fishingWalkingToBank:
		return "WALKING_TO_BANK"
	case fishingDepositing:
		return "DEPOSITING"
	case fishingWaitingForSubtask:
		return "WAITING_FOR_SUBTASK"
	}
	return "UNKNOWN"
}

const (
	fishingAreaRadius = 5
	fishingIdleTicks  = 10
	bankRadius        = 5
)

// Fishing net-fishes until the inventory is full, then cooks and banks the
// catch. It never finishes on its own.
type Fishing struct {
	core[fishingState]

	opts    FishingOptions
	spot    world.NPC
	started bool
	idle    int

	// cooking is the last delegated cook; after it fails the catch is banked
	// raw until the next deposit.
	cooking  *Cooking
	skipCook bool
}

// NewFishing creates a fishing task.
func NewFishing(env *Env, opts FishingOptions) *Fishing {
	return &Fishing{
		core: newCore(env, "Fishing", fishingIdle),
		opts: opts,
	}
}

func (f *Fishing) Start() {
	f.track(events.On(f.env.Bus, f.onGameTick))
	f.log().Info("starting fishing", "area", f.opts.Area, "cook", f.opts.Cook)
	f.nextState()
}

func (f *Fishing) Loop() {
	if f.waiting() {
		return
	}

	switch f.state {
	case fishingWaitingForSubtask:
		if f.covered(f) {
			return
		}
		if f.cooking != nil && f.cooking.Failed() {
			f.log().Warn("cooking failed, banking the catch raw")
			f.skipCook = true
		}
		f.cooking = nil
		if f.resumed() {
			f.nextState()
		}
	case fishingWalkingToFishing:
		f.walkTo(f.opts.Area, fishingAreaRadius, fishingFishing)
	case fishingFishing:
		f.fish()
	case fishingWaitFishing:
		f.waitFishing()
	case fishingWalkingToCooking:
		f.walkToCooking()
	case fishingWalkingToBank:
		f.walkTo(f.opts.Bank, bankRadius, fishingDepositing)
	case fishingDepositing:
		f.log().Info("depositing catch")
		f.skipCook = false
		f.delegate(NewBank(f.env, BankOptions{Withdraw: []int{SmallFishingNetID}}))
		f.set(fishingWaitingForSubtask)
	}
}

func (f *Fishing) Stop() {
	f.untrack()
	f.log().Info("fishing stopped")
}

func (f *Fishing) Finished() bool { return false }

// nextState derives the state from the inventory, so a resumed task acts on
// the world as it is now.
func (f *Fishing) nextState() {
	full := f.env.Game.IsInventoryFull()
	switch {
	case full && f.cooks() && f.env.Game.HasItem(rawFishIDs...):
		f.set(fishingWalkingToCooking)
	case full:
		f.set(fishingWalkingToBank)
	case !f.env.Game.HasItem(SmallFishingNetID):
		f.log().Info("no fishing net, fetching one from the bank")
		f.set(fishingWalkingToBank)
	default:
		f.set(fishingWalkingToFishing)
	}
}

// walkTo moves on to next when within radius of dest, otherwise delegates the
// walk.
func (f *Fishing) walkTo(dest world.WorldPoint, radius int, next fishingState) {
	if f.location().DistanceTo(dest) <= radius {
		f.set(next)
		return
	}
	f.log().Info("walking", "to", dest)
	f.delegate(NewWalk(f.env, dest))
	f.set(fishingWaitingForSubtask)
}

func (f *Fishing) fish() {
	if f.env.Game.IsInventoryFull() {
		f.finishFishing()
		return
	}

	found := f.env.Game.FindNearest(func(it world.Interactable) bool {
		return it.Kind() == world.KindNPC && it.ID() == NetFishingSpotID
	})
	if found == nil {
		f.log().Info("no fishing spot found, waiting")
		f.wait(2, 5)
		return
	}
	p := f.env.Game.RandomClickablePoint(found)
	if !p.Valid() {
		f.wait(1, 2)
		return
	}

	f.env.Actions.SendClickRequest(p, true)
	f.spot = found.(world.NPCEntity).NPC
	f.started, f.idle = false, 0
	f.log().Info("fishing", "spot", f.spot.Index, "location", f.spot.Location)
	f.set(fishingWaitFishing)
	f.wait(2, 3)
}

func (f *Fishing) waitFishing() {
	if f.env.Game.IsCurrentlyFishing() || f.env.Game.World().PlayerTarget() == f.spot.Index {
		f.started, f.idle = true, 0
		return
	}
	f.idle++
	if f.idle > fishingIdleTicks {
		f.log().Info("stopped fishing", "started", f.started)
		f.set(fishingFishing)
	}
}

func (f *Fishing) cooks() bool {
	return f.opts.Cook && !f.skipCook
}

func (f *Fishing) finishFishing() {
	if f.cooks() {
		f.set(fishingWalkingToCooking)
		return
	}
	f.set(fishingWalkingToBank)
}

func (f *Fishing) walkToCooking() {
	if !f.cooks() || !f.env.Game.HasItem(rawFishIDs...) {
		f.set(fishingWalkingToBank)
		return
	}
	if f.location().DistanceTo(f.opts.Range) > rangeRadius {
		f.log().Info("walking to range", "range", f.opts.Range)
		f.delegate(NewWalk(f.env, f.opts.Range))
		f.set(fishingWaitingForSubtask)
		return
	}
	f.cooking = NewCooking(f.env, CookingOptions{
		Range:   f.opts.Range,
		RangeID: LumbridgeRangeID,
		RawIDs:  rawFishIDs,
	})
	f.delegate(f.cooking)
	f.set(fishingWaitingForSubtask)
}

func (f *Fishing) onGameTick(events.GameTickEvent) {
	if f.state == fishingWaitFishing && f.env.Game.IsInventoryFull() {
		f.log().Info("inventory full")
		f.finishFishing()
	}
}
