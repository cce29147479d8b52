package bot

import (
	"slices"
	"strings"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/game"
	"github.com/aristath/runebot/internal/scheduler"
	"github.com/aristath/runebot/internal/world"
)

// Rock is an ore and the rock objects that yield it.
type Rock struct {
	Name    string
	OreID   int
	RockIDs []int
}

// Rocks lists the supported rock types.
var Rocks = []Rock{
	{Name: "copper", OreID: 436, RockIDs: []int{10943, 11161}},
	{Name: "tin", OreID: 438, RockIDs: []int{11360, 11361}},
	{Name: "iron", OreID: 440, RockIDs: []int{11364, 11365, 11366}},
	{Name: "coal", OreID: 453, RockIDs: []int{11366, 11367}},
	{Name: "mithril", OreID: 447, RockIDs: []int{11370, 11371}},
	{Name: "adamantite", OreID: 449, RockIDs: []int{11372, 11373}},
	{Name: "runite", OreID: 451, RockIDs: []int{11374, 11375}},
}

// RockByName looks a rock type up case-insensitively.
func RockByName(name string) (Rock, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range Rocks {
		if r.Name == name {
			return r, true
		}
	}
	return Rock{}, false
}

// MiningMode selects what happens to a full inventory of ore.
type MiningMode string

const (
	MiningBank  MiningMode = "bank"
	MiningPower MiningMode = "power"
)

// MiningOptions configures a Mining task.
type MiningOptions struct {
	Rocks []string
	Mode  MiningMode
	// Mine is where the rocks are. The task walks there first when the player
	// is more than 10 tiles away. A zero point disables the walk.
	Mine world.WorldPoint
	// Bank is the tile next to the booth used in bank mode.
	Bank world.WorldPoint
	// HoverNextRock moves the cursor onto the next rock while the current one
	// is being mined.
	HoverNextRock bool
}

// DefaultMiningOptions mines copper and tin south-east of Varrock and banks
// at Varrock east.
func DefaultMiningOptions() MiningOptions {
	return MiningOptions{
		Rocks: []string{"copper", "tin"},
		Mode:  MiningBank,
		Mine:  world.NewWorldPoint(3285, 3365, 0),
		Bank:  world.NewWorldPoint(3253, 3420, 0),
	}
}

type miningState int

const (
	miningIdle miningState = iota
	miningFindingRock
	miningMining
	miningWaitMining
	miningHoverNextRock
	miningCheckInventory
	miningDropping
	miningWaitingForSubtask
)

func (s miningState) String() string {
	switch s {
	case miningIdle:
		return "IDLE"
	case miningFindingRock:
		return "FINDING_ROCK"
	case miningMining:
		return "MINING"
	case miningWaitMining:
		return "WAIT_MINING"
	case miningHoverNextRock:
		return "HOVER_NEXT_ROCK"
	case miningCheckInventory:
		return "CHECK_INVENTORY"
	case miningDropping:
		return "DROPPING"
	case miningWaitingForSubtask:
		return "WAITING_FOR_SUBTASK"
	}
	return "UNKNOWN"
}

const (
	mineRadius      = 10
	miningIdleTicks = 5
)

// Mining mines the configured rocks and banks or drops the ore when the
// inventory fills up. It never finishes on its own.
type Mining struct {
	core[miningState]

	opts    MiningOptions
	rockIDs []int
	oreIDs  []int

	target    world.GameObject
	next      world.GameObject
	hasNext   bool
	started   bool
	finishing bool
	idle      int
	lastXP    int
}

// NewMining creates a mining task. Unknown rock names are ignored.
func NewMining(env *Env, opts MiningOptions) *Mining {
	m := &Mining{
		core: newCore(env, "Mining", miningIdle),
		opts: opts,
	}
	for _, name := range opts.Rocks {
		rock, ok := RockByName(name)
		if !ok {
			m.logger.Warn("unknown rock type", "rock", name)
			continue
		}
		m.oreIDs = append(m.oreIDs, rock.OreID)
		for _, id := range rock.RockIDs {
			if !slices.Contains(m.rockIDs, id) {
				m.rockIDs = append(m.rockIDs, id)
			}
		}
	}
	return m
}

func (m *Mining) Start() {
	m.track(events.On(m.env.Bus, m.onStatChanged))
	m.track(events.On(m.env.Bus, m.onAnimationChanged))

	if len(m.rockIDs) == 0 {
		m.log().Error("no rock types configured, stopping bot")
		m.env.stop("mining: no rock types configured")
		return
	}
	m.lastXP = m.env.Game.SkillXP(world.SkillMining)
	m.log().Info("starting mining", "rocks", m.opts.Rocks, "mode", string(m.opts.Mode))

	if m.farFromMine() {
		m.log().Info("walking to mine", "mine", m.opts.Mine)
		m.delegate(NewWalk(m.env, m.opts.Mine))
		m.set(miningWaitingForSubtask)
		return
	}
	m.set(miningFindingRock)
}

func (m *Mining) Loop() {
	if m.waiting() {
		return
	}

	switch m.state {
	case miningWaitingForSubtask:
		if !m.covered(m) && m.resumed() {
			m.resume()
		}
	case miningFindingRock:
		m.findRock()
	case miningMining:
		m.mine()
	case miningWaitMining:
		m.waitMining()
	case miningHoverNextRock:
		m.hoverNextRock()
	case miningCheckInventory:
		m.checkInventory()
	case miningDropping:
		if !m.env.Actions.IsDropping() {
			m.log().Info("finished dropping")
			m.set(miningFindingRock)
			m.wait(1, 2)
		}
	}
}

func (m *Mining) Stop() {
	m.untrack()
	m.log().Info("mining stopped")
}

func (m *Mining) Finished() bool { return false }

func (m *Mining) farFromMine() bool {
	return !m.opts.Mine.IsZero() && m.location().DistanceTo(m.opts.Mine) > mineRadius
}

// resume picks the next state from the world after a subtask returned.
func (m *Mining) resume() {
	switch {
	case m.env.Game.IsInventoryFull():
		m.set(miningCheckInventory)
	case m.farFromMine():
		m.log().Info("not at mine, walking back", "mine", m.opts.Mine)
		m.delegate(NewWalk(m.env, m.opts.Mine))
	default:
		m.set(miningFindingRock)
	}
}

func (m *Mining) findRock() {
	if m.env.Game.IsInventoryFull() {
		m.set(miningCheckInventory)
		return
	}

	rock, ok := m.hoveredRock()
	if !ok {
		rock, ok = m.env.Game.FindNearestObject(m.rockIDs...)
	}
	m.hasNext = false
	if !ok {
		m.log().Info("no rock found, waiting")
		m.wait(10, 20)
		return
	}

	m.target = rock
	m.log().Info("found rock", "rock", rock.ID, "location", rock.Location)
	m.set(miningMining)
}

// hoveredRock returns the pre-targeted rock if it still holds ore.
func (m *Mining) hoveredRock() (world.GameObject, bool) {
	if !m.hasNext {
		return world.GameObject{}, false
	}
	return m.env.Game.FindNearestObjectWhere(func(o world.GameObject) bool {
		return o.Location == m.next.Location && slices.Contains(m.rockIDs, o.ID)
	})
}

func (m *Mining) mine() {
	if !m.env.Actions.InteractWithGameObject(m.target, "Mine") {
		m.log().Warn("could not interact with rock", "rock", m.target.ID)
		m.set(miningFindingRock)
		m.wait(1, 3)
		return
	}
	m.started, m.finishing, m.idle = false, false, 0
	m.lastXP = m.env.Game.SkillXP(world.SkillMining)
	m.set(miningWaitMining)
	m.wait(3, 5)
}

func (m *Mining) waitMining() {
	if m.finishing {
		m.finishMining()
		return
	}
	if m.env.Game.IsCurrentlyMining() {
		m.idle = 0
		if !m.started {
			m.started = true
			if m.opts.HoverNextRock {
				m.set(miningHoverNextRock)
			}
		}
		return
	}

	m.idle++
	if m.idle > miningIdleTicks {
		m.log().Info("player idle, rock finished", "idle_ticks", m.idle)
		m.finishMining()
	}
}

func (m *Mining) hoverNextRock() {
	m.set(miningWaitMining)
	rock, ok := m.pickNextRock()
	if !ok {
		return
	}
	p := m.env.Game.RandomClickablePoint(world.ObjectEntity{Object: rock})
	if !p.Valid() {
		return
	}
	m.next, m.hasNext = rock, true
	m.log().Debug("hovering next rock", "rock", rock.ID, "location", rock.Location)
	m.env.Actions.SendMouseMoveRequest(p)
}

// pickNextRock prefers a rock directly north, south, east or west of the
// player, otherwise the nearest rock other than the current target.
func (m *Mining) pickNextRock() (world.GameObject, bool) {
	loc := m.location()
	candidate := func(o world.GameObject) bool {
		return slices.Contains(m.rockIDs, o.ID) && o.Location != m.target.Location
	}
	if rock, ok := m.env.Game.FindNearestObjectWhere(func(o world.GameObject) bool {
		dx, dy := o.Location.X-loc.X, o.Location.Y-loc.Y
		return candidate(o) && o.Location.Plane == loc.Plane && dx*dx+dy*dy == 1
	}); ok {
		return rock, true
	}
	return m.env.Game.FindNearestObjectWhere(candidate)
}

func (m *Mining) finishMining() {
	m.finishing = false
	m.set(miningCheckInventory)
	m.checkInventory()
}

func (m *Mining) checkInventory() {
	if !m.env.Game.IsInventoryFull() {
		m.set(miningFindingRock)
		return
	}

	if m.opts.Mode == MiningPower {
		m.log().Info("inventory full, dropping ore")
		m.env.Actions.PowerDrop(m.oreIDs)
		m.set(miningDropping)
		return
	}

	m.log().Info("inventory full, banking", "bank", m.opts.Bank)
	tasks := []scheduler.Task{NewWalk(m.env, m.location()), NewBank(m.env, BankOptions{})}
	if !m.opts.Bank.IsZero() {
		tasks = append(tasks, NewWalk(m.env, m.opts.Bank))
	}
	m.delegate(tasks...)
	m.set(miningWaitingForSubtask)
}

func (m *Mining) onStatChanged(e events.StatChangedEvent) {
	if e.Skill != world.SkillMining {
		return
	}
	gained := e.XP > m.lastXP
	m.lastXP = e.XP
	if !gained || m.state != miningWaitMining || m.finishing {
		return
	}
	m.log().Info("mining xp gained", "xp", e.XP)
	m.finishing = true
	m.wait(1, 2)
}

func (m *Mining) onAnimationChanged(e events.AnimationChangedEvent) {
	if m.state != miningWaitMining || !m.started || m.finishing {
		return
	}
	if !game.IsMiningAnimation(e.Animation) {
		m.log().Debug("mining animation ended", "animation", e.Animation)
		m.finishing = true
	}
}
