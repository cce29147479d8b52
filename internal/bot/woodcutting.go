package bot

import (
	"slices"
	"strings"

	"github.com/aristath/runebot/internal/events"
	"github.com/aristath/runebot/internal/scheduler"
	"github.com/aristath/runebot/internal/world"
)

// Tree is a tree type and the log it yields.
type Tree struct {
	Name    string
	LogID   int
	TreeIDs []int
}

// Trees lists the supported tree types.
var Trees = []Tree{
	{Name: "tree", LogID: 1511, TreeIDs: []int{1276, 1277, 1278, 1279, 1280}},
	{Name: "oak", LogID: 1521, TreeIDs: []int{1281, 4540, 10820}},
	{Name: "willow", LogID: 1519, TreeIDs: []int{1308, 10829, 10831, 10833}},
	{Name: "maple", LogID: 1517, TreeIDs: []int{1307, 10832, 36681}},
	{Name: "yew", LogID: 1515, TreeIDs: []int{1309, 10823, 36683}},
	{Name: "magic", LogID: 1513, TreeIDs: []int{1306, 10834, 10835}},
	{Name: "teak", LogID: 6333, TreeIDs: []int{36686}},
	{Name: "mahogany", LogID: 6332, TreeIDs: []int{36688}},
}

// TreeByName looks a tree type up case-insensitively.
func TreeByName(name string) (Tree, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Trees {
		if t.Name == name {
			return t, true
		}
	}
	return Tree{}, false
}

// WoodcuttingMode selects what happens to a full inventory of logs.
type WoodcuttingMode string

const (
	WoodcuttingBank  WoodcuttingMode = "bank"
	WoodcuttingPower WoodcuttingMode = "power"
)

// WoodcuttingOptions configures a Woodcutting task.
type WoodcuttingOptions struct {
	Trees []string
	Mode  WoodcuttingMode
	// Grove is where the trees are. A zero point disables the walk there.
	Grove world.WorldPoint
	// Bank is the tile next to the booth used in bank mode.
	Bank world.WorldPoint
	// HoverNextTree moves the cursor onto the next tree once the axe swings.
	HoverNextTree bool
}

// DefaultWoodcuttingOptions power-chops oaks east of Varrock.
func DefaultWoodcuttingOptions() WoodcuttingOptions {
	return WoodcuttingOptions{
		Trees:         []string{"oak"},
		Mode:          WoodcuttingPower,
		Grove:         world.NewWorldPoint(3290, 3360, 0),
		Bank:          world.NewWorldPoint(3253, 3420, 0),
		HoverNextTree: true,
	}
}

type woodcuttingState int

const (
	woodcuttingIdle woodcuttingState = iota
	woodcuttingFindingTree
	woodcuttingCutting
	woodcuttingWaitCutting
	woodcuttingHoverNextTree
	woodcuttingCheckInventory
	woodcuttingDropping
	woodcuttingWaitingForSubtask
)

func (s woodcuttingState) String() string {
	switch s {
	case woodcuttingIdle:
		return "IDLE"
	case woodcuttingFindingTree:
		return "FINDING_TREE"
	case woodcuttingCutting:
		return "CUTTING"
	case woodcuttingWaitCutting:
		return "WAIT_CUTTING"
	case woodcuttingHoverNextTree:
		return "HOVER_NEXT_TREE"
	case woodcuttingCheckInventory:
		return "CHECK_INVENTORY"
	case woodcuttingDropping:
		return "DROPPING"
	case woodcuttingWaitingForSubtask:
		return "WAITING_FOR_SUBTASK"
	}
	return "UNKNOWN"
}

const (
	groveRadius = 10
	// hoverReach is how far a pre-targeted tree may be from the player and
	// still be clicked next.
	hoverReach           = 20
	woodcuttingIdleTicks = 5
)

// Woodcutting chops the configured trees until the inventory is full, then
// banks or drops the logs. A tree keeps yielding logs until it falls, so the
// task only moves on once the axe has stopped swinging. It never finishes on
// its own.
type Woodcutting struct {
	core[woodcuttingState]

	opts    WoodcuttingOptions
	treeIDs []int
	logIDs  []int

	target  world.GameObject
	next    world.GameObject
	hasNext bool
	swung   bool
	idle    int
	lastXP  int
	logs    int
}

// NewWoodcutting creates a woodcutting task. Unknown tree names are ignored.
func NewWoodcutting(env *Env, opts WoodcuttingOptions) *Woodcutting {
	w := &Woodcutting{
		core: newCore(env, "Woodcutting", woodcuttingIdle),
		opts: opts,
	}
	for _, name := range opts.Trees {
		tree, ok := TreeByName(name)
		if !ok {
			w.logger.Warn("unknown tree type", "tree", name)
			continue
		}
		if !slices.Contains(w.logIDs, tree.LogID) {
			w.logIDs = append(w.logIDs, tree.LogID)
		}
		w.treeIDs = append(w.treeIDs, tree.TreeIDs...)
	}
	return w
}

func (w *Woodcutting) Start() {
	w.track(events.On(w.env.Bus, w.onStatChanged))

	if len(w.treeIDs) == 0 {
		w.log().Error("no tree types configured, stopping bot")
		w.env.stop("woodcutting: no tree types configured")
		return
	}
	w.lastXP = w.env.Game.SkillXP(world.SkillWoodcutting)
	w.log().Info("starting woodcutting", "trees", w.opts.Trees, "mode", string(w.opts.Mode))

	if w.farFromGrove() {
		w.log().Info("walking to trees", "grove", w.opts.Grove)
		w.delegate(NewWalk(w.env, w.opts.Grove))
		w.set(woodcuttingWaitingForSubtask)
		return
	}
	w.set(woodcuttingFindingTree)
}

func (w *Woodcutting) Loop() {
	if w.waiting() {
		return
	}

	switch w.state {
	case woodcuttingWaitingForSubtask:
		if !w.covered(w) && w.resumed() {
			w.resume()
		}
	case woodcuttingFindingTree:
		w.findTree()
	case woodcuttingCutting:
		w.cut()
	case woodcuttingWaitCutting:
		w.waitCutting()
	case woodcuttingHoverNextTree:
		w.hoverNextTree()
	case woodcuttingCheckInventory:
		w.checkInventory()
	case woodcuttingDropping:
		if !w.env.Actions.IsDropping() {
			w.log().Info("finished dropping")
			w.set(woodcuttingFindingTree)
			w.wait(1, 3)
		}
	}
}

func (w *Woodcutting) Stop() {
	w.untrack()
	w.log().Info("woodcutting stopped", "logs", w.logs)
}

func (w *Woodcutting) Finished() bool { return false }

func (w *Woodcutting) farFromGrove() bool {
	return !w.opts.Grove.IsZero() && w.location().DistanceTo(w.opts.Grove) > groveRadius
}

func (w *Woodcutting) resume() {
	switch {
	case w.env.Game.IsInventoryFull():
		w.set(woodcuttingCheckInventory)
	case w.farFromGrove():
		w.log().Info("not at the trees, walking back", "grove", w.opts.Grove)
		w.delegate(NewWalk(w.env, w.opts.Grove))
	default:
		w.set(woodcuttingFindingTree)
	}
}

func (w *Woodcutting) findTree() {
	if w.env.Game.IsInventoryFull() {
		w.set(woodcuttingCheckInventory)
		return
	}

	tree, ok := w.hoveredTree()
	if ok {
		w.log().Debug("using pre-targeted tree", "location", tree.Location)
	} else {
		tree, ok = w.env.Game.FindNearestObject(w.treeIDs...)
	}
	w.hasNext = false
	if !ok {
		w.log().Warn("no trees found", "trees", w.opts.Trees, "location", w.location())
		w.wait(1, 3)
		return
	}

	w.target = tree
	w.set(woodcuttingCutting)
	w.cut()
}

// hoveredTree returns the pre-targeted tree if it still stands within reach.
func (w *Woodcutting) hoveredTree() (world.GameObject, bool) {
	if !w.hasNext || w.location().DistanceTo(w.next.Location) > hoverReach {
		return world.GameObject{}, false
	}
	return w.env.Game.FindNearestObjectWhere(func(o world.GameObject) bool {
		return o.Location == w.next.Location && o.ID == w.next.ID
	})
}

func (w *Woodcutting) cut() {
	if !w.env.Actions.InteractWithGameObject(w.target, "Chop down") {
		w.log().Warn("could not interact with tree", "tree", w.target.ID)
		w.set(woodcuttingFindingTree)
		w.wait(1, 3)
		return
	}
	w.swung, w.idle = false, 0
	w.lastXP = w.env.Game.SkillXP(world.SkillWoodcutting)
	w.set(woodcuttingWaitCutting)
	w.wait(2, 4)
}

func (w *Woodcutting) waitCutting() {
	if w.env.Game.IsCurrentlyWoodcutting() {
		w.idle = 0
		if !w.swung {
			w.swung = true
			if w.opts.HoverNextTree && !w.hasNext {
				w.set(woodcuttingHoverNextTree)
			}
		}
		return
	}

	w.idle++
	if w.idle > woodcuttingIdleTicks {
		w.log().Info("axe stopped, tree done", "idle_ticks", w.idle)
		w.set(woodcuttingCheckInventory)
		w.checkInventory()
	}
}

func (w *Woodcutting) hoverNextTree() {
	w.set(woodcuttingWaitCutting)
	tree, ok := w.pickNextTree()
	if !ok {
		return
	}
	p := w.env.Game.RandomClickablePoint(world.ObjectEntity{Object: tree})
	if !p.Valid() {
		return
	}
	w.next, w.hasNext = tree, true
	w.log().Debug("hovering next tree", "tree", tree.ID, "location", tree.Location)
	w.env.Actions.SendMouseMoveRequest(p)
}

// pickNextTree prefers a tree directly north, south, east or west of the
// player, otherwise the nearest tree other than the one being cut.
func (w *Woodcutting) pickNextTree() (world.GameObject, bool) {
	loc := w.location()
	other := func(o world.GameObject) bool {
		return slices.Contains(w.treeIDs, o.ID) && o.Location != w.target.Location
	}
	if tree, ok := w.env.Game.FindNearestObjectWhere(func(o world.GameObject) bool {
		dx, dy := o.Location.X-loc.X, o.Location.Y-loc.Y
		return other(o) && o.Location.Plane == loc.Plane && dx*dx+dy*dy == 1
	}); ok {
		return tree, true
	}
	return w.env.Game.FindNearestObjectWhere(other)
}

func (w *Woodcutting) checkInventory() {
	if !w.env.Game.IsInventoryFull() {
		w.set(woodcuttingFindingTree)
		return
	}

	if w.opts.Mode == WoodcuttingPower {
		if len(w.logIDs) == 0 {
			w.log().Error("no log ids to drop, stopping bot")
			w.env.stop("woodcutting: no log ids to drop")
			return
		}
		w.log().Info("inventory full, dropping logs")
		w.env.Actions.PowerDrop(w.logIDs)
		w.set(woodcuttingDropping)
		return
	}

	w.log().Info("inventory full, banking", "bank", w.opts.Bank)
	tasks := []scheduler.Task{NewWalk(w.env, w.location()), NewBank(w.env, BankOptions{})}
	if !w.opts.Bank.IsZero() {
		tasks = append(tasks, NewWalk(w.env, w.opts.Bank))
	}
	w.delegate(tasks...)
	w.set(woodcuttingWaitingForSubtask)
}

// onStatChanged counts logs. A full inventory ends the cut early instead of
// waiting for the idle timeout.
func (w *Woodcutting) onStatChanged(e events.StatChangedEvent) {
	if e.Skill != world.SkillWoodcutting {
		return
	}
	gained := e.XP > w.lastXP
	w.lastXP = e.XP
	if !gained || w.state != woodcuttingWaitCutting {
		return
	}
	w.logs++
	w.log().Debug("log cut", "xp", e.XP, "logs", w.logs)
	if w.env.Game.IsInventoryFull() {
		w.set(woodcuttingCheckInventory)
	}
}
