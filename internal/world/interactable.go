package world

// Kind distinguishes the entity behind an Interactable.
type Kind int

const (
	KindObject Kind = iota
	KindNPC
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindNPC:
		return "npc"
	default:
		return "unknown"
	}
}

// Interactable is anything in the scene that can be clicked.
type Interactable interface {
	Kind() Kind
	ID() int
	Name() string
	Location() WorldPoint
	// ClickShape is the clickable area, or nil when the entity is off screen.
	ClickShape() Shape
}

// ObjectEntity adapts a GameObject.
type ObjectEntity struct {
	Object GameObject
}

func (e ObjectEntity) Kind() Kind           { return KindObject }
func (e ObjectEntity) ID() int              { return e.Object.ID }
func (e ObjectEntity) Name() string         { return e.Object.Name }
func (e ObjectEntity) Location() WorldPoint { return e.Object.Location }
func (e ObjectEntity) ClickShape() Shape    { return hullShape(e.Object.Hull) }

// NPCEntity adapts an NPC.
type NPCEntity struct {
	NPC NPC
}

func (e NPCEntity) Kind() Kind           { return KindNPC }
func (e NPCEntity) ID() int              { return e.NPC.ID }
func (e NPCEntity) Name() string         { return e.NPC.Name }
func (e NPCEntity) Location() WorldPoint { return e.NPC.Location }
func (e NPCEntity) ClickShape() Shape    { return hullShape(e.NPC.Hull) }

func hullShape(h Polygon) Shape {
	if len(h) < 3 {
		return nil
	}
	return h
}
