package pathfinding

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aristath/runebot/internal/world"
)

//go:embed transports.yaml
var defaultTransports []byte

// TransportKind classifies a non-walking edge.
type TransportKind string

const (
	TransportDoor     TransportKind = "door"
	TransportStairs   TransportKind = "stairs"
	TransportTeleport TransportKind = "teleport"
)

// Transport is a directed edge the planner may take instead of a walking step.
// A teleport with a zero Origin can be used from the start tile only.
type Transport struct {
	Origin      world.WorldPoint `yaml:"origin"`
	Destination world.WorldPoint `yaml:"destination"`
	Kind        TransportKind    `yaml:"kind"`
	ObjectID    int              `yaml:"object_id,omitempty"`
	Action      string           `yaml:"action,omitempty"`
	Spell       string           `yaml:"spell,omitempty"`
	Cost        int              `yaml:"cost,omitempty"`
}

// cost returns the edge weight, defaulting by kind.
func (t Transport) cost() int {
	if t.Cost > 0 {
		return t.Cost
	}
	if t.Kind == TransportTeleport {
		return 20
	}
	return 1
}

type transportFile struct {
	Transports []Transport `yaml:"transports"`
}

// Transports indexes transports by origin tile.
type Transports struct {
	all      []Transport
	byOrigin map[world.WorldPoint][]Transport
	anywhere []Transport
}

// NewTransports indexes list.
func NewTransports(list []Transport) *Transports {
	t := &Transports{
		all:      list,
		byOrigin: make(map[world.WorldPoint][]Transport),
	}
	for _, tr := range list {
		if tr.Kind == TransportTeleport && tr.Origin.IsZero() {
			t.anywhere = append(t.anywhere, tr)
			continue
		}
		t.byOrigin[tr.Origin] = append(t.byOrigin[tr.Origin], tr)
	}
	return t
}

// All returns every transport in load order.
func (t *Transports) All() []Transport {
	if t == nil {
		return nil
	}
	return t.all
}

// From returns the transports that leave p.
func (t *Transports) From(p world.WorldPoint) []Transport {
	if t == nil {
		return nil
	}
	return t.byOrigin[p]
}

// Teleports returns the transports usable from anywhere.
func (t *Transports) Teleports() []Transport {
	if t == nil {
		return nil
	}
	return t.anywhere
}

// Between returns the transport taking a to b, if any.
func (t *Transports) Between(a, b world.WorldPoint) (Transport, bool) {
	for _, tr := range t.From(a) {
		if tr.Destination == b {
			return tr, true
		}
	}
	for _, tr := range t.Teleports() {
		if tr.Destination == b {
			return tr, true
		}
	}
	return Transport{}, false
}

// LoadTransports reads a YAML transport table. An empty path loads the
// built-in table.
func LoadTransports(path string) (*Transports, error) {
	raw := defaultTransports
	if path != "" {
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read transports: %w", err)
		}
	}
	return ParseTransports(raw)
}

// ParseTransports decodes a YAML transport table.
func ParseTransports(raw []byte) (*Transports, error) {
	var f transportFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse transports: %w", err)
	}
	for i, tr := range f.Transports {
		switch tr.Kind {
		case TransportDoor, TransportStairs:
			if tr.Origin.DistanceTo2D(tr.Destination) > 1 && tr.Origin.Plane == tr.Destination.Plane {
				return nil, fmt.Errorf("transport %d: %s endpoints must be adjacent", i, tr.Kind)
			}
		case TransportTeleport:
			if tr.Spell == "" {
				return nil, fmt.Errorf("transport %d: teleport needs a spell", i)
			}
		default:
			return nil, fmt.Errorf("transport %d: unknown kind %q", i, tr.Kind)
		}
	}
	return NewTransports(f.Transports), nil
}
