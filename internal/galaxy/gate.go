// Package galaxy provides the gate and galaxy data model and the procedural
// generator that scatters gates across a barred-spiral disk.
// Positions use a Y-up frame: the disk lies in the XZ plane.
package galaxy

import (
	"fmt"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/address"
)

// Visited tracks what the player knows about a gate.
type Visited int8

const (
	VisitUnknown Visited = -1 // Not yet discovered
	VisitKnown   Visited = 0  // Discovered but never dialed
	VisitVisited Visited = 1  // Dialed at least once
)

// String returns a human-readable name for a visit state.
func (v Visited) String() string {
	switch v {
	case VisitUnknown:
		return "unknown"
	case VisitKnown:
		return "known"
	case VisitVisited:
		return "visited"
	default:
		return fmt.Sprintf("Visited(%d)", int8(v))
	}
}

// Kind records how a gate's cached address was obtained.
type Kind uint8

const (
	KindUnencoded  Kind = iota // No address computed yet
	KindDirect                 // Grid point within tolerance, no reference
	KindReferenced             // Encoded relative to a reference point
	KindDegraded               // Best effort: does not decode back to this gate
)

// String returns a human-readable name for an address kind.
func (k Kind) String() string {
	switch k {
	case KindUnencoded:
		return "unencoded"
	case KindDirect:
		return "direct"
	case KindReferenced:
		return "referenced"
	case KindDegraded:
		return "degraded"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Gate is a single addressable node in a galaxy.
type Gate struct {
	Galaxy *Galaxy `json:"-"` // Owning galaxy (not owned by the gate)
	Index  int     `json:"index"`

	Position     r3.Vector `json:"position"`
	GridPosition r3.Vector `json:"grid_position"` // Nearest grid point; set on encode

	// Cached dialing code. Nil until encoded; never mutated once set.
	StaticAddress *address.Address `json:"address,omitempty"`
	Kind          Kind             `json:"kind"`
	InRange       bool             `json:"in_range"`

	Visited Visited `json:"visited"`
}

// Invalidate drops everything derived from Position so the next encode
// recomputes it.
func (g *Gate) Invalidate() {
	g.GridPosition = r3.Vector{}
	g.StaticAddress = nil
	g.Kind = KindUnencoded
	g.InRange = false
}

// Encoded reports whether the gate has a cached address.
func (g *Gate) Encoded() bool {
	return g.StaticAddress != nil
}

// GalaxyIndex returns the owning galaxy's index, or -1 for a detached gate.
func (g *Gate) GalaxyIndex() int {
	if g.Galaxy == nil {
		return -1
	}
	return g.Galaxy.Index
}

// String returns the gate position, matching how gates are logged.
func (g *Gate) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", g.Position.X, g.Position.Y, g.Position.Z)
}
