package galaxy

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// ErrConfig is returned for invalid galaxy or generator settings.
var ErrConfig = errors.New("galaxy: invalid config")

// Galaxy holds one disk of gates. Radius and Height set the bulk envelope
// and drive every sampling deviation.
type Galaxy struct {
	Index  int     `json:"index"`
	Radius float64 `json:"radius"`
	Height float64 `json:"height"`
	Gates  []*Gate `json:"-"`
}

// New creates an empty galaxy.
func New(index int, radius, height float64) (*Galaxy, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: negative galaxy index %d", ErrConfig, index)
	}
	if radius <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: radius %v and height %v must be positive", ErrConfig, radius, height)
	}
	return &Galaxy{Index: index, Radius: radius, Height: height}, nil
}

// Get returns the gate at index i, or nil if out of range.
func (g *Galaxy) Get(i int) *Gate {
	if i < 0 || i >= len(g.Gates) {
		return nil
	}
	return g.Gates[i]
}

// Add appends a gate at pos and returns it.
func (g *Galaxy) Add(pos r3.Vector) *Gate {
	gate := &Gate{Galaxy: g, Index: len(g.Gates), Position: pos, Visited: VisitUnknown}
	g.Gates = append(g.Gates, gate)
	return gate
}

// Clear drops every gate.
func (g *Galaxy) Clear() {
	g.Gates = nil
}

// GateCount returns the number of gates.
func (g *Galaxy) GateCount() int {
	return len(g.Gates)
}

// InRangeCount returns how many gates have a grid point within tolerance.
func (g *Galaxy) InRangeCount() int {
	n := 0
	for _, gate := range g.Gates {
		if gate.InRange {
			n++
		}
	}
	return n
}

// KindCounts returns a summary of address kind distribution.
func (g *Galaxy) KindCounts() map[Kind]int {
	counts := make(map[Kind]int)
	for _, gate := range g.Gates {
		counts[gate.Kind]++
	}
	return counts
}

// String returns a summary of the galaxy.
func (g *Galaxy) String() string {
	return fmt.Sprintf("Galaxy(index=%d, radius=%g, height=%g, gates=%d)", g.Index, g.Radius, g.Height, len(g.Gates))
}
