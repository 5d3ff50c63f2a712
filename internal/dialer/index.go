package dialer

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/galaxy"
)

// cellKey addresses one cube of the spatial hash.
type cellKey struct {
	X, Y, Z int
}

// Index is a uniform grid hash over gate positions. Queries return the same
// nearest gate a full scan of the galaxy would.
type Index struct {
	cellSize float64
	cells    map[cellKey][]*galaxy.Gate
}

// NewIndex creates an empty index with the given cell edge length.
func NewIndex(cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Index{cellSize: cellSize, cells: make(map[cellKey][]*galaxy.Gate)}
}

func (ix *Index) key(p r3.Vector) cellKey {
	return cellKey{
		X: int(math.Floor(p.X / ix.cellSize)),
		Y: int(math.Floor(p.Y / ix.cellSize)),
		Z: int(math.Floor(p.Z / ix.cellSize)),
	}
}

// Rebuild replaces the index contents with gates.
func (ix *Index) Rebuild(gates []*galaxy.Gate) {
	ix.cells = make(map[cellKey][]*galaxy.Gate, len(gates))
	for _, g := range gates {
		ix.Insert(g)
	}
}

// Insert adds g at its current position.
func (ix *Index) Insert(g *galaxy.Gate) {
	k := ix.key(g.Position)
	ix.cells[k] = append(ix.cells[k], g)
}

// Move re-files g after its position changed from old.
func (ix *Index) Move(g *galaxy.Gate, old r3.Vector) {
	k := ix.key(old)
	bucket := ix.cells[k]
	for i, other := range bucket {
		if other == g {
			bucket = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}
	if len(bucket) == 0 {
		delete(ix.cells, k)
	} else {
		ix.cells[k] = bucket
	}
	ix.Insert(g)
}

// Len returns the number of indexed gates.
func (ix *Index) Len() int {
	n := 0
	for _, b := range ix.cells {
		n += len(b)
	}
	return n
}

// Nearest returns the gate closest to c within radius, or nil. Exact ties
// go to the lower catalog index.
func (ix *Index) Nearest(c r3.Vector, radius float64) (*galaxy.Gate, float64) {
	if radius < 0 || math.IsNaN(radius) {
		return nil, 0
	}
	lo := ix.key(c.Sub(r3.Vector{X: radius, Y: radius, Z: radius}))
	hi := ix.key(c.Add(r3.Vector{X: radius, Y: radius, Z: radius}))

	var best *galaxy.Gate
	bestDist := math.Inf(1)
	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, g := range ix.cells[cellKey{x, y, z}] {
					d := g.Position.Distance(c)
					if d > radius {
						continue
					}
					if d < bestDist || (d == bestDist && g.Index < best.Index) {
						best, bestDist = g, d
					}
				}
			}
		}
	}
	if best == nil {
		return nil, 0
	}
	return best, bestDist
}
