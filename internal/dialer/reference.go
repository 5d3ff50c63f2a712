package dialer

import (
	"cmp"
	"math"
	"slices"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/galaxy"
	"github.com/warrook/Gate/internal/geom"
)

// reference is a lattice point in the galactic plane, named by its
// azimuth and magnitude digits.
type reference struct {
	azN, magN int
}

func (c *Codec) referencePoint(r reference) r3.Vector {
	return geom.FromSpherical(float64(r.azN)*c.nPerDegree-180, 0, float64(r.magN)*c.nPerDist)
}

// referenceBase returns the digits of p's projection onto the plane.
func (c *Codec) referenceBase(p r3.Vector) (azN, magN int) {
	az, _, mag := geom.ToSpherical(r3.Vector{X: p.X, Z: p.Z})
	return int(math.Round(az/c.nPerDegree + float64(c.maxVal)/2)), int(math.Round(mag / c.nPerDist))
}

// ring returns the reference points exactly s lattice steps from the base
// digits in azimuth or magnitude, nearest to p first. Points already in seen
// are skipped; the rest are added to it.
func (c *Codec) ring(p r3.Vector, baseAz, baseMag, s int, seen map[reference]struct{}) []reference {
	var refs []reference
	for dm := -s; dm <= s; dm++ {
		m := baseMag + dm
		if m < 0 || m >= c.maxVal {
			continue
		}
		for da := -s; da <= s; da++ {
			if max(abs(dm), abs(da)) != s {
				continue
			}
			r := reference{azN: ((baseAz+da)%c.maxVal + c.maxVal) % c.maxVal, magN: m}
			if m == 0 {
				// Every azimuth names the origin.
				r.azN = 0
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			refs = append(refs, r)
		}
	}

	dist := make(map[reference]float64, len(refs))
	for _, r := range refs {
		dist[r] = c.referencePoint(r).Distance(p)
	}
	slices.SortFunc(refs, func(a, b reference) int {
		if c := cmp.Compare(dist[a], dist[b]); c != 0 {
			return c
		}
		if c := cmp.Compare(a.magN, b.magN); c != 0 {
			return c
		}
		return cmp.Compare(a.azN, b.azN)
	})
	return refs
}

// referenced widens the search ring by ring, up to ReferenceSpan steps, and
// returns the first address relative to a reference point that decodes back
// to g.
func (c *Codec) referenced(g *galaxy.Gate) (address.Address, bool) {
	baseAz, baseMag := c.referenceBase(g.Position)
	seen := make(map[reference]struct{})
	for s := 0; s <= c.cfg.ReferenceSpan; s++ {
		if baseMag-s < 0 && baseMag+s >= c.maxVal {
			break
		}
		for _, r := range c.ring(g.Position, baseAz, baseMag, s, seen) {
			delta := g.Position.Sub(c.referencePoint(r))
			az, alt, mag := c.digits(delta, delta.Norm())
			a := address.Referenced(c.gal.Index, r.azN, r.magN, az, alt, mag)
			if !c.inBounds(a) {
				continue
			}
			if c.resolves(a, g) {
				return a, true
			}
		}
	}
	return address.Address{}, false
}

// neighbours returns the direct addresses one step away from the given
// digits in any slot, nearest to p first.
func (c *Codec) neighbours(p r3.Vector, az, alt, mag int) []address.Address {
	type option struct {
		a address.Address
		d float64
	}
	var opts []option
	for dAz := -1; dAz <= 1; dAz++ {
		for dAlt := -1; dAlt <= 1; dAlt++ {
			for dMag := -1; dMag <= 1; dMag++ {
				if dAz == 0 && dAlt == 0 && dMag == 0 {
					continue
				}
				a := address.Direct(c.gal.Index, (az+dAz+c.maxVal)%c.maxVal, alt+dAlt, mag+dMag)
				cand, err := c.Candidate(a)
				if err != nil {
					continue
				}
				opts = append(opts, option{a: a, d: cand.Distance(p)})
			}
		}
	}
	slices.SortStableFunc(opts, func(x, y option) int { return cmp.Compare(x.d, y.d) })

	out := make([]address.Address, len(opts))
	for i, o := range opts {
		out[i] = o.a
	}
	return out
}

// direct returns the direct address of the given digits, or of the nearest
// neighbouring digits, that decodes back to g.
func (c *Codec) direct(g *galaxy.Gate, az, alt, mag int) (address.Address, bool) {
	a := address.Direct(c.gal.Index, az, alt, mag)
	if c.inBounds(a) && c.resolves(a, g) {
		return a, true
	}
	for _, n := range c.neighbours(g.Position, az, alt, mag) {
		if c.resolves(n, g) {
			return n, true
		}
	}
	return a, false
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
