// Package dialer converts gate positions to dialing codes and back.
//
// A position is snapped to a lattice of Euler angles and magnitudes. When the
// snapped point lies close enough to the gate, the code describes it directly;
// otherwise it is described relative to a reference point in the galactic
// plane. Decoding reconstructs the point and picks the nearest gate.
package dialer

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/galaxy"
	"github.com/warrook/Gate/internal/geom"
)

var (
	// ErrDegraded accompanies a best-effort address that does not decode
	// back to its gate.
	ErrDegraded = errors.New("dialer: degraded address")
	// ErrUnknownGalaxy is returned when an address names another galaxy.
	ErrUnknownGalaxy = errors.New("dialer: unknown galaxy")
	// ErrForeignGate is returned when encoding a gate owned by another galaxy.
	ErrForeignGate = errors.New("dialer: gate belongs to another galaxy")
	// ErrInvalidAddress wraps address validation failures during decode.
	ErrInvalidAddress = errors.New("dialer: invalid address")
	// ErrConfig is returned for unusable codec settings.
	ErrConfig = errors.New("dialer: invalid config")
)

// maxLattice caps baseN^numDigits.
const maxLattice = 1 << 20

// candidateDigits is the decimal precision reconstructed points are snapped to.
const candidateDigits = 4

// Config holds the quantization parameters.
type Config struct {
	BaseN         int     // Symbols per digit
	NumDigits     int     // Digits per slot
	BaseRadius    float64 // Angular tolerance in degrees for direct codes
	ReferenceSpan int     // Widest ring of lattice steps searched for a reference point
}

// DefaultConfig returns the standard 32x32 lattice.
func DefaultConfig() Config {
	return Config{
		BaseN:         32,
		NumDigits:     2,
		BaseRadius:    0.2,
		ReferenceSpan: 16,
	}
}

// MaxVal returns baseN^numDigits, or 0 if the result would exceed the cap.
func (c Config) MaxVal() int {
	v := 1
	for i := 0; i < c.NumDigits; i++ {
		v *= c.BaseN
		if v > maxLattice {
			return 0
		}
	}
	return v
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BaseN < 2 || c.NumDigits < 1 {
		return fmt.Errorf("%w: base %d with %d digits", ErrConfig, c.BaseN, c.NumDigits)
	}
	if c.MaxVal() == 0 {
		return fmt.Errorf("%w: %d^%d exceeds %d", ErrConfig, c.BaseN, c.NumDigits, maxLattice)
	}
	if !(c.BaseRadius > 0) || c.BaseRadius >= 180 {
		return fmt.Errorf("%w: base radius %v", ErrConfig, c.BaseRadius)
	}
	if c.ReferenceSpan < 0 {
		return fmt.Errorf("%w: negative reference span", ErrConfig)
	}
	return nil
}

// Codec encodes and decodes addresses for one galaxy. It is not safe for
// concurrent mutation; the catalog serializes writers.
type Codec struct {
	cfg Config
	gal *galaxy.Galaxy

	maxVal     int
	nPerDegree float64
	nPerDist   float64

	index    *Index
	computed atomic.Uint64
}

// New creates a codec for gal and indexes its current gates.
func New(cfg Config, gal *galaxy.Galaxy) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gal == nil {
		return nil, fmt.Errorf("%w: nil galaxy", ErrConfig)
	}
	maxVal := cfg.MaxVal()
	c := &Codec{
		cfg:        cfg,
		gal:        gal,
		maxVal:     maxVal,
		nPerDegree: 360 / float64(maxVal),
		nPerDist:   gal.Radius * 6 / float64(maxVal),
	}
	c.index = NewIndex(2 * c.nPerDist)
	c.Reindex()
	return c, nil
}

// Config returns the codec settings.
func (c *Codec) Config() Config { return c.cfg }

// Galaxy returns the galaxy the codec serves.
func (c *Codec) Galaxy() *galaxy.Galaxy { return c.gal }

// MaxVal returns the exclusive upper bound of every digit.
func (c *Codec) MaxVal() int { return c.maxVal }

// NPerDegree returns the angular lattice step in degrees.
func (c *Codec) NPerDegree() float64 { return c.nPerDegree }

// NPerDist returns the magnitude lattice step.
func (c *Codec) NPerDist() float64 { return c.nPerDist }

// Computed returns how many addresses have been computed rather than served
// from a gate's cache.
func (c *Codec) Computed() uint64 { return c.computed.Load() }

// Reindex rebuilds the spatial index from the galaxy's gates.
func (c *Codec) Reindex() {
	c.index.Rebuild(c.gal.Gates)
}

// Insert indexes a gate added to the galaxy after construction.
func (c *Codec) Insert(g *galaxy.Gate) {
	c.index.Insert(g)
}

// Moved re-files g after its position changed from old and drops its cached
// address.
func (c *Codec) Moved(g *galaxy.Gate, old r3.Vector) {
	c.index.Move(g, old)
	g.Invalidate()
}

// GridPoint returns the lattice point nearest p and its snapped magnitude.
func (c *Codec) GridPoint(p r3.Vector) (r3.Vector, float64) {
	x, y, z := geom.EulerAngles(geom.FromToRotation(geom.Up, p))
	q := geom.Euler(
		geom.SnapToGrid(x, c.nPerDegree),
		geom.SnapToGrid(y, c.nPerDegree),
		geom.SnapToGrid(z, c.nPerDegree),
	)
	mag := geom.SnapToGrid(p.Norm(), c.nPerDist)
	return geom.Rotate(q, geom.Up).Mul(mag), mag
}

// Allowance is the tolerance between a gate and a grid point of magnitude
// gridMag for a direct code.
func (c *Codec) Allowance(gridMag float64) float64 {
	return math.Sin(geom.Deg2Rad(c.cfg.BaseRadius/2)) * gridMag
}

// SearchAllowance is the radius decode searches around a candidate point.
func (c *Codec) SearchAllowance(candidate r3.Vector) float64 {
	return math.Sin(geom.Deg2Rad(c.nPerDegree)) * candidate.Norm()
}

// Encode returns g's address, computing and caching it on first use. A
// degraded address is returned together with ErrDegraded, on every call.
func (c *Codec) Encode(g *galaxy.Gate) (address.Address, error) {
	if g.Galaxy != c.gal {
		return address.Empty(), fmt.Errorf("encode gate %d: %w", g.Index, ErrForeignGate)
	}
	if g.StaticAddress != nil {
		if g.Kind == galaxy.KindDegraded {
			return *g.StaticAddress, ErrDegraded
		}
		return *g.StaticAddress, nil
	}
	c.computed.Add(1)

	grid, gridMag := c.GridPoint(g.Position)
	g.GridPosition = grid
	g.InRange = grid.Distance(g.Position) <= c.Allowance(gridMag)

	az, alt, mag := c.digits(grid, gridMag)
	var addr address.Address
	kind, ok := galaxy.KindDirect, false
	if g.InRange {
		addr, ok = c.direct(g, az, alt, mag)
	}
	if !ok {
		if ref, found := c.referenced(g); found {
			addr, kind = ref, galaxy.KindReferenced
		} else {
			addr, kind = c.clamp(address.Direct(c.gal.Index, az, alt, mag)), galaxy.KindDegraded
		}
	}

	g.StaticAddress = &addr
	g.Kind = kind
	if kind == galaxy.KindDegraded {
		slog.Debug("degraded address", "galaxy", c.gal.Index, "gate", g.Index, "address", addr.String())
		return addr, ErrDegraded
	}
	return addr, nil
}

// digits quantizes v into azimuth, altitude and magnitude digits, using mag
// in place of v's own length.
func (c *Codec) digits(v r3.Vector, mag float64) (int, int, int) {
	az, alt, _ := geom.ToSpherical(v)
	half := float64(c.maxVal) / 2
	azN := int(math.Round(az/c.nPerDegree+half)) % c.maxVal
	if azN < 0 {
		azN += c.maxVal
	}
	altN := int(math.Round(alt/(2*c.nPerDegree) + half))
	magN := int(math.Round(mag / c.nPerDist))
	return azN, altN, magN
}

func (c *Codec) inBounds(a address.Address) bool {
	return a.Validate(c.maxVal) == nil
}

// clamp forces every used digit into [0, maxVal).
func (c *Codec) clamp(a address.Address) address.Address {
	for i := address.SlotRefAzimuth; i < address.NumSlots; i++ {
		if a[i] == address.Unused && (i == address.SlotRefAzimuth || i == address.SlotRefMagnitude) {
			continue
		}
		a[i] = max(0, min(c.maxVal-1, a[i]))
	}
	return a
}

// resolves reports whether a decodes to g.
func (c *Codec) resolves(a address.Address, g *galaxy.Gate) bool {
	found, err := c.Decode(a)
	return err == nil && found == g
}

// Decode returns the gate an address dials, or nil if no gate lies within
// tolerance of the reconstructed point.
func (c *Codec) Decode(a address.Address) (*galaxy.Gate, error) {
	p, err := c.Candidate(a)
	if err != nil {
		return nil, err
	}
	g, _ := c.index.Nearest(p, c.SearchAllowance(p))
	return g, nil
}

// Candidate reconstructs the point an address describes, snapped to 1e-4.
func (c *Codec) Candidate(a address.Address) (r3.Vector, error) {
	if err := a.Validate(c.maxVal); err != nil {
		return r3.Vector{}, fmt.Errorf("decode %s: %w: %w", a, ErrInvalidAddress, err)
	}
	if a.Galaxy() != c.gal.Index {
		return r3.Vector{}, fmt.Errorf("decode %s: %w: galaxy %d", a, ErrUnknownGalaxy, a.Galaxy())
	}

	p := geom.FromSpherical(
		float64(a[address.SlotAzimuth])*c.nPerDegree-180,
		float64(a[address.SlotAltitude])*2*c.nPerDegree-360,
		float64(a[address.SlotMagnitude])*c.nPerDist,
	)
	if a.HasReference() {
		p = p.Add(c.referencePoint(reference{azN: a[address.SlotRefAzimuth], magN: a[address.SlotRefMagnitude]}))
	}
	return geom.RoundVector(p, candidateDigits), nil
}

// CreateFromAngles builds a detached gate at the given azimuth and altitude
// (degrees) and magnitude. The gate has no galaxy and index -1 until added.
func (c *Codec) CreateFromAngles(azimuth, altitude, magnitude float64) *galaxy.Gate {
	return &galaxy.Gate{
		Index:    -1,
		Position: geom.FromSpherical(azimuth, altitude, magnitude),
		Visited:  galaxy.VisitUnknown,
	}
}
