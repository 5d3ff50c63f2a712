// Catalog ties galaxies to their address codecs and serializes every edit.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/dialer"
	"github.com/warrook/Gate/internal/galaxy"
	"github.com/warrook/Gate/internal/geom"
)

// ErrNotFound is returned for an unknown galaxy or gate index.
var ErrNotFound = errors.New("catalog: not found")

// GalaxySpec sizes one galaxy.
type GalaxySpec struct {
	Radius float64 `json:"radius"`
	Height float64 `json:"height"`
}

// Config holds everything needed to build a catalog.
type Config struct {
	Galaxies []GalaxySpec
	Gen      galaxy.GenConfig
	Codec    dialer.Config
}

// DefaultConfig returns a single reference galaxy.
func DefaultConfig() Config {
	return Config{
		Galaxies: []GalaxySpec{{Radius: 300, Height: 100}},
		Gen:      galaxy.DefaultGenConfig(),
		Codec:    dialer.DefaultConfig(),
	}
}

// Stats summarizes the catalog.
type Stats struct {
	Galaxies   int                 `json:"galaxies"`
	Gates      int                 `json:"gates"`
	InRange    int                 `json:"in_range"`
	Kinds      map[galaxy.Kind]int `json:"-"`
	KindNames  map[string]int      `json:"kinds"`
	Computed   uint64              `json:"computed"`
	Generation int                 `json:"generation"`
}

// Catalog owns every galaxy. Writers (regenerate, encode, edits) hold the
// lock exclusively; decode and queries share it.
type Catalog struct {
	mu         sync.RWMutex
	cfg        Config
	galaxies   []*galaxy.Galaxy
	codecs     []*dialer.Codec
	generation int
}

// New creates a catalog of empty galaxies.
func New(cfg Config) (*Catalog, error) {
	if len(cfg.Galaxies) == 0 {
		return nil, fmt.Errorf("new catalog: %w: no galaxies", galaxy.ErrConfig)
	}
	if err := cfg.Gen.Validate(); err != nil {
		return nil, fmt.Errorf("new catalog: %w", err)
	}
	c := &Catalog{cfg: cfg}
	for i, gs := range cfg.Galaxies {
		gal, err := galaxy.New(i, gs.Radius, gs.Height)
		if err != nil {
			return nil, fmt.Errorf("new catalog: galaxy %d: %w", i, err)
		}
		codec, err := dialer.New(cfg.Codec, gal)
		if err != nil {
			return nil, fmt.Errorf("new catalog: galaxy %d: %w", i, err)
		}
		c.galaxies = append(c.galaxies, gal)
		c.codecs = append(c.codecs, codec)
	}
	return c, nil
}

// Regenerate discards every gate, generates fresh galaxies and encodes every
// gate. A zero seed draws a random one; otherwise galaxy i uses seed+i.
func (c *Catalog) Regenerate(seed int64) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, gal := range c.galaxies {
		gen := c.cfg.Gen
		gen.Seed = 0
		if seed != 0 {
			gen.Seed = seed + int64(i)
		}
		if _, err := galaxy.Generate(gal, gen); err != nil {
			return Stats{}, fmt.Errorf("regenerate galaxy %d: %w", i, err)
		}
		codec, err := dialer.New(c.cfg.Codec, gal)
		if err != nil {
			return Stats{}, fmt.Errorf("regenerate galaxy %d: %w", i, err)
		}
		c.codecs[i] = codec

		degraded := 0
		for _, g := range gal.Gates {
			if _, err := codec.Encode(g); errors.Is(err, dialer.ErrDegraded) {
				degraded++
			} else if err != nil {
				return Stats{}, fmt.Errorf("regenerate galaxy %d: gate %d: %w", i, g.Index, err)
			}
		}
		slog.Info("galaxy encoded", "galaxy", i, "gates", len(gal.Gates), "in_range", gal.InRangeCount(), "degraded", degraded)
	}
	c.generation++
	return c.stats(), nil
}

// Replace swaps in a galaxy loaded from storage. Its index selects the slot.
func (c *Catalog) Replace(gal *galaxy.Galaxy) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gal == nil || gal.Index < 0 || gal.Index >= len(c.galaxies) {
		return fmt.Errorf("replace galaxy: %w", ErrNotFound)
	}
	codec, err := dialer.New(c.cfg.Codec, gal)
	if err != nil {
		return fmt.Errorf("replace galaxy %d: %w", gal.Index, err)
	}
	c.galaxies[gal.Index] = gal
	c.codecs[gal.Index] = codec
	c.generation++
	return nil
}

// lookup must be called with the lock held.
func (c *Catalog) lookup(gi, idx int) (*galaxy.Gate, *dialer.Codec, error) {
	if gi < 0 || gi >= len(c.galaxies) {
		return nil, nil, fmt.Errorf("galaxy %d: %w", gi, ErrNotFound)
	}
	g := c.galaxies[gi].Get(idx)
	if g == nil {
		return nil, nil, fmt.Errorf("galaxy %d gate %d: %w", gi, idx, ErrNotFound)
	}
	return g, c.codecs[gi], nil
}

// Encode returns the address of a gate, computing it if needed.
func (c *Catalog) Encode(gi, idx int) (address.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, codec, err := c.lookup(gi, idx)
	if err != nil {
		return address.Empty(), err
	}
	return codec.Encode(g)
}

// Decode returns a copy of the gate an address dials, or nil if none lies
// within tolerance.
func (c *Catalog) Decode(a address.Address) (*galaxy.Gate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gi := a.Galaxy()
	if gi < 0 || gi >= len(c.codecs) {
		return nil, fmt.Errorf("decode %s: %w", a, dialer.ErrUnknownGalaxy)
	}
	g, err := c.codecs[gi].Decode(a)
	if err != nil || g == nil {
		return nil, err
	}
	snap := *g
	return &snap, nil
}

// MoveGate places a gate at pos and re-encodes it.
func (c *Catalog) MoveGate(gi, idx int, pos r3.Vector) (address.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, codec, err := c.lookup(gi, idx)
	if err != nil {
		return address.Empty(), err
	}
	return move(codec, g, pos)
}

// RotateGate turns a gate about the origin by yaw degrees around the up
// axis, then pitch degrees around the forward axis, and re-encodes it.
func (c *Catalog) RotateGate(gi, idx int, yaw, pitch float64) (address.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, codec, err := c.lookup(gi, idx)
	if err != nil {
		return address.Empty(), err
	}
	pos := geom.Rotate(geom.AngleAxis(yaw, geom.Up), g.Position)
	pos = geom.Rotate(geom.AngleAxis(pitch, geom.Forward), pos)
	return move(codec, g, pos)
}

func move(codec *dialer.Codec, g *galaxy.Gate, pos r3.Vector) (address.Address, error) {
	old := g.Position
	g.Position = pos
	codec.Moved(g, old)
	return codec.Encode(g)
}

// AddSynthetic appends a gate at the given azimuth, altitude and magnitude
// to galaxy gi, encodes it and returns a copy.
func (c *Catalog) AddSynthetic(gi int, azimuth, altitude, magnitude float64) (*galaxy.Gate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gi < 0 || gi >= len(c.galaxies) {
		return nil, fmt.Errorf("galaxy %d: %w", gi, ErrNotFound)
	}
	codec := c.codecs[gi]
	g := c.galaxies[gi].Add(codec.CreateFromAngles(azimuth, altitude, magnitude).Position)
	codec.Insert(g)
	_, err := codec.Encode(g)
	snap := *g
	return &snap, err
}

// MarkVisited records what the player knows about a gate.
func (c *Catalog) MarkVisited(gi, idx int, v galaxy.Visited) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, _, err := c.lookup(gi, idx)
	if err != nil {
		return err
	}
	g.Visited = v
	return nil
}

// Gate returns a copy of one gate.
func (c *Catalog) Gate(gi, idx int) (*galaxy.Gate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, _, err := c.lookup(gi, idx)
	if err != nil {
		return nil, err
	}
	snap := *g
	return &snap, nil
}

// Gates returns copies of the first limit gates of galaxy gi, or all of
// them when limit <= 0.
func (c *Catalog) Gates(gi, limit int) ([]galaxy.Gate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if gi < 0 || gi >= len(c.galaxies) {
		return nil, fmt.Errorf("galaxy %d: %w", gi, ErrNotFound)
	}
	gates := c.galaxies[gi].Gates
	if limit > 0 && limit < len(gates) {
		gates = gates[:limit]
	}
	out := make([]galaxy.Gate, len(gates))
	for i, g := range gates {
		out[i] = *g
	}
	return out, nil
}

// InRangeCount returns how many gates across all galaxies lie within
// tolerance of their grid point.
func (c *Catalog) InRangeCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, gal := range c.galaxies {
		n += gal.InRangeCount()
	}
	return n
}

// Stats returns a summary of the catalog.
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats()
}

func (c *Catalog) stats() Stats {
	st := Stats{
		Galaxies:   len(c.galaxies),
		Kinds:      make(map[galaxy.Kind]int),
		KindNames:  make(map[string]int),
		Generation: c.generation,
	}
	for i, gal := range c.galaxies {
		st.Gates += gal.GateCount()
		st.InRange += gal.InRangeCount()
		for k, n := range gal.KindCounts() {
			st.Kinds[k] += n
			st.KindNames[k.String()] += n
		}
		st.Computed += c.codecs[i].Computed()
	}
	return st
}

// View calls fn with the galaxies while holding the read lock. fn must not
// retain or modify them.
func (c *Catalog) View(fn func([]*galaxy.Galaxy) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn(c.galaxies)
}
