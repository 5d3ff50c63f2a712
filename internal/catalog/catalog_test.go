package catalog

import (
	"errors"
	"sync"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/warrook/Gate/internal/address"
	"github.com/warrook/Gate/internal/dialer"
	"github.com/warrook/Gate/internal/galaxy"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Galaxies = []GalaxySpec{{Radius: 300, Height: 100}, {Radius: 200, Height: 60}}
	cfg.Gen = galaxy.SmallTestConfig()
	return cfg
}

func regenerated(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Regenerate(42); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	return c
}

// encodable returns the index of the first non-degraded gate in galaxy gi.
func encodable(t *testing.T, c *Catalog, gi int) int {
	t.Helper()
	gates, err := c.Gates(gi, 0)
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range gates {
		if g.Kind == galaxy.KindDirect || g.Kind == galaxy.KindReferenced {
			return g.Index
		}
	}
	t.Fatalf("galaxy %d has no decodable gate", gi)
	return -1
}

func TestRegenerateStats(t *testing.T) {
	c := regenerated(t)
	st := c.Stats()

	want := 2 * galaxy.SmallTestConfig().FinalCount()
	if st.Galaxies != 2 || st.Gates != want {
		t.Fatalf("stats %+v, want 2 galaxies and %d gates", st, want)
	}
	if st.Kinds[galaxy.KindUnencoded] != 0 {
		t.Errorf("%d gates left unencoded", st.Kinds[galaxy.KindUnencoded])
	}
	total := 0
	for _, n := range st.Kinds {
		total += n
	}
	if total != st.Gates {
		t.Errorf("kind counts sum to %d, want %d", total, st.Gates)
	}
	if st.Computed != uint64(st.Gates) {
		t.Errorf("computed %d addresses for %d gates", st.Computed, st.Gates)
	}
	if st.InRange != c.InRangeCount() {
		t.Errorf("stats in range %d, InRangeCount %d", st.InRange, c.InRangeCount())
	}
	if st.Generation != 1 {
		t.Errorf("generation %d", st.Generation)
	}

	if _, err := c.Regenerate(7); err != nil {
		t.Fatal(err)
	}
	if st := c.Stats(); st.Gates != want || st.Generation != 2 {
		t.Errorf("after second regenerate: %+v", st)
	}
}

func TestEncodeServesCache(t *testing.T) {
	c := regenerated(t)
	before := c.Stats().Computed

	g, err := c.Gate(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	addr, err := c.Encode(0, 5)
	if err != nil && !errors.Is(err, dialer.ErrDegraded) {
		t.Fatal(err)
	}
	if addr != *g.StaticAddress {
		t.Errorf("Encode = %s, cached %s", addr, g.StaticAddress)
	}
	if after := c.Stats().Computed; after != before {
		t.Errorf("computed rose from %d to %d", before, after)
	}
}

func TestDecodeRoutesByGalaxy(t *testing.T) {
	c := regenerated(t)
	for gi := 0; gi < 2; gi++ {
		idx := encodable(t, c, gi)
		addr, err := c.Encode(gi, idx)
		if err != nil {
			t.Fatal(err)
		}
		got, err := c.Decode(addr)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Index != idx || got.GalaxyIndex() != gi {
			t.Errorf("galaxy %d: %s decoded to %+v", gi, addr, got)
		}

		// The result is a copy.
		got.Position = r3.Vector{}
		if live, _ := c.Gate(gi, idx); live.Position == (r3.Vector{}) {
			t.Error("mutating a decoded gate changed the catalog")
		}
	}

	if _, err := c.Decode(address.Direct(9, 1, 1, 1)); !errors.Is(err, dialer.ErrUnknownGalaxy) {
		t.Errorf("unknown galaxy: err = %v", err)
	}
}

func TestMoveAndRotateGate(t *testing.T) {
	c := regenerated(t)
	before := c.Stats().Computed

	if _, err := c.MoveGate(0, 3, r3.Vector{X: 10}); err != nil && !errors.Is(err, dialer.ErrDegraded) {
		t.Fatal(err)
	}
	g, _ := c.Gate(0, 3)
	if g.Position != (r3.Vector{X: 10}) || !g.Encoded() {
		t.Fatalf("moved gate %+v", g)
	}
	if c.Stats().Computed != before+1 {
		t.Errorf("move did not re-encode")
	}

	if _, err := c.RotateGate(0, 3, 0, 90); err != nil && !errors.Is(err, dialer.ErrDegraded) {
		t.Fatal(err)
	}
	g, _ = c.Gate(0, 3)
	if g.Position.Distance(r3.Vector{Y: 10}) > 1e-9 {
		t.Errorf("pitch 90 moved +X to %v, want +Y", g.Position)
	}

	if _, err := c.RotateGate(0, 3, 90, -90); err != nil && !errors.Is(err, dialer.ErrDegraded) {
		t.Fatal(err)
	}
	g, _ = c.Gate(0, 3)
	if g.Position.Distance(r3.Vector{X: 10}) > 1e-9 {
		t.Errorf("yaw about the vertical axis then pitch back gave %v, want +X", g.Position)
	}
}

func TestAddSynthetic(t *testing.T) {
	c := regenerated(t)
	n := c.Stats().Gates

	g, err := c.AddSynthetic(1, 30, 5, 120)
	if err != nil && !errors.Is(err, dialer.ErrDegraded) {
		t.Fatal(err)
	}
	if g.GalaxyIndex() != 1 || !g.Encoded() {
		t.Fatalf("synthetic gate %+v", g)
	}
	if c.Stats().Gates != n+1 {
		t.Errorf("gate count %d, want %d", c.Stats().Gates, n+1)
	}
	if err == nil {
		got, err := c.Decode(*g.StaticAddress)
		if err != nil || got == nil || got.Index != g.Index {
			t.Errorf("synthetic gate decodes to %+v, %v", got, err)
		}
	}
}

func TestMarkVisitedAndNotFound(t *testing.T) {
	c := regenerated(t)
	if err := c.MarkVisited(0, 2, galaxy.VisitVisited); err != nil {
		t.Fatal(err)
	}
	if g, _ := c.Gate(0, 2); g.Visited != galaxy.VisitVisited {
		t.Errorf("visited = %v", g.Visited)
	}

	for _, err := range []error{
		c.MarkVisited(0, -1, galaxy.VisitKnown),
		c.MarkVisited(3, 0, galaxy.VisitKnown),
		func() error { _, err := c.Gate(0, 1<<20); return err }(),
		func() error { _, err := c.Gates(-1, 0); return err }(),
		func() error { _, err := c.MoveGate(5, 0, r3.Vector{}); return err }(),
	} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	}
}

func TestGatesLimit(t *testing.T) {
	c := regenerated(t)
	gates, err := c.Gates(0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(gates) != 10 || gates[9].Index != 9 {
		t.Errorf("got %d gates", len(gates))
	}
}

func TestConcurrentReaders(t *testing.T) {
	c := regenerated(t)
	idx := encodable(t, c, 0)
	addr, _ := c.Encode(0, idx)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := c.Decode(addr); err != nil {
					t.Error(err)
					return
				}
				c.Stats()
			}
		}()
	}
	for j := 0; j < 20; j++ {
		c.RotateGate(1, j, 5, 0)
	}
	wg.Wait()
}

func TestReplace(t *testing.T) {
	c := regenerated(t)
	gal, err := galaxy.New(1, 200, 60)
	if err != nil {
		t.Fatal(err)
	}
	gal.Add(r3.Vector{X: 5})
	if err := c.Replace(gal); err != nil {
		t.Fatal(err)
	}
	if gates, _ := c.Gates(1, 0); len(gates) != 1 {
		t.Errorf("replaced galaxy has %d gates", len(gates))
	}
	bad, _ := galaxy.New(4, 10, 10)
	if err := c.Replace(bad); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v", err)
	}
}
