// Galaxy generation using layered Gaussian scatter.
// Builds a hollow bulge, spiral arms and a broad halo, twists the disk by a
// radius profile, thins it, then pins a fixed reference gate.
package galaxy

import (
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/golang/geo/r3"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/warrook/Gate/internal/curve"
	"github.com/warrook/Gate/internal/entropy"
	"github.com/warrook/Gate/internal/geom"
)

// DefaultSentinel is the fixed gate appended after thinning.
var DefaultSentinel = r3.Vector{X: 60.3, Y: -20.0, Z: 60.7}

// GenConfig holds galaxy generation parameters.
type GenConfig struct {
	Seed   int64          // Random seed (0 = random); ignored when Source is set
	Source entropy.Source // Optional injected random source

	BulgeCount    int // Points in the central bulge
	ArmCount      int // Spiral arms, evenly spaced
	NodesPerArm   int // Scatter centres along each arm
	PointsPerNode int // Points around each arm node
	BroadCount    int // Halo points filling the gaps

	TwistExponent float64 // Exponent on planar distance in the twist angle
	Turbulence    float64 // Simplex displacement amplitude (0 = off)

	RotationCurve *curve.Curve // Twist factor by normalized radius (required)
	HeightCurve   *curve.Curve // Vertical scale by normalized radius (nil = flat)

	Sentinel r3.Vector // Fixed gate appended last
}

// DefaultGenConfig returns the reference galaxy layout.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:          0,
		BulgeCount:    2000,
		ArmCount:      4,
		NodesPerArm:   7,
		PointsPerNode: 100,
		BroadCount:    1200,
		TwistExponent: 0.52,
		RotationCurve: curve.DefaultRotation(),
		Sentinel:      DefaultSentinel,
	}
}

// SmallTestConfig returns a sparse galaxy for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Seed = 42
	cfg.BulgeCount = 200
	cfg.PointsPerNode = 10
	cfg.BroadCount = 120
	return cfg
}

// RawCount is the number of points scattered before thinning.
func (c GenConfig) RawCount() int {
	return c.BulgeCount + c.ArmCount*c.NodesPerArm*c.PointsPerNode + c.BroadCount
}

// FinalCount is the number of gates Generate produces.
func (c GenConfig) FinalCount() int {
	raw := c.RawCount()
	return raw - raw/3 + 1
}

// Validate checks the configuration.
func (c GenConfig) Validate() error {
	if c.BulgeCount < 0 || c.ArmCount < 0 || c.NodesPerArm < 0 || c.PointsPerNode < 0 || c.BroadCount < 0 {
		return fmt.Errorf("%w: negative point count", ErrConfig)
	}
	if c.RotationCurve == nil {
		return fmt.Errorf("%w: rotation curve is required", ErrConfig)
	}
	if c.Turbulence < 0 || !(c.TwistExponent > 0) {
		return fmt.Errorf("%w: turbulence %v, twist exponent %v", ErrConfig, c.Turbulence, c.TwistExponent)
	}
	return nil
}

// Generate fills gal with gates and returns them in generation order.
// Any existing gates are discarded.
func Generate(gal *Galaxy, cfg GenConfig) ([]*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	src := cfg.Source
	if src == nil {
		src = entropy.NewSource(cfg.Seed)
	}
	s := entropy.NewSampler(src)

	points := make([]r3.Vector, 0, cfg.RawCount()+1)
	points = scatterBulge(points, s, gal, cfg.BulgeCount)
	points = scatterArms(points, s, gal, cfg)
	points = scatterBroad(points, s, gal, cfg.BroadCount)

	if cfg.HeightCurve != nil {
		shapeHeight(points, gal, cfg.HeightCurve)
	}
	if cfg.Turbulence > 0 {
		perturb(points, int64(s.Intn(math.MaxInt32)), gal, cfg.Turbulence)
	}

	twist(points, gal, cfg.RotationCurve, cfg.TwistExponent)
	points = thin(points, s)
	points = append(points, cfg.Sentinel)

	gal.Clear()
	for _, p := range points {
		gal.Add(p)
	}

	slog.Debug("galaxy generated", "galaxy", gal.Index, "gates", len(gal.Gates), "raw", cfg.RawCount())
	return gal.Gates, nil
}

// scatterBulge builds the central cluster, resampling whole points that fall
// inside radius/6 to leave a hollow core.
func scatterBulge(points []r3.Vector, s *entropy.Sampler, gal *Galaxy, n int) []r3.Vector {
	core := gal.Radius / 6
	for i := 0; i < n; i++ {
		var p r3.Vector
		for {
			p = r3.Vector{
				X: s.Gaussian(0, gal.Radius/4),
				Y: s.Gaussian(0, gal.Height/3),
				Z: s.Gaussian(0, gal.Radius/4),
			}
			if p.Norm() >= core {
				break
			}
		}
		points = append(points, p)
	}
	return points
}

// scatterArms places nodes along each arm's diagonal and scatters points
// around every node.
func scatterArms(points []r3.Vector, s *entropy.Sampler, gal *Galaxy, cfg GenConfig) []r3.Vector {
	if cfg.ArmCount == 0 {
		return points
	}
	spacing := 360.0 / float64(cfg.ArmCount)
	diagonal := r3.Vector{X: 1, Y: 1, Z: 1}
	step := gal.Radius / 4

	for arm := 0; arm < cfg.ArmCount; arm++ {
		armAngle := spacing * float64(arm)
		for node := 0; node < cfg.NodesPerArm; node++ {
			wiggle := (1 + s.Float()) * (gal.Height / 6)
			nodePos := geom.Rotate(geom.AngleAxis(armAngle+wiggle, geom.Up), diagonal.Mul(step+step*float64(node)))

			for i := 0; i < cfg.PointsPerNode; i++ {
				points = append(points, r3.Vector{
					X: s.Gaussian(0, gal.Radius/3) + nodePos.X,
					Y: s.Gaussian(0, gal.Height/4),
					Z: s.Gaussian(0, gal.Radius/3) + nodePos.Z,
				})
			}
		}
	}
	return points
}

// scatterBroad fills gaps with a wide, flat halo.
func scatterBroad(points []r3.Vector, s *entropy.Sampler, gal *Galaxy, n int) []r3.Vector {
	for i := 0; i < n; i++ {
		points = append(points, r3.Vector{
			X: s.Gaussian(0, gal.Radius*0.9),
			Y: s.Gaussian(0, gal.Height*0.3),
			Z: s.Gaussian(0, gal.Radius*0.9),
		})
	}
	return points
}

// shapeHeight scales each point's height by the profile at its normalized
// planar radius.
func shapeHeight(points []r3.Vector, gal *Galaxy, profile *curve.Curve) {
	for i, p := range points {
		points[i].Y = p.Y * profile.Evaluate(geom.PlanarDistance(p)/gal.Radius)
	}
}

// perturb displaces points by coherent 3D simplex noise so neighbouring
// points drift together.
func perturb(points []r3.Vector, seed int64, gal *Galaxy, amplitude float64) {
	noise := opensimplex.New(seed)
	freq := 4 / gal.Radius
	for i, p := range points {
		x, y, z := p.X*freq, p.Y*freq, p.Z*freq
		points[i] = p.Add(r3.Vector{
			X: noise.Eval3(x, y, z),
			Y: noise.Eval3(x+31.7, y+17.3, z+5.1),
			Z: noise.Eval3(x+11.9, y+43.1, z+23.3),
		}.Mul(amplitude))
	}
}

// twist rotates every point about the vertical axis by an angle that grows
// with planar distance, bending the arms into spirals.
func twist(points []r3.Vector, gal *Galaxy, profile *curve.Curve, exponent float64) {
	for i, p := range points {
		d := geom.PlanarDistance(p)
		factor := profile.Evaluate(d / gal.Radius)
		moveBy := math.Pi * 4 * factor
		points[i] = geom.Rotate(geom.AngleAxis(math.Pow(d, exponent)*moveBy, geom.Up), p)
	}
}

// thin removes a uniformly random third of the points.
func thin(points []r3.Vector, s *entropy.Sampler) []r3.Vector {
	c := len(points) / 3
	for i := 0; i < c; i++ {
		j := s.Intn(len(points))
		points = slices.Delete(points, j, j+1)
	}
	return points
}
