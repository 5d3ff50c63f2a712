package entropy

import (
	"errors"
	"math"
)

// ErrInvalidBounds is returned by GaussianBounded when min > max.
var ErrInvalidBounds = errors.New("entropy: min greater than max")

// maxBoundedDraws caps resampling in GaussianBounded so a window far out in
// the tail cannot spin forever.
const maxBoundedDraws = 1 << 16

// Sampler draws scalars from a Source.
type Sampler struct {
	src Source
}

// NewSampler wraps src.
func NewSampler(src Source) *Sampler {
	return &Sampler{src: src}
}

// Float returns a uniform value in [0, 1).
func (s *Sampler) Float() float64 {
	return s.src.Float64()
}

// Uniform returns a uniform value in [min, max).
func (s *Sampler) Uniform(min, max float64) float64 {
	return min + s.src.Float64()*(max-min)
}

// Intn returns a uniform integer in [0, n).
func (s *Sampler) Intn(n int) int {
	return s.src.Intn(n)
}

// standardNormal uses the polar Box-Muller method. Draws with s outside
// (0, 1) are rejected, which also keeps log(0)/0 out of the transform.
func (s *Sampler) standardNormal() float64 {
	for {
		v1 := 2*s.src.Float64() - 1
		v2 := 2*s.src.Float64() - 1
		sq := v1*v1 + v2*v2
		if sq >= 1 || sq == 0 {
			continue
		}
		f := math.Sqrt(-2 * math.Log(sq) / sq)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		return v1 * f
	}
}

// Gaussian returns a normally distributed value. A zero stddev returns mean
// exactly.
func (s *Sampler) Gaussian(mean, stddev float64) float64 {
	if stddev == 0 {
		return mean
	}
	return mean + s.standardNormal()*stddev
}

// GaussianBounded resamples Gaussian until the result falls in [min, max].
// If the window is never hit within maxBoundedDraws the result is clamped.
func (s *Sampler) GaussianBounded(mean, stddev, min, max float64) (float64, error) {
	if min > max {
		return 0, ErrInvalidBounds
	}
	for i := 0; i < maxBoundedDraws; i++ {
		x := s.Gaussian(mean, stddev)
		if x >= min && x <= max {
			return x, nil
		}
		if stddev == 0 {
			break
		}
	}
	return math.Min(math.Max(mean, min), max), nil
}
