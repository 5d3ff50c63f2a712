// Package curve provides keyframed univariate profiles used to shape galaxy
// generation (spiral twist by radius, vertical envelope by radius).
package curve

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/interp"
)

// ErrKeyframes is returned for keyframe sets that cannot be interpolated.
var ErrKeyframes = errors.New("curve: invalid keyframes")

// Interpolation selects how values between keyframes are computed.
type Interpolation uint8

const (
	Linear   Interpolation = iota // Straight segments between keys
	Monotone                      // Fritsch-Butland cubic, no overshoot
	Akima                         // Akima spline, smooth through noisy keys
	Step                          // Holds the next key's value
)

// Key is a single (time, value) keyframe.
type Key struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Curve evaluates a fitted keyframe profile. Inputs outside the keyed range
// are clamped to the first/last key.
type Curve struct {
	keys []Key
	pred interp.Predictor
}

// New fits a curve through keys. Keys are sorted by time; at least two keys
// with distinct times are required.
func New(mode Interpolation, keys ...Key) (*Curve, error) {
	sorted := make([]Key, len(keys))
	copy(sorted, keys)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })

	if len(sorted) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 keys, got %d", ErrKeyframes, len(sorted))
	}

	xs := make([]float64, len(sorted))
	ys := make([]float64, len(sorted))
	for i, k := range sorted {
		if i > 0 && k.Time <= sorted[i-1].Time {
			return nil, fmt.Errorf("%w: duplicate key time %v", ErrKeyframes, k.Time)
		}
		xs[i], ys[i] = k.Time, k.Value
	}

	var fp interp.FittablePredictor
	switch mode {
	case Linear:
		fp = &interp.PiecewiseLinear{}
	case Monotone:
		fp = &interp.FritschButland{}
	case Akima:
		fp = &interp.AkimaSpline{}
	case Step:
		fp = &interp.PiecewiseConstant{}
	default:
		return nil, fmt.Errorf("%w: unknown interpolation %d", ErrKeyframes, mode)
	}
	if err := fp.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("fit curve: %w", err)
	}

	return &Curve{keys: sorted, pred: fp}, nil
}

// MustNew is New for package-level curves with literal keys.
func MustNew(mode Interpolation, keys ...Key) *Curve {
	c, err := New(mode, keys...)
	if err != nil {
		panic(err)
	}
	return c
}

// Evaluate returns the profile value at t.
func (c *Curve) Evaluate(t float64) float64 {
	first, last := c.keys[0], c.keys[len(c.keys)-1]
	if t <= first.Time {
		return first.Value
	}
	if t >= last.Time {
		return last.Value
	}
	return c.pred.Predict(t)
}

// Constant returns a flat curve over [0, 1].
func Constant(v float64) *Curve {
	return MustNew(Linear, Key{0, v}, Key{1, v})
}

// DefaultRotation is the reference spiral-twist profile: no twist at the
// core, rising through the arms and easing off at the rim.
func DefaultRotation() *Curve {
	return MustNew(Monotone,
		Key{Time: 0.0, Value: 0.0},
		Key{Time: 0.15, Value: 0.35},
		Key{Time: 0.4, Value: 0.75},
		Key{Time: 0.7, Value: 0.95},
		Key{Time: 1.0, Value: 1.0},
	)
}
