// Package geom holds the vector math shared by galaxy generation and
// address encoding: grid snapping, spherical coordinates and rotations.
// Angles at package boundaries are in degrees.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/floats/scalar"
)

// Up is the galactic vertical axis.
var Up = r3.Vector{X: 0, Y: 1, Z: 0}

// Forward is the depth axis used for pitch edits.
var Forward = r3.Vector{X: 0, Y: 0, Z: 1}

// SnapToGrid rounds v to the nearest multiple of step. A non-positive step
// returns v unchanged.
func SnapToGrid[T constraints.Float](v, step T) T {
	if step <= 0 {
		return v
	}
	return T(math.Round(float64(v/step))) * step
}

// RoundVector rounds each component of v to the given number of decimal
// places.
func RoundVector(v r3.Vector, places int) r3.Vector {
	return r3.Vector{
		X: scalar.Round(v.X, places),
		Y: scalar.Round(v.Y, places),
		Z: scalar.Round(v.Z, places),
	}
}

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 { return d * math.Pi / 180 }

// Rad2Deg converts radians to degrees.
func Rad2Deg(r float64) float64 { return r * 180 / math.Pi }

// FromSpherical converts azimuth (around +Y, measured from +X toward +Z),
// altitude (above the XZ plane) and magnitude to a Cartesian vector.
// Both horizontal components come from the horizontal radius directly, so
// the conversion is defined for every azimuth.
func FromSpherical(azimuth, altitude, magnitude float64) r3.Vector {
	az, alt := Deg2Rad(azimuth), Deg2Rad(altitude)
	h := magnitude * math.Cos(alt)
	return r3.Vector{
		X: h * math.Cos(az),
		Y: magnitude * math.Sin(alt),
		Z: h * math.Sin(az),
	}
}

// ToSpherical is the inverse of FromSpherical. Azimuth is in (-180, 180],
// altitude in [-90, 90]. The zero vector maps to all zeros.
func ToSpherical(v r3.Vector) (azimuth, altitude, magnitude float64) {
	magnitude = v.Norm()
	if magnitude == 0 {
		return 0, 0, 0
	}
	s := v.Y / magnitude
	// Guard asin against rounding just past ±1.
	s = math.Max(-1, math.Min(1, s))
	return Rad2Deg(math.Atan2(v.Z, v.X)), Rad2Deg(math.Asin(s)), magnitude
}

// PlanarDistance is the distance of v from the vertical axis.
func PlanarDistance(v r3.Vector) float64 {
	return math.Hypot(v.X, v.Z)
}
