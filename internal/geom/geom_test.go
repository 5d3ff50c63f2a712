package geom

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/floats/scalar"
)

func vecNear(a, b r3.Vector, tol float64) bool {
	return a.Distance(b) <= tol
}

func TestSnapToGridIdempotent(t *testing.T) {
	steps := []float64{0.3515625, 1.7578125, 1e-4, 2, 15}
	values := []float64{0, 1, -1, 0.17578, 123.456, -987.654, 359.9, 1e6 + 0.5}
	for _, step := range steps {
		for _, v := range values {
			once := SnapToGrid(v, step)
			twice := SnapToGrid(once, step)
			if once != twice {
				t.Errorf("SnapToGrid(%v, %v): %v then %v", v, step, once, twice)
			}
			if math.Abs(once-v) > step/2+1e-9 {
				t.Errorf("SnapToGrid(%v, %v) = %v, more than half a step away", v, step, once)
			}
		}
	}
	if got := SnapToGrid(3.3, 0.0); got != 3.3 {
		t.Errorf("zero step: got %v, want 3.3", got)
	}
	if got := SnapToGrid(float32(2.6), float32(0.5)); got != 2.5 {
		t.Errorf("float32 snap: got %v, want 2.5", got)
	}
}

func TestRoundVector(t *testing.T) {
	got := RoundVector(r3.Vector{X: 60.46631, Y: -20.30779, Z: 0.99999}, 4)
	want := r3.Vector{X: 60.4663, Y: -20.3078, Z: 1}
	if !vecNear(got, want, 1e-12) {
		t.Errorf("RoundVector = %v, want %v", got, want)
	}
	if again := RoundVector(got, 4); again != got {
		t.Errorf("RoundVector not idempotent: %v then %v", got, again)
	}
}

func TestSphericalRoundTrip(t *testing.T) {
	tests := []struct {
		az, alt, mag float64
	}{
		{0, 0, 10},
		{180, 0, 10}, // tan(azimuth) == 0
		{-180, 10, 5},
		{90, 0, 3},
		{-90, -45, 7},
		{45, -13.359375, 87.890625},
		{123.4, 60, 250},
	}
	for _, tt := range tests {
		v := FromSpherical(tt.az, tt.alt, tt.mag)
		if math.IsNaN(v.X) || math.IsNaN(v.Y) || math.IsNaN(v.Z) {
			t.Fatalf("FromSpherical(%v, %v, %v) = %v", tt.az, tt.alt, tt.mag, v)
		}
		if !scalar.EqualWithinAbs(v.Norm(), tt.mag, 1e-9) {
			t.Errorf("|FromSpherical| = %v, want %v", v.Norm(), tt.mag)
		}
		back := FromSpherical(ToSpherical(v))
		if !vecNear(v, back, 1e-9) {
			t.Errorf("round trip of %v gave %v", v, back)
		}
	}

	if v := FromSpherical(180, 0, 2); !vecNear(v, r3.Vector{X: -2}, 1e-12) {
		t.Errorf("FromSpherical(180, 0, 2) = %v, want (-2, 0, 0)", v)
	}
	if az, alt, mag := ToSpherical(r3.Vector{}); az != 0 || alt != 0 || mag != 0 {
		t.Errorf("ToSpherical(zero) = %v %v %v", az, alt, mag)
	}
}

func TestAngleAxisRotate(t *testing.T) {
	got := Rotate(AngleAxis(90, Up), r3.Vector{X: 1})
	if !vecNear(got, r3.Vector{Z: -1}, 1e-12) {
		t.Errorf("rotate +X by 90 about Y = %v, want (0, 0, -1)", got)
	}

	p := r3.Vector{X: 3, Y: -2, Z: 5}
	got = Rotate(AngleAxis(37, Up), p)
	if !scalar.EqualWithinAbs(got.Y, p.Y, 1e-12) || !scalar.EqualWithinAbs(got.Norm(), p.Norm(), 1e-12) {
		t.Errorf("yaw changed height or length: %v -> %v", p, got)
	}
}

func TestFromToRotation(t *testing.T) {
	targets := []r3.Vector{
		{X: 60.3, Y: -20, Z: 60.7},
		{X: 0, Y: 5, Z: 0},
		{X: 0, Y: -5, Z: 0},
		{X: -1, Y: 0, Z: 0},
		{X: 0.001, Y: 300, Z: -0.002},
	}
	for _, to := range targets {
		q := FromToRotation(Up, to)
		got := Rotate(q, Up)
		if !vecNear(got, to.Normalize(), 1e-9) {
			t.Errorf("FromToRotation(up, %v) maps up to %v", to, got)
		}
	}
}

func TestEulerRoundTrip(t *testing.T) {
	tests := [][3]float64{
		{0, 0, 0},
		{10, 20, 30},
		{350, 100, 5},
		{45, 270, 300},
		{90, 30, 0}, // gimbal lock
		{270, 40, 0},
	}
	v := r3.Vector{X: 0.3, Y: 0.9, Z: -0.2}
	for _, tt := range tests {
		q := Euler(tt[0], tt[1], tt[2])
		x, y, z := EulerAngles(q)
		for _, a := range []float64{x, y, z} {
			if a < 0 || a >= 360 {
				t.Errorf("EulerAngles(%v) = %v %v %v, outside [0, 360)", tt, x, y, z)
			}
		}
		// Compare rotations rather than angles: decompositions are not unique.
		want := Rotate(q, v)
		got := Rotate(Euler(x, y, z), v)
		if !vecNear(want, got, 1e-9) {
			t.Errorf("Euler(EulerAngles(%v)) rotates v to %v, want %v", tt, got, want)
		}
	}
}
