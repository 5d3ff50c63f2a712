package curve

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestLinearEvaluate(t *testing.T) {
	c, err := New(Linear, Key{1, 10}, Key{0, 0}, Key{2, 0})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	tests := []struct {
		t, want float64
	}{
		{-5, 0}, // clamped low
		{0, 0},
		{0.25, 2.5},
		{1, 10},
		{1.5, 5},
		{2, 0},
		{9, 0}, // clamped high
	}
	for _, tt := range tests {
		if got := c.Evaluate(tt.t); !scalar.EqualWithinAbs(got, tt.want, 1e-12) {
			t.Errorf("Evaluate(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestMonotoneHasNoOvershoot(t *testing.T) {
	c := DefaultRotation()
	prev := c.Evaluate(0)
	for i := 1; i <= 100; i++ {
		v := c.Evaluate(float64(i) / 100)
		if v < prev-1e-12 {
			t.Fatalf("DefaultRotation not monotone at %v: %v < %v", float64(i)/100, v, prev)
		}
		if v < 0 || v > 1 {
			t.Fatalf("DefaultRotation(%v) = %v, outside [0, 1]", float64(i)/100, v)
		}
		prev = v
	}
}

func TestStepHoldsNextKey(t *testing.T) {
	c := MustNew(Step, Key{0, 1}, Key{1, 2}, Key{2, 3})
	if got := c.Evaluate(0.5); got != 2 {
		t.Errorf("Evaluate(0.5) = %v, want 2", got)
	}
}

func TestNewRejectsBadKeys(t *testing.T) {
	tests := []struct {
		name string
		mode Interpolation
		keys []Key
	}{
		{"empty", Linear, nil},
		{"single", Linear, []Key{{0, 1}}},
		{"duplicate time", Linear, []Key{{0, 1}, {0, 2}}},
		{"unknown mode", Interpolation(42), []Key{{0, 0}, {1, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.mode, tt.keys...); !errors.Is(err, ErrKeyframes) {
				t.Errorf("err = %v, want ErrKeyframes", err)
			}
		})
	}
}

func TestConstant(t *testing.T) {
	c := Constant(0.4)
	for _, x := range []float64{-1, 0, 0.3, 1, 3} {
		if got := c.Evaluate(x); !scalar.EqualWithinAbs(got, 0.4, 1e-12) {
			t.Errorf("Constant(0.4).Evaluate(%v) = %v", x, got)
		}
	}
}
