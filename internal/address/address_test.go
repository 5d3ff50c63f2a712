package address

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	const maxVal = 1024
	tests := []struct {
		name string
		addr Address
		ok   bool
	}{
		{"direct", Direct(0, 640, 493, 50), true},
		{"referenced", Referenced(0, 12, 30, 640, 493, 2), true},
		{"upper bound", Direct(0, 1023, 1023, 1023), true},
		{"digit at maxVal", Direct(0, 1024, 493, 50), false},
		{"negative digit", Direct(0, 640, -2, 50), false},
		{"negative galaxy", Direct(-1, 640, 493, 50), false},
		{"half reference", Address{0, 3, Unused, 640, 493, 50}, false},
		{"empty target", Empty(), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.addr.Validate(maxVal)
			if tt.ok && err != nil {
				t.Errorf("Validate(%v) = %v, want nil", tt.addr, err)
			}
			if !tt.ok && !errors.Is(err, ErrValidation) {
				t.Errorf("Validate(%v) = %v, want ErrValidation", tt.addr, err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	a, err := Parse("0.-1.-1.640.493.50")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if want := Direct(0, 640, 493, 50); a != want {
		t.Errorf("Parse = %v, want %v", a, want)
	}
	if a.HasReference() {
		t.Error("direct address reports a reference")
	}

	b, err := Parse("0, 4, 7, 1, 2, 3")
	if err != nil {
		t.Fatalf("Parse with commas: %v", err)
	}
	if !b.HasReference() || b[SlotRefMagnitude] != 7 {
		t.Errorf("Parse with commas = %v", b)
	}

	c, err := Parse("0 -1 -1 640 493 50")
	if err != nil || c != a {
		t.Errorf("Parse with spaces = %v, %v", c, err)
	}

	for _, bad := range []string{
		"", "1.2.3", "0.-1.-1.640.493.50.7", "0.x.-1.640.493.50",
		"0..-1.-1.640.493.50", "0.-1.-1.640.493.", ".0.-1.-1.640.493",
		"0,,4,7,1,2", "0.-1,-1.640.493.50",
	} {
		if _, err := Parse(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("Parse(%q) err = %v, want ErrValidation", bad, err)
		}
	}
}

func TestTextForm(t *testing.T) {
	a := Referenced(2, 100, 9, 3, 512, 1)
	text, err := a.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText: %v", err)
	}
	if string(text) != "2.100.9.3.512.1" {
		t.Errorf("MarshalText = %q", text)
	}
	var back Address
	if err := back.UnmarshalText(text); err != nil || back != a {
		t.Errorf("UnmarshalText = %v, %v; want %v", back, err, a)
	}
}

func TestBinaryForm(t *testing.T) {
	a := Direct(0, 640, 493, 50)
	b, err := a.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	// Version byte plus six varints of at most two bytes each.
	if len(b) > 1+NumSlots*2 {
		t.Errorf("binary form is %d bytes", len(b))
	}
	var back Address
	if err := back.UnmarshalBinary(b); err != nil || back != a {
		t.Fatalf("UnmarshalBinary = %v, %v; want %v", back, err, a)
	}

	for name, bad := range map[string][]byte{
		"empty":     nil,
		"version":   {9, 0},
		"truncated": b[:4],
		"trailing":  append(append([]byte{}, b...), 0),
	} {
		if err := back.UnmarshalBinary(bad); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: err = %v, want ErrValidation", name, err)
		}
	}
}

func TestFromSlice(t *testing.T) {
	if _, err := FromSlice([]int{0, -1, -1, 1, 2}); !errors.Is(err, ErrValidation) {
		t.Errorf("short slice err = %v", err)
	}
	a, err := FromSlice([]int{0, -1, -1, 1, 2, 3})
	if err != nil || a != Direct(0, 1, 2, 3) {
		t.Errorf("FromSlice = %v, %v", a, err)
	}
}
