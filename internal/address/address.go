// Package address defines the six-slot dialing code that identifies a gate,
// its validation rules and its text and binary forms.
package address

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Slot positions within an Address.
const (
	SlotGalaxy       = iota // Galaxy index
	SlotRefAzimuth          // Reference point azimuth digit
	SlotRefMagnitude        // Reference point magnitude digit
	SlotAzimuth             // Target azimuth digit
	SlotAltitude            // Target altitude digit
	SlotMagnitude           // Target magnitude digit

	NumSlots
)

// Unused marks an empty reference slot.
const Unused = -1

// binaryVersion prefixes the binary form.
const binaryVersion byte = 1

// ErrValidation is returned for malformed addresses.
var ErrValidation = errors.New("address: invalid")

// Address is a dialing code: [galaxy, refAzimuthN, refMagnitudeN, azimuthN,
// altitudeN, magnitudeN].
type Address [NumSlots]int

// Empty returns an address with every slot set to Unused.
func Empty() Address {
	return Address{Unused, Unused, Unused, Unused, Unused, Unused}
}

// Direct builds an address without a reference point.
func Direct(galaxy, azimuthN, altitudeN, magnitudeN int) Address {
	return Address{galaxy, Unused, Unused, azimuthN, altitudeN, magnitudeN}
}

// Referenced builds an address relative to a reference point.
func Referenced(galaxy, refAzimuthN, refMagnitudeN, azimuthN, altitudeN, magnitudeN int) Address {
	return Address{galaxy, refAzimuthN, refMagnitudeN, azimuthN, altitudeN, magnitudeN}
}

// Galaxy returns the galaxy slot.
func (a Address) Galaxy() int { return a[SlotGalaxy] }

// HasReference reports whether either reference slot is in use.
func (a Address) HasReference() bool {
	return a[SlotRefAzimuth] != Unused || a[SlotRefMagnitude] != Unused
}

// Validate checks slot bounds against maxVal = baseN^numDigits.
func (a Address) Validate(maxVal int) error {
	if a[SlotGalaxy] < 0 {
		return fmt.Errorf("%w: galaxy slot %d is negative", ErrValidation, a[SlotGalaxy])
	}
	refAz, refMag := a[SlotRefAzimuth], a[SlotRefMagnitude]
	if (refAz == Unused) != (refMag == Unused) {
		return fmt.Errorf("%w: reference slots must both be set or both be %d", ErrValidation, Unused)
	}
	for i := SlotRefAzimuth; i < NumSlots; i++ {
		if (i == SlotRefAzimuth || i == SlotRefMagnitude) && a[i] == Unused {
			continue
		}
		if a[i] < 0 || a[i] >= maxVal {
			return fmt.Errorf("%w: slot %d digit %d outside [0, %d)", ErrValidation, i, a[i], maxVal)
		}
	}
	return nil
}

// String renders the address as dot-separated digits, e.g. "0.-1.-1.640.493.50".
func (a Address) String() string {
	parts := make([]string, NumSlots)
	for i, v := range a {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ".")
}

// FromSlice converts a digit slice into an Address.
func FromSlice(s []int) (Address, error) {
	var a Address
	if len(s) != NumSlots {
		return a, fmt.Errorf("%w: want %d slots, got %d", ErrValidation, NumSlots, len(s))
	}
	copy(a[:], s)
	return a, nil
}

// Parse reads the String form. Commas or whitespace are accepted as the
// separator instead of dots; spaces around a dot or comma are ignored, but
// an empty field is an error.
func Parse(s string) (Address, error) {
	var fields []string
	switch {
	case strings.Contains(s, "."):
		fields = strings.Split(s, ".")
	case strings.Contains(s, ","):
		fields = strings.Split(s, ",")
	default:
		fields = strings.Fields(s)
	}
	digits := make([]int, 0, len(fields))
	for i, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			return Address{}, fmt.Errorf("%w: empty field %d in %q", ErrValidation, i, s)
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return Address{}, fmt.Errorf("%w: digit %q: %v", ErrValidation, f, err)
		}
		digits = append(digits, v)
	}
	return FromSlice(digits)
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalBinary writes a version byte followed by six zig-zag varints.
func (a Address) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 1, 1+NumSlots*binary.MaxVarintLen64)
	buf[0] = binaryVersion
	for _, v := range a {
		buf = binary.AppendVarint(buf, int64(v))
	}
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (a *Address) UnmarshalBinary(b []byte) error {
	if len(b) == 0 || b[0] != binaryVersion {
		return fmt.Errorf("%w: unknown binary version", ErrValidation)
	}
	b = b[1:]
	var out Address
	for i := range out {
		v, n := binary.Varint(b)
		if n <= 0 {
			return fmt.Errorf("%w: truncated binary slot %d", ErrValidation, i)
		}
		out[i] = int(v)
		b = b[n:]
	}
	if len(b) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrValidation, len(b))
	}
	*a = out
	return nil
}
