package geom

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Identity is the no-op rotation.
var Identity = quat.Number{Real: 1}

// raise lifts a vector to a pure quaternion.
func raise(v r3.Vector) quat.Number {
	return quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
}

// AngleAxis returns the rotation of deg degrees about axis.
func AngleAxis(deg float64, axis r3.Vector) quat.Number {
	n := axis.Norm()
	if n == 0 {
		return Identity
	}
	half := Deg2Rad(deg) / 2
	s := math.Sin(half) / n
	return quat.Number{Real: math.Cos(half), Imag: axis.X * s, Jmag: axis.Y * s, Kmag: axis.Z * s}
}

// Rotate applies the unit rotation q to v.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	if l := quat.Abs(q); l != 1 && l != 0 {
		q = quat.Scale(1/l, q)
	}
	p := quat.Mul(quat.Mul(q, raise(v)), quat.Conj(q))
	return r3.Vector{X: p.Imag, Y: p.Jmag, Z: p.Kmag}
}

// FromToRotation returns the shortest-arc rotation taking the direction of
// from onto the direction of to.
func FromToRotation(from, to r3.Vector) quat.Number {
	if from.Norm() == 0 || to.Norm() == 0 {
		return Identity
	}
	f, t := from.Normalize(), to.Normalize()
	d := f.Dot(t)
	switch {
	case d >= 1-1e-12:
		return Identity
	case d <= -1+1e-12:
		// Opposite directions: half turn about any perpendicular axis.
		axis := f.Ortho()
		return quat.Number{Imag: axis.X, Jmag: axis.Y, Kmag: axis.Z}
	}
	c := f.Cross(t)
	q := quat.Number{Real: 1 + d, Imag: c.X, Jmag: c.Y, Kmag: c.Z}
	return quat.Scale(1/quat.Abs(q), q)
}

// Euler builds a rotation from angles in degrees applied in Z, X, Y order
// (roll, then pitch, then yaw).
func Euler(x, y, z float64) quat.Number {
	qx := AngleAxis(x, r3.Vector{X: 1})
	qy := AngleAxis(y, Up)
	qz := AngleAxis(z, Forward)
	return quat.Mul(quat.Mul(qy, qx), qz)
}

// EulerAngles decomposes q into the Z, X, Y angles accepted by Euler. Each
// angle is normalized into [0, 360).
func EulerAngles(q quat.Number) (x, y, z float64) {
	if l := quat.Abs(q); l != 0 {
		q = quat.Scale(1/l, q)
	}
	w, qx, qy, qz := q.Real, q.Imag, q.Jmag, q.Kmag

	m00 := 1 - 2*(qy*qy+qz*qz)
	m02 := 2 * (qx*qz + w*qy)
	m10 := 2 * (qx*qy + w*qz)
	m11 := 1 - 2*(qx*qx+qz*qz)
	m12 := 2 * (qy*qz - w*qx)
	m20 := 2 * (qx*qz - w*qy)
	m22 := 1 - 2*(qx*qx+qy*qy)

	sx := math.Max(-1, math.Min(1, -m12))
	if math.Abs(sx) < 1-1e-9 {
		x = math.Asin(sx)
		y = math.Atan2(m02, m22)
		z = math.Atan2(m10, m11)
	} else {
		// Gimbal lock: fold roll into yaw.
		x = math.Copysign(math.Pi/2, sx)
		y = math.Atan2(-m20, m00)
		z = 0
	}
	return wrapDegrees(Rad2Deg(x)), wrapDegrees(Rad2Deg(y)), wrapDegrees(Rad2Deg(z))
}

// wrapDegrees maps d into [0, 360).
func wrapDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
