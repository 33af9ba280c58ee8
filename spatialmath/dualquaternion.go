// Package spatialmath defines spatial mathematical operations on poses and orientations.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

const (
	radToDeg = 180 / math.Pi
	degToRad = math.Pi / 180
)

// If two angles differ by less than this amount, we consider them the same for the purpose of doing
// math around the poles of orientation.
const angleEpsilon = 0.01 // radians

// dualQuaternion is the Pose implementation. The real part is the unit rotation quaternion and
// the dual part is 0.5 * translation * rotation.
type dualQuaternion struct {
	dualquat.Number
}

// newDualQuaternion returns a pointer to a new dualQuaternion object whose Quaternion is an identity Quaternion.
// Since the real part of a dual quaternion should be a unit quaternion, not all zeroes, this should be used
// instead of &dualQuaternion{}.
func newDualQuaternion() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Number{Real: 1},
		Dual: quat.Number{},
	}}
}

// newDualQuaternionFromPose returns a dualQuaternion equivalent to the given pose. The returned value
// never aliases p.
func newDualQuaternionFromPose(p Pose) *dualQuaternion {
	if q, ok := p.(*dualQuaternion); ok {
		return q.Clone()
	}
	q := newDualQuaternion()
	q.Real = Normalize(p.Orientation().Quaternion())
	q.SetTranslation(p.Point())
	return q
}

// Clone returns a dualQuaternion object identical to this one.
func (q *dualQuaternion) Clone() *dualQuaternion {
	// No need for deep copies here, dualquats are primitives all the way down
	return &dualQuaternion{q.Number}
}

// Point multiplies the dual part by the conjugate of the rotation to recover the translation.
func (q *dualQuaternion) Point() r3.Vector {
	tQuat := quat.Scale(2, quat.Mul(q.Dual, quat.Conj(q.Real)))
	return r3.Vector{X: tQuat.Imag, Y: tQuat.Jmag, Z: tQuat.Kmag}
}

// Orientation returns a copy of the rotation quaternion.
func (q *dualQuaternion) Orientation() Orientation {
	o := quaternion(q.Real)
	return &o
}

// SetTranslation correctly sets the translation quaternion against the rotation.
func (q *dualQuaternion) SetTranslation(pt r3.Vector) {
	q.Dual = quat.Scale(0.5, quat.Mul(quat.Number{Imag: pt.X, Jmag: pt.Y, Kmag: pt.Z}, q.Real))
}

// Invert returns the inverse rigid transformation. For a unit dual quaternion this is the
// quaternion conjugate of both parts.
func (q *dualQuaternion) Invert() *dualQuaternion {
	return &dualQuaternion{dualquat.Number{
		Real: quat.Conj(q.Real),
		Dual: quat.Conj(q.Dual),
	}}
}

// Normalize scales a quaternion to unit length. The zero quaternion maps to the identity.
func Normalize(q quat.Number) quat.Number {
	norm := quat.Abs(q)
	if norm == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/norm, q)
}

// Norm returns the norm of the quaternion, i.e. the sqrt of the squares of the imaginary parts.
func Norm(q quat.Number) float64 {
	return math.Sqrt(q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
}

// Flip will multiply a quaternion by -1, returning a quaternion representing the same orientation but in the opposing octant.
func Flip(q quat.Number) quat.Number {
	return quat.Number{Real: -q.Real, Imag: -q.Imag, Jmag: -q.Jmag, Kmag: -q.Kmag}
}

// QuaternionAlmostEqual is an equality test for all the float components of a quaternion. Quaternions have double coverage,
// so q and -q represent the same orientation and compare equal.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	componentsClose := func(a, b quat.Number) bool {
		return math.Abs(a.Real-b.Real) < tol &&
			math.Abs(a.Imag-b.Imag) < tol &&
			math.Abs(a.Jmag-b.Jmag) < tol &&
			math.Abs(a.Kmag-b.Kmag) < tol
	}
	return componentsClose(a, b) || componentsClose(a, Flip(b))
}

// slerp is spherical linear interpolation between two unit quaternions. by == 0 returns qN1 and
// by == 1 returns qN2 (up to sign), travelling the shorter arc.
func slerp(qN1, qN2 quat.Number, by float64) quat.Number {
	if qN1 == qN2 {
		return qN1
	}
	qN1 = Normalize(qN1)
	qN2 = Normalize(qN2)

	dot := qN1.Real*qN2.Real + qN1.Imag*qN2.Imag + qN1.Jmag*qN2.Jmag + qN1.Kmag*qN2.Kmag
	// Take the shorter way around the 4D sphere.
	if dot < 0 {
		qN2 = Flip(qN2)
		dot = -dot
	}

	// Nearly parallel quaternions are linearly interpolated to avoid dividing by sin(~0).
	if dot > 0.9995 {
		return Normalize(quat.Add(qN1, quat.Scale(by, quat.Sub(qN2, qN1))))
	}

	theta0 := math.Acos(dot)
	theta := theta0 * by
	sinTheta0 := math.Sin(theta0)
	s1 := math.Cos(theta) - dot*math.Sin(theta)/sinTheta0
	s2 := math.Sin(theta) / sinTheta0
	return quat.Add(quat.Scale(s1, qN1), quat.Scale(s2, qN2))
}
