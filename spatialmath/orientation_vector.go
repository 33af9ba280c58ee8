package spatialmath

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/tfconnector/utils"
)

// OrientationVector containing ox, oy, oz, theta represents an orientation vector
// Structured similarly to an angle axis, an orientation vector works differently. Rather than representing an orientation
// with an arbitrary axis and a rotation around it from an origin, an orientation vector represents orientation
// such that the ox/oy/oz components represent the point on the cartesian unit sphere at which your end effector is pointing
// from the origin, and that unit vector forms an axis around which theta rotates. This means that incrementing/decrementing
// theta will perform an in-line rotation of the end effector.
// Theta is defined as rotation between two planes: the plane defined by the origin, the point (0,0,1), and the rx,ry,rz
// point, and the plane defined by the origin, the rx,ry,rz point, and the new local Z axis. So if theta is kept at
// zero as the north/south pole is circled, the Roll will correct itself to remain in-line.
type OrientationVector struct {
	Theta float64 `json:"th"`
	OX    float64 `json:"x"`
	OY    float64 `json:"y"`
	OZ    float64 `json:"z"`
}

// OrientationVectorDegrees is the orientation vector between two objects, but expressed in degrees rather than radians.
// Because protobuf Pose is in degrees, this is necessary.
type OrientationVectorDegrees struct {
	Theta float64 `json:"th"`
	OX    float64 `json:"x"`
	OY    float64 `json:"y"`
	OZ    float64 `json:"z"`
}

// NewOrientationVector Creates a zero-initialized OrientationVector.
func NewOrientationVector() *OrientationVector {
	return &OrientationVector{Theta: 0, OX: 0, OY: 0, OZ: 1}
}

// NewOrientationVectorDegrees Creates a zero-initialized OrientationVectorDegrees.
func NewOrientationVectorDegrees() *OrientationVectorDegrees {
	return &OrientationVectorDegrees{Theta: 0, OX: 0, OY: 0, OZ: 1}
}

// Degrees converts the OrientationVector to an OrientationVectorDegrees.
func (ov *OrientationVector) Degrees() *OrientationVectorDegrees {
	return &OrientationVectorDegrees{Theta: utils.RadToDeg(ov.Theta), OX: ov.OX, OY: ov.OY, OZ: ov.OZ}
}

// Radians converts a OrientationVectorDegrees to an OrientationVector.
func (ovd *OrientationVectorDegrees) Radians() *OrientationVector {
	return &OrientationVector{Theta: utils.DegToRad(ovd.Theta), OX: ovd.OX, OY: ovd.OY, OZ: ovd.OZ}
}

// Normalize scales the x, y, and z components of an Orientation Vector to be on the unit sphere.
// A zero vector points along +Z.
func (ov *OrientationVector) Normalize() {
	norm := math.Sqrt(ov.OX*ov.OX + ov.OY*ov.OY + ov.OZ*ov.OZ)
	if norm == 0.0 {
		ov.OX, ov.OY, ov.OZ = 0, 0, 1
		return
	}
	ov.OX /= norm
	ov.OY /= norm
	ov.OZ /= norm
}

// ToQuat converts an orientation vector to a quaternion. The vector starts pointed along +Z, is
// rotated by theta about that axis, tilted down to its latitude and swung to its longitude, so the
// rotation is composed in ZYZ order.
func (ov *OrientationVector) ToQuat() quat.Number {
	ov.Normalize()

	// acos(rz) ranges from 0 (north pole) to pi (south pole)
	lat := math.Acos(utils.Clamp(ov.OZ, -1, 1))

	// Longitude is meaningless at the poles, where theta alone carries the rotation.
	lon := 0.0
	if 1-math.Abs(ov.OZ) > angleEpsilon {
		lon = math.Atan2(ov.OY, ov.OX)
	}

	qLon := (&R4AA{Theta: lon, RZ: 1}).ToQuat()
	qLat := (&R4AA{Theta: lat, RY: 1}).ToQuat()
	qTheta := (&R4AA{Theta: ov.Theta, RZ: 1}).ToQuat()
	return quat.Mul(quat.Mul(qLon, qLat), qTheta)
}

// OrientationVectorRadians returns orientation as an orientation vector (in radians).
func (ov *OrientationVector) OrientationVectorRadians() *OrientationVector {
	return ov
}

// OrientationVectorDegrees returns orientation as an orientation vector (in degrees).
func (ov *OrientationVector) OrientationVectorDegrees() *OrientationVectorDegrees {
	return ov.Degrees()
}

// AxisAngles returns the orientation in axis angle representation.
func (ov *OrientationVector) AxisAngles() *R4AA {
	return QuatToR4AA(ov.ToQuat())
}

// Quaternion returns orientation in quaternion representation.
func (ov *OrientationVector) Quaternion() quat.Number {
	return ov.ToQuat()
}

// EulerAngles returns orientation in Euler angle representation.
func (ov *OrientationVector) EulerAngles() *EulerAngles {
	return QuatToEulerAngles(ov.ToQuat())
}

// OrientationVectorRadians returns orientation as an orientation vector (in radians).
func (ovd *OrientationVectorDegrees) OrientationVectorRadians() *OrientationVector {
	return ovd.Radians()
}

// OrientationVectorDegrees returns orientation as an orientation vector (in degrees).
func (ovd *OrientationVectorDegrees) OrientationVectorDegrees() *OrientationVectorDegrees {
	return ovd
}

// AxisAngles returns the orientation in axis angle representation.
func (ovd *OrientationVectorDegrees) AxisAngles() *R4AA {
	return QuatToR4AA(ovd.Quaternion())
}

// Quaternion returns orientation in quaternion representation.
func (ovd *OrientationVectorDegrees) Quaternion() quat.Number {
	return ovd.Radians().ToQuat()
}

// EulerAngles returns orientation in Euler angle representation.
func (ovd *OrientationVectorDegrees) EulerAngles() *EulerAngles {
	return QuatToEulerAngles(ovd.Quaternion())
}

// QuatToOVD converts a quaternion to an orientation vector in degrees.
func QuatToOVD(q quat.Number) *OrientationVectorDegrees {
	return QuatToOV(q).Degrees()
}

// QuatToOV converts a quaternion to an orientation vector.
func QuatToOV(q quat.Number) *OrientationVector {
	xAxis := quat.Number{Real: 0, Imag: -1, Jmag: 0, Kmag: 0}
	zAxis := quat.Number{Real: 0, Imag: 0, Jmag: 0, Kmag: 1}
	ov := &OrientationVector{}
	// Get the transform of our +X and +Z points
	newX := quat.Mul(quat.Mul(q, xAxis), quat.Conj(q))
	newZ := quat.Mul(quat.Mul(q, zAxis), quat.Conj(q))
	ov.OX = newZ.Imag
	ov.OY = newZ.Jmag
	ov.OZ = newZ.Kmag

	// The contents of ov.newX.Kmag are not in radians but we can use angleEpsilon anyway to check how close we are to
	// the pole because it's a convenient small number
	if 1-math.Abs(newZ.Kmag) <= angleEpsilon {
		// Special case for when we point directly along the Z axis
		// Get the vector normal to the local-x, global-z, origin plane
		ov.Theta = -math.Atan2(newX.Jmag, -newX.Imag)
		if newZ.Kmag < 0 {
			ov.Theta = -math.Atan2(newX.Jmag, newX.Imag)
		}
		return ov
	}

	v1 := mgl64.Vec3{newZ.Imag, newZ.Jmag, newZ.Kmag}
	v2 := mgl64.Vec3{newX.Imag, newX.Jmag, newX.Kmag}

	// Get the vector normal to the local-x, local-z, origin plane
	norm1 := v1.Cross(v2)

	// Get the vector normal to the global-z, local-z, origin plane
	norm2 := v1.Cross(mgl64.Vec3{zAxis.Imag, zAxis.Jmag, zAxis.Kmag})

	// For theta, we find the angle between the planes defined by local-x, global-z, origin and local-x, local-z, origin
	cosTheta := utils.Clamp(norm1.Dot(norm2)/(norm1.Len()*norm2.Len()), -1, 1)

	theta := math.Acos(cosTheta)
	if theta <= angleEpsilon {
		ov.Theta = 0
		return ov
	}

	// Acos will always produce a positive number, we need to determine directionality of the angle
	// We rotate newZ by -theta around the newX axis and see if we wind up coplanar with local-x, global-z, origin
	// If so theta is negative, otherwise positive
	// An R4AA is a convenient way to rotate a point by an amount around an arbitrary axis
	aa := R4AA{-theta, ov.OX, ov.OY, ov.OZ}
	q2 := aa.ToQuat()
	testZ := quat.Mul(quat.Mul(q2, zAxis), quat.Conj(q2))
	norm3 := v1.Cross(mgl64.Vec3{testZ.Imag, testZ.Jmag, testZ.Kmag})
	cosTest := norm1.Dot(norm3) / (norm1.Len() * norm3.Len())
	if 1-cosTest < angleEpsilon*angleEpsilon {
		ov.Theta = -theta
	} else {
		ov.Theta = theta
	}
	return ov
}
