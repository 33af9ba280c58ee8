package spatialmath

import (
	"fmt"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/dualquat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) and the Orientation() method
// returns the rotation.
type Pose interface {
	Point() r3.Vector
	Orientation() Orientation
}

// NewZeroPose returns a pose at (0,0,0) with same orientation as whatever frame it is placed in.
func NewZeroPose() Pose {
	return newDualQuaternion()
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}

	q := newDualQuaternion()
	q.Real = Normalize(o.Quaternion())
	q.SetTranslation(p)
	return q
}

// NewPoseFromOrientation takes in an orientation and returns a Pose with no translation.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	q := newDualQuaternion()
	q.SetTranslation(point)
	return q
}

// NewPoseFromYaw builds the planar [x,y,z,yaw] pose used by yaw-only offsets and keyframes.
func NewPoseFromYaw(x, y, z, yaw float64) Pose {
	return NewPose(r3.Vector{X: x, Y: y, Z: z}, NewYawOrientation(yaw))
}

// Compose takes in two poses and returns a new pose equal to applying b in the frame of a.
// Composition is associative but not commutative.
func Compose(a, b Pose) Pose {
	aq := newDualQuaternionFromPose(a)
	bq := newDualQuaternionFromPose(b)
	result := &dualQuaternion{dualquat.Mul(aq.Number, bq.Number)}

	// Renormalize the rotation so chains of compositions do not drift off the unit sphere.
	if vecLen := quat.Abs(result.Real); vecLen != 1 && vecLen != 0 {
		result.Real = quat.Scale(1/vecLen, result.Real)
		result.Dual = quat.Scale(1/vecLen, result.Dual)
	}
	return result
}

// PoseInverse will return the inverse of a pose. So if a given pose p is the pose of A relative to B, PoseInverse(p) will give
// the pose of B relative to A.
func PoseInverse(p Pose) Pose {
	return newDualQuaternionFromPose(p).Invert()
}

// PoseBetween returns the difference between two poses, i.e. the pose that when composed onto a yields b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// Interpolate will return a new Pose that has been interpolated the set amount between two poses.
// Position is linearly interpolated and orientation is slerped, separately, then the two are combined.
// by == 0 will return p1, by == 1 will return p2, and by == 0.5 will return the pose halfway between them.
func Interpolate(p1, p2 Pose, by float64) Pose {
	point := p1.Point().Add(p2.Point().Sub(p1.Point()).Mul(by))
	q := newDualQuaternion()
	q.Real = slerp(p1.Orientation().Quaternion(), p2.Orientation().Quaternion(), by)
	q.SetTranslation(point)
	return q
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same within
// epsilon of translation. Orientation is compared with OrientationAlmostEqual.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return PoseAlmostCoincidentEps(a, b, epsilon) && OrientationAlmostEqual(a.Orientation(), b.Orientation())
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses approximately are at the same 3D coordinate location.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return a.Point().Sub(b.Point()).Norm() < epsilon
}

// PrettyPrint returns a short x/y/z/yaw summary of a pose, the way offsets are written in configs.
func PrettyPrint(p Pose) string {
	pt := p.Point()
	ea := p.Orientation().EulerAngles()
	return fmt.Sprintf("X:%.3f Y:%.3f Z:%.3f Roll:%.3f Pitch:%.3f Yaw:%.3f", pt.X, pt.Y, pt.Z, ea.Roll, ea.Pitch, ea.Yaw)
}
