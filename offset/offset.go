// Package offset implements the transforms inserted around a tree's measured pose: fixed poses and
// keyframe sequences interpolated by time. The kind of an offset is chosen once when it is built
// and never re-inferred afterwards.
package offset

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/tfconnector/spatialmath"
)

// ErrEmptySequence is returned when a keyframe sequence has no rows.
var ErrEmptySequence = errors.New("keyframe sequence has no keyframes")

// An Offset yields the pose to insert at a point in a tree's connection path at a given time.
type Offset interface {
	fmt.Stringer
	// PoseAt returns the pose the offset takes at t.
	PoseAt(t time.Time) (spatialmath.Pose, error)
	// InRange reports whether t needs no clamping.
	InRange(t time.Time) bool
}

// StaticPose4 is a fixed [x,y,z,yaw] offset.
type StaticPose4 struct {
	X, Y, Z, Yaw float64
}

// Identity returns the offset that leaves a pose unchanged.
func Identity() Offset {
	return StaticPose4{}
}

// PoseAt returns the same pose for every t.
func (s StaticPose4) PoseAt(time.Time) (spatialmath.Pose, error) {
	return spatialmath.NewPoseFromYaw(s.X, s.Y, s.Z, s.Yaw), nil
}

// InRange is always true for a static offset.
func (s StaticPose4) InRange(time.Time) bool {
	return true
}

func (s StaticPose4) String() string {
	return fmt.Sprintf("static [x=%g y=%g z=%g yaw=%g]", s.X, s.Y, s.Z, s.Yaw)
}

// StaticPoseQuat7 is a fixed [x,y,z,qx,qy,qz,qw] offset. The quaternion is unit length when built
// by NewStatic.
type StaticPoseQuat7 struct {
	X, Y, Z        float64
	QX, QY, QZ, QW float64
}

// PoseAt returns the same pose for every t.
func (s StaticPoseQuat7) PoseAt(time.Time) (spatialmath.Pose, error) {
	q := quat.Number{Real: s.QW, Imag: s.QX, Jmag: s.QY, Kmag: s.QZ}
	return spatialmath.NewPose(r3.Vector{X: s.X, Y: s.Y, Z: s.Z}, spatialmath.NewOrientationFromQuat(q)), nil
}

// InRange is always true for a static offset.
func (s StaticPoseQuat7) InRange(time.Time) bool {
	return true
}

func (s StaticPoseQuat7) String() string {
	return fmt.Sprintf("static [x=%g y=%g z=%g q=(%g, %g, %g, %g)]", s.X, s.Y, s.Z, s.QX, s.QY, s.QZ, s.QW)
}

// NewStatic builds a static offset from a flat tuple, [x,y,z,yaw] or [x,y,z,qx,qy,qz,qw].
func NewStatic(values []float64) (Offset, error) {
	if err := checkFinite(values); err != nil {
		return nil, err
	}
	switch len(values) {
	case 4:
		return StaticPose4{X: values[0], Y: values[1], Z: values[2], Yaw: values[3]}, nil
	case 7:
		q := quat.Number{Real: values[6], Imag: values[3], Jmag: values[4], Kmag: values[5]}
		norm := quat.Abs(q)
		if norm == 0 {
			return nil, errors.New("static offset quaternion [qx,qy,qz,qw] must not be all zeros")
		}
		q = quat.Scale(1/norm, q)
		return StaticPoseQuat7{
			X: values[0], Y: values[1], Z: values[2],
			QX: q.Imag, QY: q.Jmag, QZ: q.Kmag, QW: q.Real,
		}, nil
	default:
		return nil, errors.Errorf("static offset has %d values, want 4 [x,y,z,yaw] or 7 [x,y,z,qx,qy,qz,qw]", len(values))
	}
}

func checkFinite(values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Errorf("value %d is not a finite number", i)
		}
	}
	return nil
}
