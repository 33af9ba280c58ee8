// Package referenceframe defines the records exchanged with a transform graph: timestamped pose
// updates coming in and parent/child transforms going out, plus an in-memory graph to look
// transforms up in.
package referenceframe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/tfconnector/spatialmath"
)

// Transform is the pose of the Child frame expressed in the Parent frame at Stamp.
type Transform struct {
	Parent string
	Child  string
	Pose   spatialmath.Pose
	Stamp  time.Time
}

// NewTransform creates a Transform. A nil pose is treated as the identity.
func NewTransform(parent, child string, pose spatialmath.Pose, stamp time.Time) Transform {
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	return Transform{Parent: parent, Child: child, Pose: pose, Stamp: stamp}
}

// AlmostEqual compares frame names and stamps exactly and poses within floating point tolerance.
func (tf Transform) AlmostEqual(other Transform) bool {
	return tf.Parent == other.Parent &&
		tf.Child == other.Child &&
		tf.Stamp.Equal(other.Stamp) &&
		spatialmath.PoseAlmostEqual(tf.Pose, other.Pose)
}

func (tf Transform) String() string {
	return fmt.Sprintf("%s -> %s @ %s [%s]", tf.Parent, tf.Child, tf.Stamp.Format(time.RFC3339Nano), spatialmath.PrettyPrint(tf.Pose))
}

// PoseUpdate is a measured pose of a tree's root frame as received from a pose source.
type PoseUpdate struct {
	FrameID string
	Pose    spatialmath.Pose
	Stamp   time.Time
}

type translationJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type rotationJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type transformJSON struct {
	Parent      string          `json:"parent"`
	Child       string          `json:"child"`
	Stamp       time.Time       `json:"stamp"`
	Translation translationJSON `json:"translation"`
	Rotation    rotationJSON    `json:"rotation"`
}

// MarshalJSON encodes the transform with its translation, its rotation as an x/y/z/w
// quaternion, and an RFC3339 stamp with nanoseconds.
func (tf Transform) MarshalJSON() ([]byte, error) {
	pose := tf.Pose
	if pose == nil {
		pose = spatialmath.NewZeroPose()
	}
	pt := pose.Point()
	q := pose.Orientation().Quaternion()
	return json.Marshal(transformJSON{
		Parent:      tf.Parent,
		Child:       tf.Child,
		Stamp:       tf.Stamp,
		Translation: translationJSON{X: pt.X, Y: pt.Y, Z: pt.Z},
		Rotation:    rotationJSON{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real},
	})
}

// UnmarshalJSON decodes a transform written by MarshalJSON.
func (tf *Transform) UnmarshalJSON(data []byte) error {
	var raw transformJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "cannot decode transform")
	}
	q := quat.Number{Real: raw.Rotation.W, Imag: raw.Rotation.X, Jmag: raw.Rotation.Y, Kmag: raw.Rotation.Z}
	if quat.Abs(q) == 0 {
		return errors.Errorf("transform %q -> %q has a zero rotation quaternion", raw.Parent, raw.Child)
	}
	*tf = Transform{
		Parent: raw.Parent,
		Child:  raw.Child,
		Pose: spatialmath.NewPose(
			r3.Vector{X: raw.Translation.X, Y: raw.Translation.Y, Z: raw.Translation.Z},
			spatialmath.NewOrientationFromQuat(q),
		),
		Stamp: raw.Stamp,
	}
	return nil
}
