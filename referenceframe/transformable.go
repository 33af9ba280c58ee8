package referenceframe

import (
	"time"

	"github.com/pkg/errors"
	commonpb "go.viam.com/api/common/v1"

	"go.viam.com/tfconnector/spatialmath"
)

// PoseInFrame is a data structure that packages a pose with the name of the
// frame in which it was observed.
type PoseInFrame struct {
	frame string
	pose  spatialmath.Pose
}

// NewPoseInFrame generates a new PoseInFrame.
func NewPoseInFrame(frame string, pose spatialmath.Pose) *PoseInFrame {
	return &PoseInFrame{
		frame: frame,
		pose:  pose,
	}
}

// Parent returns the name of the frame in which the pose was observed.
func (pF *PoseInFrame) Parent() string {
	return pF.frame
}

// Pose returns the pose that was observed.
func (pF *PoseInFrame) Pose() spatialmath.Pose {
	return pF.pose
}

// Transform re-expresses the pose in the parent frame of tf, which must be this pose's frame.
func (pF *PoseInFrame) Transform(tf Transform) (*PoseInFrame, error) {
	if tf.Child != pF.frame {
		return nil, errors.Errorf("cannot transform pose in frame %q by transform of frame %q", pF.frame, tf.Child)
	}
	return NewPoseInFrame(tf.Parent, spatialmath.Compose(tf.Pose, pF.pose)), nil
}

// AlmostEqual reports whether two framed poses share a frame and have nearly the same pose.
func (pF *PoseInFrame) AlmostEqual(other *PoseInFrame) bool {
	return pF.Parent() == other.Parent() && spatialmath.PoseAlmostEqual(pF.Pose(), other.Pose())
}

// PoseInFrameToProtobuf converts a PoseInFrame struct to a
// PoseInFrame message as specified in common.proto.
func PoseInFrameToProtobuf(framedPose *PoseInFrame) *commonpb.PoseInFrame {
	poseProto := spatialmath.PoseToProtobuf(framedPose.pose)
	return &commonpb.PoseInFrame{
		ReferenceFrame: framedPose.frame,
		Pose:           poseProto,
	}
}

// ProtobufToPoseInFrame converts a PoseInFrame message as specified in
// common.proto to a PoseInFrame struct.
func ProtobufToPoseInFrame(proto *commonpb.PoseInFrame) *PoseInFrame {
	result := &PoseInFrame{}
	result.pose = spatialmath.NewPoseFromProtobuf(proto.GetPose())
	result.frame = proto.GetReferenceFrame()
	return result
}

// TransformToProtobuf converts a Transform to a Transform message as specified in common.proto.
// The message names the child frame and carries the child's pose observed in the parent frame.
// The message has no stamp field, so the stamp is dropped.
func TransformToProtobuf(tf Transform) *commonpb.Transform {
	return &commonpb.Transform{
		ReferenceFrame:      tf.Child,
		PoseInObserverFrame: PoseInFrameToProtobuf(NewPoseInFrame(tf.Parent, tf.Pose)),
	}
}

// ProtobufToTransform converts a Transform message back into a Transform stamped at stamp.
func ProtobufToTransform(proto *commonpb.Transform, stamp time.Time) (Transform, error) {
	if proto.GetReferenceFrame() == "" {
		return Transform{}, NewMissingReferenceFrameError(proto)
	}
	observed := proto.GetPoseInObserverFrame()
	if observed.GetReferenceFrame() == "" {
		return Transform{}, NewMissingReferenceFrameError(observed)
	}
	pif := ProtobufToPoseInFrame(observed)
	return NewTransform(pif.Parent(), proto.GetReferenceFrame(), pif.Pose(), stamp), nil
}
