package spatialmath

import (
	"github.com/golang/geo/r3"
	commonpb "go.viam.com/api/common/v1"
)

// PoseToProtobuf converts a pose to the API's protobuf Pose, whose orientation is an orientation
// vector in degrees.
func PoseToProtobuf(p Pose) *commonpb.Pose {
	final := &commonpb.Pose{}
	pt := p.Point()
	final.X = pt.X
	final.Y = pt.Y
	final.Z = pt.Z
	poseOV := p.Orientation().OrientationVectorDegrees()
	final.Theta = poseOV.Theta
	final.OX = poseOV.OX
	final.OY = poseOV.OY
	final.OZ = poseOV.OZ
	return final
}

// NewPoseFromProtobuf creates a new pose from a protobuf pose. A nil message yields the zero pose.
func NewPoseFromProtobuf(pos *commonpb.Pose) Pose {
	if pos == nil {
		return NewZeroPose()
	}
	ovd := &OrientationVectorDegrees{
		Theta: pos.GetTheta(),
		OX:    pos.GetOX(),
		OY:    pos.GetOY(),
		OZ:    pos.GetOZ(),
	}
	return NewPose(r3.Vector{X: pos.GetX(), Y: pos.GetY(), Z: pos.GetZ()}, ovd)
}
