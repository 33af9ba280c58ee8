package ros

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/tfconnector/spatialmath"
)

// messages as gobag renders them, one JSON object per line
const (
	poseStampedLine = `{"meta": {"secs":1700000001,"nsecs":0}, "data":{"header":{"seq":7,"stamp":{"secs":1700000000,"nsecs":500000000},` +
		`"frame_id":"uav1/gps_origin"},"pose":{"position":{"x":1,"y":2,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":1}}}}`
	odometryLine = `{"meta": {"secs":1700000002,"nsecs":0}, "data":{"header":{"seq":3,"stamp":{"secs":1700000001,"nsecs":250000000},` +
		`"frame_id":"uav2/gps_origin"},"child_frame_id":"uav2/fcu","pose":{"pose":{"position":{"x":-1,"y":0.5,"z":3},` +
		`"orientation":{"x":0,"y":0,"z":0.7071067811865476,"w":0.7071067811865476}},"covariance":[0,0,0,0,0,0]},` +
		`"twist":{"twist":{"linear":{"x":0,"y":0,"z":0},"angular":{"x":0,"y":0,"z":0}}}}}`
	unstampedLine = `{"meta": {"secs":1700000003,"nsecs":125}, "data":{"header":{"seq":1,"stamp":{"secs":0,"nsecs":0},"frame_id":""},` +
		`"pose":{"position":{"x":0,"y":0,"z":0},"orientation":{"x":0,"y":0,"z":0,"w":0}}}}`
)

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	message := map[string]interface{}{}
	test.That(t, json.Unmarshal([]byte(line), &message), test.ShouldBeNil)
	return message
}

func TestPoseUpdateFromPoseStamped(t *testing.T) {
	upd, err := PoseUpdateFromMessage(decodeLine(t, poseStampedLine), "uav1/fcu")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, upd.FrameID, test.ShouldEqual, "uav1/fcu")
	test.That(t, upd.Stamp, test.ShouldResemble, time.Unix(1700000000, 500000000).UTC())
	test.That(t, spatialmath.PoseAlmostEqual(upd.Pose, spatialmath.NewPoseFromYaw(1, 2, 0, 0)), test.ShouldBeTrue)
}

func TestPoseUpdateFromOdometry(t *testing.T) {
	upd, err := PoseUpdateFromMessage(decodeLine(t, odometryLine), "uav2/fcu")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, upd.Stamp, test.ShouldResemble, time.Unix(1700000001, 250000000).UTC())
	test.That(t, spatialmath.PoseAlmostEqual(upd.Pose, spatialmath.NewPoseFromYaw(-1, 0.5, 3, math.Pi/2)), test.ShouldBeTrue)
}

func TestPoseUpdateWithoutHeaderStamp(t *testing.T) {
	upd, err := PoseUpdateFromMessage(decodeLine(t, unstampedLine), "uav1/fcu")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, upd.Stamp, test.ShouldResemble, time.Unix(1700000003, 125).UTC())
	test.That(t, spatialmath.PoseAlmostCoincidentEps(upd.Pose, spatialmath.NewPoseFromPoint(r3.Vector{}), 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.OrientationAlmostEqual(upd.Pose.Orientation(), spatialmath.NewZeroOrientation()), test.ShouldBeTrue)
}

func TestPoseUpdateFromMessageErrors(t *testing.T) {
	_, err := PoseUpdateFromMessage(decodeLine(t, `{"meta":{"secs":1,"nsecs":0},"data":{"data":[1,2,3]}}`), "uav1/fcu")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "no pose")

	_, err = PoseUpdateFromMessage(decodeLine(t, `{"meta":"yesterday"}`), "uav1/fcu")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPoseUpdatesFromMessagesSorted(t *testing.T) {
	updates, err := PoseUpdatesFromMessages([]map[string]interface{}{
		decodeLine(t, unstampedLine),
		decodeLine(t, poseStampedLine),
		decodeLine(t, odometryLine),
	}, "uav1/fcu")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, updates, test.ShouldHaveLength, 3)
	for i := 1; i < len(updates); i++ {
		test.That(t, updates[i-1].Stamp.Before(updates[i].Stamp), test.ShouldBeTrue)
	}
	test.That(t, updates[0].Pose.Point().X, test.ShouldAlmostEqual, 1.)

	_, err = PoseUpdatesFromMessages([]map[string]interface{}{decodeLine(t, poseStampedLine), {"data": 5}}, "uav1/fcu")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "message 1")
}

func TestTopicKey(t *testing.T) {
	test.That(t, topicKey("/uav1/odometry/odom_main"), test.ShouldEqual, "uav1_odometry_odom_main")
	test.That(t, topicKey("UAV2/Pose"), test.ShouldEqual, "uav2_pose")
}

func TestReadBagMissingFile(t *testing.T) {
	_, err := ReadBag("does_not_exist.bag")
	test.That(t, err, test.ShouldNotBeNil)
}
