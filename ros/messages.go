package ros

import (
	"sort"

	"github.com/edaniels/gobag/rosbag"
	"github.com/go-viper/mapstructure/v2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/tfconnector/referenceframe"
	"go.viam.com/tfconnector/spatialmath"
	"go.viam.com/tfconnector/utils"
)

// Stamp is a ROS time.
type Stamp struct {
	Secs  int64 `json:"secs"`
	Nsecs int64 `json:"nsecs"`
}

// IsZero reports whether the stamp is unset.
func (s Stamp) IsZero() bool {
	return s.Secs == 0 && s.Nsecs == 0
}

// Header is a std_msgs/Header.
type Header struct {
	Seq     int64  `json:"seq"`
	Stamp   Stamp  `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Point is a geometry_msgs/Point.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is a geometry_msgs/Quaternion.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is a geometry_msgs/Pose.
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseField is the "pose" field of a message. A geometry_msgs/PoseStamped fills Position and
// Orientation directly, a nav_msgs/Odometry nests them in a PoseWithCovariance.
type PoseField struct {
	Position    *Point      `json:"position"`
	Orientation *Quaternion `json:"orientation"`
	Pose        *Pose       `json:"pose"`
}

// PoseMessage is a pose message as gobag renders it: the bag record time and the message itself.
type PoseMessage struct {
	Meta Stamp `json:"meta"`
	Data struct {
		Header Header    `json:"header"`
		Pose   PoseField `json:"pose"`
	} `json:"data"`
}

// PoseUpdateFromMessage converts one bag message of a pose topic into a pose update of the tree
// rooted at frameID. The header stamp is used, or the bag record time when the header has none.
// An all zero orientation is read as no rotation.
func PoseUpdateFromMessage(message map[string]interface{}, frameID string) (referenceframe.PoseUpdate, error) {
	var msg PoseMessage
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &msg})
	if err != nil {
		return referenceframe.PoseUpdate{}, err
	}
	if err := decoder.Decode(message); err != nil {
		return referenceframe.PoseUpdate{}, errors.Wrap(err, "cannot decode pose message")
	}

	var pose Pose
	switch field := msg.Data.Pose; {
	case field.Pose != nil:
		pose = *field.Pose
	case field.Position != nil:
		pose.Position = *field.Position
		if field.Orientation != nil {
			pose.Orientation = *field.Orientation
		}
	default:
		return referenceframe.PoseUpdate{}, errors.New("message has no pose, expected a PoseStamped or an Odometry message")
	}

	stamp := msg.Data.Header.Stamp
	if stamp.IsZero() {
		stamp = msg.Meta
	}
	return referenceframe.PoseUpdate{
		FrameID: frameID,
		Pose:    pose.toPose(),
		Stamp:   utils.TimeFromSecsNsecs(stamp.Secs, stamp.Nsecs),
	}, nil
}

func (p Pose) toPose() spatialmath.Pose {
	q := quat.Number{Real: p.Orientation.W, Imag: p.Orientation.X, Jmag: p.Orientation.Y, Kmag: p.Orientation.Z}
	return spatialmath.NewPose(
		r3.Vector{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		spatialmath.NewOrientationFromQuat(q),
	)
}

// PoseUpdatesForTopic returns the poses of a PoseStamped or Odometry topic as updates of the tree
// rooted at frameID, ordered by stamp.
func PoseUpdatesForTopic(rb *rosbag.RosBag, topic, frameID string) ([]referenceframe.PoseUpdate, error) {
	messages, err := AllMessagesForTopic(rb, topic)
	if err != nil {
		return nil, err
	}
	return PoseUpdatesFromMessages(messages, frameID)
}

// PoseUpdatesFromMessages converts decoded bag messages into pose updates ordered by stamp.
func PoseUpdatesFromMessages(messages []map[string]interface{}, frameID string) ([]referenceframe.PoseUpdate, error) {
	updates := make([]referenceframe.PoseUpdate, 0, len(messages))
	for i, message := range messages {
		upd, err := PoseUpdateFromMessage(message, frameID)
		if err != nil {
			return nil, errors.Wrapf(err, "message %d", i)
		}
		updates = append(updates, upd)
	}
	sort.SliceStable(updates, func(i, j int) bool {
		return updates[i].Stamp.Before(updates[j].Stamp)
	})
	return updates, nil
}
