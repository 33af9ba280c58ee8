package offset

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/tfconnector/spatialmath"
)

func TestNewStatic(t *testing.T) {
	o, err := NewStatic([]float64{1, 2, 3, 0.5})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldResemble, StaticPose4{X: 1, Y: 2, Z: 3, Yaw: 0.5})

	o, err = NewStatic([]float64{1, 2, 3, 0, 0, 0, 2})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldResemble, StaticPoseQuat7{X: 1, Y: 2, Z: 3, QW: 1})

	for _, bad := range [][]float64{nil, {1, 2, 3}, {1, 2, 3, 4, 5}, {1, 2, 3, 4, 5, 6}, {1, 2, 3, 4, 5, 6, 7, 8}} {
		_, err = NewStatic(bad)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "want 4")
	}

	_, err = NewStatic([]float64{1, 2, 3, 0, 0, 0, 0})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "all zeros")

	_, err = NewStatic([]float64{1, math.NaN(), 3, 0})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestStaticTimeInvariant(t *testing.T) {
	statics := []Offset{
		Identity(),
		StaticPose4{X: 1, Y: -2, Z: 0.5, Yaw: 1.2},
	}
	o, err := NewStatic([]float64{0.3, 0.2, 0.1, 0.1, 0.2, 0.3, 0.9})
	test.That(t, err, test.ShouldBeNil)
	statics = append(statics, o)

	for _, s := range statics {
		ref, err := s.PoseAt(time.Time{})
		test.That(t, err, test.ShouldBeNil)
		for _, at := range []time.Time{time.Unix(0, 0), time.Unix(10, 500), time.Now(), time.Unix(1<<40, 0)} {
			p, err := s.PoseAt(at)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, spatialmath.PoseAlmostEqual(p, ref), test.ShouldBeTrue)
			test.That(t, s.InRange(at), test.ShouldBeTrue)
		}
	}
}

func TestStaticPoses(t *testing.T) {
	p, err := Identity().PoseAt(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(p, spatialmath.NewZeroPose()), test.ShouldBeTrue)

	o, err := NewStatic([]float64{0, 0, 0, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	p, err = o.PoseAt(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(p, spatialmath.NewZeroPose()), test.ShouldBeTrue)

	// a quarter turn about z written both ways
	o, err = NewStatic([]float64{1, 2, 3, 0, 0, math.Sin(math.Pi / 4), math.Cos(math.Pi / 4)})
	test.That(t, err, test.ShouldBeNil)
	pQuat, err := o.PoseAt(time.Now())
	test.That(t, err, test.ShouldBeNil)
	pYaw, err := StaticPose4{X: 1, Y: 2, Z: 3, Yaw: math.Pi / 2}.PoseAt(time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(pQuat, pYaw), test.ShouldBeTrue)
	test.That(t, pYaw.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, pYaw.Point().Y, test.ShouldAlmostEqual, 2)
	test.That(t, pYaw.Point().Z, test.ShouldAlmostEqual, 3)
	test.That(t, pQuat.Point().X, test.ShouldAlmostEqual, 1)
	test.That(t, pQuat.Point().Y, test.ShouldAlmostEqual, 2)
	test.That(t, pQuat.Point().Z, test.ShouldAlmostEqual, 3)

	test.That(t, StaticPose4{X: 1, Yaw: 0.5}.String(), test.ShouldEqual, "static [x=1 y=0 z=0 yaw=0.5]")
}
