package connector

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/logging"
	"go.viam.com/tfconnector/offset"
	"go.viam.com/tfconnector/spatialmath"
)

func TestResolveOffset(t *testing.T) {
	static := offset.StaticPose4{X: 1, Y: 2, Z: 3, Yaw: 0.4}
	ref, err := ResolveOffset(static, secs(0))
	test.That(t, err, test.ShouldBeNil)
	for _, at := range []float64{-100, 1, 1e9} {
		p, err := ResolveOffset(static, secs(at))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(p, ref), test.ShouldBeTrue)
	}

	seq, err := offset.NewKeyframeSequence([][]float64{{10, 0, 0, 0, 0}, {20, 10, 0, 0, 0}})
	test.That(t, err, test.ShouldBeNil)
	p, err := ResolveOffset(seq, secs(12.5))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Point().X, test.ShouldAlmostEqual, 2.5)
	p, err = ResolveOffset(seq, secs(30))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Point().X, test.ShouldAlmostEqual, 10.)

	var cfgErr *config.Error
	_, err = ResolveOffset(&offset.KeyframeSequence{}, secs(0))
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
	test.That(t, errors.Is(err, offset.ErrEmptySequence), test.ShouldBeTrue)

	_, err = ResolveOffset(nil, secs(0))
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
}

func TestConnectTreeIdentityOffsets(t *testing.T) {
	cfg := twoUAVConfig(t)
	r := NewResolver(cfg, logging.NewTestLogger(t))

	measured := spatialmath.NewPoseFromYaw(1, 2, 0, 0)
	now := secs(1700000000.25)
	tf, err := r.ConnectTree(cfg.Trees[0], measured, now)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, tf.Parent, test.ShouldEqual, "common_origin")
	test.That(t, tf.Child, test.ShouldEqual, "uav1/fcu")
	test.That(t, tf.Stamp, test.ShouldEqual, now)
	test.That(t, spatialmath.PoseAlmostEqual(tf.Pose, measured), test.ShouldBeTrue)
	test.That(t, tf.Pose.Point().X, test.ShouldAlmostEqual, 1.)
	test.That(t, tf.Pose.Point().Y, test.ShouldAlmostEqual, 2.)
	test.That(t, tf.Pose.Point().Z, test.ShouldAlmostEqual, 0.)
	test.That(t, tf.Pose.Orientation().EulerAngles().Yaw, test.ShouldAlmostEqual, 0.)
}

func TestConnectTreeCompositionOrder(t *testing.T) {
	cfg := twoUAVConfig(t)
	tree := cfg.Trees[0]
	tree.Offsets = config.OffsetSet{
		Intrinsic: offset.StaticPose4{Yaw: math.Pi / 2},
		Extrinsic: offset.StaticPose4{Y: 1, Yaw: 0.3},
	}
	r := NewResolver(cfg, logging.NewTestLogger(t))

	measured := spatialmath.NewPoseFromPoint(r3.Vector{X: 1})
	tf, err := r.ConnectTree(tree, measured, secs(5))
	test.That(t, err, test.ShouldBeNil)

	// the intrinsic quarter turn rotates the measured translation, then the extrinsic offset is
	// applied in the rotated frame
	test.That(t, tf.Pose.Point().X, test.ShouldAlmostEqual, -1.)
	test.That(t, tf.Pose.Point().Y, test.ShouldAlmostEqual, 1.)
	test.That(t, tf.Pose.Orientation().EulerAngles().Yaw, test.ShouldAlmostEqual, math.Pi/2+0.3)
}

func TestConnectTreeAssociative(t *testing.T) {
	cfg := twoUAVConfig(t)
	tree := cfg.Trees[1]
	tree.Offsets = config.OffsetSet{
		Intrinsic: offset.StaticPose4{X: 0.2, Y: -1, Z: 0.1, Yaw: 1.1},
		Extrinsic: offset.StaticPoseQuat7{X: 3, Y: 0.5, Z: -2, QX: 0.1, QY: 0.2, QZ: 0.3, QW: math.Sqrt(1 - 0.14)},
	}
	r := NewResolver(cfg, logging.NewTestLogger(t))

	measured := spatialmath.NewPose(r3.Vector{X: 4, Y: -7, Z: 1.5}, &spatialmath.R4AA{Theta: 0.7, RX: 1, RY: 2, RZ: 3})
	now := secs(42)
	tf, err := r.ConnectTree(tree, measured, now)
	test.That(t, err, test.ShouldBeNil)

	intrinsic, err := ResolveOffset(tree.Offsets.Intrinsic, now)
	test.That(t, err, test.ShouldBeNil)
	extrinsic, err := ResolveOffset(tree.Offsets.Extrinsic, now)
	test.That(t, err, test.ShouldBeNil)

	regrouped := spatialmath.Compose(intrinsic, spatialmath.Compose(measured, extrinsic))
	test.That(t, spatialmath.PoseAlmostEqual(tf.Pose, regrouped), test.ShouldBeTrue)
}

func TestConnectTreeErrors(t *testing.T) {
	cfg := twoUAVConfig(t)
	r := NewResolver(cfg, logging.NewTestLogger(t))

	_, err := r.ConnectTree(cfg.Trees[0], nil, secs(1))
	test.That(t, err, test.ShouldNotBeNil)

	tree := cfg.Trees[0]
	tree.Offsets.Extrinsic = &offset.KeyframeSequence{}
	_, err = r.ConnectTree(tree, spatialmath.NewZeroPose(), secs(1))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "extrinsic")
	var cfgErr *config.Error
	test.That(t, errors.As(err, &cfgErr), test.ShouldBeTrue)
}

func TestConnectTreeWarnsOncePerSide(t *testing.T) {
	seq, err := offset.NewKeyframeSequence([][]float64{{10, 0, 0, 0, 0}, {20, 1, 0, 0, 0}})
	test.That(t, err, test.ShouldBeNil)

	cfg := twoUAVConfig(t)
	cfg.Trees[0].Offsets = config.OffsetSet{Intrinsic: seq, Extrinsic: seq}
	cfg.Trees[1].Offsets.Intrinsic = seq

	logger, logs := logging.NewObservedTestLogger(t)
	r := NewResolver(cfg, logger)
	measured := spatialmath.NewZeroPose()
	warnings := func() int {
		return logs.FilterMessageSnippet("outside its keyframes").Len()
	}

	_, err = r.ConnectTree(cfg.Trees[0], measured, secs(15))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, warnings(), test.ShouldEqual, 0)

	for _, at := range []float64{5, 25, 30} {
		tf, err := r.ConnectTree(cfg.Trees[0], measured, secs(at))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, tf.Pose.Point().X, test.ShouldBeGreaterThanOrEqualTo, 0.)
	}
	test.That(t, warnings(), test.ShouldEqual, 2)

	_, err = r.ConnectTree(cfg.Trees[1], measured, secs(25))
	test.That(t, err, test.ShouldBeNil)
	_, err = r.ConnectTree(cfg.Trees[1], measured, secs(26))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, warnings(), test.ShouldEqual, 3)
}
