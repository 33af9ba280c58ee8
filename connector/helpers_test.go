package connector

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/offset"
	"go.viam.com/tfconnector/referenceframe"
	"go.viam.com/tfconnector/utils"
)

func identityQuat7(t *testing.T) offset.Offset {
	t.Helper()
	o, err := offset.NewStatic([]float64{0, 0, 0, 0, 0, 0, 1})
	test.That(t, err, test.ShouldBeNil)
	return o
}

// twoUAVConfig connects uav1 and uav2 under common_origin with identity offsets.
func twoUAVConfig(t *testing.T) *config.Config {
	t.Helper()
	identity := identityQuat7(t)
	return &config.Config{
		ConnectingFrameID: "common_origin",
		Trees: []config.Tree{
			{RootFrameID: "uav1/fcu", EqualFrameID: "uav1/gps_origin", Offsets: config.OffsetSet{Intrinsic: identity, Extrinsic: identity}},
			{RootFrameID: "uav2/fcu", EqualFrameID: "uav2/gps_origin", Offsets: config.OffsetSet{Intrinsic: identity, Extrinsic: identity}},
		},
	}
}

func secs(s float64) time.Time {
	return utils.TimeFromSeconds(s)
}

type chanPublisher chan referenceframe.Transform

func (p chanPublisher) Publish(ctx context.Context, tf referenceframe.Transform) error {
	select {
	case p <- tf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func receive(t *testing.T, p chanPublisher) referenceframe.Transform {
	t.Helper()
	select {
	case tf := <-p:
		return tf
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a published transform")
		return referenceframe.Transform{}
	}
}

func expectNothing(t *testing.T, p chanPublisher) {
	t.Helper()
	select {
	case tf := <-p:
		t.Fatalf("unexpected transform published: %v", tf)
	case <-time.After(100 * time.Millisecond):
	}
}
