package offset

import (
	"math"
	"sync"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/tfconnector/spatialmath"
	"go.viam.com/tfconnector/utils"
)

func newTestSequence(t *testing.T) *KeyframeSequence {
	t.Helper()
	seq, err := NewKeyframeSequence([][]float64{
		{100, 0, 0, 0, 0},
		{102, 4, -2, 1, math.Pi / 2},
		{103, 4, 2, 1, math.Pi / 2},
	})
	test.That(t, err, test.ShouldBeNil)
	return seq
}

func TestNewKeyframeSequenceErrors(t *testing.T) {
	_, err := NewKeyframeSequence(nil)
	test.That(t, err, test.ShouldBeError, ErrEmptySequence)

	_, err = NewKeyframeSequence([][]float64{{1, 0, 0, 0, 0}, {2, 0, 0, 0}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "keyframe 1 has 4 values")

	_, err = NewKeyframeSequence([][]float64{{1, 0, 0, 0, 0}, {1, 1, 0, 0, 0}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not after")

	_, err = NewKeyframeSequence([][]float64{{2, 0, 0, 0, 0}, {1, 1, 0, 0, 0}})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewKeyframeSequence([][]float64{{1, 0, math.Inf(1), 0, 0}})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "keyframe 0")
}

func TestEmptySequence(t *testing.T) {
	var seq KeyframeSequence
	_, err := seq.PoseAt(time.Now())
	test.That(t, err, test.ShouldBeError, ErrEmptySequence)
	test.That(t, seq.InRange(time.Now()), test.ShouldBeFalse)
	test.That(t, seq.String(), test.ShouldEqual, "keyframes (empty)")
}

func TestKeyframeEndpointsExact(t *testing.T) {
	seq := newTestSequence(t)
	for _, row := range seq.Rows() {
		p, err := seq.PoseAt(row.Stamp)
		test.That(t, err, test.ShouldBeNil)
		expected := row.Pose()
		test.That(t, p.Point(), test.ShouldResemble, expected.Point())
		test.That(t, p.Orientation().Quaternion(), test.ShouldResemble, expected.Orientation().Quaternion())
		test.That(t, seq.InRange(row.Stamp), test.ShouldBeTrue)
	}
}

func TestKeyframeClamp(t *testing.T) {
	seq := newTestSequence(t)
	rows := seq.Rows()

	before := utils.TimeFromSeconds(50)
	p, err := seq.PoseAt(before)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(p, rows[0].Pose()), test.ShouldBeTrue)
	test.That(t, seq.InRange(before), test.ShouldBeFalse)

	after := utils.TimeFromSeconds(1000)
	p, err = seq.PoseAt(after)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(p, rows[2].Pose()), test.ShouldBeTrue)
	test.That(t, seq.InRange(after), test.ShouldBeFalse)
}

func TestKeyframeTranslationLinear(t *testing.T) {
	seq := newTestSequence(t)
	for _, secs := range []float64{100.25, 100.5, 101, 101.9} {
		p, err := seq.PoseAt(utils.TimeFromSeconds(secs))
		test.That(t, err, test.ShouldBeNil)
		by := (secs - 100) / 2
		test.That(t, p.Point().X, test.ShouldAlmostEqual, 4*by)
		test.That(t, p.Point().Y, test.ShouldAlmostEqual, -2*by)
		test.That(t, p.Point().Z, test.ShouldAlmostEqual, by)
		test.That(t, p.Orientation().EulerAngles().Yaw, test.ShouldAlmostEqual, by*math.Pi/2)
	}

	// second segment only moves along y and keeps its heading
	p, err := seq.PoseAt(utils.TimeFromSeconds(102.5))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatialmath.PoseAlmostEqual(p, spatialmath.NewPoseFromYaw(4, 0, 1, math.Pi/2)), test.ShouldBeTrue)
}

func TestKeyframeLookupOrder(t *testing.T) {
	seq := newTestSequence(t)
	forward := []float64{100.1, 100.9, 102.1, 102.9}
	expected := make([]spatialmath.Pose, 0, len(forward))
	for _, secs := range forward {
		p, err := seq.PoseAt(utils.TimeFromSeconds(secs))
		test.That(t, err, test.ShouldBeNil)
		expected = append(expected, p)
	}

	// going backwards in time after the cursor moved forward gives the same answers
	for i := len(forward) - 1; i >= 0; i-- {
		p, err := seq.PoseAt(utils.TimeFromSeconds(forward[i]))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(p, expected[i]), test.ShouldBeTrue)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				idx := (i + j) % len(forward)
				p, err := seq.PoseAt(utils.TimeFromSeconds(forward[idx]))
				if err != nil || !spatialmath.PoseAlmostEqual(p, expected[idx]) {
					t.Errorf("unexpected pose at %v", forward[idx])
				}
			}
		}(i)
	}
	wg.Wait()
}

func TestKeyframeSingleRow(t *testing.T) {
	seq, err := NewKeyframeSequence([][]float64{{5, 1, 2, 3, 0.5}})
	test.That(t, err, test.ShouldBeNil)
	for _, secs := range []float64{0, 5, 10} {
		p, err := seq.PoseAt(utils.TimeFromSeconds(secs))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, spatialmath.PoseAlmostEqual(p, spatialmath.NewPoseFromYaw(1, 2, 3, 0.5)), test.ShouldBeTrue)
	}
}
