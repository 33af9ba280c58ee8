package offset

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/tfconnector/spatialmath"
	"go.viam.com/tfconnector/utils"
)

// KeyframeRow5 is one [stamp,x,y,z,yaw] control point of a keyframe sequence.
type KeyframeRow5 struct {
	Stamp        time.Time
	X, Y, Z, Yaw float64
}

// Pose returns the pose held at this keyframe.
func (r KeyframeRow5) Pose() spatialmath.Pose {
	return spatialmath.NewPoseFromYaw(r.X, r.Y, r.Z, r.Yaw)
}

// KeyframeSequence is an offset interpolated between timestamped keyframes. Translation is
// interpolated linearly and yaw by slerp. Outside the keyframe range it holds the nearest
// endpoint.
type KeyframeSequence struct {
	rows []KeyframeRow5
	// index of the keyframe that started the last bracket found
	cursor atomic.Int64
}

// NewKeyframeSequence builds a sequence from [stamp,x,y,z,yaw] rows, stamps in seconds since the
// unix epoch. Rows must have exactly five values and strictly increasing stamps.
func NewKeyframeSequence(rows [][]float64) (*KeyframeSequence, error) {
	if len(rows) == 0 {
		return nil, ErrEmptySequence
	}
	seq := &KeyframeSequence{rows: make([]KeyframeRow5, 0, len(rows))}
	for i, row := range rows {
		if len(row) != 5 {
			return nil, errors.Errorf("keyframe %d has %d values, want 5 [stamp,x,y,z,yaw]", i, len(row))
		}
		if err := checkFinite(row); err != nil {
			return nil, errors.Wrapf(err, "keyframe %d", i)
		}
		kf := KeyframeRow5{Stamp: utils.TimeFromSeconds(row[0]), X: row[1], Y: row[2], Z: row[3], Yaw: row[4]}
		if i > 0 && !kf.Stamp.After(seq.rows[i-1].Stamp) {
			return nil, errors.Errorf("keyframe %d stamp %v is not after keyframe %d stamp %v", i, row[0], i-1, rows[i-1][0])
		}
		seq.rows = append(seq.rows, kf)
	}
	return seq, nil
}

// Rows returns a copy of the keyframes.
func (k *KeyframeSequence) Rows() []KeyframeRow5 {
	return append([]KeyframeRow5(nil), k.rows...)
}

// InRange reports whether t lies within the first and last keyframe stamps.
func (k *KeyframeSequence) InRange(t time.Time) bool {
	if k == nil || len(k.rows) == 0 {
		return false
	}
	return !t.Before(k.rows[0].Stamp) && !t.After(k.rows[len(k.rows)-1].Stamp)
}

// PoseAt interpolates the sequence at t.
func (k *KeyframeSequence) PoseAt(t time.Time) (spatialmath.Pose, error) {
	if k == nil || len(k.rows) == 0 {
		return nil, ErrEmptySequence
	}
	first, last := k.rows[0], k.rows[len(k.rows)-1]
	if !t.After(first.Stamp) {
		return first.Pose(), nil
	}
	if !t.Before(last.Stamp) {
		return last.Pose(), nil
	}

	i := k.bracket(t)
	r0, r1 := k.rows[i], k.rows[i+1]
	if t.Equal(r0.Stamp) {
		return r0.Pose(), nil
	}
	by := float64(t.Sub(r0.Stamp)) / float64(r1.Stamp.Sub(r0.Stamp))
	return spatialmath.Interpolate(r0.Pose(), r1.Pose(), by), nil
}

// bracket returns i such that rows[i].Stamp <= t < rows[i+1].Stamp. t must lie strictly inside the
// sequence. Lookups usually move forward in time, so the previous bracket is tried first.
func (k *KeyframeSequence) bracket(t time.Time) int {
	if i := int(k.cursor.Load()); i+1 < len(k.rows) && !t.Before(k.rows[i].Stamp) && t.Before(k.rows[i+1].Stamp) {
		return i
	}
	i := sort.Search(len(k.rows), func(i int) bool { return k.rows[i].Stamp.After(t) }) - 1
	k.cursor.Store(int64(i))
	return i
}

func (k *KeyframeSequence) String() string {
	if k == nil || len(k.rows) == 0 {
		return "keyframes (empty)"
	}
	return fmt.Sprintf("keyframes (%d) %s .. %s",
		len(k.rows),
		k.rows[0].Stamp.Format(time.RFC3339Nano),
		k.rows[len(k.rows)-1].Stamp.Format(time.RFC3339Nano))
}
