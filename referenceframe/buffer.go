package referenceframe

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"go.viam.com/tfconnector/spatialmath"
)

// TransformBuffer keeps the most recent transform published for every child frame and can look up
// the pose between any two frames that are joined through a common root.
type TransformBuffer struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewTransformBuffer returns an empty TransformBuffer.
func NewTransformBuffer() *TransformBuffer {
	return &TransformBuffer{transforms: map[string]Transform{}}
}

// Publish stores tf as the latest transform of its child frame. A transform older than the one
// already stored for the same child is ignored.
func (b *TransformBuffer) Publish(ctx context.Context, tf Transform) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch {
	case tf.Parent == "" || tf.Child == "":
		return NewInvalidTransformError(tf, "frame names must not be empty")
	case tf.Parent == tf.Child:
		return NewInvalidTransformError(tf, "a frame cannot be its own parent")
	case tf.Pose == nil:
		return NewInvalidTransformError(tf, "pose must not be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.transforms[tf.Child]; ok && existing.Stamp.After(tf.Stamp) {
		return nil
	}
	b.transforms[tf.Child] = tf
	return nil
}

// Latest returns the most recent transform whose child is the given frame.
func (b *TransformBuffer) Latest(child string) (Transform, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tf, ok := b.transforms[child]
	return tf, ok
}

// FrameNames returns every frame mentioned by a stored transform, sorted.
func (b *TransformBuffer) FrameNames() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	seen := map[string]struct{}{}
	for _, tf := range b.transforms {
		seen[tf.Parent] = struct{}{}
		seen[tf.Child] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the pose of the source frame expressed in the target frame.
func (b *TransformBuffer) Lookup(target, source string) (*PoseInFrame, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var errAll error
	targetRoot, targetToRoot, err := b.composeToRoot(target)
	multierr.AppendInto(&errAll, err)
	sourceRoot, sourceToRoot, err := b.composeToRoot(source)
	multierr.AppendInto(&errAll, err)
	if errAll != nil {
		return nil, errAll
	}
	if targetRoot != sourceRoot {
		return nil, NewFramesDisconnectedError(source, target)
	}

	// transform from source to root, root to target
	return NewPoseInFrame(target, spatialmath.Compose(spatialmath.PoseInverse(targetToRoot), sourceToRoot)), nil
}

// composeToRoot walks parents up from frame and returns the root reached along with the pose of
// frame in that root.
func (b *TransformBuffer) composeToRoot(frame string) (string, spatialmath.Pose, error) {
	if !b.knows(frame) {
		return "", nil, NewFrameMissingError(frame)
	}
	q := spatialmath.NewZeroPose()
	visited := map[string]struct{}{}
	for {
		tf, ok := b.transforms[frame]
		if !ok {
			return frame, q, nil
		}
		if _, seen := visited[frame]; seen {
			return "", nil, NewFrameCycleError(frame)
		}
		visited[frame] = struct{}{}
		// Add new transforms to the left.
		q = spatialmath.Compose(tf.Pose, q)
		frame = tf.Parent
	}
}

func (b *TransformBuffer) knows(frame string) bool {
	if _, ok := b.transforms[frame]; ok {
		return true
	}
	for _, tf := range b.transforms {
		if tf.Parent == frame {
			return true
		}
	}
	return false
}
