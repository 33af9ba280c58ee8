// Package connector joins independent frame trees under one connecting frame. For every tree it
// wraps the live measured pose of the tree's root in that tree's intrinsic and extrinsic offsets
// and publishes the result as a connecting frame to root transform.
package connector

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/logging"
	"go.viam.com/tfconnector/offset"
	"go.viam.com/tfconnector/referenceframe"
	"go.viam.com/tfconnector/spatialmath"
)

// ResolveOffset returns the pose an offset takes at t. Static offsets ignore t. Keyframe sequences
// are interpolated, holding their first or last keyframe outside their range. Failures are
// configuration problems and are returned as *config.Error.
func ResolveOffset(o offset.Offset, t time.Time) (spatialmath.Pose, error) {
	if o == nil {
		return nil, config.NewError("offset", errors.New("offset is missing"))
	}
	pose, err := o.PoseAt(t)
	if err != nil {
		return nil, config.NewError("offset", err)
	}
	return pose, nil
}

type outOfRangeWarnings struct {
	intrinsic sync.Once
	extrinsic sync.Once
}

// A Resolver computes the transform connecting each tree of a config.
type Resolver struct {
	connectingFrameID string
	logger            logging.Logger

	mu       sync.Mutex
	warnings map[string]*outOfRangeWarnings
}

// NewResolver returns a Resolver for the trees of cfg.
func NewResolver(cfg *config.Config, logger logging.Logger) *Resolver {
	r := &Resolver{
		connectingFrameID: cfg.ConnectingFrameID,
		logger:            logger,
		warnings:          map[string]*outOfRangeWarnings{},
	}
	for _, tree := range cfg.Trees {
		r.warnings[tree.RootFrameID] = &outOfRangeWarnings{}
	}
	return r
}

// ConnectTree returns the transform from the connecting frame to the tree's root frame at now:
// intrinsic(now) ∘ measured ∘ extrinsic(now).
func (r *Resolver) ConnectTree(tree config.Tree, measured spatialmath.Pose, now time.Time) (referenceframe.Transform, error) {
	if measured == nil {
		return referenceframe.Transform{}, errors.Errorf("no measured pose for tree %q", tree.RootFrameID)
	}
	warnings := r.warningsFor(tree.RootFrameID)

	intrinsic, err := ResolveOffset(tree.Offsets.Intrinsic, now)
	if err != nil {
		return referenceframe.Transform{}, errors.Wrapf(err, "cannot resolve intrinsic offset of tree %q", tree.RootFrameID)
	}
	r.checkRange(&warnings.intrinsic, tree, "intrinsic", tree.Offsets.Intrinsic, now)

	extrinsic, err := ResolveOffset(tree.Offsets.Extrinsic, now)
	if err != nil {
		return referenceframe.Transform{}, errors.Wrapf(err, "cannot resolve extrinsic offset of tree %q", tree.RootFrameID)
	}
	r.checkRange(&warnings.extrinsic, tree, "extrinsic", tree.Offsets.Extrinsic, now)

	pose := spatialmath.Compose(spatialmath.Compose(intrinsic, measured), extrinsic)
	return referenceframe.NewTransform(r.connectingFrameID, tree.RootFrameID, pose, now), nil
}

func (r *Resolver) warningsFor(rootFrameID string) *outOfRangeWarnings {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.warnings[rootFrameID]
	if !ok {
		w = &outOfRangeWarnings{}
		r.warnings[rootFrameID] = w
	}
	return w
}

func (r *Resolver) checkRange(once *sync.Once, tree config.Tree, side string, o offset.Offset, now time.Time) {
	if o.InRange(now) {
		return
	}
	once.Do(func() {
		treeLogger(r.logger, tree).Warnw("offset lookup outside its keyframes, holding the nearest keyframe",
			"offset", side, "time", now, "keyframes", o.String())
	})
}

// treeLogger tags every entry with the frames of tree.
func treeLogger(logger logging.Logger, tree config.Tree) logging.Logger {
	return logger.WithFields("root_frame_id", tree.RootFrameID, "equal_frame_id", tree.EqualFrameID)
}
