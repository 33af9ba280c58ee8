package connector

import (
	"context"
	"sort"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/logging"
	"go.viam.com/tfconnector/referenceframe"
)

// Replay runs recorded pose updates through the same update policy as a live Connector, in stamp
// order and on one goroutine. Time is simulated with a mock clock that follows the stamps. As in a
// live Connector, a tree is refreshed one max update period after its last publish. It returns the
// number of transforms published.
func Replay(
	ctx context.Context,
	cfg *config.Config,
	updates []referenceframe.PoseUpdate,
	publisher Publisher,
	logger logging.Logger,
) (int, error) {
	if err := cfg.Validate(""); err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	ordered := append([]referenceframe.PoseUpdate(nil), updates...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Stamp.Before(ordered[j].Stamp)
	})

	mock := clock.NewMock()
	mock.Set(ordered[0].Stamp)
	var published int
	c := &Connector{
		cfg:      cfg,
		resolver: NewResolver(cfg, logger),
		policy:   PolicyFromConfig(cfg),
		publisher: PublisherFunc(func(ctx context.Context, tf referenceframe.Transform) error {
			if err := publisher.Publish(ctx, tf); err != nil {
				return err
			}
			published++
			return nil
		}),
		logger: logger,
		clock:  mock,
	}

	states := make([]*TreeState, 0, len(cfg.Trees))
	byFrame := make(map[string]*TreeState, len(cfg.Trees))
	for _, tree := range cfg.Trees {
		state := &TreeState{Tree: tree}
		states = append(states, state)
		byFrame[tree.RootFrameID] = state
	}

	for _, upd := range ordered {
		if err := ctx.Err(); err != nil {
			return published, err
		}
		state, ok := byFrame[upd.FrameID]
		if !ok {
			return published, errors.Errorf("no tree is rooted at frame %q", upd.FrameID)
		}
		if err := c.replayRefreshes(ctx, mock, states, upd.Stamp); err != nil {
			return published, err
		}
		if upd.Stamp.After(mock.Now()) {
			mock.Set(upd.Stamp)
		}
		if err := c.handleUpdate(ctx, treeLogger(logger, state.Tree), state, upd); err != nil {
			return published, errors.Wrapf(err, "cannot publish tree %q", upd.FrameID)
		}
	}
	return published, nil
}

// replayRefreshes performs the forced refreshes due up to and including until, earliest first.
func (c *Connector) replayRefreshes(ctx context.Context, mock *clock.Mock, states []*TreeState, until time.Time) error {
	if c.policy.MaxUpdatePeriod <= 0 {
		return nil
	}
	for {
		var next *TreeState
		var nextAt time.Time
		for _, state := range states {
			if state.LastMeasured == nil {
				continue
			}
			due := state.LastPublish.Add(c.policy.MaxUpdatePeriod)
			if due.After(until) {
				continue
			}
			if next == nil || due.Before(nextAt) {
				next, nextAt = state, due
			}
		}
		if next == nil {
			return nil
		}
		mock.Set(nextAt)
		if err := c.forceRefresh(ctx, treeLogger(c.logger, next.Tree), next); err != nil {
			return errors.Wrapf(err, "cannot refresh tree %q", next.Tree.RootFrameID)
		}
	}
}
