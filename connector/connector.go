package connector

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/logging"
	"go.viam.com/tfconnector/referenceframe"
	"go.viam.com/tfconnector/utils"
)

const defaultQueueSize = 16

var errClosed = errors.New("connector is closed")

// Connector routes pose updates to one worker per tree and publishes the connecting transform of a
// tree whenever its update policy asks for it.
type Connector struct {
	cfg       *config.Config
	resolver  *Resolver
	policy    UpdatePolicy
	publisher Publisher
	logger    logging.Logger

	clock     clock.Clock
	queueSize int

	updates map[string]chan referenceframe.PoseUpdate
	workers utils.StoppableWorkers
	closeMu sync.Mutex
	closed  bool
}

// An Option configures a Connector.
type Option func(*Connector)

// WithClock makes the connector read time from clk, typically a mock clock in tests and replays.
func WithClock(clk clock.Clock) Option {
	return func(c *Connector) {
		c.clock = clk
	}
}

// WithQueueSize sets how many pose updates may wait for each tree's worker.
func WithQueueSize(size int) Option {
	return func(c *Connector) {
		if size >= 0 {
			c.queueSize = size
		}
	}
}

// New validates cfg and starts one worker per tree. The workers stop when ctx is done or Close is
// called.
func New(ctx context.Context, cfg *config.Config, publisher Publisher, logger logging.Logger, opts ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, errors.New("connector needs a config")
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	if publisher == nil {
		return nil, errors.New("connector needs a publisher")
	}

	c := &Connector{
		cfg:       cfg,
		resolver:  NewResolver(cfg, logger),
		policy:    PolicyFromConfig(cfg),
		publisher: publisher,
		logger:    logger,
		clock:     clock.New(),
		queueSize: defaultQueueSize,
		updates:   make(map[string]chan referenceframe.PoseUpdate, len(cfg.Trees)),
	}
	for _, opt := range opts {
		opt(c)
	}

	funcs := make([]func(context.Context), 0, len(cfg.Trees))
	for _, tree := range cfg.Trees {
		ch := make(chan referenceframe.PoseUpdate, c.queueSize)
		c.updates[tree.RootFrameID] = ch
		state := &TreeState{Tree: tree}
		funcs = append(funcs, func(ctx context.Context) {
			c.runTree(ctx, state, ch)
		})
	}
	c.workers = utils.NewStoppableWorkersWithContext(ctx, funcs...)
	logger.Infow("connector started", "connecting_frame_id", cfg.ConnectingFrameID, "trees", len(cfg.Trees),
		"ignore_older_messages", c.policy.IgnoreOlderMessages, "max_update_period", c.policy.MaxUpdatePeriod)
	return c, nil
}

// HandlePoseUpdate hands a measured root pose to the worker of the tree it belongs to. An update
// without a stamp is stamped with the current time.
func (c *Connector) HandlePoseUpdate(ctx context.Context, upd referenceframe.PoseUpdate) error {
	ch, ok := c.updates[upd.FrameID]
	if !ok {
		return errors.Errorf("no tree is rooted at frame %q", upd.FrameID)
	}
	if upd.Pose == nil {
		return errors.Errorf("pose update for frame %q has no pose", upd.FrameID)
	}
	if upd.Stamp.IsZero() {
		upd.Stamp = c.clock.Now()
	}
	if c.workers.Context().Err() != nil {
		return errClosed
	}

	select {
	case ch <- upd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.workers.Context().Done():
		return errClosed
	}
}

// Close stops the workers and waits for them to return.
func (c *Connector) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.workers.Stop()
}

func (c *Connector) runTree(ctx context.Context, state *TreeState, updates <-chan referenceframe.PoseUpdate) {
	logger := treeLogger(c.logger, state.Tree)

	var refresh <-chan time.Time
	var timer *clock.Timer
	if c.policy.MaxUpdatePeriod > 0 {
		timer = c.clock.Timer(c.policy.MaxUpdatePeriod)
		defer timer.Stop()
		refresh = timer.C
	}

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case upd := <-updates:
			err = c.handleUpdate(ctx, logger, state, upd)
		case <-refresh:
			err = c.forceRefresh(ctx, logger, state)
		}
		if err != nil && ctx.Err() == nil {
			logger.Warnw("cannot publish connecting transform", "error", err)
		}
		if timer != nil {
			timer.Reset(c.untilRefresh(state))
		}
	}
}

// untilRefresh is how long a tree may go without a publish before it is refreshed. After a failed
// refresh the next attempt is a full period away.
func (c *Connector) untilRefresh(state *TreeState) time.Duration {
	period := c.policy.MaxUpdatePeriod
	if state.LastPublish.IsZero() {
		return period
	}
	if wait := state.LastPublish.Add(period).Sub(c.clock.Now()); wait > 0 {
		return wait
	}
	return period
}

func (c *Connector) handleUpdate(ctx context.Context, logger logging.Logger, state *TreeState, upd referenceframe.PoseUpdate) error {
	if !c.policy.ShouldUpdate(state.LastMessageStamp, upd.Stamp, upd.Stamp) {
		logger.Debugw("dropping stale pose update", "stamp", upd.Stamp, "last_stamp", state.LastMessageStamp)
		return nil
	}
	state.LastMessageStamp = upd.Stamp
	state.LastMeasured = upd.Pose
	return c.publish(ctx, state, upd.Stamp)
}

func (c *Connector) forceRefresh(ctx context.Context, logger logging.Logger, state *TreeState) error {
	if state.LastMeasured == nil {
		return nil
	}
	now := c.clock.Now()
	if !c.policy.ShouldUpdate(state.LastPublish, now, time.Time{}) {
		return nil
	}
	logger.Debugw("republishing without a new pose update", "since_last_publish", now.Sub(state.LastPublish))
	return c.publish(ctx, state, now)
}

func (c *Connector) publish(ctx context.Context, state *TreeState, stamp time.Time) error {
	tf, err := c.resolver.ConnectTree(state.Tree, state.LastMeasured, stamp)
	if err != nil {
		return err
	}
	if err := c.publisher.Publish(ctx, tf); err != nil {
		return err
	}
	state.LastPublish = c.clock.Now()
	return nil
}
