package connector

import (
	"time"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/spatialmath"
)

// UpdatePolicy decides when a tree's connecting transform is recomputed.
type UpdatePolicy struct {
	IgnoreOlderMessages bool
	// MaxUpdatePeriod forces a refresh when nothing was published for this long. Zero disables it.
	MaxUpdatePeriod time.Duration
}

// PolicyFromConfig returns the update policy configured in cfg.
func PolicyFromConfig(cfg *config.Config) UpdatePolicy {
	return UpdatePolicy{IgnoreOlderMessages: cfg.IgnoreOlderMessages, MaxUpdatePeriod: cfg.MaxUpdatePeriod}
}

// ShouldUpdate reports whether to recompute a tree's transform. A zero msgStamp means no new
// message arrived. A message older than lastUpdate is rejected when older messages are ignored.
// Otherwise a refresh is due when the max update period elapsed since lastUpdate, or when a
// message arrived.
func (p UpdatePolicy) ShouldUpdate(lastUpdate, now, msgStamp time.Time) bool {
	hasMessage := !msgStamp.IsZero()
	if hasMessage && p.IgnoreOlderMessages && msgStamp.Before(lastUpdate) {
		return false
	}
	if p.MaxUpdatePeriod > 0 && now.Sub(lastUpdate) >= p.MaxUpdatePeriod {
		return true
	}
	return hasMessage
}

// TreeState is the mutable state of one tree. It is owned by the worker of that tree.
type TreeState struct {
	Tree config.Tree
	// LastMessageStamp is the stamp of the last accepted pose update.
	LastMessageStamp time.Time
	// LastPublish is when the tree's transform was last published.
	LastPublish time.Time
	// LastMeasured is the last accepted measured pose, nil until one arrives.
	LastMeasured spatialmath.Pose
}
