// Package config defines and loads the description of which frame trees get connected, under which
// frame, through which offsets.
package config

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/tfconnector/offset"
)

// Config is the loaded, validated connector configuration. It is not modified after loading.
type Config struct {
	ConfigFilePath string

	// ConnectingFrameID is the synthetic frame that becomes the parent of every tree's root.
	ConnectingFrameID string
	Trees             []Tree

	IgnoreOlderMessages bool
	// MaxUpdatePeriod forces a tree to be republished when nothing arrived for this long. Zero disables it.
	MaxUpdatePeriod time.Duration
}

// Tree is one independent frame tree to be joined under the connecting frame.
type Tree struct {
	RootFrameID string
	// EqualFrameID is the frame of this tree that coincides physically with the equal frames of the other trees.
	EqualFrameID string
	Offsets      OffsetSet
}

// OffsetSet holds the offsets wrapped around a tree's measured pose. Intrinsic is applied in the
// root frame and extrinsic in the equal frame.
type OffsetSet struct {
	Intrinsic offset.Offset
	Extrinsic offset.Offset
}

// IdentityOffsets returns an OffsetSet that leaves measured poses untouched.
func IdentityOffsets() OffsetSet {
	return OffsetSet{Intrinsic: offset.Identity(), Extrinsic: offset.Identity()}
}

// Tree returns the tree rooted at rootFrameID.
func (c *Config) Tree(rootFrameID string) (Tree, bool) {
	for _, tree := range c.Trees {
		if tree.RootFrameID == rootFrameID {
			return tree, true
		}
	}
	return Tree{}, false
}

// Validate checks the config for consistency and returns every problem found, each as an *Error.
func (c *Config) Validate(path string) error {
	var errs error
	if c.ConnectingFrameID == "" {
		errs = multierr.Append(errs, NewError(join(path, "connecting_frame_id"), errors.New("must not be empty")))
	}
	if len(c.Trees) == 0 {
		errs = multierr.Append(errs, NewError(join(path, "root_frame_ids"), errors.New("must name at least one tree")))
	}
	if c.MaxUpdatePeriod < 0 {
		errs = multierr.Append(errs, NewError(join(path, "max_update_period"),
			errors.Errorf("must not be negative, got %v", c.MaxUpdatePeriod)))
	}

	seen := map[string]int{}
	for i, tree := range c.Trees {
		errs = multierr.Append(errs, tree.validate(path, i, c.ConnectingFrameID))
		if tree.RootFrameID == "" {
			continue
		}
		if first, ok := seen[tree.RootFrameID]; ok {
			errs = multierr.Append(errs, NewError(join(path, fmt.Sprintf("root_frame_ids[%d]", i)),
				errors.Errorf("duplicate root frame id %q, already used by tree %d", tree.RootFrameID, first)))
			continue
		}
		seen[tree.RootFrameID] = i
	}
	return errs
}

func (t Tree) validate(path string, i int, connectingFrameID string) error {
	var errs error
	switch {
	case t.RootFrameID == "":
		errs = multierr.Append(errs, NewError(join(path, fmt.Sprintf("root_frame_ids[%d]", i)), errors.New("must not be empty")))
	case t.RootFrameID == connectingFrameID:
		errs = multierr.Append(errs, NewError(join(path, fmt.Sprintf("root_frame_ids[%d]", i)),
			errors.Errorf("root frame id %q must differ from the connecting frame id", t.RootFrameID)))
	}
	if t.EqualFrameID == "" {
		errs = multierr.Append(errs, NewError(join(path, fmt.Sprintf("equal_frame_ids[%d]", i)), errors.New("must not be empty")))
	}
	if t.Offsets.Intrinsic == nil {
		errs = multierr.Append(errs, NewError(join(path, fmt.Sprintf("offsets.intrinsic[%d]", i)), errors.New("offset is missing")))
	}
	if t.Offsets.Extrinsic == nil {
		errs = multierr.Append(errs, NewError(join(path, fmt.Sprintf("offsets.extrinsic[%d]", i)), errors.New("offset is missing")))
	}
	return errs
}

func join(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}

// String prints out a table of each tree, with columns of root, equal frame and both offsets.
func (c *Config) String() string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("connecting frame %q, ignore older messages: %t, max update period: %v",
		c.ConnectingFrameID, c.IgnoreOlderMessages, c.MaxUpdatePeriod))
	t.AppendHeader(table.Row{"#", "Root frame", "Equal frame", "Intrinsic", "Extrinsic"})
	for i, tree := range c.Trees {
		t.AppendRow(table.Row{
			fmt.Sprintf("%d", i),
			tree.RootFrameID,
			tree.EqualFrameID,
			offsetString(tree.Offsets.Intrinsic),
			offsetString(tree.Offsets.Extrinsic),
		})
	}
	return t.Render()
}

func offsetString(o offset.Offset) string {
	if o == nil {
		return "<missing>"
	}
	return o.String()
}
