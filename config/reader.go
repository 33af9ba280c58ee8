package config

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"go.viam.com/tfconnector/logging"
	"go.viam.com/tfconnector/offset"
)

// rawConfig mirrors the YAML file.
type rawConfig struct {
	ConnectingFrameID   string      `yaml:"connecting_frame_id"`
	RootFrameIDs        []string    `yaml:"root_frame_ids"`
	EqualFrameIDs       []string    `yaml:"equal_frame_ids"`
	Offsets             *rawOffsets `yaml:"offsets"`
	IgnoreOlderMessages bool        `yaml:"ignore_older_messages"`
	MaxUpdatePeriod     float64     `yaml:"max_update_period"`
}

type rawOffsets struct {
	Intrinsic []OffsetEntry `yaml:"intrinsic"`
	Extrinsic []OffsetEntry `yaml:"extrinsic"`
}

// OffsetEntry decodes one element of an offsets list. A sequence of sequences is a keyframe
// sequence and a flat sequence of numbers is a static pose.
type OffsetEntry struct {
	Offset offset.Offset
	// Err is set when the entry was well formed YAML but not a valid offset.
	Err error
}

// UnmarshalYAML selects the offset kind from the shape of the node.
func (e *OffsetEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		e.Err = errors.Errorf("line %d: offset must be a list of numbers or a list of keyframe rows", node.Line)
		return nil
	}
	if len(node.Content) == 0 || node.Content[0].Kind == yaml.SequenceNode {
		var rows [][]float64
		if err := node.Decode(&rows); err != nil {
			e.Err = errors.Wrapf(err, "line %d: keyframe rows must all be lists of numbers", node.Line)
			return nil
		}
		seq, err := offset.NewKeyframeSequence(rows)
		if err != nil {
			e.Err = err
			return nil
		}
		e.Offset = seq
		return nil
	}

	var values []float64
	if err := node.Decode(&values); err != nil {
		e.Err = errors.Wrapf(err, "line %d: static offset must be a list of numbers", node.Line)
		return nil
	}
	e.Offset, e.Err = offset.NewStatic(values)
	return nil
}

// Read reads a config from the given file, substituting ${ENV} references first.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config file %q", filePath)
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw rawConfig
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewError("", errors.New("config is empty"))
		}
		return nil, errors.Wrap(err, "failed to decode Config from yaml")
	}

	cfg, err := raw.process(originalPath, logger)
	if err = multierr.Append(err, cfg.Validate("")); err != nil {
		return nil, err
	}
	logger.Debugw("loaded config", "path", originalPath, "connecting_frame_id", cfg.ConnectingFrameID, "trees", len(cfg.Trees))
	return cfg, nil
}

// process pairs up the parallel lists of the file into trees. The returned config is always
// non-nil so that it can still be validated when the file has problems, letting every problem be
// reported in one go.
func (raw *rawConfig) process(originalPath string, logger logging.Logger) (*Config, error) {
	var errs error
	if len(raw.RootFrameIDs) != len(raw.EqualFrameIDs) {
		errs = multierr.Append(errs, NewError("equal_frame_ids", errors.Errorf(
			"has %d entries but root_frame_ids has %d", len(raw.EqualFrameIDs), len(raw.RootFrameIDs))))
	}

	period, err := periodFromSeconds(raw.MaxUpdatePeriod)
	if err != nil {
		errs = multierr.Append(errs, NewError("max_update_period", err))
	}

	cfg := &Config{
		ConfigFilePath:      originalPath,
		ConnectingFrameID:   raw.ConnectingFrameID,
		IgnoreOlderMessages: raw.IgnoreOlderMessages,
		MaxUpdatePeriod:     period,
	}

	var intrinsic, extrinsic []OffsetEntry
	if raw.Offsets == nil {
		logger.Infow("config has no offsets, connecting trees with identity offsets", "path", originalPath)
	} else {
		intrinsic, extrinsic = raw.Offsets.Intrinsic, raw.Offsets.Extrinsic
	}
	errs = multierr.Append(errs, checkOffsetList("offsets.intrinsic", intrinsic, len(raw.RootFrameIDs)))
	errs = multierr.Append(errs, checkOffsetList("offsets.extrinsic", extrinsic, len(raw.RootFrameIDs)))

	for i, root := range raw.RootFrameIDs {
		tree := Tree{RootFrameID: root, Offsets: IdentityOffsets()}
		if i < len(raw.EqualFrameIDs) {
			tree.EqualFrameID = raw.EqualFrameIDs[i]
		}
		if i < len(intrinsic) && intrinsic[i].Err == nil {
			tree.Offsets.Intrinsic = intrinsic[i].Offset
		}
		if i < len(extrinsic) && extrinsic[i].Err == nil {
			tree.Offsets.Extrinsic = extrinsic[i].Offset
		}
		cfg.Trees = append(cfg.Trees, tree)
	}
	return cfg, errs
}

// checkOffsetList reports entries that failed to parse and a count that does not match the trees.
// An absent list means identity offsets everywhere.
func checkOffsetList(path string, entries []OffsetEntry, trees int) error {
	if entries == nil {
		return nil
	}
	var errs error
	if len(entries) != trees {
		errs = multierr.Append(errs, NewError(path, errors.Errorf("has %d entries but root_frame_ids has %d", len(entries), trees)))
	}
	for i, entry := range entries {
		if entry.Err != nil {
			errs = multierr.Append(errs, NewError(fmt.Sprintf("%s[%d]", path, i), entry.Err))
		}
	}
	return errs
}

// maxPeriodSeconds is where a time.Duration of that many seconds overflows.
const maxPeriodSeconds = float64(math.MaxInt64) / float64(time.Second)

func periodFromSeconds(secs float64) (time.Duration, error) {
	if math.IsNaN(secs) || math.IsInf(secs, 0) {
		return 0, errors.New("must be a finite number of seconds")
	}
	if secs < 0 {
		return 0, errors.Errorf("must not be negative, got %v", secs)
	}
	if secs >= maxPeriodSeconds {
		return 0, errors.Errorf("must be less than %v seconds, got %v", maxPeriodSeconds, secs)
	}
	period := time.Duration(secs * float64(time.Second))
	if secs > 0 && period == 0 {
		return 0, errors.Errorf("must be 0 or at least 1ns, got %v seconds", secs)
	}
	return period, nil
}
