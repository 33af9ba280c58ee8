package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/tfconnector/config"
	"go.viam.com/tfconnector/connector"
	"go.viam.com/tfconnector/logging"
	"go.viam.com/tfconnector/offset"
	"go.viam.com/tfconnector/referenceframe"
	"go.viam.com/tfconnector/ros"
	"go.viam.com/tfconnector/spatialmath"
	"go.viam.com/tfconnector/utils"
)

// newLogger logs to the app's ErrWriter so that transforms written to Writer stay parseable.
func newLogger(c *cli.Context) logging.Logger {
	level := logging.INFO
	if c.Bool(generalFlagDebug) {
		level = logging.DEBUG
	}
	return logging.NewLogger("tfconnector", level, logging.NewWriterAppender(c.App.ErrWriter))
}

func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg, err := config.Read(c.Context, c.Path(generalFlagConfig), logger.Sublogger("config"))
	if err != nil {
		cfgErrs := config.Errors(err)
		if len(cfgErrs) == 0 || len(cfgErrs) != len(multierr.Errors(err)) {
			return nil, err
		}
		var sb strings.Builder
		for _, cfgErr := range cfgErrs {
			fmt.Fprintf(&sb, "\n  %s", cfgErr.Error())
		}
		return nil, errors.Errorf("invalid configuration %s:%s", c.Path(generalFlagConfig), sb.String())
	}
	return cfg, nil
}

// ValidateAction is the corresponding Action for 'validate'.
func ValidateAction(c *cli.Context) error {
	if _, err := loadConfig(c, newLogger(c)); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s is valid\n", c.Path(generalFlagConfig))
	return nil
}

// DescribeAction is the corresponding Action for 'describe'.
func DescribeAction(c *cli.Context) error {
	cfg, err := loadConfig(c, newLogger(c))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, cfg.String())
	for _, keyframes := range keyframeTables(cfg) {
		fmt.Fprintln(c.App.Writer, keyframes)
	}
	return nil
}

// keyframeTables renders the rows of every keyframe offset, in tree order.
func keyframeTables(cfg *config.Config) []string {
	var tables []string
	for _, tree := range cfg.Trees {
		for _, side := range []struct {
			name  string
			value offset.Offset
		}{
			{"intrinsic", tree.Offsets.Intrinsic},
			{"extrinsic", tree.Offsets.Extrinsic},
		} {
			seq, ok := side.value.(*offset.KeyframeSequence)
			if !ok {
				continue
			}
			t := table.NewWriter()
			t.SetTitle(fmt.Sprintf("%s %s keyframes", tree.RootFrameID, side.name))
			t.AppendHeader(table.Row{"Stamp", "X", "Y", "Z", "Yaw"})
			for _, row := range seq.Rows() {
				t.AppendRow(table.Row{
					fmt.Sprintf("%.3f", utils.SecondsFromTime(row.Stamp)),
					row.X, row.Y, row.Z, row.Yaw,
				})
			}
			tables = append(tables, t.Render())
		}
	}
	return tables
}

// ReplayAction is the corresponding Action for 'replay'.
func ReplayAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	topics, err := parseTopicMappings(cfg, c.StringSlice(replayFlagTopic))
	if err != nil {
		return err
	}

	rb, err := ros.ReadBag(c.Path(replayFlagBag))
	if err != nil {
		return err
	}
	var updates []referenceframe.PoseUpdate
	for _, mapping := range topics {
		topicUpdates, err := ros.PoseUpdatesForTopic(rb, mapping.topic, mapping.root)
		if err != nil {
			return errors.Wrapf(err, "cannot read topic %q", mapping.topic)
		}
		logger.Debugw("read pose topic", "topic", mapping.topic, "root_frame_id", mapping.root, "messages", len(topicUpdates))
		updates = append(updates, topicUpdates...)
	}

	var out io.Writer = c.App.Writer
	if path := c.Path(replayFlagOut); path != "" {
		//nolint:gosec
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "cannot create output file")
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		out = f
	}

	buffer := referenceframe.NewTransformBuffer()
	published, err := connector.Replay(c.Context, cfg, updates, connector.MultiPublisher{buffer, connector.NewWriterPublisher(out)}, logger.Sublogger("connector"))
	if err != nil {
		return err
	}
	logger.Infow("replay finished", "pose_updates", len(updates), "transforms", published)
	logRelativePoses(logger, cfg, buffer)
	return nil
}

type topicMapping struct {
	root  string
	topic string
}

// parseTopicMappings parses ROOT=TOPIC pairs, each naming a configured tree at most once.
func parseTopicMappings(cfg *config.Config, values []string) ([]topicMapping, error) {
	mappings := make([]topicMapping, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		root, topic, ok := strings.Cut(value, "=")
		root, topic = strings.TrimSpace(root), strings.TrimSpace(topic)
		if !ok || root == "" || topic == "" {
			return nil, errors.Errorf("topic %q must be given as ROOT_FRAME_ID=TOPIC", value)
		}
		if _, ok := cfg.Tree(root); !ok {
			return nil, errors.Errorf("no tree is rooted at frame %q", root)
		}
		if seen[root] {
			return nil, errors.Errorf("more than one topic given for tree %q", root)
		}
		seen[root] = true
		mappings = append(mappings, topicMapping{root: root, topic: topic})
	}
	return mappings, nil
}

// logRelativePoses logs where every tree ended up relative to the first one.
func logRelativePoses(logger logging.Logger, cfg *config.Config, buffer *referenceframe.TransformBuffer) {
	if len(cfg.Trees) < 2 {
		return
	}
	target := cfg.Trees[0].RootFrameID
	for _, tree := range cfg.Trees[1:] {
		pif, err := buffer.Lookup(target, tree.RootFrameID)
		if err != nil {
			logger.Debugw("no relative pose", "target", target, "source", tree.RootFrameID, "error", err)
			continue
		}
		latest, _ := buffer.Latest(tree.RootFrameID)
		logger.Infow("final relative pose", "target", target, "source", tree.RootFrameID,
			"pose", spatialmath.PrettyPrint(pif.Pose()), "source_stamp", latest.Stamp)
	}
}
