// Package cli contains the tfconnector command line interface.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Flags.
	generalFlagDebug  = "debug"
	generalFlagConfig = "config"
	replayFlagBag     = "bag"
	replayFlagTopic   = "topic"
	replayFlagOut     = "out"
)

func configFlag() cli.Flag {
	return &cli.PathFlag{
		Name:     generalFlagConfig,
		Aliases:  []string{"c"},
		Required: true,
		Usage:    "load configuration from `FILE`",
	}
}

// newApp builds the app from scratch each time since flags keep parsed values between runs.
func newApp() *cli.App {
	return &cli.App{
		Name:            "tfconnector",
		Usage:           "join independent frame trees under one connecting frame",
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    generalFlagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "validate",
				Usage:  "load a configuration and report every problem in it",
				Flags:  []cli.Flag{configFlag()},
				Action: ValidateAction,
			},
			{
				Name:   "describe",
				Usage:  "print the frame trees and offsets of a configuration",
				Flags:  []cli.Flag{configFlag()},
				Action: DescribeAction,
			},
			{
				Name:      "replay",
				Usage:     "feed the poses recorded in a ROS bag through the connector",
				UsageText: "tfconnector replay --config FILE --bag FILE --topic ROOT=TOPIC [--topic ROOT=TOPIC...] [--out FILE]",
				Flags: []cli.Flag{
					configFlag(),
					&cli.PathFlag{
						Name:     replayFlagBag,
						Required: true,
						Usage:    "ROS bag `FILE` to read poses from",
					},
					&cli.StringSliceFlag{
						Name:     replayFlagTopic,
						Required: true,
						Usage:    "pose topic of a tree, as ROOT_FRAME_ID=TOPIC",
					},
					&cli.PathFlag{
						Name:  replayFlagOut,
						Usage: "write transforms to `FILE` instead of stdout",
					},
				},
				Action: ReplayAction,
			},
		},
	}
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app := newApp()
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
