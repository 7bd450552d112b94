// Package cli contains all business logic needed by the pmgen command.
package cli

import (
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
)

// Flags.
const (
	flagConfig     = "config"
	flagDebug      = "debug"
	flagTrajectory = "trajectory"
	flagVehicle    = "vehicle"
	flagOut        = "out"
	flagOverlay    = "overlay"
	flagCloud      = "cloud"
	flagImage      = "image"
	flagLAS        = "las"
	flagPlot       = "plot"
	flagBinary     = "binary"
)

// NewApp returns the pmgen app writing normal output to out and errors to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:            "pmgen",
		Usage:           "generate perspective masks and calibrate LiDAR/camera pairs",
		HideHelpCommand: true,
		Writer:          out,
		ErrWriter:       errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "mask",
				Usage: "draw the corridor a trajectory sweeps through as seen by the camera",
				UsageText: fmt.Sprintf("pmgen mask --%s <%s> --%s <%s> --%s <%s> [other options]",
					flagConfig, flagConfig, flagTrajectory, flagTrajectory, flagOut, flagOut),
				Flags: []cli.Flag{
					configFlag(),
					&cli.StringFlag{
						Name:     flagTrajectory,
						Aliases:  []string{"t"},
						Required: true,
						Usage:    "trajectory `FILE` of timestamped poses",
					},
					&cli.StringFlag{
						Name:  flagVehicle,
						Usage: "current vehicle pose as \"x y z roll pitch yaw\" (degrees); defaults to the first trajectory pose",
					},
					&cli.StringFlag{
						Name:  flagOverlay,
						Usage: "camera image `FILE` to draw the mask on instead of writing the bare mask",
					},
					outFlag(),
				},
				Action: MaskAction,
			},
			{
				Name:            "calib",
				Usage:           "check and refine a LiDAR/camera calibration",
				HideHelpCommand: true,
				Subcommands: []*cli.Command{
					{
						Name:  "project",
						Usage: "draw the LiDAR points on the camera image",
						Flags: []cli.Flag{
							configFlag(),
							cloudFlag(),
							&cli.StringFlag{
								Name:     flagImage,
								Required: true,
								Usage:    "camera image `FILE`",
							},
							outFlag(),
						},
						Action: CalibProjectAction,
					},
					{
						Name:  "ground",
						Usage: "project red marked pixels onto the road and merge them with the LiDAR points",
						Flags: []cli.Flag{
							configFlag(),
							cloudFlag(),
							&cli.StringFlag{
								Name:     flagImage,
								Required: true,
								Usage:    "camera image `FILE` with the road markers painted red",
							},
							outFlag(),
							&cli.BoolFlag{
								Name:  flagBinary,
								Usage: "write a binary pcd instead of ascii",
							},
							&cli.StringFlag{
								Name:  flagLAS,
								Usage: "also write the merged cloud to the LAS `FILE`",
							},
							&cli.StringFlag{
								Name:  flagPlot,
								Usage: "also write a bird's-eye plot of the clouds to `FILE`",
							},
						},
						Action: CalibGroundAction,
					},
				},
			},
		},
	}
}

// flags carry parse state, so every command gets its own.
func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagConfig,
		Aliases:  []string{"c"},
		Required: true,
		Usage:    "load configuration from `FILE`",
	}
}

func outFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagOut,
		Aliases:  []string{"o"},
		Required: true,
		Usage:    "write the result to `FILE`",
	}
}

func cloudFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     flagCloud,
		Required: true,
		Usage:    "LiDAR point cloud `FILE` (.pcd or .las)",
	}
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}
