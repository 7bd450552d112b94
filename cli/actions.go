package cli

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"

	"github.com/drivelab/perspective/calibration"
	"github.com/drivelab/perspective/config"
	"github.com/drivelab/perspective/logging"
	"github.com/drivelab/perspective/perspective"
	"github.com/drivelab/perspective/pointcloud"
	"github.com/drivelab/perspective/rimage"
	"github.com/drivelab/perspective/sim"
	"github.com/drivelab/perspective/spatialmath"
)

// overlayColor tints the corridor when the mask is drawn over a camera image.
var overlayColor = color.NRGBA{G: 255, A: 255}

const overlayAlpha = 0.4

// setup builds the logger and reads the config every command starts from.
func setup(c *cli.Context) (*config.Config, logging.Logger, error) {
	logger := logging.NewLogger("pmgen")
	if c.Bool(flagDebug) {
		logger = logging.NewDebugLogger("pmgen")
	}
	cfg, err := config.Read(c.String(flagConfig), logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.LogLevel != nil && !c.Bool(flagDebug) {
		logger.SetLevel(*cfg.LogLevel)
	}
	return cfg, logger, nil
}

// MaskAction is the corresponding Action for 'mask'.
func MaskAction(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}
	if cfg.Camera == nil {
		return utils.NewConfigValidationFieldRequiredError(cfg.ConfigFilePath, "camera")
	}
	cam, err := cfg.Camera.Camera()
	if err != nil {
		return err
	}
	projector, err := perspective.NewProjector(cfg.Projector, cam, logger.Sublogger("projector"))
	if err != nil {
		return err
	}
	traj, err := sim.ReadTrajectoryFile(c.String(flagTrajectory))
	if err != nil {
		return err
	}

	vehicle := traj[0].Pose
	if s := c.String(flagVehicle); s != "" {
		vehicle, err = spatialmath.ParsePose(s)
		if err != nil {
			return errors.Wrapf(err, "bad --%s", flagVehicle)
		}
	}

	mask, stats, err := projector.ProjectWithStats(c.Context, traj, vehicle)
	if err != nil {
		return err
	}
	var out image.Image = mask
	if fn := c.String(flagOverlay); fn != "" {
		img, err := rimage.ReadImageFromFile(fn)
		if err != nil {
			return err
		}
		out = rimage.Overlay(img, mask, overlayColor, overlayAlpha)
	}
	if err := rimage.WriteImageToFile(c.String(flagOut), out); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s: %d pixels marked from %d poses (%d segments drawn, %d rejected)",
		c.String(flagOut), mask.CountSet(), stats.PosesVisited, stats.SegmentsDrawn, stats.SegmentsRejected)
	return nil
}

// calibInputs reads what both calibration commands need.
func calibInputs(c *cli.Context) (*calibration.Calibrator, pointcloud.PointCloud, image.Image, logging.Logger, error) {
	cfg, logger, err := setup(c)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cfg.Calibration == nil {
		return nil, nil, nil, nil, utils.NewConfigValidationFieldRequiredError(cfg.ConfigFilePath, "calibration")
	}
	calib, err := calibration.NewCalibrator(*cfg.Calibration, logger.Sublogger("calibration"))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	cloud, err := pointcloud.NewFromFile(c.String(flagCloud), logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	img, err := rimage.ReadImageFromFile(c.String(flagImage))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return calib, cloud, img, logger, nil
}

// CalibProjectAction is the corresponding Action for 'calib project'.
func CalibProjectAction(c *cli.Context) error {
	calib, cloud, img, _, err := calibInputs(c)
	if err != nil {
		return err
	}
	merged, err := calib.ProjectOnImage(cloud, img)
	if err != nil {
		return err
	}
	if err := rimage.WriteImageToFile(c.String(flagOut), merged); err != nil {
		return err
	}
	printf(c.App.Writer, "wrote %s from %d LiDAR points", c.String(flagOut), cloud.Size())
	return nil
}

// CalibGroundAction is the corresponding Action for 'calib ground'.
func CalibGroundAction(c *cli.Context) error {
	calib, cloud, img, logger, err := calibInputs(c)
	if err != nil {
		return err
	}
	merged, ground, err := calib.MergeMarkers(cloud, img)
	if err != nil {
		return err
	}

	pcdType := pointcloud.PCDAscii
	if c.Bool(flagBinary) {
		pcdType = pointcloud.PCDBinary
	}
	if err := pointcloud.WriteToPCDFile(merged, c.String(flagOut), pcdType); err != nil {
		return err
	}
	if fn := c.String(flagLAS); fn != "" {
		if err := pointcloud.WriteToLASFile(merged, fn); err != nil {
			return err
		}
		logger.Debugw("wrote las", "path", fn)
	}
	if fn := c.String(flagPlot); fn != "" {
		leveled, err := calib.LevelCloud(cloud)
		if err != nil {
			return err
		}
		if err := calibration.PlotBirdsEye(leveled, ground, fn); err != nil {
			return err
		}
		logger.Debugw("wrote plot", "path", fn)
	}
	printf(c.App.Writer, "wrote %s: %d LiDAR points and %d marker points", c.String(flagOut), merged.Size()-ground.Size(), ground.Size())
	return nil
}
