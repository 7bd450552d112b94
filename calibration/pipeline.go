package calibration

import (
	"image"

	"github.com/pkg/errors"

	"github.com/drivelab/perspective/pointcloud"
)

// ProjectOnImage levels the raw LiDAR cloud and draws its visible points on the camera image.
func (c *Calibrator) ProjectOnImage(raw pointcloud.PointCloud, img image.Image) (image.Image, error) {
	b := img.Bounds()
	if b.Dx() != c.cfg.Intrinsics.Width || b.Dy() != c.cfg.Intrinsics.Height {
		c.logger.Warnw("image size differs from the intrinsics",
			"image", b.Size(), "width", c.cfg.Intrinsics.Width, "height", c.cfg.Intrinsics.Height)
	}
	leveled, err := c.LevelCloud(raw)
	if err != nil {
		return nil, err
	}
	return c.Overlay(img, c.ProjectCloud(leveled)), nil
}

// MergeMarkers levels the raw LiDAR cloud, projects the red pixels of the marked image onto the
// road and returns both in one cloud. LiDAR points are coloured by height and marker points are
// red. The marker points are also returned alone.
func (c *Calibrator) MergeMarkers(raw pointcloud.PointCloud, marked image.Image) (pointcloud.PointCloud, pointcloud.PointCloud, error) {
	leveled, err := c.LevelCloud(raw)
	if err != nil {
		return nil, nil, err
	}
	pixels := ExtractMarkedPixels(marked, c.cfg.Marker)
	if len(pixels) == 0 {
		return nil, nil, errors.New("no marked pixels found in image")
	}
	ground, err := c.GroundPoints(pixels)
	if err != nil {
		return nil, nil, err
	}
	colored, err := HeightColors(leveled)
	if err != nil {
		return nil, nil, err
	}
	merged, err := pointcloud.MergePointClouds(colored, ground)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Infow("merged image markers", "pixels", len(pixels), "markers", ground.Size(), "lidar", leveled.Size())
	return merged, ground, nil
}
