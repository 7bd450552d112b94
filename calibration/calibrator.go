// Package calibration checks the extrinsic calibration of a LiDAR and camera pair. LiDAR points
// are projected onto the camera image for visual inspection, and pixels annotated on the image
// are projected back onto a flat road to compare with the LiDAR returns.
package calibration

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/drivelab/perspective/logging"
	"github.com/drivelab/perspective/pointcloud"
	"github.com/drivelab/perspective/rimage"
	"github.com/drivelab/perspective/rimage/transform"
	"github.com/drivelab/perspective/spatialmath"
	"github.com/drivelab/perspective/utils"
)

// MarkerValue is the point value given to points projected back from marked pixels.
const MarkerValue = 1

// Projected is a LiDAR point seen by the camera.
type Projected struct {
	Pixel r2.Point
	// Point is the LiDAR point, in the levelled LiDAR frame.
	Point r3.Vector
	Data  pointcloud.Data
}

// Calibrator holds a LiDAR and camera calibration. Its extrinsics already include the pitch
// correction, so they apply to levelled clouds.
type Calibrator struct {
	cfg        Config
	k          *mat.Dense
	rotation   *mat.Dense
	level      *spatialmath.RotationMatrix
	distortion transform.Distorter
	undistort  transform.Distorter
	logger     logging.Logger
}

// NewCalibrator validates cfg and precomputes the levelled extrinsics.
func NewCalibrator(cfg Config, logger logging.Logger) (*Calibrator, error) {
	if err := cfg.Validate("calibration"); err != nil {
		return nil, err
	}
	var distortion, undistort transform.Distorter
	if cfg.Distortion != nil {
		var err error
		if distortion, err = transform.NewDistorter(cfg.Distortion.Type, cfg.Distortion.Parameters); err != nil {
			return nil, err
		}
		if undistort, err = transform.NewUndistorter(distortion); err != nil {
			return nil, err
		}
	}

	in := cfg.Intrinsics
	k := mat.NewDense(3, 3, []float64{
		in.Fx, cfg.Skew, in.Ppx,
		0, in.Fy, in.Ppy,
		0, 0, 1,
	})

	level := spatialmath.RotationY(utils.DegToRad(cfg.PitchCorrectionDeg))
	var rotation mat.Dense
	rotation.Mul(mat.NewDense(3, 3, cfg.Rotation[:]), level.Transpose().Dense())

	return &Calibrator{
		cfg:        cfg,
		k:          k,
		rotation:   &rotation,
		level:      level,
		distortion: distortion,
		undistort:  undistort,
		logger:     logger,
	}, nil
}

// CameraMatrix returns K, including the skew.
func (c *Calibrator) CameraMatrix() mat.Matrix {
	return c.k
}

// Rotation returns the extrinsic rotation applying to levelled clouds.
func (c *Calibrator) Rotation() mat.Matrix {
	return c.rotation
}

// Translation returns the extrinsic translation. Levelling does not change it.
func (c *Calibrator) Translation() r3.Vector {
	return c.cfg.Translation.Vector()
}

// LevelCloud drops the points behind MinForward and rotates the rest by the pitch correction.
// The extrinsic translation stays as configured; it is not rotated by the correction.
func (c *Calibrator) LevelCloud(pc pointcloud.PointCloud) (pointcloud.PointCloud, error) {
	ahead, err := pointcloud.Filter(pc, func(p r3.Vector, d pointcloud.Data) bool {
		return p.X >= c.cfg.MinForward
	})
	if err != nil {
		return nil, err
	}
	leveled, err := pointcloud.ApplyTransform(ahead, c.level.Mul)
	if err != nil {
		return nil, err
	}
	c.logger.Debugw("levelled cloud", "points", pc.Size(), "ahead", ahead.Size(), "pitch", c.cfg.PitchCorrectionDeg)
	return leveled, nil
}

// ToCamera maps a levelled LiDAR point into the camera optical frame.
func (c *Calibrator) ToCamera(p r3.Vector) r3.Vector {
	r := c.rotation
	t := c.Translation()
	return r3.Vector{
		X: r.At(0, 0)*p.X + r.At(0, 1)*p.Y + r.At(0, 2)*p.Z + t.X,
		Y: r.At(1, 0)*p.X + r.At(1, 1)*p.Y + r.At(1, 2)*p.Z + t.Y,
		Z: r.At(2, 0)*p.X + r.At(2, 1)*p.Y + r.At(2, 2)*p.Z + t.Z,
	}
}

// Pixel projects an optical frame point. It reports false for points at or behind the camera.
func (c *Calibrator) Pixel(p r3.Vector) (r2.Point, bool) {
	if p.Z <= 0 {
		return r2.Point{}, false
	}
	x, y := p.X/p.Z, p.Y/p.Z
	if c.distortion != nil {
		x, y = c.distortion.Transform(x, y)
	}
	in := c.cfg.Intrinsics
	return r2.Point{X: in.Fx*x + c.cfg.Skew*y + in.Ppx, Y: in.Fy*y + in.Ppy}, true
}

// UndistortPixel maps a pixel of the distorted camera image to where an ideal pinhole camera with
// the same intrinsics would see it. Without a distortion model the pixel is returned unchanged.
func (c *Calibrator) UndistortPixel(px r2.Point) r2.Point {
	if c.undistort == nil {
		return px
	}
	in := c.cfg.Intrinsics
	yd := (px.Y - in.Ppy) / in.Fy
	xd := (px.X - in.Ppx - c.cfg.Skew*yd) / in.Fx
	x, y := c.undistort.Transform(xd, yd)
	return r2.Point{X: in.Fx*x + c.cfg.Skew*y + in.Ppx, Y: in.Fy*y + in.Ppy}
}

// ProjectCloud projects a levelled cloud and keeps the points that land inside the image.
func (c *Calibrator) ProjectCloud(pc pointcloud.PointCloud) []Projected {
	var out []Projected
	w, h := float64(c.cfg.Intrinsics.Width), float64(c.cfg.Intrinsics.Height)
	pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		if p.X < c.cfg.MinForward {
			return true
		}
		px, ok := c.Pixel(c.ToCamera(p))
		if !ok || px.X < 0 || px.Y < 0 || px.X >= w || px.Y >= h {
			return true
		}
		out = append(out, Projected{Pixel: px, Point: p, Data: d})
		return true
	})
	c.logger.Debugw("projected cloud", "points", pc.Size(), "visible", len(out))
	return out
}

// IntensityColor maps an intensity on a 0 to 100 scale from blue to red.
func IntensityColor(intensity float64) color.NRGBA {
	f := math.Max(0, math.Min(intensity, 100)) / 100
	r, g, b := colorful.Color{R: f, G: 0, B: 1 - f}.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// Overlay draws the projected points on a copy of img as discs coloured by intensity. Points
// with an intensity below 1 are not drawn. Points without an intensity use DefaultIntensity.
func (c *Calibrator) Overlay(img image.Image, projected []Projected) image.Image {
	dc := gg.NewContextForImage(img)
	drawn := 0
	for _, p := range projected {
		intensity := c.cfg.DefaultIntensity
		if p.Data != nil && p.Data.HasIntensity() {
			intensity = p.Data.Intensity()
		}
		if intensity < 1 {
			continue
		}
		center := image.Point{X: int(math.Floor(p.Pixel.X)), Y: int(math.Floor(p.Pixel.Y))}
		rimage.DrawFilledCircle(dc, center, c.cfg.PointRadius, IntensityColor(intensity))
		drawn++
	}
	rimage.DrawString(dc, fmt.Sprintf("%d lidar points", drawn), image.Point{X: 10, Y: 10}, color.White, 16)
	return dc.Image()
}

// ExtractMarkedPixels returns the pixels painted in pure red, column by column.
func ExtractMarkedPixels(img image.Image, th MarkerThreshold) []image.Point {
	var out []image.Point
	b := img.Bounds()
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.R > th.RedMin && c.G < th.OtherMax && c.B < th.OtherMax {
				out = append(out, image.Point{X: x - b.Min.X, Y: y - b.Min.Y})
			}
		}
	}
	return out
}

// GroundProjector returns the inverse projection of image pixels onto the road.
func (c *Calibrator) GroundProjector() (*transform.GroundProjector, error) {
	return transform.NewGroundProjector(c.k, c.rotation, c.Translation(), c.cfg.RoadHeight)
}

// GroundPoints projects pixels onto the road plane of the levelled LiDAR frame. Pixels are
// undistorted first, so the result inverts Pixel. The points are coloured red and carry
// MarkerValue. Pixels whose ray misses the road are skipped.
func (c *Calibrator) GroundPoints(pixels []image.Point) (pointcloud.PointCloud, error) {
	gp, err := c.GroundProjector()
	if err != nil {
		return nil, err
	}
	pc := pointcloud.NewWithPrealloc(len(pixels))
	missed := 0
	for _, px := range pixels {
		ideal := c.UndistortPixel(r2.Point{X: float64(px.X), Y: float64(px.Y)})
		p, ok := gp.PixelToGround(ideal.X, ideal.Y)
		if !ok || !utils.IsFinite(ideal.X, ideal.Y) {
			missed++
			continue
		}
		d := pointcloud.NewColoredData(color.NRGBA{R: 255, A: 255}).SetValue(MarkerValue)
		if err := pc.Set(p, d); err != nil {
			return nil, errors.Wrapf(err, "pixel %v", px)
		}
	}
	if missed > 0 {
		c.logger.Warnw("marked pixels above the horizon were skipped", "missed", missed, "total", len(pixels))
	}
	return pc, nil
}
