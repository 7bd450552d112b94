package calibration

import (
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/drivelab/perspective/pointcloud"
)

func cloudXYs(pc pointcloud.PointCloud) plotter.XYs {
	xys := make(plotter.XYs, 0, pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		// left is drawn to the left, forward up
		xys = append(xys, plotter.XY{X: -p.Y, Y: p.X})
		return true
	})
	return xys
}

// PlotBirdsEye saves a top down scatter of the LiDAR cloud and the points projected back from
// the image. The image format follows the extension of fn.
func PlotBirdsEye(lidar, ground pointcloud.PointCloud, fn string) error {
	p := plot.New()
	p.Title.Text = "LiDAR and image markers, top view"
	p.X.Label.Text = "right (m)"
	p.Y.Label.Text = "forward (m)"
	p.Add(plotter.NewGrid())

	for _, layer := range []struct {
		name   string
		cloud  pointcloud.PointCloud
		color  color.Color
		radius vg.Length
	}{
		{"lidar", lidar, color.RGBA{R: 0, G: 160, B: 200, A: 255}, vg.Points(0.5)},
		{"markers", ground, color.RGBA{R: 220, A: 255}, vg.Points(1.5)},
	} {
		if layer.cloud == nil || layer.cloud.Size() == 0 {
			continue
		}
		scatter, err := plotter.NewScatter(cloudXYs(layer.cloud))
		if err != nil {
			return errors.Wrapf(err, "plotting %s", layer.name)
		}
		scatter.GlyphStyle.Color = layer.color
		scatter.GlyphStyle.Radius = layer.radius
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(scatter)
		p.Legend.Add(layer.name, scatter)
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, fn); err != nil {
		return errors.Wrapf(err, "saving %s", fn)
	}
	return nil
}
