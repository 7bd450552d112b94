package calibration

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"github.com/drivelab/perspective/pointcloud"
)

// HeightColor maps a normalised height in [0, 1] from blue through green to red.
func HeightColor(f float64) color.NRGBA {
	f = math.Max(0, math.Min(f, 1))
	var c colorful.Color
	if f > 0.5 {
		c = colorful.Color{R: 2*f - 1, G: 2 - 2*f, B: 0}
	} else {
		c = colorful.Color{R: 0, G: 2 * f, B: 1 - 2*f}
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

// HeightColors returns a copy of the cloud coloured by height. The colour range is centred on
// the mean height and spans the smaller of its distances to the lowest and highest point, so
// isolated outliers do not flatten the ramp.
func HeightColors(pc pointcloud.PointCloud) (pointcloud.PointCloud, error) {
	if pc.Size() == 0 {
		return pointcloud.New(), nil
	}
	zs := make([]float64, 0, pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		zs = append(zs, p.Z)
		return true
	})
	zMax, err := stats.Max(zs)
	if err != nil {
		return nil, errors.Wrap(err, "cannot color empty cloud")
	}
	zMin, err := stats.Min(zs)
	if err != nil {
		return nil, err
	}
	zAvg, err := stats.Mean(zs)
	if err != nil {
		return nil, err
	}
	delta := math.Min(zMax-zAvg, zAvg-zMin)
	lo, hi := zAvg-delta, zAvg+delta

	out := pointcloud.NewWithPrealloc(pc.Size())
	pc.Iterate(0, 0, func(p r3.Vector, d pointcloud.Data) bool {
		f := 0.5
		if hi > lo {
			f = (p.Z - lo) / (hi - lo)
		}
		nd := pointcloud.NewColoredData(HeightColor(f))
		if d != nil {
			if d.HasValue() {
				nd.SetValue(d.Value())
			}
			if d.HasIntensity() {
				nd.SetIntensity(d.Intensity())
			}
		}
		err = out.Set(p, nd)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
