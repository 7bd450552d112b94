package pointcloud

import (
	"bytes"
	"image/color"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/drivelab/perspective/logging"
)

func TestPointCloudBasic(t *testing.T) {
	pc := New()
	test.That(t, pc.Size(), test.ShouldEqual, 0)

	p0 := NewVector(0, 0, 0)
	test.That(t, pc.Set(p0, NewValueData(1)), test.ShouldBeNil)
	d, ok := pc.At(0, 0, 0)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.Value(), test.ShouldEqual, 1)

	test.That(t, pc.Set(p0, NewValueData(2)), test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 1)
	d, _ = pc.At(0, 0, 0)
	test.That(t, d.Value(), test.ShouldEqual, 2)

	test.That(t, pc.Set(NewVector(2, -4, 6), NewIntensityData(50)), test.ShouldBeNil)
	meta := pc.MetaData()
	test.That(t, meta.HasValue, test.ShouldBeTrue)
	test.That(t, meta.HasIntensity, test.ShouldBeTrue)
	test.That(t, meta.HasColor, test.ShouldBeFalse)
	test.That(t, meta.MinY, test.ShouldEqual, -4.)
	test.That(t, meta.MaxZ, test.ShouldEqual, 6.)
	test.That(t, meta.Center(), test.ShouldResemble, r3.Vector{X: 1, Y: -2, Z: 3})

	_, ok = pc.At(1, 1, 1)
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, pc.Set(r3.Vector{X: math.Inf(1)}, nil), test.ShouldNotBeNil)
}

func TestIterateBatches(t *testing.T) {
	pc := New()
	for i := 0; i < 10; i++ {
		test.That(t, pc.Set(NewVector(float64(i), 0, 0), nil), test.ShouldBeNil)
	}
	seen := 0
	for batch := 0; batch < 3; batch++ {
		pc.Iterate(3, batch, func(p r3.Vector, d Data) bool {
			seen++
			return true
		})
	}
	test.That(t, seen, test.ShouldEqual, 10)

	count := 0
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		count++
		return count < 4
	})
	test.That(t, count, test.ShouldEqual, 4)
}

func TestTransformFilterMerge(t *testing.T) {
	pc := New()
	test.That(t, pc.Set(NewVector(1, 0, 0), NewIntensityData(10)), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(-1, 0, 0), NewIntensityData(20)), test.ShouldBeNil)

	moved, err := ApplyTransform(pc, func(p r3.Vector) r3.Vector { return p.Add(r3.Vector{Z: 1}) })
	test.That(t, err, test.ShouldBeNil)
	d, ok := moved.At(1, 0, 1)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.Intensity(), test.ShouldEqual, 10.)

	front, err := Filter(pc, func(p r3.Vector, d Data) bool { return p.X >= 0 })
	test.That(t, err, test.ShouldBeNil)
	test.That(t, front.Size(), test.ShouldEqual, 1)

	merged, err := MergePointClouds(pc, moved)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, merged.Size(), test.ShouldEqual, 4)
}

func testCloud(t *testing.T) PointCloud {
	t.Helper()
	pc := New()
	test.That(t, pc.Set(NewVector(1.5, -2.25, 0.5), NewColoredData(color.NRGBA{255, 10, 20, 255}).SetIntensity(42)), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(-3, 4, -1.5), NewColoredData(color.NRGBA{0, 0, 255, 255}).SetValue(1)), test.ShouldBeNil)
	test.That(t, pc.Set(NewVector(10, 0.125, 2), NewBasicData()), test.ShouldBeNil)
	return pc
}

func assertSameCloud(t *testing.T, got, want PointCloud) {
	t.Helper()
	test.That(t, got.Size(), test.ShouldEqual, want.Size())
	want.Iterate(0, 0, func(p r3.Vector, wd Data) bool {
		gd, ok := got.At(p.X, p.Y, p.Z)
		test.That(t, ok, test.ShouldBeTrue)
		r, g, b := gd.RGB255()
		wr, wg, wb := wd.RGB255()
		if wd.HasColor() {
			test.That(t, []uint8{r, g, b}, test.ShouldResemble, []uint8{wr, wg, wb})
		}
		test.That(t, gd.Intensity(), test.ShouldEqual, wd.Intensity())
		test.That(t, gd.Value(), test.ShouldEqual, wd.Value())
		return true
	})
}

func TestPCDRoundTrip(t *testing.T) {
	pc := testCloud(t)
	for _, typ := range []PCDType{PCDAscii, PCDBinary} {
		var buf bytes.Buffer
		test.That(t, ToPCD(pc, &buf, typ), test.ShouldBeNil)
		if typ == PCDAscii {
			test.That(t, buf.String(), test.ShouldContainSubstring, "FIELDS x y z rgb intensity label\n")
		}
		back, err := ReadPCD(&buf)
		test.That(t, err, test.ShouldBeNil)
		// every coordinate above is exact in float32
		assertSameCloud(t, back, pc)
		test.That(t, back.MetaData().HasColor, test.ShouldBeTrue)
	}

	var buf bytes.Buffer
	test.That(t, ToPCD(pc, &buf, PCDCompressed), test.ShouldNotBeNil)
}

func TestPCDFile(t *testing.T) {
	pc := testCloud(t)
	fn := filepath.Join(t.TempDir(), "cloud.pcd")
	test.That(t, WriteToPCDFile(pc, fn, PCDBinary), test.ShouldBeNil)
	back, err := NewFromFile(fn, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	assertSameCloud(t, back, pc)

	_, err = NewFromFile(filepath.Join(t.TempDir(), "cloud.ply"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}

const lidarPCD = `# .PCD v0.7 - Point Cloud Data file format
VERSION 0.7
FIELDS x y z intensity
SIZE 4 4 4 4
TYPE F F F F
COUNT 1 1 1 1
WIDTH 3
HEIGHT 1
VIEWPOINT 0 0 0 1 0 0 0
POINTS 3
DATA ascii
5.1 0.2 -1.5 12
-2 3 0.5 100

7.25 -1 -1.6 0.5
`

func TestReadSensorPCD(t *testing.T) {
	pc, err := ReadPCD(strings.NewReader(lidarPCD))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	d, ok := pc.At(5.1, 0.2, -1.5)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, d.Intensity(), test.ShouldEqual, 12.)
	test.That(t, d.HasColor(), test.ShouldBeFalse)
	test.That(t, pc.MetaData().HasIntensity, test.ShouldBeTrue)
}

func TestReadPCDErrors(t *testing.T) {
	for _, tc := range []struct {
		name, from, to, errPart string
	}{
		{"no z", "FIELDS x y z intensity", "FIELDS x y w intensity", "z"},
		{"points mismatch", "POINTS 3", "POINTS 4", "WIDTH*HEIGHT"},
		{"compressed", "DATA ascii", "DATA binary_compressed", "compressed"},
		{"bad version", "VERSION 0.7", "VERSION 0.5", "version"},
		{"bad type", "TYPE F F F F", "TYPE F F F Q", "TYPE"},
		{"bad value", "7.25 -1", "seven -1", "invalid point"},
		{"truncated", "7.25 -1 -1.6 0.5\n", "", "point 2"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadPCD(strings.NewReader(strings.Replace(lidarPCD, tc.from, tc.to, 1)))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errPart)
		})
	}
}

func TestLASRoundTrip(t *testing.T) {
	pc := testCloud(t)
	fn := filepath.Join(t.TempDir(), "cloud.las")
	test.That(t, WriteToLASFile(pc, fn), test.ShouldBeNil)

	back, err := NewFromFile(fn, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.Size(), test.ShouldEqual, pc.Size())
	test.That(t, back.MetaData().HasValue, test.ShouldBeTrue)
	test.That(t, back.MetaData().HasColor, test.ShouldBeTrue)

	var want []PointAndData
	pc.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		want = append(want, PointAndData{P: p, D: d})
		return true
	})
	i := 0
	back.Iterate(0, 0, func(p r3.Vector, d Data) bool {
		test.That(t, p.Sub(want[i].P).Norm(), test.ShouldBeLessThan, 1e-2)
		test.That(t, d.Intensity(), test.ShouldEqual, want[i].D.Intensity())
		test.That(t, d.Value(), test.ShouldEqual, want[i].D.Value())
		i++
		return true
	})
}
