package cli

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/drivelab/perspective/logging"
	"github.com/drivelab/perspective/pointcloud"
	"github.com/drivelab/perspective/rimage"
)

const testConfig = `{
	"camera": {
		"intrinsic_parameters": {"width_px": 200, "height_px": 100, "fx": 100, "fy": 100, "ppx": 100, "ppy": 50},
		"mount": {"x": 0, "y": 0, "z": 1.5, "roll": 0, "pitch": 10, "yaw": 0}
	},
	"projector": {"vehicle_width": 2},
	"calibration": {
		"intrinsic_parameters": {"width_px": 1280, "height_px": 720, "fx": 711.64, "fy": 711.30, "ppx": 644.94, "ppy": 336.03},
		"rotation": "0 -1 0 0 0 -1 1 0 0",
		"translation": [0.066, 0.126, 0.248]
	}
}`

const testTrajectory = `[
	{"t": 0, "pose": {"x": 0, "y": 0, "z": 0, "roll": 0, "pitch": 0, "yaw": 0}},
	{"t": 1, "pose": {"x": 10, "y": 0, "z": 0, "roll": 0, "pitch": 0, "yaw": 0}},
	{"t": 2, "pose": {"x": 20, "y": 0, "z": 0, "roll": 0, "pitch": 0, "yaw": 0}}
]`

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	test.That(t, os.WriteFile(fn, []byte(contents), 0o600), test.ShouldBeNil)
	return fn
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"pmgen"}, args...))
	return out.String(), err
}

func TestMaskCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.json", testConfig)
	traj := writeFile(t, dir, "trajectory.json", testTrajectory)
	maskFn := filepath.Join(dir, "mask.png")

	out, err := run(t, "mask", "--config", cfg, "--trajectory", traj, "--out", maskFn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "pixels marked")

	img, err := rimage.ReadImageFromFile(maskFn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 200, 100))
	marked := 0
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			if r, _, _, _ := img.At(x, y).RGBA(); r > 0 {
				marked++
			}
		}
	}
	test.That(t, marked, test.ShouldBeGreaterThan, 0)

	t.Run("overlay", func(t *testing.T) {
		bg := image.NewNRGBA(image.Rect(0, 0, 200, 100))
		bgFn := filepath.Join(dir, "camera.png")
		test.That(t, rimage.WriteImageToFile(bgFn, bg), test.ShouldBeNil)
		overlayFn := filepath.Join(dir, "overlay.png")

		_, err := run(t, "--debug", "mask", "-c", cfg, "-t", traj, "--overlay", bgFn, "-o", overlayFn)
		test.That(t, err, test.ShouldBeNil)
		overlaid, err := rimage.ReadImageFromFile(overlayFn)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, overlaid.Bounds().Dx(), test.ShouldEqual, 200)
	})

	t.Run("vehicle past the trajectory", func(t *testing.T) {
		_, err := run(t, "mask", "-c", cfg, "-t", traj, "--vehicle", "100 0 0 0 0 0", "-o", maskFn)
		test.That(t, err, test.ShouldBeNil)
		img, err := rimage.ReadImageFromFile(maskFn)
		test.That(t, err, test.ShouldBeNil)
		for y := 0; y < 100; y++ {
			for x := 0; x < 200; x++ {
				r, _, _, _ := img.At(x, y).RGBA()
				test.That(t, r, test.ShouldEqual, 0)
			}
		}
	})

	t.Run("bad vehicle", func(t *testing.T) {
		_, err := run(t, "mask", "-c", cfg, "-t", traj, "--vehicle", "1 2 3", "-o", maskFn)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "vehicle")
	})

	t.Run("missing trajectory", func(t *testing.T) {
		_, err := run(t, "mask", "-c", cfg, "-t", filepath.Join(dir, "nope.json"), "-o", maskFn)
		test.That(t, err, test.ShouldNotBeNil)
	})

	t.Run("no camera", func(t *testing.T) {
		noCamera := writeFile(t, dir, "empty.json", `{}`)
		_, err := run(t, "mask", "-c", noCamera, "-t", traj, "-o", maskFn)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "camera")
	})

	t.Run("unknown output format", func(t *testing.T) {
		_, err := run(t, "mask", "-c", cfg, "-t", traj, "-o", filepath.Join(dir, "mask.xyz"))
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func writeCalibrationInputs(t *testing.T, dir string, marked bool) (string, string) {
	t.Helper()
	cloud := pointcloud.New()
	test.That(t, cloud.Set(r3.Vector{X: 10 - 0.248, Y: 0.066, Z: 0.126}, pointcloud.NewIntensityData(100)), test.ShouldBeNil)
	test.That(t, cloud.Set(r3.Vector{X: -4}, pointcloud.NewIntensityData(100)), test.ShouldBeNil)
	cloudFn := filepath.Join(dir, "cloud.pcd")
	test.That(t, pointcloud.WriteToPCDFile(cloud, cloudFn, pointcloud.PCDAscii), test.ShouldBeNil)

	img := image.NewNRGBA(image.Rect(0, 0, 1280, 720))
	if marked {
		img.SetNRGBA(640, 600, color.NRGBA{R: 255, A: 255})
		img.SetNRGBA(700, 650, color.NRGBA{R: 255, A: 255})
	}
	imgFn := filepath.Join(dir, "camera.png")
	test.That(t, rimage.WriteImageToFile(imgFn, img), test.ShouldBeNil)
	return cloudFn, imgFn
}

func TestCalibProjectCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.json", testConfig)
	cloudFn, imgFn := writeCalibrationInputs(t, dir, false)
	outFn := filepath.Join(dir, "projected.png")

	out, err := run(t, "calib", "project", "-c", cfg, "--cloud", cloudFn, "--image", imgFn, "-o", outFn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "2 LiDAR points")

	img, err := rimage.ReadImageFromFile(outFn)
	test.That(t, err, test.ShouldBeNil)
	r, _, _, _ := img.At(645, 336).RGBA()
	test.That(t, r>>8, test.ShouldEqual, 255)
}

func TestCalibGroundCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.json", testConfig)

	t.Run("unmarked image", func(t *testing.T) {
		cloudFn, imgFn := writeCalibrationInputs(t, t.TempDir(), false)
		_, err := run(t, "calib", "ground", "-c", cfg, "--cloud", cloudFn, "--image", imgFn, "-o", filepath.Join(dir, "x.pcd"))
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no marked pixels")
	})

	cloudFn, imgFn := writeCalibrationInputs(t, dir, true)
	pcdFn := filepath.Join(dir, "merged.pcd")
	lasFn := filepath.Join(dir, "merged.las")
	plotFn := filepath.Join(dir, "bev.png")

	out, err := run(t, "calib", "ground", "-c", cfg, "--cloud", cloudFn, "--image", imgFn,
		"-o", pcdFn, "--binary", "--las", lasFn, "--plot", plotFn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "2 marker points")

	merged, err := pointcloud.NewFromFile(pcdFn, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, merged.Size(), test.ShouldEqual, 3)

	fromLAS, err := pointcloud.NewFromFile(lasFn, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fromLAS.Size(), test.ShouldEqual, 3)

	info, err := os.Stat(plotFn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestMissingRequiredFlag(t *testing.T) {
	_, err := run(t, "mask", "--out", "mask.png")
	test.That(t, err, test.ShouldNotBeNil)
}
