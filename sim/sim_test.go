package sim

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/drivelab/perspective/perspective"
	"github.com/drivelab/perspective/spatialmath"
	"github.com/drivelab/perspective/utils"
)

func TestTransformToPose(t *testing.T) {
	tf := Transform{
		Location: Location{X: 1, Y: 2, Z: 3},
		Rotation: Rotation{Pitch: 5, Yaw: 90, Roll: 10},
	}
	pose := tf.ToPose()
	test.That(t, pose.Point(), test.ShouldResemble, r3.Vector{X: 1, Y: -2, Z: 3})
	test.That(t, pose.Orientation().Roll, test.ShouldEqual, 10.)
	test.That(t, pose.Orientation().Pitch, test.ShouldEqual, -5.)
	test.That(t, pose.Orientation().Yaw, test.ShouldEqual, -90.)
	test.That(t, FromPose(pose), test.ShouldResemble, tf)

	// a simulator yaw of 90 turns towards +y, which is to the right. The 5 degree pitch tilts the
	// heading out of the ground plane, shortening it there to cos(5°).
	heading := pose.Transform(r3.Vector{X: 1}).Sub(pose.Point())
	test.That(t, heading.X, test.ShouldAlmostEqual, 0)
	test.That(t, heading.Y, test.ShouldAlmostEqual, -math.Cos(utils.DegToRad(5)))
	test.That(t, heading.Norm(), test.ShouldAlmostEqual, 1)

	level := Transform{Rotation: Rotation{Yaw: 90}}.ToPose()
	heading = level.Transform(r3.Vector{X: 1}).Sub(level.Point())
	test.That(t, heading.Y, test.ShouldAlmostEqual, -1)
}

func TestNewCamera(t *testing.T) {
	attrs := map[string]string{"image_size_x": "640", "image_size_y": "480", "fov": "90", "role_name": "front"}
	cam, err := NewCamera(attrs, Transform{Location: Location{X: 1.5, Y: 0.2, Z: 1.6}})
	test.That(t, err, test.ShouldBeNil)
	w, h := cam.Size()
	test.That(t, w, test.ShouldEqual, 640)
	test.That(t, h, test.ShouldEqual, 480)
	test.That(t, cam.Mount().Point().Y, test.ShouldEqual, -0.2)

	delete(attrs, "fov")
	_, err = NewCamera(attrs, Transform{})
	test.That(t, err, test.ShouldNotBeNil)
}

const trajectoryJSON = `[
	{"t": 0, "transform": {"location": {"x": 10, "y": 1, "z": 0}, "rotation": {"pitch": 0, "yaw": 0, "roll": 0}}},
	{"t": 0.5, "pose": {"x": 12, "y": -1, "z": 0, "roll": 0, "pitch": 0, "yaw": 15}}
]`

func TestDecodeTrajectory(t *testing.T) {
	traj, err := DecodeTrajectory(strings.NewReader(trajectoryJSON))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(traj), test.ShouldEqual, 2)
	test.That(t, traj[0].Time, test.ShouldEqual, 0.)
	test.That(t, traj[0].Pose.Point(), test.ShouldResemble, r3.Vector{X: 10, Y: -1})
	test.That(t, traj[1].Time, test.ShouldEqual, 0.5)
	test.That(t, spatialmath.PoseAlmostEqual(traj[1].Pose, spatialmath.NewPoseFromDegrees(12, -1, 0, 0, 0, 15)), test.ShouldBeTrue)

	for _, tc := range []struct {
		name, in, errPart string
	}{
		{"not json", `{`, "parse"},
		{"unknown field", `[{"t": 0, "position": {}}]`, "parse"},
		{"no time", `[{"pose": {"x": 1}}, {"t": 1, "pose": {"x": 2}}]`, "no time"},
		{"no pose", `[{"t": 0}, {"t": 1, "pose": {"x": 2}}]`, "no pose"},
		{"both", `[{"t": 0, "pose": {"x": 1}, "transform": {}}, {"t": 1, "pose": {"x": 2}}]`, "both"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeTrajectory(strings.NewReader(tc.in))
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.errPart)
		})
	}

	_, err = DecodeTrajectory(strings.NewReader(`[{"t": 0, "pose": {"x": 1}}]`))
	test.That(t, errors.Is(err, perspective.ErrInsufficientTrajectory), test.ShouldBeTrue)
	_, err = DecodeTrajectory(strings.NewReader(`[{"t": 1, "pose": {"x": 1}}, {"t": 0, "pose": {"x": 1}}]`))
	test.That(t, errors.Is(err, perspective.ErrNonMonotonicTrajectory), test.ShouldBeTrue)
}

func TestReadTrajectoryFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "traj.json")
	test.That(t, os.WriteFile(fn, []byte(trajectoryJSON), 0o600), test.ShouldBeNil)
	traj, err := ReadTrajectoryFile(fn)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, traj.Duration(), test.ShouldEqual, 0.5)

	_, err = ReadTrajectoryFile(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)
}
