package perspective

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/drivelab/perspective/logging"
	"github.com/drivelab/perspective/rimage"
	"github.com/drivelab/perspective/rimage/transform"
	"github.com/drivelab/perspective/spatialmath"
)

// syntheticCamera is a 101x101 pinhole camera with f = 100 and the principal point in the
// middle, mounted at the vehicle origin looking forward.
func syntheticCamera(t *testing.T, mount spatialmath.Pose) *transform.CameraModel {
	t.Helper()
	cam, err := transform.NewCameraModel(
		&transform.PinholeCameraIntrinsics{Width: 101, Height: 101, Fx: 100, Fy: 100, Ppx: 50, Ppy: 50},
		mount,
	)
	test.That(t, err, test.ShouldBeNil)
	return cam
}

func straightAhead(x float64) Trajectory {
	return Trajectory{
		{Time: 0, Pose: spatialmath.NewPoseFromDegrees(x, 0, 0, 0, 0, 0)},
		{Time: 1, Pose: spatialmath.NewPoseFromDegrees(x, 0, 0, 0, 0, 0)},
	}
}

func assertSingleLine(t *testing.T, mask *rimage.Mask) {
	t.Helper()
	h, w, c := mask.Shape()
	test.That(t, []int{h, w, c}, test.ShouldResemble, []int{101, 101, 3})
	test.That(t, mask.CountSet(), test.ShouldEqual, 21)
	for u := 40; u <= 60; u++ {
		test.That(t, mask.IsSet(u, 50), test.ShouldBeTrue)
	}
}

func newTestProjector(t *testing.T, cfg Config, cam transform.Camera) *Projector {
	t.Helper()
	p, err := NewProjector(cfg, cam, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestProjectSingleSegment(t *testing.T) {
	p := newTestProjector(t, DefaultConfig(), syntheticCamera(t, spatialmath.NewZeroPose()))

	mask, stats, err := p.ProjectWithStats(context.Background(), straightAhead(10), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)
	assertSingleLine(t, mask)
	// two real samples and 2^5 interpolated ones
	test.That(t, stats.PosesVisited, test.ShouldEqual, 34)
	test.That(t, stats.SegmentsDrawn, test.ShouldEqual, 34)
	test.That(t, stats.SegmentsRejected, test.ShouldEqual, 0)
}

func TestProjectSamplesMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = ModeSamples
	cfg.LateralSampleNumber = 21
	p := newTestProjector(t, cfg, syntheticCamera(t, spatialmath.NewZeroPose()))

	mask, err := p.Project(context.Background(), straightAhead(10), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)
	assertSingleLine(t, mask)
}

func TestProjectRelativeToVehicle(t *testing.T) {
	p := newTestProjector(t, DefaultConfig(), syntheticCamera(t, spatialmath.NewZeroPose()))

	// heading north, ten metres ahead of a vehicle also heading north
	traj := Trajectory{
		{Time: 0, Pose: spatialmath.NewPoseFromDegrees(100, 60, 0, 0, 0, 90)},
		{Time: 0.5, Pose: spatialmath.NewPoseFromDegrees(100, 60, 0, 0, 0, 90)},
	}
	mask, err := p.Project(context.Background(), traj, spatialmath.NewPoseFromDegrees(100, 50, 0, 0, 0, 90))
	test.That(t, err, test.ShouldBeNil)
	assertSingleLine(t, mask)
}

func TestProjectInvisible(t *testing.T) {
	p := newTestProjector(t, DefaultConfig(), syntheticCamera(t, spatialmath.NewZeroPose()))

	for _, tc := range []struct {
		name string
		traj Trajectory
	}{
		{"behind", straightAhead(-10)},
		{"far to the side", Trajectory{
			{Time: 0, Pose: spatialmath.NewPoseFromDegrees(10, 100, 0, 0, 0, 0)},
			{Time: 1, Pose: spatialmath.NewPoseFromDegrees(20, 100, 0, 0, 0, 0)},
		}},
		{"behind and turning", Trajectory{
			{Time: 0, Pose: spatialmath.NewPoseFromDegrees(-5, 0, 0, 0, 0, 179)},
			{Time: 1, Pose: spatialmath.NewPoseFromDegrees(-15, 0, 0, 0, 0, -179)},
			{Time: 3, Pose: spatialmath.NewPoseFromDegrees(-25, 1, 0, 0, 0, 170)},
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			mask, stats, err := p.ProjectWithStats(context.Background(), tc.traj, spatialmath.NewZeroPose())
			test.That(t, err, test.ShouldBeNil)
			h, w, c := mask.Shape()
			test.That(t, []int{h, w, c}, test.ShouldResemble, []int{101, 101, 3})
			test.That(t, mask.CountSet(), test.ShouldEqual, 0)
			test.That(t, stats.SegmentsDrawn, test.ShouldEqual, 0)
			test.That(t, stats.SegmentsRejected, test.ShouldEqual, stats.PosesVisited)
		})
	}
}

func TestProjectGroundBelowHorizon(t *testing.T) {
	p := newTestProjector(t, DefaultConfig(), syntheticCamera(t, spatialmath.NewPoseFromDegrees(0, 0, 1.6, 0, 0, 0)))
	traj := Trajectory{
		{Time: 0, Pose: spatialmath.NewPoseFromDegrees(5, 0, 0, 0, 0, 0)},
		{Time: 1, Pose: spatialmath.NewPoseFromDegrees(15, 0.5, 0, 0, 0, 5)},
		{Time: 2, Pose: spatialmath.NewPoseFromDegrees(30, 2, 0, 0, 0, 10)},
	}
	mask, err := p.Project(context.Background(), traj, spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mask.CountSet(), test.ShouldBeGreaterThan, 0)
	for v := 0; v <= 50; v++ {
		for u := 0; u < 101; u++ {
			test.That(t, mask.IsSet(u, v), test.ShouldBeFalse)
		}
	}
}

func TestProjectErrors(t *testing.T) {
	p := newTestProjector(t, DefaultConfig(), syntheticCamera(t, spatialmath.NewZeroPose()))
	pose := spatialmath.NewPoseFromDegrees(10, 0, 0, 0, 0, 0)

	for _, traj := range []Trajectory{nil, {}, {{Time: 0, Pose: pose}}} {
		mask, err := p.Project(context.Background(), traj, spatialmath.NewZeroPose())
		test.That(t, mask, test.ShouldBeNil)
		test.That(t, errors.Is(err, ErrInsufficientTrajectory), test.ShouldBeTrue)
	}

	for _, traj := range []Trajectory{
		{{Time: 1, Pose: pose}, {Time: 1, Pose: pose}},
		{{Time: 0, Pose: pose}, {Time: 2, Pose: pose}, {Time: 1, Pose: pose}},
	} {
		mask, err := p.Project(context.Background(), traj, spatialmath.NewZeroPose())
		test.That(t, mask, test.ShouldBeNil)
		test.That(t, errors.Is(err, ErrNonMonotonicTrajectory), test.ShouldBeTrue)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	mask, err := p.Project(ctx, straightAhead(10), spatialmath.NewZeroPose())
	test.That(t, mask, test.ShouldBeNil)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestProjectBatch(t *testing.T) {
	p := newTestProjector(t, DefaultConfig(), syntheticCamera(t, spatialmath.NewZeroPose()))
	vehicles := []spatialmath.Pose{
		spatialmath.NewZeroPose(),
		spatialmath.NewPoseFromDegrees(20, 0, 0, 0, 0, 0),
		spatialmath.NewZeroPose(),
	}
	masks, err := p.ProjectBatch(context.Background(), straightAhead(10), vehicles)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(masks), test.ShouldEqual, 3)
	assertSingleLine(t, masks[0])
	test.That(t, masks[1].CountSet(), test.ShouldEqual, 0)
	assertSingleLine(t, masks[2])

	_, err = p.ProjectBatch(context.Background(), Trajectory{}, vehicles)
	test.That(t, errors.Is(err, ErrInsufficientTrajectory), test.ShouldBeTrue)
}

func TestProjectLogsTimings(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	p, err := NewProjector(DefaultConfig(), syntheticCamera(t, spatialmath.NewZeroPose()), logger)
	test.That(t, err, test.ShouldBeNil)
	_, err = p.Project(context.Background(), straightAhead(10), spatialmath.NewZeroPose())
	test.That(t, err, test.ShouldBeNil)

	entries := logs.FilterMessage("projected trajectory").All()
	test.That(t, len(entries), test.ShouldEqual, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["samples"], test.ShouldEqual, int64(2))
	test.That(t, fields, test.ShouldContainKey, "interpolated")
}

func TestNewProjectorErrors(t *testing.T) {
	_, err := NewProjector(DefaultConfig(), nil, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	cfg := DefaultConfig()
	cfg.VehicleWidth = 0
	_, err = NewProjector(cfg, syntheticCamera(t, spatialmath.NewZeroPose()), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "vehicle_width")
}
