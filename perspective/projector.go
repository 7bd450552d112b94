// Package perspective projects a vehicle trajectory onto the image plane of a camera mounted on
// the vehicle, producing a mask of the corridor the vehicle will sweep through in that view.
package perspective

import (
	"context"
	"math"
	"runtime"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/drivelab/perspective/logging"
	"github.com/drivelab/perspective/rimage"
	"github.com/drivelab/perspective/rimage/transform"
	"github.com/drivelab/perspective/spatialmath"
)

// Stats counts what a projection did.
type Stats struct {
	PosesVisited     int
	SegmentsDrawn    int
	SegmentsRejected int
}

// Projector draws trajectory masks for one camera. It is safe for concurrent use.
type Projector struct {
	cfg       Config
	camera    transform.Camera
	logger    logging.Logger
	halfWidth float64
	// lateral offsets across the footprint, right to left, for ModeSamples
	offsets []float64
}

// NewProjector validates cfg and returns a projector for the given camera.
func NewProjector(cfg Config, camera transform.Camera, logger logging.Logger) (*Projector, error) {
	if camera == nil {
		return nil, errors.New("projector needs a camera")
	}
	if err := cfg.Validate("projector"); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeLine
	}
	p := &Projector{
		cfg:       cfg,
		camera:    camera,
		logger:    logger,
		halfWidth: cfg.VehicleWidth / 2,
	}
	if cfg.Mode == ModeSamples {
		p.offsets = lateralOffsets(cfg.LateralSampleNumber, p.halfWidth)
	}
	return p, nil
}

// Config returns the projector settings.
func (p *Projector) Config() Config {
	return p.cfg
}

// Project returns the mask of trajectory traj seen from the camera of a vehicle at vehiclePose.
// The mask has the size of the camera image and is owned by the caller.
func (p *Projector) Project(ctx context.Context, traj Trajectory, vehiclePose spatialmath.Pose) (*rimage.Mask, error) {
	mask, _, err := p.ProjectWithStats(ctx, traj, vehiclePose)
	return mask, err
}

// ProjectWithStats is Project, also reporting how many footprints were drawn.
func (p *Projector) ProjectWithStats(
	ctx context.Context,
	traj Trajectory,
	vehiclePose spatialmath.Pose,
) (*rimage.Mask, Stats, error) {
	var stats Stats
	if err := traj.Validate(); err != nil {
		return nil, stats, err
	}
	width, height := p.camera.Size()
	mask := rimage.NewMask(width, height)

	start := time.Now()
	for _, s := range traj {
		p.drawFootprint(mask, s.Pose, vehiclePose, &stats)
	}
	realDone := time.Now()

	counts := SampleCounts(len(traj)-1, p.cfg.LongitudinalSampleNumberNear, p.cfg.LongitudinalSampleNumberFar)
	for i := 0; i < len(traj)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		first, second := traj[i], traj[i+1]
		duration := second.Time - first.Time
		for _, t := range sampleTimes(counts[i], duration) {
			pose, err := spatialmath.Interpolate(t, duration, first.Pose, second.Pose)
			if err != nil {
				return nil, stats, errors.Wrapf(err, "interpolating samples %d and %d", i, i+1)
			}
			p.drawFootprint(mask, pose, vehiclePose, &stats)
		}
	}

	if p.logger != nil {
		p.logger.Debugw("projected trajectory",
			"samples", len(traj),
			"poses", stats.PosesVisited,
			"drawn", stats.SegmentsDrawn,
			"rejected", stats.SegmentsRejected,
			"real", realDone.Sub(start),
			"interpolated", time.Since(realDone),
		)
	}
	return mask, stats, nil
}

// ProjectBatch projects the same trajectory for several vehicle poses in parallel. The masks are
// returned in the order of vehiclePoses.
func (p *Projector) ProjectBatch(
	ctx context.Context,
	traj Trajectory,
	vehiclePoses []spatialmath.Pose,
) ([]*rimage.Mask, error) {
	if err := traj.Validate(); err != nil {
		return nil, err
	}
	masks := make([]*rimage.Mask, len(vehiclePoses))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, vehiclePose := range vehiclePoses {
		i, vehiclePose := i, vehiclePose
		g.Go(func() error {
			mask, err := p.Project(gctx, traj, vehiclePose)
			if err != nil {
				return errors.Wrapf(err, "vehicle pose %d", i)
			}
			masks[i] = mask
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return masks, nil
}

// lateral returns the unit vector pointing to the left of a pose, on the ground plane.
func lateral(pose spatialmath.Pose) r3.Vector {
	heading := pose.Heading()
	return r3.Vector{X: -math.Sin(heading), Y: math.Cos(heading)}
}

func (p *Projector) drawFootprint(mask *rimage.Mask, pose, vehiclePose spatialmath.Pose, stats *Stats) {
	stats.PosesVisited++
	var drawn bool
	if p.cfg.Mode == ModeSamples {
		drawn = p.drawSamples(mask, pose, vehiclePose)
	} else {
		drawn = p.drawLine(mask, pose, vehiclePose)
	}
	if drawn {
		stats.SegmentsDrawn++
	} else {
		stats.SegmentsRejected++
	}
}

func (p *Projector) drawLine(mask *rimage.Mask, pose, vehiclePose spatialmath.Pose) bool {
	offset := lateral(pose).Mul(p.halfWidth)
	left := vehiclePose.InverseTransform(pose.Point().Add(offset))
	right := vehiclePose.InverseTransform(pose.Point().Sub(offset))
	start, end, ok := p.camera.SegmentToPixels(left, right)
	if !ok {
		return false
	}
	return mask.DrawSegment(start, end, p.cfg.LateralStepFactor)
}

func (p *Projector) drawSamples(mask *rimage.Mask, pose, vehiclePose spatialmath.Pose) bool {
	dir := lateral(pose)
	var marked bool
	for _, d := range p.offsets {
		pt := vehiclePose.InverseTransform(pose.Point().Add(dir.Mul(d)))
		px, ok := p.camera.VehicleToPixel(pt)
		if !ok {
			continue
		}
		if mask.MarkPoint(px) {
			marked = true
		}
	}
	return marked
}
