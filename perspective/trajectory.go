package perspective

import (
	"github.com/pkg/errors"

	"github.com/drivelab/perspective/spatialmath"
)

var (
	// ErrInsufficientTrajectory is returned for trajectories with fewer than two samples.
	ErrInsufficientTrajectory = errors.New("trajectory needs at least two samples")
	// ErrNonMonotonicTrajectory is returned when sample times do not strictly increase.
	ErrNonMonotonicTrajectory = errors.New("trajectory times must be strictly increasing")
)

// Sample is a pose of the vehicle at a time in seconds.
type Sample struct {
	Time float64          `json:"t"`
	Pose spatialmath.Pose `json:"pose"`
}

// Trajectory is a time ordered list of samples.
type Trajectory []Sample

// Validate checks that the trajectory can be interpolated.
func (traj Trajectory) Validate() error {
	if len(traj) < 2 {
		return errors.Wrapf(ErrInsufficientTrajectory, "got %d", len(traj))
	}
	for i := 1; i < len(traj); i++ {
		// written so that NaN times fail too
		if !(traj[i].Time > traj[i-1].Time) {
			return errors.Wrapf(ErrNonMonotonicTrajectory, "sample %d at %v follows %v", i, traj[i].Time, traj[i-1].Time)
		}
	}
	return nil
}

// Duration is the time between the first and the last sample.
func (traj Trajectory) Duration() float64 {
	if len(traj) == 0 {
		return 0
	}
	return traj[len(traj)-1].Time - traj[0].Time
}

// Poses returns the poses of the trajectory in order.
func (traj Trajectory) Poses() []spatialmath.Pose {
	poses := make([]spatialmath.Pose, 0, len(traj))
	for _, s := range traj {
		poses = append(poses, s.Pose)
	}
	return poses
}
