package sim

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/drivelab/perspective/perspective"
	"github.com/drivelab/perspective/spatialmath"
)

// trajectoryEntry is one element of a trajectory file. Exactly one of Transform, in simulator
// coordinates, or Pose, already right-handed, is set.
type trajectoryEntry struct {
	T         *float64          `json:"t"`
	Transform *Transform        `json:"transform,omitempty"`
	Pose      *spatialmath.Pose `json:"pose,omitempty"`
}

// DecodeTrajectory reads a JSON array of timestamped poses:
//
//	[{"t": 0.0, "transform": {"location": {"x": 1, "y": 2, "z": 0}, "rotation": {"pitch": 0, "yaw": 90, "roll": 0}}},
//	 {"t": 0.1, "pose": {"x": 1, "y": -2, "z": 0, "roll": 0, "pitch": 0, "yaw": -90}}]
//
// The trajectory is validated before it is returned.
func DecodeTrajectory(r io.Reader) (perspective.Trajectory, error) {
	var entries []trajectoryEntry
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "cannot parse trajectory")
	}
	traj := make(perspective.Trajectory, 0, len(entries))
	for i, e := range entries {
		if e.T == nil {
			return nil, errors.Errorf("trajectory sample %d has no time", i)
		}
		var pose spatialmath.Pose
		switch {
		case e.Transform != nil && e.Pose != nil:
			return nil, errors.Errorf("trajectory sample %d has both a transform and a pose", i)
		case e.Transform != nil:
			pose = e.Transform.ToPose()
		case e.Pose != nil:
			pose = *e.Pose
		default:
			return nil, errors.Errorf("trajectory sample %d has no pose", i)
		}
		traj = append(traj, perspective.Sample{Time: *e.T, Pose: pose})
	}
	if err := traj.Validate(); err != nil {
		return nil, err
	}
	return traj, nil
}

// ReadTrajectoryFile decodes the trajectory file at path.
func ReadTrajectoryFile(path string) (perspective.Trajectory, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer utils.UncheckedErrorFunc(f.Close)
	traj, err := DecodeTrajectory(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return traj, nil
}
