package spatialmath

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// ErrNonPositiveDuration is returned when interpolating over an empty or negative time span.
var ErrNonPositiveDuration = errors.New("interpolation duration must be positive")

// Interpolate returns the pose at time t of a linear motion from p1 (at time 0) to p2 (at time T).
// Position is interpolated linearly. Each Euler angle follows the shortest arc, so the angle
// never swings by more than 180 degrees between the two poses. Times at or before 0 return p1
// and times at or after T return p2, unchanged.
func Interpolate(t, T float64, p1, p2 Pose) (Pose, error) {
	if T <= 0 {
		return Pose{}, errors.Wrapf(ErrNonPositiveDuration, "got %v", T)
	}
	if t <= 0 {
		return p1, nil
	}
	if t >= T {
		return p2, nil
	}
	return interpolateFraction(t/T, p1, p2), nil
}

func interpolateFraction(tt float64, p1, p2 Pose) Pose {
	a, b := p1.position, p2.position
	pos := r3.Vector{
		X: tt*b.X + (1-tt)*a.X,
		Y: tt*b.Y + (1-tt)*a.Y,
		Z: tt*b.Z + (1-tt)*a.Z,
	}
	o1, o2 := p1.orientation, p2.orientation
	o := EulerAngles{
		Roll:  WrapDegrees(o1.Roll + WrapDegrees(o2.Roll-o1.Roll)*tt),
		Pitch: WrapDegrees(o1.Pitch + WrapDegrees(o2.Pitch-o1.Pitch)*tt),
		Yaw:   WrapDegrees(o1.Yaw + WrapDegrees(o2.Yaw-o1.Yaw)*tt),
	}
	return Pose{position: pos, orientation: o}
}
