// Package sim converts poses exported by the driving simulator into the right-handed frame used
// by the rest of this module. The simulator uses a left-handed frame with x forward, y right and
// z up; angles are in degrees.
package sim

import (
	"github.com/golang/geo/r3"

	"github.com/drivelab/perspective/rimage/transform"
	"github.com/drivelab/perspective/spatialmath"
)

// Location is a simulator position in metres.
type Location struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Rotation is a simulator orientation in degrees.
type Rotation struct {
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
	Roll  float64 `json:"roll"`
}

// Transform is a simulator pose.
type Transform struct {
	Location Location `json:"location"`
	Rotation Rotation `json:"rotation"`
}

// ToPose mirrors the transform across the xz plane. Roll keeps its sign while pitch and yaw
// change it.
func (tf Transform) ToPose() spatialmath.Pose {
	return spatialmath.NewPose(
		r3.Vector{X: tf.Location.X, Y: -tf.Location.Y, Z: tf.Location.Z},
		spatialmath.NewEulerAnglesDegrees(tf.Rotation.Roll, -tf.Rotation.Pitch, -tf.Rotation.Yaw),
	)
}

// FromPose is the inverse of ToPose.
func FromPose(p spatialmath.Pose) Transform {
	pt, o := p.Point(), p.Orientation()
	return Transform{
		Location: Location{X: pt.X, Y: -pt.Y, Z: pt.Z},
		Rotation: Rotation{Pitch: -o.Pitch, Yaw: -o.Yaw, Roll: o.Roll},
	}
}

// NewCamera builds the camera of a simulator RGB sensor from its blueprint attributes and its
// transform relative to the vehicle it is attached to.
func NewCamera(attrs map[string]string, mount Transform, opts ...transform.CameraOption) (*transform.CameraModel, error) {
	return transform.NewCameraModelFromAttributes(attrs, mount.ToPose(), opts...)
}
