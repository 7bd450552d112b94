package spatialmath

import (
	"math"

	"github.com/drivelab/perspective/utils"
)

// EulerAngles are three angles, in degrees, used to represent the rotation of an object in 3D Euclidean space.
// The rotation is applied extrinsically about the fixed axes x (roll), then y (pitch), then z (yaw), which is
// the convention the driving simulator uses for its sensor and vehicle transforms.
type EulerAngles struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// NewEulerAngles creates an empty EulerAngles struct.
func NewEulerAngles() *EulerAngles {
	return &EulerAngles{Roll: 0, Pitch: 0, Yaw: 0}
}

// NewEulerAnglesDegrees returns EulerAngles from a roll, pitch and yaw given in degrees.
func NewEulerAnglesDegrees(roll, pitch, yaw float64) *EulerAngles {
	return &EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw}
}

// Radians returns roll, pitch and yaw in radians.
func (ea *EulerAngles) Radians() (roll, pitch, yaw float64) {
	return utils.DegToRad(ea.Roll), utils.DegToRad(ea.Pitch), utils.DegToRad(ea.Yaw)
}

// RotationMatrix returns R = Rz(yaw)·Ry(pitch)·Rx(roll).
func (ea *EulerAngles) RotationMatrix() *RotationMatrix {
	if ea == nil {
		return NewIdentityRotationMatrix()
	}
	roll, pitch, yaw := ea.Radians()
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)

	return &RotationMatrix{[9]float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	}}
}

// Normalized returns a copy of the angles with every component wrapped into (-180, 180].
func (ea *EulerAngles) Normalized() *EulerAngles {
	return &EulerAngles{
		Roll:  WrapDegrees(ea.Roll),
		Pitch: WrapDegrees(ea.Pitch),
		Yaw:   WrapDegrees(ea.Yaw),
	}
}

// EulerAnglesAlmostEqual returns whether two sets of angles describe the same rotation angles within epsilon
// degrees, treating angles that differ by a full turn as equal.
func EulerAnglesAlmostEqual(a, b *EulerAngles, epsilon float64) bool {
	return math.Abs(WrapDegrees(a.Roll-b.Roll)) <= epsilon &&
		math.Abs(WrapDegrees(a.Pitch-b.Pitch)) <= epsilon &&
		math.Abs(WrapDegrees(a.Yaw-b.Yaw)) <= epsilon
}
