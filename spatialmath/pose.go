// Package spatialmath defines spatial mathematical operations.
// Poses are positions in metres plus Euler angles in degrees, in a right-handed
// frame with x forward, y left and z up.
package spatialmath

import (
	"encoding/json"
	"fmt"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/drivelab/perspective/utils"
)

// Pose represents a 6dof pose, position and orientation, with respect to some frame.
// A Pose is an immutable value.
type Pose struct {
	position    r3.Vector
	orientation EulerAngles
}

// NewZeroPose returns a pose at (0,0,0) with no rotation.
func NewZeroPose() Pose {
	return Pose{}
}

// NewPose returns a pose from a position and an orientation. A nil orientation means no rotation.
func NewPose(pt r3.Vector, o *EulerAngles) Pose {
	p := Pose{position: pt}
	if o != nil {
		p.orientation = *o
	}
	return p
}

// NewPoseFromDegrees returns a pose from its six components, angles in degrees.
func NewPoseFromDegrees(x, y, z, roll, pitch, yaw float64) Pose {
	return Pose{
		position:    r3.Vector{X: x, Y: y, Z: z},
		orientation: EulerAngles{Roll: roll, Pitch: pitch, Yaw: yaw},
	}
}

// NewPoseFromPoint returns a pose with no rotation at the given point.
func NewPoseFromPoint(pt r3.Vector) Pose {
	return Pose{position: pt}
}

// Point returns the position of the pose.
func (p Pose) Point() r3.Vector {
	return p.position
}

// Orientation returns a copy of the orientation of the pose.
func (p Pose) Orientation() *EulerAngles {
	o := p.orientation
	return &o
}

// RotationMatrix returns the rotation of the pose.
func (p Pose) RotationMatrix() *RotationMatrix {
	return p.orientation.RotationMatrix()
}

// Transform maps a point expressed in the pose's local frame into the parent frame.
func (p Pose) Transform(local r3.Vector) r3.Vector {
	return p.RotationMatrix().Mul(local).Add(p.position)
}

// InverseTransform maps a point expressed in the parent frame into the pose's local frame,
// i.e. Rᵀ·(pt - t).
func (p Pose) InverseTransform(pt r3.Vector) r3.Vector {
	return p.RotationMatrix().Transpose().Mul(pt.Sub(p.position))
}

// Compose returns the pose b expressed in the parent frame of a, where b is given relative to a.
func Compose(a, b Pose) Pose {
	return Pose{
		position:    a.Transform(b.position),
		orientation: *a.RotationMatrix().MatMul(b.RotationMatrix()).EulerAngles(),
	}
}

// Heading returns the yaw of the pose in radians.
func (p Pose) Heading() float64 {
	return utils.DegToRad(p.orientation.Yaw)
}

func (p Pose) String() string {
	return fmt.Sprintf("{X:%.3f Y:%.3f Z:%.3f Roll:%.3f Pitch:%.3f Yaw:%.3f}",
		p.position.X, p.position.Y, p.position.Z,
		p.orientation.Roll, p.orientation.Pitch, p.orientation.Yaw)
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-6)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same
// within epsilon metres and epsilon degrees.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return a.position.Sub(b.position).Norm() <= epsilon &&
		EulerAnglesAlmostEqual(&a.orientation, &b.orientation, epsilon)
}

type poseJSON struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// MarshalJSON encodes the pose as a flat object of its six components.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(poseJSON{
		X: p.position.X, Y: p.position.Y, Z: p.position.Z,
		Roll: p.orientation.Roll, Pitch: p.orientation.Pitch, Yaw: p.orientation.Yaw,
	})
}

// UnmarshalJSON decodes a flat object of six components into the pose.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var pj poseJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return errors.Wrap(err, "failed to unmarshal pose")
	}
	*p = NewPoseFromDegrees(pj.X, pj.Y, pj.Z, pj.Roll, pj.Pitch, pj.Yaw)
	return nil
}

// ParsePose parses a pose from a string of six whitespace separated numbers: x y z roll pitch yaw.
func ParsePose(s string) (Pose, error) {
	vals, err := ParseFloats(s)
	if err != nil {
		return Pose{}, err
	}
	if len(vals) != 6 {
		return Pose{}, errors.Errorf("pose needs 6 values (x y z roll pitch yaw), got %d", len(vals))
	}
	return NewPoseFromDegrees(vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]), nil
}
