package transform

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/drivelab/perspective/spatialmath"
)

// DefaultNearPlane is the smallest optical depth, in metres, at which a point is projected.
const DefaultNearPlane = 0.01

// CameraModel is a pinhole camera rigidly mounted on a vehicle. The mount pose is expressed in the
// vehicle frame (x forward, y left, z up) and the camera looks along its own x axis. The optical
// frame used for projection has z along the viewing direction, x to the right and y down.
type CameraModel struct {
	intrinsics PinholeCameraIntrinsics
	mount      spatialmath.Pose
	distortion Distorter
	nearPlane  float64

	// cached inverse of the mount rotation
	toCamera *spatialmath.RotationMatrix
}

// CameraOption configures optional parts of a CameraModel.
type CameraOption func(*CameraModel)

// WithDistortion applies a lens distortion model after the ideal pinhole projection.
func WithDistortion(d Distorter) CameraOption {
	return func(cm *CameraModel) {
		cm.distortion = d
	}
}

// WithNearPlane overrides DefaultNearPlane.
func WithNearPlane(depth float64) CameraOption {
	return func(cm *CameraModel) {
		cm.nearPlane = depth
	}
}

// NewCameraModel validates the intrinsics and returns an immutable camera model.
func NewCameraModel(intrinsics *PinholeCameraIntrinsics, mount spatialmath.Pose, opts ...CameraOption) (*CameraModel, error) {
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	cm := &CameraModel{
		intrinsics: *intrinsics,
		mount:      mount,
		nearPlane:  DefaultNearPlane,
		toCamera:   mount.RotationMatrix().Transpose(),
	}
	for _, opt := range opts {
		opt(cm)
	}
	if cm.nearPlane <= 0 {
		return nil, errors.Errorf("near plane must be positive, got %v", cm.nearPlane)
	}
	if cm.distortion != nil {
		if err := cm.distortion.CheckValid(); err != nil {
			return nil, err
		}
	}
	return cm, nil
}

// Intrinsics returns a copy of the intrinsic parameters.
func (cm *CameraModel) Intrinsics() PinholeCameraIntrinsics {
	return cm.intrinsics
}

// Mount returns the pose of the camera in the vehicle frame.
func (cm *CameraModel) Mount() spatialmath.Pose {
	return cm.mount
}

// NearPlane returns the smallest projected depth.
func (cm *CameraModel) NearPlane() float64 {
	return cm.nearPlane
}

// Size returns the image width and height in pixels.
func (cm *CameraModel) Size() (int, int) {
	return cm.intrinsics.Width, cm.intrinsics.Height
}

// VehicleToCamera expresses a vehicle frame point in the optical frame of the camera.
func (cm *CameraModel) VehicleToCamera(p r3.Vector) r3.Vector {
	body := cm.toCamera.Mul(p.Sub(cm.mount.Point()))
	return r3.Vector{X: -body.Y, Y: -body.Z, Z: body.X}
}

// CameraToPixel projects an optical frame point. Points closer than the near plane are rejected.
func (cm *CameraModel) CameraToPixel(p r3.Vector) (r2.Point, bool) {
	if p.Z < cm.nearPlane {
		return r2.Point{}, false
	}
	return cm.project(p), true
}

func (cm *CameraModel) project(p r3.Vector) r2.Point {
	if cm.distortion == nil {
		x, y := cm.intrinsics.PointToPixel(p.X, p.Y, p.Z)
		return r2.Point{X: x, Y: y}
	}
	x, y := cm.distortion.Transform(p.X/p.Z, p.Y/p.Z)
	return r2.Point{
		X: x*cm.intrinsics.Fx + cm.intrinsics.Ppx,
		Y: y*cm.intrinsics.Fy + cm.intrinsics.Ppy,
	}
}

// VehicleToPixel projects a vehicle frame point to sub-pixel image coordinates.
func (cm *CameraModel) VehicleToPixel(p r3.Vector) (r2.Point, bool) {
	return cm.CameraToPixel(cm.VehicleToCamera(p))
}

// SegmentToPixels projects a vehicle frame segment. If one end lies behind the near plane it is
// moved along the segment onto the plane, so the projected segment only covers the visible part.
func (cm *CameraModel) SegmentToPixels(a, b r3.Vector) (r2.Point, r2.Point, bool) {
	ca, cb := cm.VehicleToCamera(a), cm.VehicleToCamera(b)
	aBehind, bBehind := ca.Z < cm.nearPlane, cb.Z < cm.nearPlane
	switch {
	case aBehind && bBehind:
		return r2.Point{}, r2.Point{}, false
	case aBehind:
		ca = clipToDepth(cb, ca, cm.nearPlane)
	case bBehind:
		cb = clipToDepth(ca, cb, cm.nearPlane)
	}
	return cm.project(ca), cm.project(cb), true
}

// clipToDepth returns the point of segment front→back at the given depth. front must be at or
// beyond depth and back before it.
func clipToDepth(front, back r3.Vector, depth float64) r3.Vector {
	t := (front.Z - depth) / (front.Z - back.Z)
	p := front.Add(back.Sub(front).Mul(t))
	p.Z = depth
	return p
}
