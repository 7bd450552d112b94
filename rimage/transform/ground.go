package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GroundProjector inverse-projects pixels onto a horizontal road plane expressed in a sensor frame
// (for instance the LiDAR frame) that the camera extrinsics map into the camera optical frame:
// p_cam = R·p + t.
type GroundProjector struct {
	inv        *mat.Dense // (K·R)⁻¹
	offset     r3.Vector  // (K·R)⁻¹·K·t, which is R⁻¹·t
	roadHeight float64
}

// NewGroundProjector precomputes the inverse projection for a camera matrix k, extrinsic rotation
// rot (row major 3x3) and translation t, onto the plane z = roadHeight.
func NewGroundProjector(k mat.Matrix, rot mat.Matrix, t r3.Vector, roadHeight float64) (*GroundProjector, error) {
	if r, c := k.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	if r, c := rot.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("rotation must be 3x3, got %dx%d", r, c)
	}
	var kr, inv mat.Dense
	kr.Mul(k, rot)
	if err := inv.Inverse(&kr); err != nil {
		return nil, errors.Wrap(err, "camera matrix times rotation is not invertible")
	}
	var kt, off mat.VecDense
	kt.MulVec(k, mat.NewVecDense(3, []float64{t.X, t.Y, t.Z}))
	off.MulVec(&inv, &kt)
	return &GroundProjector{
		inv:        &inv,
		offset:     r3.Vector{X: off.AtVec(0), Y: off.AtVec(1), Z: off.AtVec(2)},
		roadHeight: roadHeight,
	}, nil
}

// RoadHeight returns the height of the plane points are projected onto.
func (gp *GroundProjector) RoadHeight() float64 {
	return gp.roadHeight
}

// PixelToGround returns the point of the road plane seen at pixel (u, v). False means the viewing
// ray is parallel to the road or meets it behind the camera.
func (gp *GroundProjector) PixelToGround(u, v float64) (r3.Vector, bool) {
	ray := r3.Vector{
		X: gp.inv.At(0, 0)*u + gp.inv.At(0, 1)*v + gp.inv.At(0, 2),
		Y: gp.inv.At(1, 0)*u + gp.inv.At(1, 1)*v + gp.inv.At(1, 2),
		Z: gp.inv.At(2, 0)*u + gp.inv.At(2, 1)*v + gp.inv.At(2, 2),
	}
	if ray.Z == 0 {
		return r3.Vector{}, false
	}
	scale := (gp.offset.Z + gp.roadHeight) / ray.Z
	if scale <= 0 {
		return r3.Vector{}, false
	}
	return r3.Vector{
		X: ray.X*scale - gp.offset.X,
		Y: ray.Y*scale - gp.offset.Y,
		Z: gp.roadHeight,
	}, true
}
