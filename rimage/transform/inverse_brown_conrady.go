package transform

import (
	"math"

	"github.com/drivelab/perspective/utils"
)

const (
	undistortMaxIterations = 50
	undistortTolerance     = 1e-12
)

// InverseBrownConrady undoes a Brown-Conrady distortion: Transform maps distorted normalized
// coordinates back to the ideal pinhole ones, so that forward.Transform(Transform(x, y)) == (x, y).
type InverseBrownConrady struct {
	forward *BrownConrady
}

// NewInverseBrownConrady takes the coefficients of the forward distortion to undo, in OpenCV order
// k1 k2 p1 p2 k3.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	forward, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return forward.Inverse(), nil
}

// Inverse returns the model undoing bc.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	if bc == nil {
		return nil
	}
	return &InverseBrownConrady{forward: bc}
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil || ibc.forward == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the coefficients of the undone distortion, in OpenCV order.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.forward.Parameters()
}

// Transform solves the forward model for the undistorted point with the fixed point iteration
// OpenCV's undistortPoints uses:
//
//	x = (x_d - tangential_x(x, y)) / radial(r²)
//
// starting from the distorted point. It stops once a step moves the estimate by less than
// undistortTolerance. A lens so strong that the iteration diverges yields NaN.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil || ibc.forward == nil {
		return xd, yd
	}
	bc := ibc.forward
	x, y := xd, yd
	for i := 0; i < undistortMaxIterations; i++ {
		r2 := utils.Square(x) + utils.Square(y)
		radial := 1 + bc.RadialK1*r2 + bc.RadialK2*r2*r2 + bc.RadialK3*r2*r2*r2
		if radial == 0 {
			return math.NaN(), math.NaN()
		}
		tanX := 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
		tanY := 2*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2*y*y)
		nextX := (xd - tanX) / radial
		nextY := (yd - tanY) / radial
		step := utils.Square(nextX-x) + utils.Square(nextY-y)
		x, y = nextX, nextY
		if step < undistortTolerance*undistortTolerance {
			break
		}
	}
	if !utils.IsFinite(x, y) {
		return math.NaN(), math.NaN()
	}
	return x, y
}
