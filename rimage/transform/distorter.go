package transform

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// InverseBrownConradyDistortionType undoes a Brown-Conrady distortion.
	InverseBrownConradyDistortionType = DistortionType("inverse_brown_conrady")
	// NoDistortionType is an ideal lens.
	NoDistortionType = DistortionType("")
)

// Distorter defines a Transform that takes an undistorted image and distorts it according to the model.
// Transform works on normalized image coordinates, x = X/Z and y = Y/Z.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
// The parameters follow the OpenCV ordering k1 k2 p1 p2 k3.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case NoDistortionType:
		return nil, nil
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case InverseBrownConradyDistortionType:
		return NewInverseBrownConrady(parameters)
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// NewUndistorter returns the Distorter undoing d, or nil when d is nil.
func NewUndistorter(d Distorter) (Distorter, error) {
	switch dist := d.(type) {
	case nil:
		return nil, nil
	case *BrownConrady:
		if dist == nil {
			return nil, nil
		}
		return dist.Inverse(), nil
	case *InverseBrownConrady:
		if dist == nil || dist.forward == nil {
			return nil, nil
		}
		return dist.forward, nil
	default:
		return nil, errors.Errorf("cannot undo %q distortion", d.ModelType())
	}
}
