package transform

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

// coefficients of a wide automotive lens, in OpenCV order
var wideLens = []float64{-0.347125, 0.156284, 0.001037, -0.000109, 0}

func TestNewDistorter(t *testing.T) {
	d, err := NewDistorter(NoDistortionType, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d, test.ShouldBeNil)

	d, err = NewDistorter(BrownConradyDistortionType, wideLens)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, BrownConradyDistortionType)
	test.That(t, d.Parameters(), test.ShouldResemble, wideLens)

	d, err = NewDistorter(InverseBrownConradyDistortionType, wideLens)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, d.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)
	test.That(t, d.Parameters(), test.ShouldResemble, wideLens)
	test.That(t, d.CheckValid(), test.ShouldBeNil)

	_, err = NewDistorter(BrownConradyDistortionType, make([]float64, 6))
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDistorter("fisheye", nil)
	test.That(t, err, test.ShouldNotBeNil)

	var nilInverse *InverseBrownConrady
	test.That(t, nilInverse.CheckValid(), test.ShouldNotBeNil)
	x, y := nilInverse.Transform(0.3, -0.2)
	test.That(t, x, test.ShouldEqual, 0.3)
	test.That(t, y, test.ShouldEqual, -0.2)
}

func TestInverseBrownConradyUndoesDistortion(t *testing.T) {
	bc, err := NewBrownConrady(wideLens)
	test.That(t, err, test.ShouldBeNil)
	inv := bc.Inverse()

	for _, pt := range [][2]float64{{0, 0}, {0.1, 0.05}, {-0.45, 0.23}, {0.6, -0.3}, {-0.2, -0.4}} {
		xd, yd := bc.Transform(pt[0], pt[1])
		xu, yu := inv.Transform(xd, yd)
		test.That(t, xu, test.ShouldAlmostEqual, pt[0], 1e-9)
		test.That(t, yu, test.ShouldAlmostEqual, pt[1], 1e-9)
	}

	// a barrel lens pulls points towards the center, undoing it pushes them out
	xu, _ := inv.Transform(0.4, 0)
	test.That(t, xu, test.ShouldBeGreaterThan, 0.4)
}

func TestNewUndistorter(t *testing.T) {
	u, err := NewUndistorter(nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u, test.ShouldBeNil)

	bc, err := NewBrownConrady(wideLens)
	test.That(t, err, test.ShouldBeNil)
	u, err = NewUndistorter(bc)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, u.ModelType(), test.ShouldEqual, InverseBrownConradyDistortionType)

	back, err := NewUndistorter(u)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back, test.ShouldResemble, bc)
}

func TestErrorMessagesKeepPercentSigns(t *testing.T) {
	err := InvalidDistortionError("k1 off by 100%")
	test.That(t, err.Error(), test.ShouldEqual, "k1 off by 100%: invalid distortion_parameters")

	err = NewNoIntrinsicsError("fov 50% too wide")
	test.That(t, errors.Is(err, ErrNoIntrinsics), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldStartWith, "fov 50% too wide: ")
}
