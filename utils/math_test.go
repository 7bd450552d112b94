package utils

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestAngleConversions(t *testing.T) {
	test.That(t, DegToRad(180), test.ShouldAlmostEqual, math.Pi)
	test.That(t, DegToRad(-90), test.ShouldAlmostEqual, -math.Pi/2)
	test.That(t, RadToDeg(math.Pi/4), test.ShouldAlmostEqual, 45)
	test.That(t, RadToDeg(DegToRad(37.5)), test.ShouldAlmostEqual, 37.5)
}

func TestSquare(t *testing.T) {
	test.That(t, Square(3), test.ShouldEqual, 9.)
	test.That(t, Square(-0.5), test.ShouldEqual, 0.25)
}

func TestIsFinite(t *testing.T) {
	test.That(t, IsFinite(), test.ShouldBeTrue)
	test.That(t, IsFinite(0, -1e300, 42), test.ShouldBeTrue)
	test.That(t, IsFinite(1, math.NaN()), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(1)), test.ShouldBeFalse)
	test.That(t, IsFinite(math.Inf(-1), 2), test.ShouldBeFalse)
}
