package spatialmath

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseFloats splits up space-delimited numbers, such as the rows of a calibration matrix
// stored as a string attribute. Unlike a lenient parse, any malformed token is an error.
func ParseFloats(s string) ([]float64, error) {
	fields := strings.Fields(strings.NewReplacer(",", " ", "[", " ", "]", " ", ";", " ").Replace(s))
	converted := make([]float64, 0, len(fields))
	for _, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", field)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, errors.Errorf("non-finite number %q", field)
		}
		converted = append(converted, value)
	}
	return converted, nil
}

// WrapDegrees wraps an angle in degrees into (-180, 180].
func WrapDegrees(deg float64) float64 {
	wrapped := math.Mod(deg+180, 360)
	if wrapped <= 0 {
		wrapped += 360
	}
	return wrapped - 180
}

// WrapRadians wraps an angle in radians into (-π, π].
func WrapRadians(rad float64) float64 {
	wrapped := math.Mod(rad+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
