package perspective

import (
	"math"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats"
)

// SampleCounts returns how many poses are interpolated in each of pairs consecutive sample
// pairs. The counts are 2^e for exponents spaced evenly from near to far, so the density
// changes logarithmically along the trajectory.
func SampleCounts(pairs int, near, far float64) []int {
	switch {
	case pairs <= 0:
		return nil
	case pairs == 1:
		return []int{int(math.Round(math.Exp2(near)))}
	}
	exponents := floats.Span(make([]float64, pairs), near, far)
	return lo.Map(exponents, func(e float64, _ int) int {
		return int(math.Round(math.Exp2(e)))
	})
}

// sampleTimes returns n evenly spaced times covering [0, duration], both ends included.
func sampleTimes(n int, duration float64) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{0}
	}
	return floats.Span(make([]float64, n), 0, duration)
}

// lateralOffsets returns n offsets evenly spaced over [-halfWidth, halfWidth]. They start at
// -halfWidth, so a single offset sits on the right edge of the footprint.
func lateralOffsets(n int, halfWidth float64) []float64 {
	offsets := sampleTimes(n, 2*halfWidth)
	for i := range offsets {
		offsets[i] -= halfWidth
	}
	return offsets
}
