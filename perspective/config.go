package perspective

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Mode selects how the footprint of each pose is drawn.
type Mode string

const (
	// ModeLine projects the two footprint edges and rasterises the segment between them in the image.
	ModeLine = Mode("line")
	// ModeSamples samples points across the footprint in the world and marks each projection.
	ModeSamples = Mode("samples")
)

// Config tunes the projector.
type Config struct {
	// VehicleWidth is the footprint width in metres.
	VehicleWidth float64 `json:"vehicle_width"`
	// LongitudinalSampleNumberNear and LongitudinalSampleNumberFar are base 2 exponents of the
	// number of interpolated poses between the first and the last pair of trajectory samples.
	LongitudinalSampleNumberNear float64 `json:"longitudinal_sample_number_near"`
	LongitudinalSampleNumberFar  float64 `json:"longitudinal_sample_number_far"`
	// LateralStepFactor is the pixel distance between rasterised samples in ModeLine.
	LateralStepFactor float64 `json:"lateral_step_factor"`
	// LateralSampleNumber is the number of world points across the footprint in ModeSamples.
	LateralSampleNumber int  `json:"lateral_sample_number"`
	Mode                Mode `json:"mode,omitempty"`
}

// DefaultConfig returns the settings used for a mid-sized car.
func DefaultConfig() Config {
	return Config{
		VehicleWidth:                 2.0,
		LongitudinalSampleNumberNear: 5,
		LongitudinalSampleNumberFar:  3,
		LateralStepFactor:            1.0,
		LateralSampleNumber:          20,
		Mode:                         ModeLine,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.VehicleWidth == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "vehicle_width")
	}
	if cfg.VehicleWidth < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("vehicle_width must be positive, got %v", cfg.VehicleWidth))
	}
	if cfg.LongitudinalSampleNumberNear < 0 || cfg.LongitudinalSampleNumberFar < 0 {
		return utils.NewConfigValidationError(path, errors.New("longitudinal sample numbers cannot be negative"))
	}
	switch cfg.Mode {
	case "", ModeLine:
		if cfg.LateralStepFactor <= 0 {
			return utils.NewConfigValidationError(path,
				errors.Errorf("lateral_step_factor must be positive, got %v", cfg.LateralStepFactor))
		}
	case ModeSamples:
		if cfg.LateralSampleNumber < 2 {
			return utils.NewConfigValidationError(path,
				errors.Errorf("lateral_sample_number must be at least 2, got %d", cfg.LateralSampleNumber))
		}
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown mode %q", cfg.Mode))
	}
	return nil
}
