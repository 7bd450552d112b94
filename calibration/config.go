package calibration

import (
	"encoding/json"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/drivelab/perspective/rimage/transform"
	"github.com/drivelab/perspective/spatialmath"
)

// Matrix3 is a row major 3x3 matrix. In JSON it is either an array of nine numbers or a string
// of nine numbers, in which commas, semicolons and brackets are ignored so that matrices can be
// pasted from calibration tools.
type Matrix3 [9]float64

// UnmarshalJSON accepts an array or a string of nine numbers.
func (m *Matrix3) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		vals, err := spatialmath.ParseFloats(s)
		if err != nil {
			return err
		}
		return m.set(vals)
	}
	var vals []float64
	if err := json.Unmarshal(data, &vals); err != nil {
		return errors.Wrap(err, "matrix must be an array or a string of 9 numbers")
	}
	return m.set(vals)
}

func (m *Matrix3) set(vals []float64) error {
	if len(vals) != 9 {
		return errors.Errorf("matrix needs 9 values, got %d", len(vals))
	}
	copy(m[:], vals)
	return nil
}

// Vector3 is a translation in metres.
type Vector3 [3]float64

// Vector returns the translation as a vector.
func (v Vector3) Vector() r3.Vector {
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

// MarkerThreshold selects the pixels annotated in pure red on a camera image.
type MarkerThreshold struct {
	// RedMin is the exclusive lower bound of the red channel.
	RedMin uint8 `json:"red_min"`
	// OtherMax is the exclusive upper bound of the green and blue channels.
	OtherMax uint8 `json:"other_max"`
}

// DistortionConfig names a lens distortion model and its OpenCV ordered coefficients.
type DistortionConfig struct {
	Type       transform.DistortionType `json:"type"`
	Parameters []float64                `json:"parameters"`
}

// Config describes a LiDAR and camera pair. The extrinsics map LiDAR points into the camera
// optical frame: p_cam = Rotation·p + Translation.
type Config struct {
	Intrinsics  *transform.PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Skew        float64                            `json:"skew,omitempty"`
	Distortion  *DistortionConfig                  `json:"distortion,omitempty"`
	Rotation    Matrix3                            `json:"rotation"`
	Translation Vector3                            `json:"translation"`

	// PitchCorrectionDeg levels a LiDAR mounted with a pitch, in degrees about its y axis.
	PitchCorrectionDeg float64 `json:"pitch_correction_deg,omitempty"`
	// RoadHeight is the z of the road in the levelled LiDAR frame.
	RoadHeight float64 `json:"road_height"`
	// MinForward drops LiDAR points with a smaller x.
	MinForward float64 `json:"min_forward"`
	// PointRadius is the radius in pixels of the discs drawn for projected points.
	PointRadius float64 `json:"point_radius,omitempty"`
	// DefaultIntensity colours points of clouds without intensity, on a 0 to 100 scale.
	DefaultIntensity float64         `json:"default_intensity,omitempty"`
	Marker           MarkerThreshold `json:"marker"`
}

// DefaultConfig returns the settings that do not depend on the sensors. Intrinsics and
// extrinsics must still be filled in.
func DefaultConfig() Config {
	return Config{
		RoadHeight:       -1.55,
		PointRadius:      3,
		DefaultIntensity: 100,
		Marker:           MarkerThreshold{RedMin: 220, OtherMax: 50},
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.Intrinsics == nil {
		return utils.NewConfigValidationFieldRequiredError(path, "intrinsic_parameters")
	}
	if err := cfg.Intrinsics.CheckValid(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.Rotation == (Matrix3{}) {
		return utils.NewConfigValidationFieldRequiredError(path, "rotation")
	}
	if cfg.PointRadius < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("point_radius cannot be negative, got %v", cfg.PointRadius))
	}
	if cfg.DefaultIntensity < 0 || cfg.DefaultIntensity > 100 {
		return utils.NewConfigValidationError(path,
			errors.Errorf("default_intensity must be within [0, 100], got %v", cfg.DefaultIntensity))
	}
	if cfg.Distortion != nil {
		if _, err := transform.NewDistorter(cfg.Distortion.Type, cfg.Distortion.Parameters); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}
