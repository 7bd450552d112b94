// Package config defines the configuration file shared by the mask generator and the
// calibration tool.
package config

import (
	"encoding/json"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/drivelab/perspective/calibration"
	"github.com/drivelab/perspective/logging"
	"github.com/drivelab/perspective/perspective"
	"github.com/drivelab/perspective/rimage/transform"
	"github.com/drivelab/perspective/sim"
	"github.com/drivelab/perspective/spatialmath"
)

// A Config describes one camera setup and the tools run against it.
type Config struct {
	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`

	LogLevel    *logging.Level      `json:"log_level,omitempty"`
	Camera      *CameraConfig       `json:"camera,omitempty"`
	Projector   perspective.Config  `json:"projector"`
	Calibration *calibration.Config `json:"calibration,omitempty"`
}

// configData is the on-disk shape of Config. Sections with defaults are decoded on top of
// those defaults so that omitted fields keep them.
type configData struct {
	LogLevel    *logging.Level  `json:"log_level,omitempty"`
	Camera      *CameraConfig   `json:"camera,omitempty"`
	Projector   json.RawMessage `json:"projector,omitempty"`
	Calibration json.RawMessage `json:"calibration,omitempty"`
}

// UnmarshalJSON applies the projector and calibration defaults before decoding.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw configData
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.LogLevel = raw.LogLevel
	c.Camera = raw.Camera
	c.Projector = perspective.DefaultConfig()
	if len(raw.Projector) > 0 {
		if err := json.Unmarshal(raw.Projector, &c.Projector); err != nil {
			return errors.Wrap(err, "failed to decode projector")
		}
	}
	c.Calibration = nil
	if len(raw.Calibration) > 0 && string(raw.Calibration) != "null" {
		calib := calibration.DefaultConfig()
		if err := json.Unmarshal(raw.Calibration, &calib); err != nil {
			return errors.Wrap(err, "failed to decode calibration")
		}
		c.Calibration = &calib
	}
	return nil
}

// Validate ensures every present section is valid.
func (c *Config) Validate() error {
	if c.Camera != nil {
		if err := c.Camera.Validate("camera"); err != nil {
			return err
		}
	}
	if err := c.Projector.Validate("projector"); err != nil {
		return err
	}
	if c.Calibration != nil {
		if err := c.Calibration.Validate("calibration"); err != nil {
			return err
		}
	}
	return nil
}

// A CameraConfig describes a camera either by the attributes a simulator reports for its RGB
// sensor or by explicit intrinsics, together with where it sits on the vehicle.
type CameraConfig struct {
	Attributes map[string]interface{}             `json:"attributes,omitempty"`
	Intrinsics *transform.PinholeCameraIntrinsics `json:"intrinsic_parameters,omitempty"`
	Distortion *calibration.DistortionConfig      `json:"distortion,omitempty"`

	// Mount is the camera pose in the vehicle frame. SimTransform gives the same in the
	// simulator's left-handed convention. At most one may be set.
	Mount        *spatialmath.Pose `json:"mount,omitempty"`
	SimTransform *sim.Transform    `json:"sim_transform,omitempty"`

	NearPlane float64 `json:"near_plane,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cc *CameraConfig) Validate(path string) error {
	switch {
	case cc.Attributes == nil && cc.Intrinsics == nil:
		return utils.NewConfigValidationFieldRequiredError(path, "attributes")
	case cc.Attributes != nil && cc.Intrinsics != nil:
		return utils.NewConfigValidationError(path,
			errors.New("only one of attributes and intrinsic_parameters may be set"))
	case cc.Attributes != nil:
		attrs, err := cc.stringAttributes(path)
		if err != nil {
			return err
		}
		if _, err := transform.ParseSimulatorCameraAttributes(path+".attributes", attrs); err != nil {
			return err
		}
	default:
		if err := cc.Intrinsics.CheckValid(); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	if cc.Mount != nil && cc.SimTransform != nil {
		return utils.NewConfigValidationError(path, errors.New("only one of mount and sim_transform may be set"))
	}
	if cc.NearPlane < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("near_plane cannot be negative, got %v", cc.NearPlane))
	}
	if cc.Distortion != nil {
		if _, err := transform.NewDistorter(cc.Distortion.Type, cc.Distortion.Parameters); err != nil {
			return utils.NewConfigValidationError(path, err)
		}
	}
	return nil
}

// stringAttributes turns the attribute values into the strings a simulator reports, so that
// numbers written as JSON numbers or strings are handled alike.
func (cc *CameraConfig) stringAttributes(path string) (map[string]string, error) {
	attrs := map[string]string{}
	if err := mapstructure.WeakDecode(cc.Attributes, &attrs); err != nil {
		return nil, utils.NewConfigValidationError(path, errors.Wrap(err, "malformed attributes"))
	}
	return attrs, nil
}

// MountPose returns the camera pose in the vehicle frame.
func (cc *CameraConfig) MountPose() spatialmath.Pose {
	switch {
	case cc.Mount != nil:
		return *cc.Mount
	case cc.SimTransform != nil:
		return cc.SimTransform.ToPose()
	default:
		return spatialmath.NewZeroPose()
	}
}

// Camera builds the camera model the config describes.
func (cc *CameraConfig) Camera() (*transform.CameraModel, error) {
	var opts []transform.CameraOption
	if cc.Distortion != nil {
		d, err := transform.NewDistorter(cc.Distortion.Type, cc.Distortion.Parameters)
		if err != nil {
			return nil, err
		}
		if d != nil {
			opts = append(opts, transform.WithDistortion(d))
		}
	}
	if cc.NearPlane > 0 {
		opts = append(opts, transform.WithNearPlane(cc.NearPlane))
	}
	if cc.Attributes != nil {
		attrs, err := cc.stringAttributes("camera")
		if err != nil {
			return nil, err
		}
		if cc.SimTransform != nil {
			return sim.NewCamera(attrs, *cc.SimTransform, opts...)
		}
		return transform.NewCameraModelFromAttributes(attrs, cc.MountPose(), opts...)
	}
	if cc.Intrinsics == nil {
		return nil, transform.NewNoIntrinsicsError("camera has neither attributes nor intrinsic_parameters")
	}
	return transform.NewCameraModel(cc.Intrinsics, cc.MountPose(), opts...)
}
