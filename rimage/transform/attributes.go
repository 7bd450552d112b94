package transform

import (
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/drivelab/perspective/spatialmath"
	rdkutils "github.com/drivelab/perspective/utils"
)

// Simulator sensor attribute keys describing an RGB camera.
const (
	AttributeImageSizeX = "image_size_x"
	AttributeImageSizeY = "image_size_y"
	AttributeFOV        = "fov"
)

// SimulatorCameraAttributes are the typed values of the camera blueprint attributes the simulator
// reports as strings.
type SimulatorCameraAttributes struct {
	ImageSizeX int     `mapstructure:"image_size_x"`
	ImageSizeY int     `mapstructure:"image_size_y"`
	FOV        float64 `mapstructure:"fov"`
}

// ParseSimulatorCameraAttributes decodes the string attributes of a simulator camera sensor.
// Every key in SimulatorCameraAttributes is required; unknown keys are ignored. Values are parsed
// as numbers and never evaluated.
func ParseSimulatorCameraAttributes(path string, attrs map[string]string) (*SimulatorCameraAttributes, error) {
	var parsed SimulatorCameraAttributes
	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &md,
		Result:           &parsed,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, utils.NewConfigValidationError(path, errors.Wrap(err, "malformed camera attribute"))
	}
	if len(md.Unset) > 0 {
		sort.Strings(md.Unset)
		return nil, utils.NewConfigValidationFieldRequiredError(path, md.Unset[0])
	}
	if !rdkutils.IsFinite(parsed.FOV) {
		return nil, utils.NewConfigValidationError(path, errors.Errorf("%s must be a finite number, got %v", AttributeFOV, parsed.FOV))
	}
	if parsed.ImageSizeX <= 0 || parsed.ImageSizeY <= 0 {
		return nil, utils.NewConfigValidationError(path,
			errors.Errorf("image size must be positive, got %dx%d", parsed.ImageSizeX, parsed.ImageSizeY))
	}
	return &parsed, nil
}

// NewCameraModelFromAttributes builds a camera from simulator sensor attributes and the sensor's
// mounting pose on the vehicle. It fails on missing or malformed attributes.
func NewCameraModelFromAttributes(
	attrs map[string]string,
	mount spatialmath.Pose,
	opts ...CameraOption,
) (*CameraModel, error) {
	parsed, err := ParseSimulatorCameraAttributes("attributes", attrs)
	if err != nil {
		return nil, err
	}
	intrinsics, err := NewPinholeCameraIntrinsicsFromFOV(parsed.ImageSizeX, parsed.ImageSizeY, parsed.FOV)
	if err != nil {
		return nil, err
	}
	return NewCameraModel(intrinsics, mount, opts...)
}
