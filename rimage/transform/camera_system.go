package transform

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

// Camera maps points expressed in the vehicle frame onto its image plane.
// Implementations must be safe for concurrent use by readers.
type Camera interface {
	// Size returns the image width and height in pixels.
	Size() (int, int)
	// VehicleToPixel projects a point; false means the point is not in front of the camera.
	VehicleToPixel(r3.Vector) (r2.Point, bool)
	// SegmentToPixels projects both ends of a 3D segment after clipping the part that lies
	// behind the camera; false means no part of the segment is in front of the camera.
	SegmentToPixels(a, b r3.Vector) (r2.Point, r2.Point, bool)
}
