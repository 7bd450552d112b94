package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
)

// MaskOn is the value every channel of a marked mask pixel is set to.
const MaskOn = 255

// Mask is a binary image stored as a height×width×3 buffer of bytes, row major, in which a
// pixel is either black (all zero) or white (all MaskOn). It implements image.Image.
type Mask struct {
	Pix    []uint8
	width  int
	height int
}

// NewMask returns an all black mask of the given size.
func NewMask(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Pix:    make([]uint8, width*height*3),
		width:  width,
		height: height,
	}
}

// Width returns the horizontal size of the mask.
func (m *Mask) Width() int {
	return m.width
}

// Height returns the vertical size of the mask.
func (m *Mask) Height() int {
	return m.height
}

// Shape returns the (height, width, channels) dimensions of the underlying buffer.
func (m *Mask) Shape() (int, int, int) {
	return m.height, m.width, 3
}

// In returns whether the pixel (x, y) lies inside the mask.
func (m *Mask) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

func (m *Mask) offset(x, y int) int {
	return (y*m.width + x) * 3
}

// Mark sets pixel (x, y) to white. Out of bounds pixels are ignored and reported as false.
func (m *Mask) Mark(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	i := m.offset(x, y)
	m.Pix[i], m.Pix[i+1], m.Pix[i+2] = MaskOn, MaskOn, MaskOn
	return true
}

// MarkPoint rounds a sub-pixel position to the nearest pixel and marks it.
func (m *Mask) MarkPoint(p r2.Point) bool {
	return m.Mark(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// IsSet returns whether pixel (x, y) is white.
func (m *Mask) IsSet(x, y int) bool {
	if !m.In(x, y) {
		return false
	}
	return m.Pix[m.offset(x, y)] == MaskOn
}

// CountSet returns the number of white pixels.
func (m *Mask) CountSet() int {
	n := 0
	for i := 0; i < len(m.Pix); i += 3 {
		if m.Pix[i] == MaskOn {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	pix := make([]uint8, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{Pix: pix, width: m.width, height: m.height}
}

// ColorModel returns the gray color model.
func (m *Mask) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds returns the rectangle covering the mask.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.width, m.height)
}

// At returns the color at pixel (x, y).
func (m *Mask) At(x, y int) color.Color {
	if !m.In(x, y) {
		return color.Gray{}
	}
	return color.Gray{Y: m.Pix[m.offset(x, y)]}
}

// ToRGBA copies the mask into a new RGBA image.
func (m *Mask) ToRGBA() *image.RGBA {
	img := image.NewRGBA(m.Bounds())
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			i := m.offset(x, y)
			img.SetRGBA(x, y, color.RGBA{m.Pix[i], m.Pix[i+1], m.Pix[i+2], 255})
		}
	}
	return img
}

// DrawSegment marks the pixels of the straight segment between two sub-pixel points.
// The segment is sampled uniformly every step pixels (rounded so that both ends are hit)
// and each sample is rounded to the nearest pixel; samples outside the mask are skipped.
// A step of zero or less degenerates to the two end points.
// When both ends lie outside the mask nothing is drawn, even if the segment crosses it.
// It returns whether the segment was drawn.
func (m *Mask) DrawSegment(start, end r2.Point, step float64) bool {
	if !m.contains(start) && !m.contains(end) {
		return false
	}
	delta := end.Sub(start)
	length := delta.Norm()
	if length == 0 {
		m.MarkPoint(start)
		return true
	}
	samples := 2.
	if step > 0 {
		samples = math.Round(length/step) + 1
	}
	if samples < 2 {
		m.MarkPoint(start)
		return true
	}
	// only visit the samples that can round into the mask; ends clipped against a near
	// plane can be very far outside of it
	lo, hi, ok := m.visibleRange(start, delta)
	if !ok {
		return true
	}
	last := samples - 1
	first := math.Max(0, math.Ceil(lo*last))
	final := math.Min(last, math.Floor(hi*last))
	for i := first; i <= final; i++ {
		m.MarkPoint(start.Add(delta.Mul(i / last)))
	}
	return true
}

// visibleRange returns the range of s in [0, 1] for which start + s·delta lies in the pixel
// rectangle [-0.5, W-0.5]×[-0.5, H-0.5].
func (m *Mask) visibleRange(start, delta r2.Point) (float64, float64, bool) {
	lo, hi := 0., 1.
	clip := func(p, d, minV, maxV float64) bool {
		if d == 0 {
			return p >= minV && p <= maxV
		}
		a, b := (minV-p)/d, (maxV-p)/d
		if a > b {
			a, b = b, a
		}
		lo, hi = math.Max(lo, a), math.Min(hi, b)
		return lo <= hi
	}
	if !clip(start.X, delta.X, -0.5, float64(m.width)-0.5) {
		return 0, 0, false
	}
	if !clip(start.Y, delta.Y, -0.5, float64(m.height)-0.5) {
		return 0, 0, false
	}
	return lo, hi, true
}

func (m *Mask) contains(p r2.Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < float64(m.width) && p.Y < float64(m.height)
}
