package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawStringWrapped(text, float64(p.X), float64(p.Y), 0, 0, float64(dc.Width()), 1, 0)
}

// DrawFilledCircle draws a disc of the given radius centered on p.
func DrawFilledCircle(dc *gg.Context, p image.Point, radius float64, c color.Color) {
	dc.SetColor(c)
	dc.DrawCircle(float64(p.X), float64(p.Y), radius)
	dc.Fill()
}

// Overlay blends the white pixels of a mask over an image using the given color and returns
// the result as a new image. The source image is not modified.
func Overlay(img image.Image, mask *Mask, c color.Color, alpha float64) image.Image {
	r, g, b, _ := c.RGBA()
	tint := color.NRGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(alpha * 255)}
	layer := image.NewNRGBA(mask.Bounds())
	for y := 0; y < mask.Height(); y++ {
		for x := 0; x < mask.Width(); x++ {
			if mask.IsSet(x, y) {
				layer.SetNRGBA(x, y, tint)
			}
		}
	}
	// the context rebases the image to the origin
	dc := gg.NewContextForImage(img)
	dc.DrawImage(layer, 0, 0)
	return dc.Image()
}
