package rimage

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lmittmann/ppm"
	"github.com/pkg/errors"
	"github.com/xfmoulet/qoi"
	"go.uber.org/multierr"
	"golang.org/x/image/draw"
)

// encoders for the formats imaging cannot write. Importing their packages also registers the
// decoders with image.Decode, which imaging uses to read. They are given RGBA images only, since
// the ppm encoder rejects every other color model.
var extraEncoders = map[string]func(io.Writer, image.Image) error{
	".ppm": ppm.Encode,
	".qoi": qoi.Encode,
}

// ReadImageFromFile reads a png, jpeg, gif, tiff, bmp, ppm or qoi image from disk.
func ReadImageFromFile(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read image %q", path)
	}
	return img, nil
}

// WriteImageToFile writes the image to the given file. The format is chosen from the extension.
func WriteImageToFile(path string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if encode, ok := extraEncoders[ext]; ok {
		f, createErr := os.Create(path)
		if createErr != nil {
			return errors.Wrapf(createErr, "could not write image %q", path)
		}
		defer func() {
			err = multierr.Combine(err, f.Close())
		}()
		return encode(f, toRGBA(img))
	}
	if _, err := imaging.FormatFromFilename(path); err != nil {
		return errors.Wrapf(err, "cannot choose an image format for %q (ext %q)", path, ext)
	}
	if err := imaging.Save(img, path); err != nil {
		return errors.Wrapf(err, "could not write image %q", path)
	}
	return nil
}

func toRGBA(img image.Image) *image.RGBA {
	switch typed := img.(type) {
	case *image.RGBA:
		return typed
	case *Mask:
		return typed.ToRGBA()
	}
	rgba := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}
