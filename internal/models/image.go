package models

import (
	"fmt"
	"image"
	"image/color"
)

// Point is a position in continuous image coordinates. Coordinates are
// expressed in pixel units of the image being addressed, so (0,0) is the
// center of the top-left pixel.
type Point struct {
	X, Y float64
}

// Image is a 2D scalar image stored as a row-major float array.
// Intensities are kept in the 0-1 range when loaded from standard image
// formats, but the type itself places no restriction on values.
type Image struct {
	// Data holds the pixel intensities in row-major order
	Data []float64

	// Width and Height are the image dimensions in pixels
	Width  int
	Height int

	// Spacing is the physical size of one pixel along x and y.
	// It defaults to 1.0 in both directions.
	Spacing [2]float64
}

// NewImage creates a zero-filled image with the given dimensions
func NewImage(width, height int) *Image {
	return &Image{
		Data:    make([]float64, width*height),
		Width:   width,
		Height:  height,
		Spacing: [2]float64{1, 1},
	}
}

// At returns the intensity at integer pixel coordinates.
// Out-of-bounds access is a programming error and panics.
func (im *Image) At(x, y int) float64 {
	return im.Data[y*im.Width+x]
}

// Set stores an intensity at integer pixel coordinates
func (im *Image) Set(x, y int, v float64) {
	im.Data[y*im.Width+x] = v
}

// Clone returns a deep copy of the image
func (im *Image) Clone() *Image {
	out := NewImage(im.Width, im.Height)
	out.Spacing = im.Spacing
	copy(out.Data, im.Data)
	return out
}

// FromGray converts a standard library image to a float grid.
// The red channel is used as the intensity, scaled to the 0-1 range,
// which matches grayscale medical input.
func FromGray(img image.Image) *Image {
	bounds := img.Bounds()
	out := NewImage(bounds.Dx(), bounds.Dy())

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			out.Data[y*out.Width+x] = float64(r) / 65535.0
		}
	}

	return out
}

// ToGray converts the float grid back to a 16-bit grayscale image.
// Values are clamped to the 0-1 range.
func (im *Image) ToGray() *image.Gray16 {
	out := image.NewGray16(image.Rect(0, 0, im.Width, im.Height))

	for y := 0; y < im.Height; y++ {
		for x := 0; x < im.Width; x++ {
			v := im.At(x, y)
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			out.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535.0)})
		}
	}

	return out
}

// String describes the image dimensions, useful in log output
func (im *Image) String() string {
	return fmt.Sprintf("%dx%d image", im.Width, im.Height)
}
