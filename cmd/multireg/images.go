package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"

	"multireg/internal/models"
	"multireg/pkg/interpolation"
	"multireg/pkg/mask"
	"multireg/pkg/transform"
)

// loadImage reads a JPEG, PNG or GIF file as a grayscale float image
func loadImage(path string) (*models.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening image file: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}

	return models.FromGray(img), nil
}

// loadMask reads a mask image; pixels brighter than half intensity are
// inside. An empty path returns a nil mask, meaning unmasked.
func loadMask(path string) (*mask.Mask, error) {
	if path == "" {
		return nil, nil
	}

	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}

	m := mask.New(img.Width, img.Height)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if img.At(x, y) > 0.5 {
				m.Set(x, y, true)
			}
		}
	}
	return m, nil
}

// saveImage writes the image as PNG or JPEG depending on the extension
func saveImage(img *models.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer f.Close()

	gray := img.ToGray()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(f, gray, &jpeg.Options{Quality: 95})
	default:
		return png.Encode(f, gray)
	}
}

// resample evaluates the moving image on the fixed grid under the
// estimated transform. Points mapping outside the moving domain come out
// black.
func resample(fixed, moving *models.Image, tr transform.Transform, params []float64) *models.Image {
	interp := interpolation.NewBilinear()
	interp.SetImage(moving)

	out := models.NewImage(fixed.Width, fixed.Height)
	out.Spacing = fixed.Spacing

	for y := 0; y < fixed.Height; y++ {
		for x := 0; x < fixed.Width; x++ {
			mapped := tr.Apply(models.Point{X: float64(x), Y: float64(y)}, params)
			if interp.Inside(mapped) {
				out.Set(x, y, interp.Value(mapped))
			}
		}
	}

	return out
}
