package models

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// TestNewImageDefaults ensures a fresh image is zero-filled with unit
// spacing
func TestNewImageDefaults(t *testing.T) {
	img := NewImage(4, 3)

	if img.Width != 4 || img.Height != 3 {
		t.Errorf("Expected a 4x3 image, got %dx%d", img.Width, img.Height)
	}
	if len(img.Data) != 12 {
		t.Errorf("Expected 12 pixels, got %d", len(img.Data))
	}
	if img.Spacing != [2]float64{1, 1} {
		t.Errorf("Expected unit spacing, got %v", img.Spacing)
	}
	for i, v := range img.Data {
		if v != 0 {
			t.Errorf("Expected pixel %d zero, got %g", i, v)
		}
	}
}

// TestAtSetRowMajor ensures At and Set agree on row-major addressing
func TestAtSetRowMajor(t *testing.T) {
	img := NewImage(3, 2)
	img.Set(2, 1, 0.5)

	if img.At(2, 1) != 0.5 {
		t.Errorf("Expected 0.5 at (2,1), got %g", img.At(2, 1))
	}
	if img.Data[1*3+2] != 0.5 {
		t.Error("Expected row-major storage of (2,1)")
	}
}

// TestCloneIsDeep ensures a clone does not share pixel storage
func TestCloneIsDeep(t *testing.T) {
	img := NewImage(2, 2)
	img.Spacing = [2]float64{0.5, 2}
	img.Set(0, 0, 1)

	clone := img.Clone()
	clone.Set(0, 0, 9)

	if img.At(0, 0) != 1 {
		t.Error("Expected the source unaffected by clone mutation")
	}
	if clone.Spacing != img.Spacing {
		t.Errorf("Expected spacing %v preserved, got %v", img.Spacing, clone.Spacing)
	}
}

// TestFromGrayScalesToUnitRange ensures conversion maps 16-bit
// intensities into 0-1
func TestFromGrayScalesToUnitRange(t *testing.T) {
	src := image.NewGray16(image.Rect(0, 0, 2, 1))
	src.SetGray16(0, 0, color.Gray16{Y: 0})
	src.SetGray16(1, 0, color.Gray16{Y: 65535})

	img := FromGray(src)

	if img.At(0, 0) != 0 {
		t.Errorf("Expected 0 for black, got %g", img.At(0, 0))
	}
	if math.Abs(img.At(1, 0)-1) > 1e-9 {
		t.Errorf("Expected 1 for white, got %g", img.At(1, 0))
	}
}

// TestFromGrayHonorsBounds ensures images with a nonzero origin convert
// correctly
func TestFromGrayHonorsBounds(t *testing.T) {
	src := image.NewGray16(image.Rect(5, 7, 8, 9))
	src.SetGray16(5, 7, color.Gray16{Y: 65535})

	img := FromGray(src)

	if img.Width != 3 || img.Height != 2 {
		t.Fatalf("Expected a 3x2 image, got %dx%d", img.Width, img.Height)
	}
	if math.Abs(img.At(0, 0)-1) > 1e-9 {
		t.Errorf("Expected the origin pixel at (0,0), got %g", img.At(0, 0))
	}
}

// TestToGrayClampsRange ensures out-of-range intensities clamp on
// conversion
func TestToGrayClampsRange(t *testing.T) {
	img := NewImage(3, 1)
	img.Set(0, 0, -0.5)
	img.Set(1, 0, 0.5)
	img.Set(2, 0, 1.5)

	gray := img.ToGray()

	if gray.Gray16At(0, 0).Y != 0 {
		t.Errorf("Expected negative intensity clamped to 0, got %d", gray.Gray16At(0, 0).Y)
	}
	if gray.Gray16At(2, 0).Y != 65535 {
		t.Errorf("Expected overflow clamped to 65535, got %d", gray.Gray16At(2, 0).Y)
	}
	mid := gray.Gray16At(1, 0).Y
	if mid < 32700 || mid > 32800 {
		t.Errorf("Expected mid gray near 32767, got %d", mid)
	}
}

// TestRoundTrip ensures a 0-1 image survives the gray round trip
func TestRoundTrip(t *testing.T) {
	img := NewImage(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, float64(x+y*4)/15.0)
		}
	}

	back := FromGray(img.ToGray())

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			if math.Abs(back.At(x, y)-img.At(x, y)) > 1e-4 {
				t.Errorf("Expected %g at (%d,%d) after round trip, got %g",
					img.At(x, y), x, y, back.At(x, y))
			}
		}
	}
}
