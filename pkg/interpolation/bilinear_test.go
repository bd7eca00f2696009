package interpolation

import (
	"math"
	"testing"

	"multireg/internal/models"
)

const tolerance = 1e-12

func rampImage() *models.Image {
	// value = x + 10*y, a plane with constant gradient (1, 10)
	img := models.NewImage(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, float64(x)+10*float64(y))
		}
	}
	return img
}

// TestInsideDomain verifies the closed interpolation domain spanned by
// the outermost pixel centers
func TestInsideDomain(t *testing.T) {
	b := NewBilinear()
	b.SetImage(models.NewImage(4, 3))

	cases := []struct {
		p      models.Point
		inside bool
	}{
		{models.Point{X: 0, Y: 0}, true},
		{models.Point{X: 3, Y: 2}, true},
		{models.Point{X: 1.5, Y: 1.999}, true},
		{models.Point{X: -0.001, Y: 0}, false},
		{models.Point{X: 3.001, Y: 0}, false},
		{models.Point{X: 0, Y: 2.001}, false},
	}

	for _, tc := range cases {
		if got := b.Inside(tc.p); got != tc.inside {
			t.Errorf("Expected Inside(%v)=%v, got %v", tc.p, tc.inside, got)
		}
	}
}

// TestInsideWithoutImage verifies the interpolator rejects queries
// before an image is installed
func TestInsideWithoutImage(t *testing.T) {
	b := NewBilinear()
	if b.Inside(models.Point{X: 0, Y: 0}) {
		t.Error("Expected no point inside before SetImage")
	}
}

// TestValueAtPixelCenters verifies exact reproduction of grid values
func TestValueAtPixelCenters(t *testing.T) {
	b := NewBilinear()
	img := rampImage()
	b.SetImage(img)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			got := b.Value(models.Point{X: float64(x), Y: float64(y)})
			if math.Abs(got-img.At(x, y)) > tolerance {
				t.Errorf("Expected %g at (%d,%d), got %g", img.At(x, y), x, y, got)
			}
		}
	}
}

// TestValueBetweenPixels verifies linear behavior between grid points
func TestValueBetweenPixels(t *testing.T) {
	b := NewBilinear()
	b.SetImage(rampImage())

	got := b.Value(models.Point{X: 1.5, Y: 2.25})
	want := 1.5 + 10*2.25
	if math.Abs(got-want) > tolerance {
		t.Errorf("Expected %g, got %g", want, got)
	}
}

// TestGradientOnRamp verifies the exact plane gradient everywhere,
// including at off-grid positions
func TestGradientOnRamp(t *testing.T) {
	b := NewBilinear()
	b.SetImage(rampImage())

	points := []models.Point{
		{X: 0.5, Y: 0.5},
		{X: 2.25, Y: 1.75},
		{X: 0, Y: 0},
	}
	for _, p := range points {
		gx, gy := b.Gradient(p)
		if math.Abs(gx-1) > tolerance || math.Abs(gy-10) > tolerance {
			t.Errorf("Expected gradient (1, 10) at %v, got (%g, %g)", p, gx, gy)
		}
	}
}

// TestValueAtFarEdge verifies points on the far boundary still resolve
// to a valid cell
func TestValueAtFarEdge(t *testing.T) {
	b := NewBilinear()
	img := rampImage()
	b.SetImage(img)

	got := b.Value(models.Point{X: 3, Y: 3})
	if math.Abs(got-img.At(3, 3)) > tolerance {
		t.Errorf("Expected %g at the far corner, got %g", img.At(3, 3), got)
	}
}
