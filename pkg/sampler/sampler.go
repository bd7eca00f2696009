// Package sampler provides the fixed-image sampling strategies that decide
// at which positions a similarity metric compares the two images.
package sampler

import (
	"math/rand"

	"multireg/internal/models"
	"multireg/pkg/mask"
)

// Sampler selects fixed-image positions for metric evaluation.
// The returned points lie on the pixel grid of the supplied image and
// respect the mask, which is defined at full resolution and queried
// through its normalized coordinates.
type Sampler interface {
	Samples(img *models.Image, m *mask.Mask) []models.Point
}

// maskedAt reports whether a grid position of the level image falls inside
// the full-resolution mask
func maskedAt(img *models.Image, m *mask.Mask, x, y int) bool {
	if m == nil {
		return true
	}
	u := 0.0
	v := 0.0
	if img.Width > 1 {
		u = float64(x) / float64(img.Width-1)
	}
	if img.Height > 1 {
		v = float64(y) / float64(img.Height-1)
	}
	return m.InsideNorm(u, v)
}

// Full samples every pixel inside the mask
type Full struct{}

// NewFull creates a sampler visiting every pixel
func NewFull() *Full { return &Full{} }

func (s *Full) Samples(img *models.Image, m *mask.Mask) []models.Point {
	points := make([]models.Point, 0, img.Width*img.Height)

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			if maskedAt(img, m, x, y) {
				points = append(points, models.Point{X: float64(x), Y: float64(y)})
			}
		}
	}

	return points
}

// Grid samples every Stride-th pixel along both axes
type Grid struct {
	// Stride is the sampling period in pixels; values below 1 mean 1
	Stride int
}

// NewGrid creates a sampler visiting a regular sub-grid
func NewGrid(stride int) *Grid {
	if stride < 1 {
		stride = 1
	}
	return &Grid{Stride: stride}
}

func (s *Grid) Samples(img *models.Image, m *mask.Mask) []models.Point {
	stride := s.Stride
	if stride < 1 {
		stride = 1
	}

	points := make([]models.Point, 0, (img.Width/stride+1)*(img.Height/stride+1))

	for y := 0; y < img.Height; y += stride {
		for x := 0; x < img.Width; x += stride {
			if maskedAt(img, m, x, y) {
				points = append(points, models.Point{X: float64(x), Y: float64(y)})
			}
		}
	}

	return points
}

// Random samples a fixed number of uniformly drawn pixels. The generator
// is owned by the sampler so runs are reproducible for a given seed.
type Random struct {
	// Count is the number of samples requested per evaluation
	Count int

	rng *rand.Rand
}

// NewRandom creates a sampler drawing count positions from the given seed
func NewRandom(count int, seed int64) *Random {
	return &Random{
		Count: count,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *Random) Samples(img *models.Image, m *mask.Mask) []models.Point {
	points := make([]models.Point, 0, s.Count)

	// Cap the rejection loop so a mask covering almost nothing cannot
	// spin forever; the metric's minimum-fraction check reports the
	// shortfall.
	maxDraws := s.Count * 10
	for draws := 0; draws < maxDraws && len(points) < s.Count; draws++ {
		x := s.rng.Intn(img.Width)
		y := s.rng.Intn(img.Height)
		if maskedAt(img, m, x, y) {
			points = append(points, models.Point{X: float64(x), Y: float64(y)})
		}
	}

	return points
}
