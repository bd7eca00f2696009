// Package pyramid builds multi-resolution representations of an image.
// Level 0 is the coarsest representation and the last level the finest;
// for L levels the shrink factor at level l is 2^(L-1-l), so the final
// level matches the source image resolution.
package pyramid

import (
	"fmt"
	"math"

	"multireg/internal/models"
)

// Pyramid is a finite, indexable sequence of progressively smoothed
// and/or downsampled images, one per resolution level. Construction is
// deterministic for a given source image and level count.
type Pyramid interface {
	// Levels returns the number of resolution levels
	Levels() int

	// Level returns the image for the given level, computing it first
	// if necessary
	Level(l int) (*models.Image, error)
}

// Compute eagerly builds every level of the pyramid
func Compute(p Pyramid) error {
	for l := 0; l < p.Levels(); l++ {
		if _, err := p.Level(l); err != nil {
			return err
		}
	}
	return nil
}

// base carries the shared level bookkeeping of the concrete pyramids
type base struct {
	src    *models.Image
	levels []*models.Image
}

func newBase(src *models.Image, numLevels int) base {
	return base{src: src, levels: make([]*models.Image, numLevels)}
}

func (b *base) Levels() int { return len(b.levels) }

func (b *base) checkLevel(l int) error {
	if l < 0 || l >= len(b.levels) {
		return fmt.Errorf("pyramid level %d out of range [0,%d)", l, len(b.levels))
	}
	return nil
}

// shrinkFactor returns the downsampling factor for a level
func (b *base) shrinkFactor(l int) int {
	return 1 << (len(b.levels) - 1 - l)
}

// Gaussian smooths with a level-dependent kernel and then downsamples.
// This is the default pyramid for both fixed and moving images.
type Gaussian struct {
	base
}

// NewGaussian creates a smoothing-and-shrinking pyramid
func NewGaussian(src *models.Image, numLevels int) *Gaussian {
	return &Gaussian{base: newBase(src, numLevels)}
}

func (p *Gaussian) Level(l int) (*models.Image, error) {
	if err := p.checkLevel(l); err != nil {
		return nil, err
	}
	if p.levels[l] == nil {
		factor := p.shrinkFactor(l)
		smoothed := smooth(p.src, float64(factor)/2.0)
		p.levels[l] = shrink(smoothed, factor)
	}
	return p.levels[l], nil
}

// Shrinking downsamples without smoothing. Cheaper than the Gaussian
// pyramid and adequate for images without high-frequency noise.
type Shrinking struct {
	base
}

// NewShrinking creates a shrink-only pyramid
func NewShrinking(src *models.Image, numLevels int) *Shrinking {
	return &Shrinking{base: newBase(src, numLevels)}
}

func (p *Shrinking) Level(l int) (*models.Image, error) {
	if err := p.checkLevel(l); err != nil {
		return nil, err
	}
	if p.levels[l] == nil {
		p.levels[l] = shrink(p.src, p.shrinkFactor(l))
	}
	return p.levels[l], nil
}

// Smoothing smooths with a level-dependent kernel but keeps every level
// at full resolution, trading memory for geometric consistency between
// levels.
type Smoothing struct {
	base
}

// NewSmoothing creates a smoothing-only pyramid
func NewSmoothing(src *models.Image, numLevels int) *Smoothing {
	return &Smoothing{base: newBase(src, numLevels)}
}

func (p *Smoothing) Level(l int) (*models.Image, error) {
	if err := p.checkLevel(l); err != nil {
		return nil, err
	}
	if p.levels[l] == nil {
		factor := p.shrinkFactor(l)
		if factor == 1 {
			p.levels[l] = p.src.Clone()
		} else {
			p.levels[l] = smooth(p.src, float64(factor)/2.0)
		}
	}
	return p.levels[l], nil
}

// smooth applies a separable Gaussian with the given sigma. A sigma at or
// below zero returns a plain copy.
func smooth(img *models.Image, sigma float64) *models.Image {
	if sigma <= 0 {
		return img.Clone()
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2

	// Horizontal pass
	tmp := models.NewImage(img.Width, img.Height)
	tmp.Spacing = img.Spacing
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sum := 0.0
			weight := 0.0
			for k := -radius; k <= radius; k++ {
				xx := x + k
				if xx < 0 || xx >= img.Width {
					continue
				}
				w := kernel[k+radius]
				sum += w * img.At(xx, y)
				weight += w
			}
			tmp.Set(x, y, sum/weight)
		}
	}

	// Vertical pass
	out := models.NewImage(img.Width, img.Height)
	out.Spacing = img.Spacing
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			sum := 0.0
			weight := 0.0
			for k := -radius; k <= radius; k++ {
				yy := y + k
				if yy < 0 || yy >= img.Height {
					continue
				}
				w := kernel[k+radius]
				sum += w * tmp.At(x, yy)
				weight += w
			}
			out.Set(x, y, sum/weight)
		}
	}

	return out
}

// gaussianKernel builds a normalized 1D kernel truncated at three sigma
func gaussianKernel(sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	if radius < 1 {
		radius = 1
	}

	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for k := -radius; k <= radius; k++ {
		v := math.Exp(-float64(k*k) / (2 * sigma * sigma))
		kernel[k+radius] = v
		sum += v
	}
	for i := range kernel {
		kernel[i] /= sum
	}

	return kernel
}

// shrink downsamples by averaging factor x factor blocks. The output
// dimensions round up so no source pixel is dropped, and the pixel
// spacing scales by the factor.
func shrink(img *models.Image, factor int) *models.Image {
	if factor <= 1 {
		return img.Clone()
	}

	outW := (img.Width + factor - 1) / factor
	outH := (img.Height + factor - 1) / factor

	out := models.NewImage(outW, outH)
	out.Spacing = [2]float64{
		img.Spacing[0] * float64(factor),
		img.Spacing[1] * float64(factor),
	}

	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			sum := 0.0
			count := 0
			for dy := 0; dy < factor; dy++ {
				for dx := 0; dx < factor; dx++ {
					sx := x*factor + dx
					sy := y*factor + dy
					if sx < img.Width && sy < img.Height {
						sum += img.At(sx, sy)
						count++
					}
				}
			}
			out.Set(x, y, sum/float64(count))
		}
	}

	return out
}
