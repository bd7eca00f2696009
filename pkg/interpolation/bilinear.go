// Package interpolation provides image interpolators used by the
// similarity metrics to read the moving image at the continuous positions
// produced by a spatial transform.
package interpolation

import (
	"multireg/internal/models"
)

// Interpolator evaluates an image at continuous coordinates.
// Implementations must be usable after SetImage and may assume Value and
// Gradient are only called for points reported Inside.
type Interpolator interface {
	// SetImage installs the image to interpolate. Called by the
	// registration framework at each resolution level.
	SetImage(img *models.Image)

	// Inside reports whether the point lies in the interpolatable domain
	Inside(p models.Point) bool

	// Value returns the interpolated intensity at the point
	Value(p models.Point) float64

	// Gradient returns the spatial intensity derivative at the point
	Gradient(p models.Point) (gx, gy float64)
}

// Bilinear interpolates with the four surrounding pixels. Its gradient is
// the exact derivative of the bilinear surface, which is what the metric
// derivative computations expect.
type Bilinear struct {
	img *models.Image
}

// NewBilinear creates a bilinear interpolator without an image attached
func NewBilinear() *Bilinear {
	return &Bilinear{}
}

// SetImage installs the image to interpolate
func (b *Bilinear) SetImage(img *models.Image) {
	b.img = img
}

// Inside reports whether the point lies within the pixel grid.
// The domain is the closed rectangle spanned by the outermost pixel
// centers, so every inside point has four (possibly coincident)
// surrounding samples.
func (b *Bilinear) Inside(p models.Point) bool {
	if b.img == nil {
		return false
	}
	return p.X >= 0 && p.X <= float64(b.img.Width-1) &&
		p.Y >= 0 && p.Y <= float64(b.img.Height-1)
}

// Value returns the bilinearly interpolated intensity at the point
func (b *Bilinear) Value(p models.Point) float64 {
	x0, y0, fx, fy := b.cell(p)
	x1 := min(x0+1, b.img.Width-1)
	y1 := min(y0+1, b.img.Height-1)

	top := b.img.At(x0, y0)*(1-fx) + b.img.At(x1, y0)*fx
	bottom := b.img.At(x0, y1)*(1-fx) + b.img.At(x1, y1)*fx

	return top*(1-fy) + bottom*fy
}

// Gradient returns the derivative of the bilinear surface at the point
func (b *Bilinear) Gradient(p models.Point) (gx, gy float64) {
	x0, y0, fx, fy := b.cell(p)
	x1 := min(x0+1, b.img.Width-1)
	y1 := min(y0+1, b.img.Height-1)

	v00 := b.img.At(x0, y0)
	v10 := b.img.At(x1, y0)
	v01 := b.img.At(x0, y1)
	v11 := b.img.At(x1, y1)

	gx = (v10-v00)*(1-fy) + (v11-v01)*fy
	gy = (v01-v00)*(1-fx) + (v11-v10)*fx
	return gx, gy
}

// cell locates the pixel cell containing the point and the fractional
// offsets within it
func (b *Bilinear) cell(p models.Point) (x0, y0 int, fx, fy float64) {
	x0 = int(p.X)
	y0 = int(p.Y)

	// Clamp so that points on the far edge still index a valid cell
	if x0 > b.img.Width-1 {
		x0 = b.img.Width - 1
	}
	if y0 > b.img.Height-1 {
		y0 = b.img.Height - 1
	}
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}

	fx = p.X - float64(x0)
	fy = p.Y - float64(y0)
	return x0, y0, fx, fy
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
