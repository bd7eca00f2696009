// Package mask provides binary region-of-interest masks and the erosion
// operation used to avoid boundary sampling artifacts at coarse resolutions.
package mask

// Mask is a binary region-of-interest over an image grid.
// A nil *Mask means "no mask": every position is considered inside.
type Mask struct {
	// Data holds the inside/outside flag per pixel in row-major order
	Data []bool

	// Width and Height are the mask dimensions in pixels
	Width  int
	Height int
}

// New creates an all-outside mask with the given dimensions
func New(width, height int) *Mask {
	return &Mask{
		Data:   make([]bool, width*height),
		Width:  width,
		Height: height,
	}
}

// Full creates a mask that includes every pixel
func Full(width, height int) *Mask {
	m := New(width, height)
	for i := range m.Data {
		m.Data[i] = true
	}
	return m
}

// Inside reports whether the integer pixel position is part of the region.
// Positions outside the mask bounds are outside the region.
func (m *Mask) Inside(x, y int) bool {
	if m == nil {
		return true
	}
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return false
	}
	return m.Data[y*m.Width+x]
}

// Set marks a pixel as inside or outside the region
func (m *Mask) Set(x, y int, inside bool) {
	m.Data[y*m.Width+x] = inside
}

// InsideNorm reports whether the normalized position (u,v), with both
// coordinates in [0,1] spanning the mask extent, is part of the region.
// This lets masks defined at full resolution answer queries for any
// pyramid level without resampling.
func (m *Mask) InsideNorm(u, v float64) bool {
	if m == nil {
		return true
	}
	if u < 0 || u > 1 || v < 0 || v > 1 {
		return false
	}
	x := int(u*float64(m.Width-1) + 0.5)
	y := int(v*float64(m.Height-1) + 0.5)
	return m.Inside(x, y)
}

// Count returns the number of pixels inside the region
func (m *Mask) Count() int {
	n := 0
	for _, in := range m.Data {
		if in {
			n++
		}
	}
	return n
}

// Erode returns a new mask shrunk inward by the given radius using a
// square structuring element. A pixel stays inside only if every pixel
// within the radius, including those beyond the mask border, is inside;
// border pixels therefore always erode away. A radius of zero or less
// returns an unmodified copy.
func Erode(m *Mask, radius int) *Mask {
	if m == nil {
		return nil
	}

	out := New(m.Width, m.Height)
	if radius <= 0 {
		copy(out.Data, m.Data)
		return out
	}

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if !m.Data[y*m.Width+x] {
				continue
			}

			inside := true
			for dy := -radius; dy <= radius && inside; dy++ {
				for dx := -radius; dx <= radius; dx++ {
					if !m.Inside(x+dx, y+dy) {
						inside = false
						break
					}
				}
			}

			out.Data[y*m.Width+x] = inside
		}
	}

	return out
}
