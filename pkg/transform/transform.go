// Package transform provides the spatial transform models whose parameters
// the registration engine estimates. Each transform maps fixed-image
// coordinates to moving-image coordinates and exposes the Jacobian of the
// mapped point with respect to the parameters, which the metrics need to
// turn image gradients into parameter gradients.
package transform

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"multireg/internal/models"
)

// Transform maps points from the fixed to the moving image domain under a
// parameter vector. Implementations are stateless with respect to the
// parameters: the same instance serves every candidate vector the
// optimizer proposes.
type Transform interface {
	// ParameterCount returns the length of the parameter vector
	ParameterCount() int

	// Apply maps a fixed-image point under the given parameters
	Apply(p models.Point, params []float64) models.Point

	// Jacobian returns the 2 x ParameterCount matrix of partial
	// derivatives of the mapped point with respect to the parameters,
	// evaluated at the given fixed-image point.
	Jacobian(p models.Point, params []float64) *mat.Dense

	// InitialParameters returns the identity-transform parameter vector
	InitialParameters() []float64
}

// Translation shifts points by (tx, ty). Parameters: [tx, ty].
type Translation struct{}

// NewTranslation creates a translation transform
func NewTranslation() *Translation { return &Translation{} }

func (t *Translation) ParameterCount() int { return 2 }

func (t *Translation) Apply(p models.Point, params []float64) models.Point {
	return models.Point{X: p.X + params[0], Y: p.Y + params[1]}
}

func (t *Translation) Jacobian(p models.Point, params []float64) *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		1, 0,
		0, 1,
	})
}

func (t *Translation) InitialParameters() []float64 { return []float64{0, 0} }

// Euler2D rotates around a fixed center and translates.
// Parameters: [angle, tx, ty] with the angle in radians.
type Euler2D struct {
	// Center is the rotation center in fixed-image coordinates
	Center models.Point
}

// NewEuler2D creates a rigid transform rotating around the given center
func NewEuler2D(center models.Point) *Euler2D {
	return &Euler2D{Center: center}
}

func (t *Euler2D) ParameterCount() int { return 3 }

func (t *Euler2D) Apply(p models.Point, params []float64) models.Point {
	sin, cos := math.Sincos(params[0])
	dx := p.X - t.Center.X
	dy := p.Y - t.Center.Y

	return models.Point{
		X: cos*dx - sin*dy + t.Center.X + params[1],
		Y: sin*dx + cos*dy + t.Center.Y + params[2],
	}
}

func (t *Euler2D) Jacobian(p models.Point, params []float64) *mat.Dense {
	sin, cos := math.Sincos(params[0])
	dx := p.X - t.Center.X
	dy := p.Y - t.Center.Y

	return mat.NewDense(2, 3, []float64{
		-sin*dx - cos*dy, 1, 0,
		cos*dx - sin*dy, 0, 1,
	})
}

func (t *Euler2D) InitialParameters() []float64 { return []float64{0, 0, 0} }

// Affine applies a full 2D affine mapping.
// Parameters: [a11, a12, a21, a22, tx, ty], row-major matrix part first,
// so the identity is [1, 0, 0, 1, 0, 0].
type Affine struct{}

// NewAffine creates an affine transform
func NewAffine() *Affine { return &Affine{} }

func (t *Affine) ParameterCount() int { return 6 }

func (t *Affine) Apply(p models.Point, params []float64) models.Point {
	a := mat.NewDense(2, 2, params[:4])
	v := mat.NewVecDense(2, []float64{p.X, p.Y})

	var out mat.VecDense
	out.MulVec(a, v)

	return models.Point{X: out.AtVec(0) + params[4], Y: out.AtVec(1) + params[5]}
}

func (t *Affine) Jacobian(p models.Point, params []float64) *mat.Dense {
	return mat.NewDense(2, 6, []float64{
		p.X, p.Y, 0, 0, 1, 0,
		0, 0, p.X, p.Y, 0, 1,
	})
}

func (t *Affine) InitialParameters() []float64 {
	return []float64{1, 0, 0, 1, 0, 0}
}
