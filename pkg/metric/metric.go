// Package metric provides the similarity measures combined by the
// registration engine. Each metric compares a fixed and a moving image
// under a candidate transform parameter vector and returns both the
// similarity value and its derivative with respect to the parameters.
// All metrics are formulated so that lower values mean better alignment.
package metric

import (
	"multireg/internal/models"
	"multireg/pkg/interpolation"
	"multireg/pkg/mask"
	"multireg/pkg/sampler"
	"multireg/pkg/transform"
)

// DefaultMinValidFraction is the minimum fraction of requested samples
// that must map inside the moving image domain for an evaluation to
// succeed.
const DefaultMinValidFraction = 0.25

// Metric evaluates image similarity at a parameter vector.
// The images and masks are installed by the registration framework at
// each resolution level; Evaluate may be called any number of times
// between installations.
type Metric interface {
	// Evaluate returns the similarity value and its parameter gradient.
	// It fails with *InsufficientSamplesError or *OutOfBoundsError when
	// the transform maps too few sample points into the moving domain.
	Evaluate(params []float64) (value float64, gradient []float64, err error)

	// SetImages installs the current-level fixed and moving images
	SetImages(fixed, moving *models.Image)

	// SetMasks installs the current fixed and moving region masks.
	// Either mask may be nil, meaning the whole image is used.
	SetMasks(fixed, moving *mask.Mask)
}

// Options configures a metric's collaborators
type Options struct {
	// Transform maps fixed-image points into the moving domain
	Transform transform.Transform

	// Interpolator reads the moving image at continuous positions
	Interpolator interpolation.Interpolator

	// Sampler selects the fixed-image evaluation positions
	Sampler sampler.Sampler

	// MinValidFraction overrides DefaultMinValidFraction when positive
	MinValidFraction float64
}

func (o Options) minValidFraction() float64 {
	if o.MinValidFraction > 0 {
		return o.MinValidFraction
	}
	return DefaultMinValidFraction
}

// imagePair holds the per-level state shared by all metric
// implementations and performs the sampling step they have in common.
type imagePair struct {
	transform  transform.Transform
	interp     interpolation.Interpolator
	sampler    sampler.Sampler
	minValid   float64
	fixed      *models.Image
	moving     *models.Image
	fixedMask  *mask.Mask
	movingMask *mask.Mask
}

func newImagePair(opts Options) imagePair {
	return imagePair{
		transform: opts.Transform,
		interp:    opts.Interpolator,
		sampler:   opts.Sampler,
		minValid:  opts.minValidFraction(),
	}
}

// SetImages installs the current-level images
func (ip *imagePair) SetImages(fixed, moving *models.Image) {
	ip.fixed = fixed
	ip.moving = moving
	ip.interp.SetImage(moving)
}

// SetMasks installs the current masks
func (ip *imagePair) SetMasks(fixed, moving *mask.Mask) {
	ip.fixedMask = fixed
	ip.movingMask = moving
}

// sampleSet holds the paired intensities and per-sample parameter
// derivatives of the moving value, dm/dp = grad(m) * J
type sampleSet struct {
	fixedVals  []float64
	movingVals []float64
	derivs     [][]float64
	nParams    int
}

func (s *sampleSet) len() int { return len(s.fixedVals) }

// sample maps every sampler position through the transform and collects
// the valid correspondences. A position is valid when the mapped point
// lies inside the moving image domain and inside the moving mask.
func (ip *imagePair) sample(params []float64) (*sampleSet, error) {
	positions := ip.sampler.Samples(ip.fixed, ip.fixedMask)
	requested := len(positions)
	nParams := ip.transform.ParameterCount()

	set := &sampleSet{
		fixedVals:  make([]float64, 0, requested),
		movingVals: make([]float64, 0, requested),
		derivs:     make([][]float64, 0, requested),
		nParams:    nParams,
	}

	for _, pos := range positions {
		mapped := ip.transform.Apply(pos, params)
		if !ip.interp.Inside(mapped) {
			continue
		}
		if !ip.movingMaskContains(mapped) {
			continue
		}

		gx, gy := ip.interp.Gradient(mapped)
		jac := ip.transform.Jacobian(pos, params)

		// dm/dp_k = gx * dX/dp_k + gy * dY/dp_k
		deriv := make([]float64, nParams)
		for k := 0; k < nParams; k++ {
			deriv[k] = gx*jac.At(0, k) + gy*jac.At(1, k)
		}

		set.fixedVals = append(set.fixedVals, ip.fixed.At(int(pos.X), int(pos.Y)))
		set.movingVals = append(set.movingVals, ip.interp.Value(mapped))
		set.derivs = append(set.derivs, deriv)
	}

	if set.len() == 0 {
		return nil, &OutOfBoundsError{Requested: requested}
	}
	if float64(set.len()) < ip.minValid*float64(requested) {
		return nil, &InsufficientSamplesError{
			Valid:           set.len(),
			Requested:       requested,
			MinimumFraction: ip.minValid,
		}
	}

	return set, nil
}

// movingMaskContains tests the mapped point against the moving mask,
// which is defined at full resolution and queried in normalized
// coordinates of the current-level moving image.
func (ip *imagePair) movingMaskContains(p models.Point) bool {
	if ip.movingMask == nil {
		return true
	}
	u := 0.0
	v := 0.0
	if ip.moving.Width > 1 {
		u = p.X / float64(ip.moving.Width-1)
	}
	if ip.moving.Height > 1 {
		v = p.Y / float64(ip.moving.Height-1)
	}
	return ip.movingMask.InsideNorm(u, v)
}
