package metric

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// NormalizedCorrelation measures the negated normalized cross correlation
// between the fixed and transformed moving intensities. The value lies in
// [-1, 1] with -1 indicating a perfect linear intensity relationship, so
// minimization drives the images towards alignment. The measure is
// invariant to linear intensity scaling between the two images.
type NormalizedCorrelation struct {
	imagePair
}

// NewNormalizedCorrelation creates a normalized cross correlation metric
func NewNormalizedCorrelation(opts Options) *NormalizedCorrelation {
	return &NormalizedCorrelation{imagePair: newImagePair(opts)}
}

// Evaluate returns the negated correlation and its parameter gradient.
// When either image is constant over the sampled region, the correlation
// is undefined; the metric then reports zero value and gradient, which is
// a defined outcome rather than an error.
func (m *NormalizedCorrelation) Evaluate(params []float64) (float64, []float64, error) {
	set, err := m.sample(params)
	if err != nil {
		return 0, nil, err
	}

	meanF := stat.Mean(set.fixedVals, nil)
	meanM := stat.Mean(set.movingVals, nil)

	// Centered second-order sums
	sff := 0.0
	smm := 0.0
	sfm := 0.0
	for j := range set.fixedVals {
		df := set.fixedVals[j] - meanF
		dm := set.movingVals[j] - meanM
		sff += df * df
		smm += dm * dm
		sfm += df * dm
	}

	gradient := make([]float64, set.nParams)
	if sff <= 0 || smm <= 0 {
		return 0, gradient, nil
	}

	denom := math.Sqrt(sff * smm)
	ncc := sfm / denom

	// d(sfm)/dp and d(smm)/dp; the mean-derivative terms cancel because
	// the centered sums are zero.
	for k := 0; k < set.nParams; k++ {
		dsfm := 0.0
		dsmm := 0.0
		for j := range set.fixedVals {
			dsfm += (set.fixedVals[j] - meanF) * set.derivs[j][k]
			dsmm += 2 * (set.movingVals[j] - meanM) * set.derivs[j][k]
		}
		dncc := dsfm/denom - ncc*dsmm/(2*smm)
		gradient[k] = -dncc
	}

	return -ncc, gradient, nil
}
