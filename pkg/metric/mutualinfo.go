package metric

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// MutualInformation measures the negated mutual information between the
// fixed and transformed moving intensities under a Gaussian joint
// distribution approximation:
//
//	MI = 0.5 * ln( var(f) * var(m) / (var(f) * var(m) - cov(f,m)^2) )
//
// The approximation captures the statistical dependency of the two
// intensity distributions through their covariance, is differentiable in
// closed form, and grows as alignment improves; the metric negates it so
// that minimization aligns the images.
type MutualInformation struct {
	imagePair
}

// NewMutualInformation creates a Gaussian-approximation mutual
// information metric
func NewMutualInformation(opts Options) *MutualInformation {
	return &MutualInformation{imagePair: newImagePair(opts)}
}

// Evaluate returns the negated mutual information and its parameter
// gradient. Degenerate sample distributions (either image constant over
// the sampled region, or perfectly correlated intensities) yield zero
// value and gradient rather than an error.
func (m *MutualInformation) Evaluate(params []float64) (float64, []float64, error) {
	set, err := m.sample(params)
	if err != nil {
		return 0, nil, err
	}

	n := float64(set.len())
	meanF := stat.Mean(set.fixedVals, nil)
	meanM := stat.Mean(set.movingVals, nil)

	// Population moments
	varF := 0.0
	varM := 0.0
	cov := 0.0
	for j := range set.fixedVals {
		df := set.fixedVals[j] - meanF
		dm := set.movingVals[j] - meanM
		varF += df * df
		varM += dm * dm
		cov += df * dm
	}
	varF /= n
	varM /= n
	cov /= n

	gradient := make([]float64, set.nParams)

	det := varF*varM - cov*cov
	if varF <= 0 || varM <= 0 || det <= 0 {
		return 0, gradient, nil
	}

	value := -0.5 * math.Log(varF*varM/det)

	// Only var(m) and cov depend on the parameters
	for k := 0; k < set.nParams; k++ {
		dvarM := 0.0
		dcov := 0.0
		for j := range set.fixedVals {
			dvarM += 2 * (set.movingVals[j] - meanM) * set.derivs[j][k]
			dcov += (set.fixedVals[j] - meanF) * set.derivs[j][k]
		}
		dvarM /= n
		dcov /= n

		ddet := varF*dvarM - 2*cov*dcov
		gradient[k] = -0.5 * (dvarM/varM - ddet/det)
	}

	return value, gradient, nil
}
