package metric

// MeanSquares measures the mean squared intensity difference between the
// fixed image and the transformed moving image. Zero means a perfect
// match; the measure grows without bound as alignment degrades.
type MeanSquares struct {
	imagePair
}

// NewMeanSquares creates a mean-squared-difference metric
func NewMeanSquares(opts Options) *MeanSquares {
	return &MeanSquares{imagePair: newImagePair(opts)}
}

// Evaluate returns the mean squared difference and its parameter gradient
func (m *MeanSquares) Evaluate(params []float64) (float64, []float64, error) {
	set, err := m.sample(params)
	if err != nil {
		return 0, nil, err
	}

	n := float64(set.len())
	value := 0.0
	gradient := make([]float64, set.nParams)

	for j := range set.fixedVals {
		diff := set.movingVals[j] - set.fixedVals[j]
		value += diff * diff

		for k := 0; k < set.nParams; k++ {
			gradient[k] += 2 * diff * set.derivs[j][k]
		}
	}

	value /= n
	for k := range gradient {
		gradient[k] /= n
	}

	return value, gradient, nil
}
