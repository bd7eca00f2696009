package metric

import "fmt"

// InsufficientSamplesError reports that too few of the requested sample
// points mapped inside the moving image domain for a reliable metric
// value.
type InsufficientSamplesError struct {
	// Valid is the number of samples that mapped inside the domain
	Valid int

	// Requested is the number of samples the sampler produced
	Requested int

	// MinimumFraction is the configured valid-sample threshold
	MinimumFraction float64
}

func (e *InsufficientSamplesError) Error() string {
	return fmt.Sprintf("insufficient valid samples: %d of %d mapped inside the moving image (minimum fraction %.2f)",
		e.Valid, e.Requested, e.MinimumFraction)
}

// OutOfBoundsError reports that the transform mapped every sample point
// outside the moving image domain.
type OutOfBoundsError struct {
	// Requested is the number of samples the sampler produced
	Requested int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("all %d sample points mapped outside the moving image domain", e.Requested)
}
