// Package optimizer provides the parameter-search algorithms that drive
// the registration cost function. The engine treats the optimizer as a
// black box: it hands over a cost function and an initial position and
// receives the optimized parameters or a failure.
package optimizer

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"multireg/pkg/metric"
)

// CostFunction is the contract the optimizer drives: a scalar objective
// with a derivative over the parameter vector.
type CostFunction interface {
	Evaluate(params []float64) (value float64, gradient []float64, err error)
}

// StopCondition identifies why an optimization run ended
type StopCondition int

const (
	// StopNone means the optimizer has not finished
	StopNone StopCondition = iota

	// StopGradientTolerance means the gradient magnitude fell below the
	// configured tolerance
	StopGradientTolerance

	// StopStepTooSmall means every per-parameter step shrank below the
	// minimum step length
	StopStepTooSmall

	// StopMaxIterations means the iteration budget ran out
	StopMaxIterations

	// StopSamplesNotAvailable means the cost function failed because too
	// few sample points mapped inside the moving image
	StopSamplesNotAvailable

	// StopMetricError means the cost function failed for another reason
	StopMetricError
)

func (s StopCondition) String() string {
	switch s {
	case StopNone:
		return "none"
	case StopGradientTolerance:
		return "gradient magnitude tolerance reached"
	case StopStepTooSmall:
		return "step too small"
	case StopMaxIterations:
		return "maximum number of iterations reached"
	case StopSamplesNotAvailable:
		return "samples not available"
	case StopMetricError:
		return "metric error"
	default:
		return fmt.Sprintf("unknown stop condition %d", int(s))
	}
}

// IterationObserver is invoked after every completed iteration with the
// current value, average step length and position.
type IterationObserver func(iteration int, value float64, stepLength float64, position []float64)

// Optimizer minimizes a cost function from an initial position
type Optimizer interface {
	// Minimize runs the optimization and returns the best position
	Minimize(cost CostFunction, initial []float64) ([]float64, error)

	// SetObserver installs a per-iteration callback; a nil observer
	// disables reporting
	SetObserver(obs IterationObserver)

	// StopReason returns why the last run ended
	StopReason() StopCondition
}

// RegularStepGradientDescent walks against the normalized gradient with a
// separate step length per parameter. Whenever a gradient component
// changes sign between iterations, that parameter's step length is
// halved, so each parameter settles at its own scale. The run stops when
// the gradient magnitude drops below the tolerance, when every step
// length falls below the minimum, or when the iteration budget runs out.
type RegularStepGradientDescent struct {
	// MaximumStepLength is the initial step length of every parameter
	MaximumStepLength float64

	// MinimumStepLength stops the run once every per-parameter step
	// falls below it
	MinimumStepLength float64

	// NumberOfIterations is the iteration budget
	NumberOfIterations int

	// GradientMagnitudeTolerance stops the run once the gradient norm
	// falls below it
	GradientMagnitudeTolerance float64

	observer IterationObserver

	// State of the last run
	stopCondition StopCondition
	iteration     int
	value         float64
	gradient      []float64
	stepLengths   []float64
}

// NewRegularStepGradientDescent creates an optimizer with the defaults
// used throughout the engine
func NewRegularStepGradientDescent() *RegularStepGradientDescent {
	return &RegularStepGradientDescent{
		MaximumStepLength:          1.0,
		MinimumStepLength:          1e-3,
		NumberOfIterations:         100,
		GradientMagnitudeTolerance: 1e-4,
	}
}

// SetObserver installs the per-iteration callback
func (o *RegularStepGradientDescent) SetObserver(obs IterationObserver) {
	o.observer = obs
}

// StopReason returns why the last run ended
func (o *RegularStepGradientDescent) StopReason() StopCondition {
	return o.stopCondition
}

// Value returns the cost at the last evaluated position
func (o *RegularStepGradientDescent) Value() float64 { return o.value }

// CurrentIteration returns the number of completed iterations
func (o *RegularStepGradientDescent) CurrentIteration() int { return o.iteration }

// CurrentStepLengths returns the per-parameter step lengths of the last run
func (o *RegularStepGradientDescent) CurrentStepLengths() []float64 { return o.stepLengths }

// Minimize runs gradient descent from the initial position. The initial
// slice is not modified. On a cost-function failure the error is
// returned wrapped and the stop reason records whether it was a sampling
// shortfall or another metric error.
func (o *RegularStepGradientDescent) Minimize(cost CostFunction, initial []float64) ([]float64, error) {
	n := len(initial)
	position := make([]float64, n)
	copy(position, initial)

	o.stopCondition = StopNone
	o.iteration = 0
	o.stepLengths = make([]float64, n)
	for i := range o.stepLengths {
		o.stepLengths[i] = o.MaximumStepLength
	}

	var previousGradient []float64

	for o.iteration = 0; o.iteration < o.NumberOfIterations; o.iteration++ {
		value, gradient, err := cost.Evaluate(position)
		if err != nil {
			o.classifyFailure(err)
			return nil, fmt.Errorf("cost evaluation failed at iteration %d: %w", o.iteration, err)
		}
		o.value = value
		o.gradient = gradient

		magnitude := floats.Norm(gradient, 2)
		if magnitude < o.GradientMagnitudeTolerance {
			o.stopCondition = StopGradientTolerance
			return position, nil
		}

		// Halve the step of every parameter whose gradient direction
		// reversed since the previous iteration.
		if previousGradient != nil {
			for i := 0; i < n; i++ {
				if gradient[i]*previousGradient[i] < 0 {
					o.stepLengths[i] /= 2
				}
			}
		}
		previousGradient = gradient

		if floats.Max(o.stepLengths) < o.MinimumStepLength {
			o.stopCondition = StopStepTooSmall
			return position, nil
		}

		// Step against the normalized gradient, each parameter by its
		// own step length.
		for i := 0; i < n; i++ {
			position[i] -= o.stepLengths[i] * gradient[i] / magnitude
		}

		if o.observer != nil {
			o.observer(o.iteration, value, o.averageStepLength(), position)
		}
	}

	o.stopCondition = StopMaxIterations
	return position, nil
}

// averageStepLength reports the mean per-parameter step length
func (o *RegularStepGradientDescent) averageStepLength() float64 {
	if len(o.stepLengths) == 0 {
		return 0
	}
	return floats.Sum(o.stepLengths) / float64(len(o.stepLengths))
}

// classifyFailure maps a cost-function error to a stop condition
func (o *RegularStepGradientDescent) classifyFailure(err error) {
	var insufficient *metric.InsufficientSamplesError
	var outOfBounds *metric.OutOfBoundsError

	if errors.As(err, &insufficient) || errors.As(err, &outOfBounds) {
		o.stopCondition = StopSamplesNotAvailable
		return
	}
	o.stopCondition = StopMetricError
}
