package registration

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// WeightingMode selects how the sub-metric contributions are combined
type WeightingMode int

const (
	// StaticWeighting uses the configured per-level weights directly
	StaticWeighting WeightingMode = iota

	// RelativeWeighting rescales each contribution by the ratio of the
	// reference sub-metric's gradient magnitude to its own, keeping the
	// contribution ratios proportional to the configured relative
	// weights even when raw gradients differ by orders of magnitude.
	RelativeWeighting
)

func (m WeightingMode) String() string {
	switch m {
	case StaticWeighting:
		return "static"
	case RelativeWeighting:
		return "relative"
	default:
		return fmt.Sprintf("unknown weighting mode %d", int(m))
	}
}

// combinedMetric folds the registered sub-metrics into the single cost
// function the optimizer drives. Sub-metric index 0 is the reference for
// relative weighting.
type combinedMetric struct {
	subs  []*subMetric
	mode  WeightingMode
	level int

	value    float64
	gradient []float64
}

func newCombinedMetric(subs []*subMetric, mode WeightingMode) *combinedMetric {
	return &combinedMetric{subs: subs, mode: mode}
}

// setLevel installs the resolution level whose schedules apply
func (c *combinedMetric) setLevel(level int) {
	c.level = level
}

// Evaluate computes every sub-metric at the supplied parameters, in
// index order, and folds the active ones into the combined value and
// gradient according to the weighting mode. Inactive sub-metrics are
// evaluated so their values can be reported, but contribute nothing.
// A failing sub-metric evaluation aborts the whole call.
func (c *combinedMetric) Evaluate(params []float64) (float64, []float64, error) {
	for _, sub := range c.subs {
		value, gradient, err := sub.metric.Evaluate(params)
		if err != nil {
			return 0, nil, fmt.Errorf("metric %d evaluation: %w", sub.index, err)
		}
		sub.lastValue = value
		sub.lastGradient = gradient
	}

	nParams := len(c.subs[0].lastGradient)
	weights := c.effectiveWeights()

	value := 0.0
	gradient := make([]float64, nParams)
	for i, sub := range c.subs {
		if weights[i] == 0 {
			continue
		}
		value += weights[i] * sub.lastValue
		floats.AddScaled(gradient, weights[i], sub.lastGradient)
	}

	c.value = value
	c.gradient = gradient
	return value, gradient, nil
}

// effectiveWeights computes the weight of every sub-metric at the
// current level. Inactive sub-metrics always weigh zero.
func (c *combinedMetric) effectiveWeights() []float64 {
	weights := make([]float64, len(c.subs))

	nActive := 0
	for _, sub := range c.subs {
		if sub.activeAt(c.level) {
			nActive++
		}
	}
	if nActive == 0 {
		return weights
	}
	defaultWeight := 1.0 / float64(nActive)

	switch c.mode {
	case RelativeWeighting:
		// The reference gradient magnitude is always taken from
		// sub-metric 0, whether or not it is active. A zero reference
		// magnitude zeroes every weight for this evaluation; this is a
		// degenerate but well-defined outcome, not an error.
		refMagnitude := floats.Norm(c.subs[0].lastGradient, 2)
		if refMagnitude == 0 {
			return weights
		}

		for i, sub := range c.subs {
			if !sub.activeAt(c.level) {
				continue
			}
			relative, ok := sub.relativeWeightAt(c.level)
			if !ok {
				relative = defaultWeight
			}

			magnitude := floats.Norm(sub.lastGradient, 2)
			if magnitude == 0 {
				// Undefined ratio: this sub-metric contributes
				// nothing for this evaluation.
				continue
			}
			weights[i] = relative * refMagnitude / magnitude
		}

	default:
		for i, sub := range c.subs {
			if !sub.activeAt(c.level) {
				continue
			}
			weight, ok := sub.weightAt(c.level)
			if !ok {
				weight = defaultWeight
			}
			weights[i] = weight
		}
	}

	return weights
}
