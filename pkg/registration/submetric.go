package registration

import (
	"multireg/pkg/mask"
	"multireg/pkg/metric"
	"multireg/pkg/pyramid"
)

// MetricSchedule holds the per-level settings of one sub-metric. Each
// array follows the configuration convention of either one value for all
// levels or one value per level: shorter arrays are extended by
// repeating the last entry.
type MetricSchedule struct {
	// Weights are the static per-level weights. Empty means the derived
	// default of 1 / numberOfActiveMetrics at each level.
	Weights []float64

	// RelativeWeights are the per-level relative weights used when the
	// combiner runs in relative mode. Empty means the same derived
	// default.
	RelativeWeights []float64

	// Use flags whether the sub-metric contributes to the combined
	// objective at each level. An inactive sub-metric is still
	// evaluated so its value can be reported. Empty means active at
	// every level.
	Use []bool
}

// subMetric is one registered similarity measure together with its
// per-level schedules, its owned resources, and the cached result of its
// most recent evaluation.
type subMetric struct {
	index    int
	metric   metric.Metric
	schedule MetricSchedule

	fixedPyramid  pyramid.Pyramid
	movingPyramid pyramid.Pyramid

	// Source masks as configured; nil means unmasked. Two sub-metrics
	// configured with the identical source mask share its eroded
	// results.
	fixedMask  *mask.Mask
	movingMask *mask.Mask

	// Masks currently installed on the metric, updated by the mask
	// synchronizer at each level transition.
	currentFixedMask  *mask.Mask
	currentMovingMask *mask.Mask

	// Last evaluation results, cached by the combiner for reporting
	lastValue    float64
	lastGradient []float64
}

// scheduleIndex maps a level to a schedule array index under the
// repeat-last-entry convention
func scheduleIndex(length, level int) int {
	if level >= length {
		return length - 1
	}
	return level
}

// weightAt returns the configured static weight for a level, or false
// when the derived default applies
func (s *subMetric) weightAt(level int) (float64, bool) {
	if len(s.schedule.Weights) == 0 {
		return 0, false
	}
	return s.schedule.Weights[scheduleIndex(len(s.schedule.Weights), level)], true
}

// relativeWeightAt returns the configured relative weight for a level,
// or false when the derived default applies
func (s *subMetric) relativeWeightAt(level int) (float64, bool) {
	if len(s.schedule.RelativeWeights) == 0 {
		return 0, false
	}
	return s.schedule.RelativeWeights[scheduleIndex(len(s.schedule.RelativeWeights), level)], true
}

// activeAt reports whether the sub-metric contributes at a level
func (s *subMetric) activeAt(level int) bool {
	if len(s.schedule.Use) == 0 {
		return true
	}
	return s.schedule.Use[scheduleIndex(len(s.schedule.Use), level)]
}
