package registration

import (
	"fmt"

	"multireg/internal/models"
	"multireg/pkg/interpolation"
	"multireg/pkg/mask"
	"multireg/pkg/metric"
	"multireg/pkg/pyramid"
	"multireg/pkg/sampler"
)

// Components lists the collaborators of one registration run. Indexing
// is by metric: metric i uses the collaborator at index i, or the last
// declared one when fewer collaborators than metrics are supplied. Two
// metrics therefore share a collaborator by declaring fewer instances,
// or by passing the identical instance twice.
type Components struct {
	// Metrics are the similarity measures, in registration order.
	// Index 0 is the reference for relative weighting.
	Metrics []metric.Metric

	// Schedules holds per-metric level schedules, aligned with Metrics.
	// Missing entries mean default weights and always-active.
	Schedules []MetricSchedule

	// FixedImages and MovingImages are the full-resolution image pairs
	FixedImages  []*models.Image
	MovingImages []*models.Image

	// FixedPyramids and MovingPyramids provide the per-level images
	FixedPyramids  []pyramid.Pyramid
	MovingPyramids []pyramid.Pyramid

	// Interpolators read the moving images at continuous positions
	Interpolators []interpolation.Interpolator

	// Samplers select the fixed-image evaluation positions. Either one
	// per metric, or exactly one shared sampler, which is only legal
	// with a single fixed image and a single fixed pyramid.
	Samplers []sampler.Sampler

	// FixedMasks and MovingMasks restrict the sampled regions. Empty
	// slices mean unmasked; nil entries mean that metric is unmasked.
	FixedMasks  []*mask.Mask
	MovingMasks []*mask.Mask
}

// pick returns the collaborator index for a metric index
func pick(i, count int) int {
	if i >= count {
		return count - 1
	}
	return i
}

// validate checks the collaborator counts against the number of metrics.
// It is the only validation performed before the run starts; weight
// values are not inspected here but derived lazily at first use.
func (c *Components) validate() error {
	n := len(c.Metrics)
	if n == 0 {
		return &ConfigurationError{Component: "metrics", Reason: "at least one metric is required"}
	}
	if len(c.FixedImages) == 0 {
		return &ConfigurationError{Component: "fixed images", Reason: "at least one fixed image is required"}
	}
	if len(c.MovingImages) == 0 {
		return &ConfigurationError{Component: "moving images", Reason: "at least one moving image is required"}
	}
	if len(c.FixedPyramids) == 0 {
		return &ConfigurationError{Component: "fixed pyramids", Reason: "at least one fixed pyramid is required"}
	}
	if len(c.MovingPyramids) == 0 {
		return &ConfigurationError{Component: "moving pyramids", Reason: "at least one moving pyramid is required"}
	}
	if len(c.Interpolators) == 0 {
		return &ConfigurationError{Component: "interpolators", Reason: "at least one interpolator is required"}
	}

	// The number of metrics bounds every other collaborator count
	counts := []struct {
		name  string
		count int
	}{
		{"fixed images", len(c.FixedImages)},
		{"moving images", len(c.MovingImages)},
		{"fixed pyramids", len(c.FixedPyramids)},
		{"moving pyramids", len(c.MovingPyramids)},
		{"interpolators", len(c.Interpolators)},
		{"fixed masks", len(c.FixedMasks)},
		{"moving masks", len(c.MovingMasks)},
	}
	for _, entry := range counts {
		if entry.count > n {
			return &ConfigurationError{
				Component: entry.name,
				Reason:    fmt.Sprintf("%d declared but only %d metrics registered", entry.count, n),
			}
		}
	}

	// Samplers: one per metric, or a single shared one when there is
	// exactly one fixed image and one fixed pyramid.
	switch len(c.Samplers) {
	case n:
	case 1:
		if len(c.FixedImages) != 1 || len(c.FixedPyramids) != 1 {
			return &ConfigurationError{
				Component: "samplers",
				Reason: fmt.Sprintf("a single shared sampler requires one fixed image and one fixed pyramid, got %d and %d",
					len(c.FixedImages), len(c.FixedPyramids)),
			}
		}
	default:
		return &ConfigurationError{
			Component: "samplers",
			Reason:    fmt.Sprintf("%d declared for %d metrics; expected %d or 1", len(c.Samplers), n, n),
		}
	}

	return nil
}

// buildSubMetrics wires the collaborators into per-metric records
func (c *Components) buildSubMetrics() []*subMetric {
	subs := make([]*subMetric, len(c.Metrics))

	for i, m := range c.Metrics {
		sub := &subMetric{
			index:         i,
			metric:        m,
			fixedPyramid:  c.FixedPyramids[pick(i, len(c.FixedPyramids))],
			movingPyramid: c.MovingPyramids[pick(i, len(c.MovingPyramids))],
		}
		if i < len(c.Schedules) {
			sub.schedule = c.Schedules[i]
		}
		if len(c.FixedMasks) > 0 {
			sub.fixedMask = c.FixedMasks[pick(i, len(c.FixedMasks))]
		}
		if len(c.MovingMasks) > 0 {
			sub.movingMask = c.MovingMasks[pick(i, len(c.MovingMasks))]
		}
		subs[i] = sub
	}

	return subs
}
