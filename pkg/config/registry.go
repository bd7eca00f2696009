package config

import (
	"fmt"
	"sort"

	"multireg/internal/models"
	"multireg/pkg/interpolation"
	"multireg/pkg/metric"
	"multireg/pkg/optimizer"
	"multireg/pkg/pyramid"
	"multireg/pkg/sampler"
	"multireg/pkg/transform"
)

// The registries map component names to constructors, so parameter files
// select components by name. They are populated at process start; callers
// may register additional components before building a run.

// MetricFactory builds a metric from its collaborator options
type MetricFactory func(opts metric.Options) metric.Metric

// PyramidFactory builds a pyramid over a source image
type PyramidFactory func(src *models.Image, levels int) pyramid.Pyramid

// InterpolatorFactory builds an interpolator
type InterpolatorFactory func() interpolation.Interpolator

// SamplerFactory builds a sampler from the metric's sampler settings
type SamplerFactory func(p MetricParameters) sampler.Sampler

// TransformFactory builds a transform; the fixed image supplies the
// rotation center for transforms that need one
type TransformFactory func(fixed *models.Image) transform.Transform

// OptimizerFactory builds an optimizer from the optimizer settings
type OptimizerFactory func(p OptimizerParameters) optimizer.Optimizer

var (
	metricRegistry       = map[string]MetricFactory{}
	pyramidRegistry      = map[string]PyramidFactory{}
	interpolatorRegistry = map[string]InterpolatorFactory{}
	samplerRegistry      = map[string]SamplerFactory{}
	transformRegistry    = map[string]TransformFactory{}
	optimizerRegistry    = map[string]OptimizerFactory{}
)

func init() {
	RegisterMetric("MeanSquares", func(opts metric.Options) metric.Metric {
		return metric.NewMeanSquares(opts)
	})
	RegisterMetric("NormalizedCorrelation", func(opts metric.Options) metric.Metric {
		return metric.NewNormalizedCorrelation(opts)
	})
	RegisterMetric("MutualInformation", func(opts metric.Options) metric.Metric {
		return metric.NewMutualInformation(opts)
	})

	RegisterPyramid("Gaussian", func(src *models.Image, levels int) pyramid.Pyramid {
		return pyramid.NewGaussian(src, levels)
	})
	RegisterPyramid("Shrinking", func(src *models.Image, levels int) pyramid.Pyramid {
		return pyramid.NewShrinking(src, levels)
	})
	RegisterPyramid("Smoothing", func(src *models.Image, levels int) pyramid.Pyramid {
		return pyramid.NewSmoothing(src, levels)
	})

	RegisterInterpolator("Bilinear", func() interpolation.Interpolator {
		return interpolation.NewBilinear()
	})

	RegisterSampler("Full", func(p MetricParameters) sampler.Sampler {
		return sampler.NewFull()
	})
	RegisterSampler("Grid", func(p MetricParameters) sampler.Sampler {
		return sampler.NewGrid(p.SamplerStride)
	})
	RegisterSampler("Random", func(p MetricParameters) sampler.Sampler {
		return sampler.NewRandom(p.SampleCount, p.SamplerSeed)
	})

	RegisterTransform("Translation", func(fixed *models.Image) transform.Transform {
		return transform.NewTranslation()
	})
	RegisterTransform("Euler", func(fixed *models.Image) transform.Transform {
		center := models.Point{
			X: float64(fixed.Width-1) / 2,
			Y: float64(fixed.Height-1) / 2,
		}
		return transform.NewEuler2D(center)
	})
	RegisterTransform("Affine", func(fixed *models.Image) transform.Transform {
		return transform.NewAffine()
	})

	RegisterOptimizer("RegularStepGradientDescent", func(p OptimizerParameters) optimizer.Optimizer {
		o := optimizer.NewRegularStepGradientDescent()
		if p.MaximumStepLength > 0 {
			o.MaximumStepLength = p.MaximumStepLength
		}
		if p.MinimumStepLength > 0 {
			o.MinimumStepLength = p.MinimumStepLength
		}
		if p.NumberOfIterations > 0 {
			o.NumberOfIterations = p.NumberOfIterations
		}
		if p.GradientMagnitudeTolerance > 0 {
			o.GradientMagnitudeTolerance = p.GradientMagnitudeTolerance
		}
		return o
	})
}

// RegisterMetric adds or replaces a metric constructor
func RegisterMetric(name string, f MetricFactory) { metricRegistry[name] = f }

// RegisterPyramid adds or replaces a pyramid constructor
func RegisterPyramid(name string, f PyramidFactory) { pyramidRegistry[name] = f }

// RegisterInterpolator adds or replaces an interpolator constructor
func RegisterInterpolator(name string, f InterpolatorFactory) { interpolatorRegistry[name] = f }

// RegisterSampler adds or replaces a sampler constructor
func RegisterSampler(name string, f SamplerFactory) { samplerRegistry[name] = f }

// RegisterTransform adds or replaces a transform constructor
func RegisterTransform(name string, f TransformFactory) { transformRegistry[name] = f }

// RegisterOptimizer adds or replaces an optimizer constructor
func RegisterOptimizer(name string, f OptimizerFactory) { optimizerRegistry[name] = f }

// MetricNames returns the registered metric names, sorted
func MetricNames() []string { return sortedKeys(metricRegistry) }

// PyramidNames returns the registered pyramid names, sorted
func PyramidNames() []string { return sortedKeys(pyramidRegistry) }

// TransformNames returns the registered transform names, sorted
func TransformNames() []string { return sortedKeys(transformRegistry) }

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lookupError(kind, name string, available []string) error {
	return fmt.Errorf("unknown %s %q, available: %v", kind, name, available)
}
