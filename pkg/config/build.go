package config

import (
	"github.com/sirupsen/logrus"

	"multireg/internal/models"
	"multireg/pkg/interpolation"
	"multireg/pkg/mask"
	"multireg/pkg/metric"
	"multireg/pkg/pyramid"
	"multireg/pkg/registration"
	"multireg/pkg/sampler"
	"multireg/pkg/transform"
)

// Build assembles a registration run from the parameters and the loaded
// images. Every component name is resolved through the registries; mask
// arguments may be nil for an unmasked run. Metrics that name the same
// pyramid type share a single pyramid instance per image side, so shared
// pyramids are computed once.
func Build(p *Parameters, fixed, moving *models.Image, fixedMask, movingMask *mask.Mask, logger *logrus.Entry) (*registration.Registration, error) {
	levels := p.Registration.NumberOfResolutions
	if levels <= 0 {
		levels = registration.DefaultLevels
	}

	tr, err := NewTransform(p.Registration.Transform, fixed)
	if err != nil {
		return nil, err
	}

	optimizerFactory, ok := optimizerRegistry[p.Registration.Optimizer]
	if !ok {
		return nil, lookupError("optimizer", p.Registration.Optimizer, sortedKeys(optimizerRegistry))
	}
	opt := optimizerFactory(p.Optimizer)

	components := &registration.Components{
		FixedImages:  []*models.Image{fixed},
		MovingImages: []*models.Image{moving},
	}
	if fixedMask != nil {
		components.FixedMasks = []*mask.Mask{fixedMask}
	}
	if movingMask != nil {
		components.MovingMasks = []*mask.Mask{movingMask}
	}

	fixedPyramids := map[string]pyramid.Pyramid{}
	movingPyramids := map[string]pyramid.Pyramid{}

	for _, mp := range p.Metrics {
		metricFactory, ok := metricRegistry[mp.Type]
		if !ok {
			return nil, lookupError("metric", mp.Type, MetricNames())
		}

		interp, err := buildInterpolator(mp.Interpolator)
		if err != nil {
			return nil, err
		}
		smp, err := buildSampler(mp)
		if err != nil {
			return nil, err
		}

		m := metricFactory(metric.Options{
			Transform:        tr,
			Interpolator:     interp,
			Sampler:          smp,
			MinValidFraction: mp.MinValidFraction,
		})

		fp, err := sharedPyramid(fixedPyramids, mp.FixedPyramid, fixed, levels)
		if err != nil {
			return nil, err
		}
		mvp, err := sharedPyramid(movingPyramids, mp.MovingPyramid, moving, levels)
		if err != nil {
			return nil, err
		}

		components.Metrics = append(components.Metrics, m)
		components.Schedules = append(components.Schedules, registration.MetricSchedule{
			Weights:         mp.Weight,
			RelativeWeights: mp.RelativeWeight,
			Use:             mp.Use,
		})
		components.Interpolators = append(components.Interpolators, interp)
		components.Samplers = append(components.Samplers, smp)
		components.FixedPyramids = append(components.FixedPyramids, fp)
		components.MovingPyramids = append(components.MovingPyramids, mvp)
	}

	weighting := registration.StaticWeighting
	if p.Registration.UseRelativeWeights {
		weighting = registration.RelativeWeighting
	}

	params := registration.Params{
		Levels:            levels,
		Weighting:         weighting,
		Erosion:           p.Erosion,
		ReportFinalValues: p.Registration.ReportFinalValues,
		Logger:            logger,
	}

	return registration.New(params, components, tr, opt), nil
}

// NewTransform resolves a transform by registry name. The fixed image
// supplies the rotation center for transforms that need one.
func NewTransform(name string, fixed *models.Image) (transform.Transform, error) {
	factory, ok := transformRegistry[name]
	if !ok {
		return nil, lookupError("transform", name, TransformNames())
	}
	return factory(fixed), nil
}

func buildInterpolator(name string) (interpolation.Interpolator, error) {
	factory, ok := interpolatorRegistry[name]
	if !ok {
		return nil, lookupError("interpolator", name, sortedKeys(interpolatorRegistry))
	}
	return factory(), nil
}

func buildSampler(mp MetricParameters) (sampler.Sampler, error) {
	factory, ok := samplerRegistry[mp.Sampler]
	if !ok {
		return nil, lookupError("sampler", mp.Sampler, sortedKeys(samplerRegistry))
	}
	return factory(mp), nil
}

func sharedPyramid(cache map[string]pyramid.Pyramid, name string, src *models.Image, levels int) (pyramid.Pyramid, error) {
	if p, ok := cache[name]; ok {
		return p, nil
	}
	factory, ok := pyramidRegistry[name]
	if !ok {
		return nil, lookupError("pyramid", name, PyramidNames())
	}
	p := factory(src, levels)
	cache[name] = p
	return p, nil
}
