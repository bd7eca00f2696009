// Package config provides the parameter-file layer of the registration
// engine: YAML-backed run parameters with defaults, a string-keyed
// registry mapping component names to constructors, and the builder that
// assembles a registration run from both.
//
// All per-level parameter arrays follow one convention: either one value
// for all levels, or one value per level; shorter arrays are implicitly
// extended by repeating the last entry.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"multireg/pkg/registration"
)

// MetricParameters configures one sub-metric and its owned components
type MetricParameters struct {
	// Type selects the metric by registry name
	Type string `yaml:"type"`

	// Weight is the static per-level weight schedule; empty derives
	// 1 / numberOfActiveMetrics
	Weight []float64 `yaml:"weight"`

	// RelativeWeight is the per-level relative weight schedule used
	// with relative weighting
	RelativeWeight []float64 `yaml:"relativeWeight"`

	// Use flags per level whether the metric contributes to the
	// objective; an unused metric is still computed for reporting
	Use []bool `yaml:"use"`

	// FixedPyramid and MovingPyramid select the pyramid types
	FixedPyramid  string `yaml:"fixedPyramid"`
	MovingPyramid string `yaml:"movingPyramid"`

	// Interpolator selects the moving-image interpolator
	Interpolator string `yaml:"interpolator"`

	// Sampler selects the fixed-image sampling strategy
	Sampler string `yaml:"sampler"`

	// SamplerStride is the grid sampler's period in pixels
	SamplerStride int `yaml:"samplerStride"`

	// SampleCount is the random sampler's samples per evaluation
	SampleCount int `yaml:"sampleCount"`

	// SamplerSeed makes random sampling reproducible
	SamplerSeed int64 `yaml:"samplerSeed"`

	// MinValidFraction is the minimum fraction of samples that must map
	// inside the moving image; 0 means the metric default of 1/4
	MinValidFraction float64 `yaml:"minValidFraction"`
}

// OptimizerParameters configures the optimizer
type OptimizerParameters struct {
	MaximumStepLength          float64 `yaml:"maximumStepLength"`
	MinimumStepLength          float64 `yaml:"minimumStepLength"`
	NumberOfIterations         int     `yaml:"numberOfIterations"`
	GradientMagnitudeTolerance float64 `yaml:"gradientMagnitudeTolerance"`
}

// Parameters is the full run configuration loaded from YAML
type Parameters struct {
	Registration struct {
		// NumberOfResolutions is the resolution level count
		NumberOfResolutions int `yaml:"numberOfResolutions"`

		// UseRelativeWeights switches the combiner to relative
		// weighting
		UseRelativeWeights bool `yaml:"useRelativeWeights"`

		// ReportFinalValues re-evaluates the metrics at each level's
		// accepted position for reporting
		ReportFinalValues bool `yaml:"reportFinalValues"`

		// Transform selects the transform by registry name
		Transform string `yaml:"transform"`

		// Optimizer selects the optimizer by registry name
		Optimizer string `yaml:"optimizer"`
	} `yaml:"registration"`

	// Metrics configures the sub-metrics in registration order; index 0
	// is the reference for relative weighting
	Metrics []MetricParameters `yaml:"metrics"`

	// Erosion schedules per-level mask erosion
	Erosion registration.ErosionSchedule `yaml:"erosion"`

	// Optimizer holds the optimizer settings
	Optimizer OptimizerParameters `yaml:"optimizer"`
}

// DefaultParameters returns a single-metric mean-squares configuration
// with the engine defaults
func DefaultParameters() *Parameters {
	p := &Parameters{}

	p.Registration.NumberOfResolutions = registration.DefaultLevels
	p.Registration.Transform = "Translation"
	p.Registration.Optimizer = "RegularStepGradientDescent"

	p.Metrics = []MetricParameters{{
		Type:          "MeanSquares",
		FixedPyramid:  "Gaussian",
		MovingPyramid: "Gaussian",
		Interpolator:  "Bilinear",
		Sampler:       "Full",
	}}

	p.Optimizer = OptimizerParameters{
		MaximumStepLength:          1.0,
		MinimumStepLength:          1e-3,
		NumberOfIterations:         100,
		GradientMagnitudeTolerance: 1e-4,
	}

	return p
}

// Load reads parameters from a YAML file, starting from the defaults so
// omitted settings keep their default values. A missing file returns the
// defaults unchanged.
func Load(path string) (*Parameters, error) {
	p := DefaultParameters()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading parameter file: %w", err)
	}

	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("error parsing parameter file: %w", err)
	}

	return p, nil
}

// Save writes the parameters to a YAML file, creating directories as
// needed
func Save(p *Parameters, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating parameter directory: %w", err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("error marshaling parameters: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing parameter file: %w", err)
	}

	return nil
}
