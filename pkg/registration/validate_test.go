package registration

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multireg/internal/models"
	"multireg/pkg/interpolation"
	"multireg/pkg/metric"
	"multireg/pkg/pyramid"
	"multireg/pkg/sampler"
)

// testComponents builds a minimal valid component set with n metrics
// sharing one image pair and one pyramid per side
func testComponents(n int) *Components {
	c := &Components{
		FixedImages:    []*models.Image{models.NewImage(8, 8)},
		MovingImages:   []*models.Image{models.NewImage(8, 8)},
		FixedPyramids:  []pyramid.Pyramid{newStubPyramid(3, 8)},
		MovingPyramids: []pyramid.Pyramid{newStubPyramid(3, 8)},
		Interpolators:  []interpolation.Interpolator{interpolation.NewBilinear()},
		Samplers:       []sampler.Sampler{sampler.NewFull()},
	}
	for i := 0; i < n; i++ {
		c.Metrics = append(c.Metrics, &stubMetric{gradient: []float64{0, 0}})
	}
	return c
}

// TestValidateAcceptsSharedCollaborators verifies that several metrics
// may legally share a single image pair, pyramid, interpolator and
// sampler
func TestValidateAcceptsSharedCollaborators(t *testing.T) {
	require.NoError(t, testComponents(3).validate())
}

// TestValidateRequiresMetric verifies that a run without metrics is
// rejected
func TestValidateRequiresMetric(t *testing.T) {
	c := testComponents(1)
	c.Metrics = nil

	err := c.validate()
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "metrics", confErr.Component)
}

// TestValidateRejectsExcessCollaborators verifies that declaring more of
// a collaborator than there are metrics is a configuration error naming
// the collaborator
func TestValidateRejectsExcessCollaborators(t *testing.T) {
	c := testComponents(2)
	c.FixedPyramids = []pyramid.Pyramid{
		newStubPyramid(3, 8), newStubPyramid(3, 8), newStubPyramid(3, 8),
	}

	err := c.validate()
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "fixed pyramids", confErr.Component)
}

// TestValidateSharedSamplerNeedsSingleFixedSide verifies that a single
// shared sampler is only legal with one fixed image and one fixed
// pyramid
func TestValidateSharedSamplerNeedsSingleFixedSide(t *testing.T) {
	c := testComponents(3)
	c.FixedImages = []*models.Image{models.NewImage(8, 8), models.NewImage(8, 8)}

	err := c.validate()
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "samplers", confErr.Component)
}

// TestValidateRejectsSamplerCountMismatch verifies that a sampler count
// of neither one nor the metric count is rejected
func TestValidateRejectsSamplerCountMismatch(t *testing.T) {
	c := testComponents(3)
	c.Samplers = []sampler.Sampler{sampler.NewFull(), sampler.NewFull()}

	err := c.validate()
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "samplers", confErr.Component)
}

// TestBuildSubMetricsSharesLastCollaborator verifies that metrics beyond
// the declared collaborator count reuse the last declared instance
func TestBuildSubMetricsSharesLastCollaborator(t *testing.T) {
	c := testComponents(3)
	subs := c.buildSubMetrics()

	require.Len(t, subs, 3)
	for i, sub := range subs {
		assert.Equal(t, i, sub.index)
		assert.Same(t, c.FixedPyramids[0], sub.fixedPyramid)
		assert.Same(t, c.MovingPyramids[0], sub.movingPyramid)
	}
}

// TestConfigurationErrorMessage verifies that the error message names
// the mismatched collaborator
func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Component: "samplers", Reason: "2 declared for 3 metrics; expected 3 or 1"}
	assert.Contains(t, err.Error(), "samplers")

	var target *ConfigurationError
	assert.True(t, errors.As(error(err), &target))
}

var _ metric.Metric = (*stubMetric)(nil)
var _ pyramid.Pyramid = (*stubPyramid)(nil)
