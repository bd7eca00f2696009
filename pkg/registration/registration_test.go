package registration

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multireg/pkg/metric"
	"multireg/pkg/pyramid"
	"multireg/pkg/transform"
)

func quietParams() Params {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return Params{Logger: logrus.NewEntry(log)}
}

// TestRunCombinesAcrossLevels verifies that the engine produces the
// statically weighted combination at every resolution level
func TestRunCombinesAcrossLevels(t *testing.T) {
	c := testComponents(0)
	c.Metrics = []metric.Metric{
		&stubMetric{value: 0, gradient: []float64{0, 0}},
		&stubMetric{value: 10, gradient: []float64{1, 1}},
	}
	c.Schedules = []MetricSchedule{
		{Weights: []float64{0.5}},
		{Weights: []float64{0.5}},
	}

	opt := &recordingOptimizer{}
	params := quietParams()
	params.Levels = 3
	reg := New(params, c, transform.NewTranslation(), opt)

	result, err := reg.Run(nil)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, StateCompleted, reg.State())
	assert.Equal(t, 3, result.Levels)
	require.Len(t, opt.values, 3)

	for level, value := range opt.values {
		assert.InDelta(t, 5.0, value, combinerTolerance, "level %d combined value", level)
		require.Len(t, opt.gradients[level], 2)
		assert.InDelta(t, 0.5, opt.gradients[level][0], combinerTolerance)
		assert.InDelta(t, 0.5, opt.gradients[level][1], combinerTolerance)
	}

	// Translation identity start, optimizer returns it unchanged
	assert.Equal(t, []float64{0, 0}, result.FinalParameters)
	require.Len(t, result.LevelParameters, 3)

	values := reg.MetricValues()
	require.Len(t, values, 2)
	assert.Equal(t, 0.0, values[0])
	assert.Equal(t, 10.0, values[1])
}

// TestRunFailurePreservesCompletedLevels verifies that a metric failure
// at level 1 fails the whole run while keeping the level 0 estimate
// retrievable
func TestRunFailurePreservesCompletedLevels(t *testing.T) {
	failing := &stubMetric{
		value:         1,
		gradient:      []float64{0, 0},
		failAtInstall: 2,
		failWith: &metric.InsufficientSamplesError{
			Valid: 3, Requested: 100, MinimumFraction: 0.25,
		},
	}
	c := testComponents(0)
	c.Metrics = []metric.Metric{
		&stubMetric{value: 2, gradient: []float64{1, 0}},
		failing,
	}

	params := quietParams()
	params.Levels = 3
	reg := New(params, c, transform.NewTranslation(), &recordingOptimizer{})

	result, err := reg.Run(nil)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "resolution level 1")

	var insufficient *metric.InsufficientSamplesError
	require.ErrorAs(t, err, &insufficient)

	assert.Equal(t, StateFailed, reg.State())
	assert.Equal(t, 1, reg.Level())

	// The level 0 estimate survives the failure
	levels := reg.LevelParameters()
	require.Len(t, levels, 1)
	assert.Equal(t, []float64{0, 0}, levels[0])
}

// TestRunRejectsShortPyramid verifies that a pyramid with fewer levels
// than the run is a configuration error caught before any optimization
func TestRunRejectsShortPyramid(t *testing.T) {
	c := testComponents(1)
	c.FixedPyramids = []pyramid.Pyramid{newStubPyramid(2, 8)}

	params := quietParams()
	params.Levels = 3
	reg := New(params, c, transform.NewTranslation(), &recordingOptimizer{})

	_, err := reg.Run(nil)
	var confErr *ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Equal(t, "pyramids", confErr.Component)
	assert.Equal(t, StateFailed, reg.State())
}

// TestRunValidationFailureState verifies the state transition into
// Failed when validation rejects the components
func TestRunValidationFailureState(t *testing.T) {
	c := testComponents(1)
	c.Metrics = nil

	reg := New(quietParams(), c, transform.NewTranslation(), &recordingOptimizer{})
	require.Equal(t, StateUninitialized, reg.State())

	_, err := reg.Run(nil)
	require.Error(t, err)
	assert.Equal(t, StateFailed, reg.State())
	assert.Empty(t, reg.LevelParameters())
}

// TestRunUsesInitialParameters verifies that an explicit initial vector
// is used instead of the transform identity and is not modified
func TestRunUsesInitialParameters(t *testing.T) {
	c := testComponents(1)

	params := quietParams()
	params.Levels = 2
	reg := New(params, c, transform.NewTranslation(), &recordingOptimizer{})

	initial := []float64{3, -4}
	result, err := reg.Run(initial)
	require.NoError(t, err)

	assert.Equal(t, []float64{3, -4}, initial)
	assert.Equal(t, []float64{3, -4}, result.FinalParameters)
}

// TestReportFinalValuesReEvaluates verifies the end-of-level reporting
// pass evaluates the metrics once more at the accepted position
func TestReportFinalValuesReEvaluates(t *testing.T) {
	m := &stubMetric{value: 1, gradient: []float64{1, 0}}
	c := testComponents(0)
	c.Metrics = []metric.Metric{m}

	params := quietParams()
	params.Levels = 1
	params.ReportFinalValues = true
	reg := New(params, c, transform.NewTranslation(), &recordingOptimizer{})

	_, err := reg.Run(nil)
	require.NoError(t, err)

	// One evaluation inside the optimizer plus one reporting evaluation
	assert.Equal(t, 2, m.evals)
}

// TestRunIDStable verifies each run carries a unique, stable identifier
func TestRunIDStable(t *testing.T) {
	a := New(quietParams(), testComponents(1), transform.NewTranslation(), &recordingOptimizer{})
	b := New(quietParams(), testComponents(1), transform.NewTranslation(), &recordingOptimizer{})

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, a.ID(), a.ID())
}
