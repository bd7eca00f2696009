package registration

import (
	"multireg/internal/models"
	"multireg/pkg/mask"
	"multireg/pkg/optimizer"
)

// stubMetric returns a fixed value and gradient regardless of the
// parameters. With failAtInstall set, every evaluation after the n-th
// SetImages call fails, simulating a metric breaking at one resolution
// level.
type stubMetric struct {
	value    float64
	gradient []float64

	err           error
	failAtInstall int
	failWith      error

	installs int
	evals    int
}

func (m *stubMetric) Evaluate(params []float64) (float64, []float64, error) {
	m.evals++
	if m.err != nil {
		return 0, nil, m.err
	}
	if m.failAtInstall > 0 && m.installs >= m.failAtInstall {
		return 0, nil, m.failWith
	}
	return m.value, append([]float64(nil), m.gradient...), nil
}

func (m *stubMetric) SetImages(fixed, moving *models.Image) { m.installs++ }

func (m *stubMetric) SetMasks(fixed, moving *mask.Mask) {}

// stubPyramid serves the same image at every level
type stubPyramid struct {
	levels []*models.Image
}

func newStubPyramid(numLevels, size int) *stubPyramid {
	p := &stubPyramid{levels: make([]*models.Image, numLevels)}
	for i := range p.levels {
		p.levels[i] = models.NewImage(size, size)
	}
	return p
}

func (p *stubPyramid) Levels() int { return len(p.levels) }

func (p *stubPyramid) Level(l int) (*models.Image, error) { return p.levels[l], nil }

// recordingOptimizer evaluates the cost once at the initial position,
// records the result, and returns the position unchanged. It exposes the
// exact combined value and gradient the engine produced at each level.
type recordingOptimizer struct {
	values    []float64
	gradients [][]float64
}

func (o *recordingOptimizer) Minimize(cost optimizer.CostFunction, initial []float64) ([]float64, error) {
	value, gradient, err := cost.Evaluate(initial)
	if err != nil {
		return nil, err
	}
	o.values = append(o.values, value)
	o.gradients = append(o.gradients, append([]float64(nil), gradient...))
	return append([]float64(nil), initial...), nil
}

func (o *recordingOptimizer) SetObserver(obs optimizer.IterationObserver) {}

func (o *recordingOptimizer) StopReason() optimizer.StopCondition {
	return optimizer.StopMaxIterations
}

// newTestSub builds a subMetric record around a stub metric
func newTestSub(index int, m *stubMetric, schedule MetricSchedule) *subMetric {
	return &subMetric{index: index, metric: m, schedule: schedule}
}
