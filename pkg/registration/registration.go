// Package registration implements the multi-metric, multi-resolution
// registration engine: it advances a resolution-level state machine,
// combines several independently configured similarity metrics into one
// scalar objective with a derivative, and keeps per-metric resources
// (pyramids, interpolators, samplers, masks) synchronized with the
// current level. Transforms, metrics, and the optimizer are external
// collaborators supplied at construction.
package registration

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"multireg/pkg/optimizer"
	"multireg/pkg/pyramid"
	"multireg/pkg/transform"
)

// DefaultLevels is the number of resolution levels used when none is
// configured.
const DefaultLevels = 3

// State identifies where a registration run is in its life cycle
type State int

const (
	// StateUninitialized means Run has not been called
	StateUninitialized State = iota

	// StateValidated means the collaborator counts were accepted
	StateValidated

	// StateInLevel means a resolution level is being optimized
	StateInLevel

	// StateCompleted means every level finished
	StateCompleted

	// StateFailed means the run aborted; results of completed levels
	// remain retrievable
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValidated:
		return "validated"
	case StateInLevel:
		return "in level"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown state %d", int(s))
	}
}

// Params configures a registration run
type Params struct {
	// Levels is the number of resolution levels; DefaultLevels when
	// zero or negative
	Levels int

	// Weighting selects static or relative metric weighting
	Weighting WeightingMode

	// Erosion schedules the per-level mask erosion
	Erosion ErosionSchedule

	// ReportFinalValues re-evaluates the combined metric at each
	// level's final position, so the reported per-metric values belong
	// to the accepted parameters rather than the last optimizer trial.
	ReportFinalValues bool

	// Logger receives progress and per-iteration reporting; the
	// standard logger is used when nil
	Logger *logrus.Entry
}

// Result holds the outcome of a completed registration run
type Result struct {
	// RunID identifies the run in logs
	RunID uuid.UUID

	// FinalParameters is the transform parameter estimate after the
	// finest level
	FinalParameters []float64

	// LevelParameters holds the estimate produced by each level, in
	// level order
	LevelParameters [][]float64

	// Levels is the number of resolution levels that ran
	Levels int
}

// Registration owns the resolution-level state machine and the combined
// cost function. It holds non-owning references to the transform and
// optimizer collaborators, which outlive it.
type Registration struct {
	id         uuid.UUID
	params     Params
	components *Components
	transform  transform.Transform
	optimizer  optimizer.Optimizer

	subs     []*subMetric
	combined *combinedMetric
	sync     *maskSynchronizer

	state       State
	level       int
	levelParams [][]float64

	log *logrus.Entry
}

// New creates a registration run over the supplied collaborators.
// Validation happens when Run is called, not here.
func New(params Params, components *Components, tr transform.Transform, opt optimizer.Optimizer) *Registration {
	if params.Levels <= 0 {
		params.Levels = DefaultLevels
	}

	id := uuid.New()
	log := params.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Registration{
		id:         id,
		params:     params,
		components: components,
		transform:  tr,
		optimizer:  opt,
		sync:       newMaskSynchronizer(),
		state:      StateUninitialized,
		log:        log.WithField("run", id.String()),
	}
}

// ID returns the run identifier
func (r *Registration) ID() uuid.UUID { return r.id }

// State returns the current life-cycle state
func (r *Registration) State() State { return r.state }

// Level returns the current (or last attempted) resolution level
func (r *Registration) Level() int { return r.level }

// LevelParameters returns the parameter estimates of every completed
// level. It remains valid after a failed run: a failure at level l
// preserves the results of levels below l.
func (r *Registration) LevelParameters() [][]float64 {
	out := make([][]float64, len(r.levelParams))
	for i, p := range r.levelParams {
		out[i] = append([]float64(nil), p...)
	}
	return out
}

// MetricValues returns the last evaluated value of every sub-metric, in
// registration order. Inactive sub-metrics are included; their values
// are computed for reporting even though they do not contribute to the
// combined objective.
func (r *Registration) MetricValues() []float64 {
	values := make([]float64, len(r.subs))
	for i, sub := range r.subs {
		values[i] = sub.lastValue
	}
	return values
}

// Run executes the full registration: validation, then one optimization
// pass per resolution level, coarse to fine. A nil initial vector starts
// from the transform's identity parameters. Any failure is fatal to the
// whole run; there is no retry and no partial-success state, but the
// estimates of already-completed levels remain retrievable through
// LevelParameters.
func (r *Registration) Run(initial []float64) (*Result, error) {
	if err := r.beforeRegistration(); err != nil {
		r.state = StateFailed
		return nil, err
	}

	current := initial
	if current == nil {
		current = r.transform.InitialParameters()
	}
	current = append([]float64(nil), current...)

	for level := 0; level < r.params.Levels; level++ {
		r.level = level
		r.state = StateInLevel

		if err := r.beforeEachResolution(level); err != nil {
			r.state = StateFailed
			return nil, fmt.Errorf("preparing resolution level %d: %w", level, err)
		}

		r.optimizer.SetObserver(r.afterEachIteration)
		next, err := r.optimizer.Minimize(r.combined, current)
		if err != nil {
			r.state = StateFailed
			return nil, fmt.Errorf("resolution level %d: %w", level, err)
		}

		r.levelParams = append(r.levelParams, append([]float64(nil), next...))
		current = next

		r.afterEachResolution(level, current)
	}

	r.state = StateCompleted
	r.log.WithFields(logrus.Fields{
		"levels":     r.params.Levels,
		"parameters": current,
	}).Info("registration completed")

	return &Result{
		RunID:           r.id,
		FinalParameters: append([]float64(nil), current...),
		LevelParameters: r.LevelParameters(),
		Levels:          r.params.Levels,
	}, nil
}

// beforeRegistration validates the collaborator counts, wires the
// sub-metric records, and precomputes the image pyramids.
func (r *Registration) beforeRegistration() error {
	if err := r.components.validate(); err != nil {
		return err
	}
	r.state = StateValidated

	r.subs = r.components.buildSubMetrics()
	r.combined = newCombinedMetric(r.subs, r.params.Weighting)

	// Every pyramid must carry at least as many levels as the run uses
	for i, sub := range r.subs {
		for _, p := range []pyramid.Pyramid{sub.fixedPyramid, sub.movingPyramid} {
			if p.Levels() < r.params.Levels {
				return &ConfigurationError{
					Component: "pyramids",
					Reason: fmt.Sprintf("metric %d pyramid has %d levels, registration needs %d",
						i, p.Levels(), r.params.Levels),
				}
			}
		}
	}

	// Precompute the distinct pyramids concurrently; shared pyramids
	// are computed once.
	distinct := make(map[pyramid.Pyramid]bool)
	for _, sub := range r.subs {
		distinct[sub.fixedPyramid] = true
		distinct[sub.movingPyramid] = true
	}

	var group errgroup.Group
	for p := range distinct {
		p := p
		group.Go(func() error { return pyramid.Compute(p) })
	}
	if err := group.Wait(); err != nil {
		return fmt.Errorf("computing pyramids: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"metrics":   len(r.subs),
		"levels":    r.params.Levels,
		"weighting": r.params.Weighting.String(),
	}).Info("registration configured")

	return nil
}

// beforeEachResolution synchronizes masks, installs the level images on
// every sub-metric, and points the combiner at the level's schedules.
func (r *Registration) beforeEachResolution(level int) error {
	r.sync.syncLevel(r.subs, r.params.Erosion, level)

	for _, sub := range r.subs {
		fixed, err := sub.fixedPyramid.Level(level)
		if err != nil {
			return fmt.Errorf("metric %d fixed pyramid: %w", sub.index, err)
		}
		moving, err := sub.movingPyramid.Level(level)
		if err != nil {
			return fmt.Errorf("metric %d moving pyramid: %w", sub.index, err)
		}

		sub.metric.SetImages(fixed, moving)
		sub.metric.SetMasks(sub.currentFixedMask, sub.currentMovingMask)
	}

	r.combined.setLevel(level)

	r.log.WithFields(logrus.Fields{
		"level": level,
	}).Info("starting resolution level")

	return nil
}

// afterEachIteration snapshots each sub-metric's last evaluated value
// for progress reporting, without re-evaluating anything.
func (r *Registration) afterEachIteration(iteration int, value float64, stepLength float64, position []float64) {
	fields := logrus.Fields{
		"level":     r.level,
		"iteration": iteration,
		"value":     value,
		"step":      stepLength,
	}
	for _, sub := range r.subs {
		fields[fmt.Sprintf("metric%d", sub.index)] = sub.lastValue
	}
	r.log.WithFields(fields).Debug("iteration")
}

// afterEachResolution reports the level outcome. With ReportFinalValues
// set, the combined metric is evaluated once more at the accepted
// position so the logged per-metric values match it exactly; a failure
// of that extra evaluation only affects reporting, never the run.
func (r *Registration) afterEachResolution(level int, position []float64) {
	if r.params.ReportFinalValues {
		if _, _, err := r.combined.Evaluate(position); err != nil {
			r.log.WithField("level", level).WithError(err).Warn("final value reporting failed")
		}
	}

	fields := logrus.Fields{
		"level":      level,
		"stop":       r.optimizer.StopReason().String(),
		"parameters": position,
	}
	for _, sub := range r.subs {
		fields[fmt.Sprintf("metric%d", sub.index)] = sub.lastValue
	}
	r.log.WithFields(fields).Info("resolution level completed")
}
