// Package runner executes parsed feature scenarios against the step table.
//
// Every scenario gets its own steps.World, and so its own calculator. Nothing
// is shared between scenarios, which is what lets them run in parallel.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pengelbrecht/tally/internal/feature"
	"github.com/pengelbrecht/tally/internal/steps"
)

// Runner runs scenarios.
type Runner struct {
	registry   *steps.Registry
	logger     *slog.Logger
	parallel   int
	filter     Filter
	onScenario func(ScenarioResult)
	now        func() time.Time

	callbackMu sync.Mutex
}

// Option configures a Runner.
type Option func(*Runner)

// WithRegistry sets the step table (default steps.Default()).
func WithRegistry(r *steps.Registry) Option {
	return func(rn *Runner) {
		rn.registry = r
	}
}

// WithLogger sets the logger for the runner.
func WithLogger(logger *slog.Logger) Option {
	return func(rn *Runner) {
		rn.logger = logger
	}
}

// WithParallel sets how many scenarios may run at once. Values below 1 mean 1.
func WithParallel(n int) Option {
	return func(rn *Runner) {
		rn.parallel = n
	}
}

// WithFilter restricts the run to scenarios selected by f.
func WithFilter(f Filter) Option {
	return func(rn *Runner) {
		rn.filter = f
	}
}

// WithScenarioCallback registers fn to be called as each scenario finishes.
// Calls are serialized but, with parallelism above 1, not in file order.
func WithScenarioCallback(fn func(ScenarioResult)) Option {
	return func(rn *Runner) {
		rn.onScenario = fn
	}
}

// WithClock sets the clock that stamps Result.StartedAt (default time.Now).
// Run record IDs derive from that stamp.
func WithClock(now func() time.Time) Option {
	return func(rn *Runner) {
		rn.now = now
	}
}

// New creates a runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		registry: steps.Default(),
		logger:   slog.Default(),
		parallel: 1,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.parallel < 1 {
		r.parallel = 1
	}
	return r
}

// RunFiles parses every path and runs the result. Parsing stops at the first
// bad file.
func (r *Runner) RunFiles(ctx context.Context, paths []string) (*Result, error) {
	features := make([]*feature.Feature, 0, len(paths))
	for _, path := range paths {
		f, err := feature.ParseFile(path)
		if err != nil {
			return nil, err
		}
		features = append(features, f)
	}
	return r.Run(ctx, features)
}

// job locates a scenario in the result tree.
type job struct {
	feature  int
	scenario int
	s        feature.Scenario
}

// Run executes the selected scenarios of features. Results keep file order.
// If ctx is cancelled, scenarios that have not started are reported as
// skipped and ctx.Err() is returned alongside the partial result.
func (r *Runner) Run(ctx context.Context, features []*feature.Feature) (*Result, error) {
	res := &Result{StartedAt: r.now()}
	start := time.Now()

	filtered := !r.filter.Empty()
	var jobs []job
	for fi, f := range features {
		fr := FeatureResult{Path: f.Path, Name: f.Name}
		for _, s := range f.Scenarios {
			if filtered && !r.filter.Match(s) {
				continue
			}
			jobs = append(jobs, job{feature: fi, scenario: len(fr.Scenarios), s: s})
			fr.Scenarios = append(fr.Scenarios, ScenarioResult{Name: s.Name, Line: s.Line, Tags: s.Tags})
		}
		res.Features = append(res.Features, fr)
	}

	r.logger.Debug("starting run", "features", len(features), "scenarios", len(jobs), "parallel", r.parallel, "filtered", filtered)

	var g errgroup.Group
	g.SetLimit(r.parallel)
	for _, j := range jobs {
		g.Go(func() error {
			sr := r.RunScenario(ctx, j.s)
			res.Features[j.feature].Scenarios[j.scenario] = sr
			r.notify(sr)
			return nil
		})
	}
	_ = g.Wait()

	for _, fr := range res.Features {
		for _, sr := range fr.Scenarios {
			res.Summary.add(sr)
		}
	}
	res.Duration = time.Since(start)

	r.logger.Info("run finished",
		"scenarios", res.Summary.Scenarios,
		"passed", res.Summary.Passed,
		"failed", res.Summary.Failed,
		"duration", res.Duration,
	)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

// RunScenario runs one scenario against a fresh World. Once a step does not
// pass, the remaining steps are skipped.
func (r *Runner) RunScenario(ctx context.Context, s feature.Scenario) ScenarioResult {
	sr := ScenarioResult{Name: s.Name, Line: s.Line, Tags: s.Tags, Status: StatusSkipped}
	sr.Steps = make([]StepResult, len(s.Steps))
	for i, st := range s.Steps {
		sr.Steps[i] = newStepResult(st)
	}

	if ctx.Err() != nil {
		return sr
	}

	start := time.Now()
	world := steps.NewWorld()
	sr.Status = StatusPassed

	for i, st := range s.Steps {
		stepStart := time.Now()
		status, err := r.runStep(world, st)
		sr.Steps[i].Status = status
		sr.Steps[i].Duration = time.Since(stepStart)
		if err != nil {
			sr.Steps[i].Err = err
			sr.Steps[i].Error = err.Error()
		}
		if status == StatusUndefined {
			sr.Steps[i].Snippet = steps.Snippet(st.Kind, st.Text)
		}
		if status != StatusPassed {
			sr.Status = status
			r.logger.Debug("step did not pass",
				"scenario", s.Name,
				"line", st.Line,
				"status", status,
				"error", err,
			)
			break
		}
	}

	sr.Value = world.Calc.Value()
	sr.Duration = time.Since(start)
	return sr
}

func (r *Runner) runStep(w *steps.World, st feature.Step) (status Status, err error) {
	m, err := r.registry.Match(st.Kind, st.Text)
	switch {
	case errors.Is(err, steps.ErrUndefined):
		return StatusUndefined, err
	case errors.Is(err, steps.ErrAmbiguous):
		return StatusAmbiguous, err
	case err != nil:
		return StatusFailed, err
	}

	defer func() {
		if p := recover(); p != nil {
			status, err = StatusFailed, fmt.Errorf("step panicked: %v", p)
		}
	}()
	if err := m.Run(w); err != nil {
		return StatusFailed, err
	}
	return StatusPassed, nil
}

func (r *Runner) notify(sr ScenarioResult) {
	if r.onScenario == nil {
		return
	}
	r.callbackMu.Lock()
	defer r.callbackMu.Unlock()
	r.onScenario(sr)
}
