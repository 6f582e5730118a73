package rolling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/forestplan/core/events"
	"github.com/kilianp07/forestplan/core/logger"
	"github.com/kilianp07/forestplan/core/metrics"
	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/schedule"
	"github.com/kilianp07/forestplan/core/search"
	"github.com/kilianp07/forestplan/core/telemetry"
	"github.com/kilianp07/forestplan/internal/eventbus"
)

// Request selects the windowing and the engine of a rolling solve.
type Request struct {
	MasterDays     int
	SubproblemDays int
	LockDays       int
	Solver         string
	Options        map[string]any
}

// Orchestrator solves the windows of a Plan one after the other.
type Orchestrator struct {
	log         logger.Logger
	bus         eventbus.EventBus
	store       telemetry.Store
	sink        metrics.MetricsSink
	commitments []model.Assignment
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator and engine logger.
func WithLogger(l logger.Logger) Option { return func(o *Orchestrator) { o.log = l } }

// WithEventBus publishes window events on bus.
func WithEventBus(bus eventbus.EventBus) Option { return func(o *Orchestrator) { o.bus = bus } }

// WithTelemetry records iterations and window summaries in s.
func WithTelemetry(s telemetry.Store) Option { return func(o *Orchestrator) { o.store = s } }

// WithMetrics forwards engine metrics to sink.
func WithMetrics(sink metrics.MetricsSink) Option { return func(o *Orchestrator) { o.sink = sink } }

// WithCommitments adds assignments agreed before the solve. Each one is
// fixed in the window that contains its day.
func WithCommitments(a []model.Assignment) Option {
	return func(o *Orchestrator) { o.commitments = append(o.commitments, a...) }
}

// New returns an Orchestrator.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	o.log = logger.OrNop(o.log)
	if o.store == nil {
		o.store = telemetry.NopStore{}
	}
	if o.sink == nil {
		o.sink = metrics.NopSink{}
	}
	return o
}

// SolveRolling runs a rolling solve with a default orchestrator.
func SolveRolling(ctx context.Context, p *model.Problem, master, sub, lock int, solver string, options map[string]any, opts ...Option) (*Result, error) {
	return New(opts...).Solve(ctx, p, Request{
		MasterDays:     master,
		SubproblemDays: sub,
		LockDays:       lock,
		Solver:         solver,
		Options:        options,
	})
}

// fold is the state threaded from one window to the next.
type fold struct {
	locked  []model.Assignment
	windows []WindowDiagnostics
	aborted bool
}

// Solve plans the windows and solves them in order. Configuration errors
// are reported before any window runs. A window whose fixed input is
// infeasible yields an *InfeasibleWindowError. Cancellation stops after the
// current window and returns what was locked so far, tagged ABORTED.
func (o *Orchestrator) Solve(ctx context.Context, p *model.Problem, req Request) (*Result, error) {
	start := time.Now()
	if _, err := search.NewEngine(req.Solver, req.Options); err != nil {
		return nil, err
	}
	cfg, err := search.DecodeConfig(req.Options)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if req.MasterDays > p.Days() {
		return nil, &search.ConfigurationError{Key: "master_days", Value: req.MasterDays, Reason: fmt.Sprintf("exceeds the %d day horizon", p.Days())}
	}
	plan, err := BuildPlan(req.MasterDays, req.SubproblemDays, req.LockDays)
	if err != nil {
		return nil, err
	}
	plan = plan.Offset(p.FirstDay)
	runID := uuid.NewString()
	o.log.Infof("rolling %s: %d windows of %d days, locking %d (solver %s)",
		runID, len(plan.Windows), req.SubproblemDays, req.LockDays, req.Solver)

	var acc fold
	for _, w := range plan.Windows {
		if ctx.Err() != nil {
			acc.aborted = true
			break
		}
		if err := o.window(ctx, p, req.Solver, cfg, runID, w, &acc); err != nil {
			return nil, err
		}
		if acc.aborted {
			break
		}
	}

	res := &Result{
		LockedAssignments: acc.locked,
		Windows:           acc.windows,
		Metadata: Metadata{
			RunID:          runID,
			Solver:         req.Solver,
			MasterDays:     req.MasterDays,
			SubproblemDays: req.SubproblemDays,
			LockDays:       req.LockDays,
			Status:         search.StatusTerminated,
			Elapsed:        time.Since(start),
		},
	}
	if acc.aborted {
		res.Metadata.Status = search.StatusAborted
	}
	res.Metadata.WindowObjectiveMean, res.Metadata.WindowObjectiveStdDev = objectiveStats(acc.windows)
	full, err := schedule.New(p, schedule.Options{Weights: cfg.Weights, HardSequencing: cfg.HardSequencing, Fixed: acc.locked})
	if err != nil {
		return nil, fmt.Errorf("score locked assignments: %w", err)
	}
	res.Objective = full.Objective()
	o.log.Infof("rolling %s: %s, %d assignments locked, objective %.3f",
		runID, res.Metadata.Status, len(acc.locked), res.Objective)
	return res, nil
}

// window solves w and appends its locks to acc.
func (o *Orchestrator) window(ctx context.Context, p *model.Problem, solver string, cfg search.Config, runID string, w Window, acc *fold) error {
	started := time.Now()
	wcfg := cfg
	wcfg.Seed = cfg.Seed + uint64(w.Index)
	fixed := o.fixedInput(acc.locked, w)
	sub := p.Restrict(w.Start, w.End)
	res, err := search.Solve(ctx, sub, solver, wcfg.Map(),
		search.WithFixed(fixed),
		search.WithWindow(w.Index),
		search.WithRunID(fmt.Sprintf("%s-w%d", runID, w.Index)),
		search.WithLogger(o.log),
		search.WithTelemetry(o.store),
		search.WithMetrics(o.sink),
	)
	if err != nil {
		return o.failed(runID, solver, w, started, err)
	}
	base, err := schedule.New(sub, schedule.Options{Weights: cfg.Weights, HardSequencing: cfg.HardSequencing, Fixed: fixed})
	if err != nil {
		return o.failed(runID, solver, w, started, err)
	}

	locked := 0
	for _, a := range res.Schedule {
		if a.Day >= w.Start && a.Day <= w.LockEnd {
			acc.locked = append(acc.locked, a)
			locked++
		}
	}
	d := WindowDiagnostics{
		Window:             w,
		RunID:              res.RunID,
		Status:             res.Status,
		Objective:          res.Objective - base.Objective(),
		Cumulative:         res.Objective,
		MobilisationEvents: res.MobilisationEvents,
		Iterations:         res.Iterations,
		Accepted:           res.Accepted,
		Locked:             locked,
		Seed:               res.Seed,
		Elapsed:            time.Since(started),
	}
	acc.windows = append(acc.windows, d)
	acc.aborted = res.Status == search.StatusAborted
	o.log.Infof("rolling %s: %s %s, objective %.3f, locked %d", runID, w, res.Status, d.Objective, locked)

	o.record(ctx, runID, solver, d)
	o.publish(events.WindowSolved{
		RunID:     runID,
		Index:     w.Index,
		Start:     w.Start,
		End:       w.End,
		LockEnd:   w.LockEnd,
		Solver:    solver,
		Status:    res.Status.String(),
		Objective: d.Objective,
		Locked:    locked,
		Duration:  d.Elapsed,
	})
	return nil
}

// fixedInput is every earlier lock plus the commitments falling inside w.
func (o *Orchestrator) fixedInput(locked []model.Assignment, w Window) []model.Assignment {
	fixed := slices.Clone(locked)
	for _, a := range o.commitments {
		if a.Day >= w.Start && a.Day <= w.End {
			fixed = append(fixed, a)
		}
	}
	return fixed
}

func (o *Orchestrator) failed(runID, solver string, w Window, started time.Time, err error) error {
	ev := events.WindowFailed{RunID: runID, Index: w.Index, Solver: solver, Err: err, Duration: time.Since(started)}
	var cv *schedule.ConstraintViolation
	if !errors.As(err, &cv) {
		o.publish(ev)
		return fmt.Errorf("%s: %w", w, err)
	}
	ev.Constraint, ev.Block = cv.Constraint, cv.Block
	o.publish(ev)
	o.log.Errorf("rolling %s: %s infeasible: %v", runID, w, cv)
	return &InfeasibleWindowError{Window: w.Index, Constraint: cv.Constraint, Block: cv.Block, Err: err}
}

func (o *Orchestrator) record(ctx context.Context, runID, solver string, d WindowDiagnostics) {
	rec := telemetry.Record{
		Timestamp:      time.Now(),
		Kind:           telemetry.KindWindow,
		RunID:          runID,
		Solver:         solver,
		WindowIndex:    telemetry.Window(d.Index),
		Iteration:      d.Iterations,
		Objective:      d.Objective,
		BestObjective:  d.Objective,
		Accepted:       d.Accepted > 0,
		ElapsedSeconds: d.Elapsed.Seconds(),
		Status:         d.Status.String(),
	}
	if err := o.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		o.log.Warnf("telemetry: window %d: %v", d.Index, err)
	}
}

func (o *Orchestrator) publish(ev eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func objectiveStats(ws []WindowDiagnostics) (mean, std float64) {
	if len(ws) == 0 {
		return 0, 0
	}
	xs := make([]float64, len(ws))
	for i, w := range ws {
		xs[i] = w.Objective
	}
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}
