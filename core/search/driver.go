package search

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/forestplan/core/metrics"
	"github.com/kilianp07/forestplan/core/schedule"
	"github.com/kilianp07/forestplan/core/telemetry"
)

// Random streams derived from the seed. The generator and the engine never
// share a stream.
const (
	generatorStream = 1
	engineStream    = 2
)

// drainTimeout bounds how long a finished run waits for queued telemetry.
const drainTimeout = 10 * time.Second

// driver owns one run: the lifecycle, the budget checks and the reporting.
type driver struct {
	eng   Engine
	rt    *Runtime
	ro    runOptions
	runID string
	start time.Time
	lc    lifecycle
	queue *telemetry.Queue

	dropWarned      bool
	drained         bool
	telemetryFailed atomic.Bool
}

// Run drives eng over st until it converges, the budget is spent or ctx is
// canceled. st is owned by the run and must not be used concurrently.
func Run(ctx context.Context, eng Engine, st *schedule.State, cfg Config, opts ...Option) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ro := collect(opts)
	d := &driver{
		eng:   eng,
		ro:    ro,
		runID: ro.runID,
		rt: &Runtime{
			State:  st,
			Gen:    schedule.NewGenerator(rand.New(rand.NewPCG(cfg.Seed, generatorStream))),
			Rand:   rand.New(rand.NewPCG(cfg.Seed, engineStream)),
			Eval:   NewBatchEvaluator(cfg.Workers),
			Config: cfg,
			Log:    ro.log,
		},
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	return d.run(ctx)
}

func (d *driver) run(ctx context.Context) (*Result, error) {
	d.start = time.Now()
	d.queue = telemetry.NewQueue(d.ro.store, d.ro.queueSize, d.storeFailed)
	defer d.drain()
	cfg := d.rt.Config
	if cfg.Construct {
		n := schedule.Construct(d.rt.State)
		d.ro.log.Debugf("%s: constructed %d assignments, objective %.3f", d.eng.Name(), n, d.rt.State.Objective())
	}
	if err := d.eng.Init(d.rt); err != nil {
		return nil, err
	}
	var deadline time.Time
	if limit := cfg.TimeLimit(); limit > 0 {
		deadline = d.start.Add(limit)
	}
	if err := d.lc.to(StatusRunning); err != nil {
		return nil, err
	}
	d.ro.log.Infof("%s: run %s started (seed %d, objective %.3f)", d.eng.Name(), d.runID, cfg.Seed, d.rt.State.Objective())

	iterations, accepted := 0, 0
	cause := StatusBudgetExhausted
	for it := 0; ; it++ {
		if ctx.Err() != nil {
			cause = StatusAborted
			break
		}
		if cfg.Iterations > 0 && it >= cfg.Iterations {
			break
		}
		if !deadline.IsZero() && !time.Now().Before(deadline) {
			break
		}
		step, err := d.eng.Step(ctx, it)
		if err != nil {
			return nil, err
		}
		iterations++
		if step.Accepted {
			accepted++
		}
		d.iteration(it, step)
		if d.eng.Status() == StatusConverged {
			cause = StatusConverged
			break
		}
	}
	if err := d.lc.to(cause); err != nil {
		return nil, err
	}
	res := d.result(iterations, accepted)
	d.summary(res)
	if err := d.lc.to(StatusTerminated); err != nil {
		return nil, err
	}
	d.ro.log.Infof("%s: run %s %s after %d iterations, best %.3f", d.eng.Name(), d.runID, res.Status, iterations, res.Objective)
	return res, nil
}

func (d *driver) result(iterations, accepted int) *Result {
	best := d.eng.Best()
	if best == nil {
		best = d.rt.State
	}
	return &Result{
		RunID:              d.runID,
		Solver:             d.eng.Name(),
		Status:             d.lc.cause,
		Schedule:           best.Assignments(),
		Objective:          best.Objective(),
		Breakdown:          schedule.Evaluate(best),
		MobilisationEvents: best.Events(),
		Iterations:         iterations,
		Accepted:           accepted,
		Elapsed:            time.Since(d.start),
		Seed:               d.rt.Config.Seed,
	}
}

func (d *driver) bestObjective() float64 {
	if b := d.eng.Best(); b != nil {
		return b.Objective()
	}
	return d.rt.State.Objective()
}

// iteration reports one step. Reporting failures are logged, never fatal.
func (d *driver) iteration(it int, step Step) {
	now := time.Now()
	best := d.bestObjective()
	rec := telemetry.Record{
		Timestamp:      now,
		Kind:           telemetry.KindIteration,
		RunID:          d.runID,
		Solver:         d.eng.Name(),
		Iteration:      it,
		Objective:      d.rt.State.Objective(),
		BestObjective:  best,
		Accepted:       step.Accepted,
		ElapsedSeconds: now.Sub(d.start).Seconds(),
		Temperature:    step.Temperature,
	}
	if d.ro.window >= 0 {
		rec.WindowIndex = telemetry.Window(d.ro.window)
	}
	if step.Proposed {
		rec.Move = step.Move.Signature()
	}
	d.append(rec)
	if err := d.ro.sink.RecordIteration(metrics.IterationEvent{
		RunID:     d.runID,
		Solver:    d.eng.Name(),
		Window:    d.ro.window,
		Iteration: it,
		Accepted:  step.Accepted,
		Objective: rec.Objective,
		Best:      best,
		Time:      now,
	}); err != nil {
		d.ro.log.Debugf("metrics: %v", err)
	}
}

func (d *driver) summary(res *Result) {
	now := time.Now()
	rec := telemetry.Record{
		Timestamp:      now,
		Kind:           telemetry.KindRun,
		RunID:          d.runID,
		Solver:         res.Solver,
		Iteration:      res.Iterations,
		Objective:      res.Objective,
		BestObjective:  res.Objective,
		Accepted:       res.Accepted > 0,
		ElapsedSeconds: res.Elapsed.Seconds(),
		Status:         res.Status.String(),
	}
	if d.ro.window >= 0 {
		rec.WindowIndex = telemetry.Window(d.ro.window)
	}
	// written after the queue drains so the summary is never dropped
	d.drain()
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := d.ro.store.Append(ctx, rec); err != nil {
		d.storeFailed(err)
	}
	if err := d.ro.sink.RecordRun(metrics.RunEvent{
		RunID:      d.runID,
		Solver:     res.Solver,
		Status:     res.Status.String(),
		Window:     d.ro.window,
		Objective:  res.Objective,
		Events:     res.MobilisationEvents,
		Iterations: res.Iterations,
		Accepted:   res.Accepted,
		Duration:   res.Elapsed,
		Time:       now,
	}); err != nil {
		d.ro.log.Warnf("metrics: %v", err)
	}
}

// append hands rec to the telemetry queue; the search loop never waits on
// the store.
func (d *driver) append(rec telemetry.Record) {
	if err := d.queue.Append(context.Background(), rec); err != nil && !d.dropWarned {
		d.dropWarned = true
		d.ro.log.Warnf("%v, store is falling behind", err)
	}
}

// storeFailed may run on the queue writer goroutine.
func (d *driver) storeFailed(err error) {
	if d.telemetryFailed.CompareAndSwap(false, true) {
		d.ro.log.Warnf("telemetry append failed, further errors suppressed: %v", err)
	}
}

// drain flushes queued iteration records, giving up after drainTimeout.
func (d *driver) drain() {
	if d.drained {
		return
	}
	d.drained = true
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	d.queue.Drain(ctx)
	if n, f := d.queue.Dropped(), d.queue.Failed(); n > 0 || f > 0 {
		d.ro.log.Warnf("%s: run %s telemetry: %d records dropped, %d failed", d.eng.Name(), d.runID, n, f)
	}
}
