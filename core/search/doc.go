// Package search runs the acceptance engines (simulated annealing, iterated
// local search and tabu search) over a schedule.State.
//
// Engines are registered by name and share one driver that owns the run
// lifecycle, the iteration and time budget, best-so-far tracking, telemetry
// and metrics. Candidate moves can be scored concurrently by a
// BatchEvaluator; the selected move sequence does not depend on the worker
// count.
package search
