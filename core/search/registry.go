package search

import (
	"context"

	"github.com/kilianp07/forestplan/core/factory"
	"github.com/kilianp07/forestplan/core/model"
	"github.com/kilianp07/forestplan/core/schedule"
)

var engineRegistry = factory.NewRegistry[Engine]()

func init() {
	engineRegistry.MustRegister("sa", func(map[string]any) (Engine, error) { return &Annealing{}, nil })
	engineRegistry.MustRegister("ils", func(map[string]any) (Engine, error) { return &IteratedLocalSearch{}, nil })
	engineRegistry.MustRegister("tabu", func(map[string]any) (Engine, error) { return &Tabu{}, nil })
}

// Register adds an engine factory under name. The factory receives the raw
// solver options.
func Register(name string, f factory.Factory[Engine]) error {
	return engineRegistry.Register(name, f)
}

// Solvers lists the registered engine names.
func Solvers() []string { return engineRegistry.Names() }

// NewEngine returns a fresh engine. Unknown names yield a *ConfigurationError.
func NewEngine(name string, options map[string]any) (Engine, error) {
	if !engineRegistry.Has(name) {
		return nil, invalid("solver", name, "unknown solver")
	}
	return engineRegistry.Create(factory.ModuleConfig{Type: name, Conf: options})
}

// Solve decodes options, builds the starting schedule with any fixed
// assignments and runs the named engine. A fixed assignment breaking a hard
// constraint is returned as a *schedule.ConstraintViolation.
func Solve(ctx context.Context, p *model.Problem, name string, options map[string]any, opts ...Option) (*Result, error) {
	eng, err := NewEngine(name, options)
	if err != nil {
		return nil, err
	}
	cfg, err := DecodeConfig(options)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ro := collect(opts)
	st, err := schedule.New(p, schedule.Options{
		Weights:        cfg.Weights,
		HardSequencing: cfg.HardSequencing,
		Fixed:          ro.fixed,
	})
	if err != nil {
		return nil, err
	}
	return Run(ctx, eng, st, cfg, opts...)
}
