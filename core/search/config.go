package search

import (
	"math"
	"time"

	"github.com/kilianp07/forestplan/core/factory"
	"github.com/kilianp07/forestplan/core/schedule"
)

// Config holds the options shared by every engine. Engine specific keys are
// ignored by the engines that do not use them.
type Config struct {
	Seed              uint64  `json:"seed"`
	Iterations        int     `json:"iterations"`
	TimeLimitSeconds  float64 `json:"time_limit_seconds"`
	BatchSize         int     `json:"batch_size"`
	Workers           int     `json:"workers"`
	NeighbourhoodSize int     `json:"neighbourhood_size"` // 0 enumerates the full neighbourhood
	Construct         bool    `json:"construct"`
	HardSequencing    bool    `json:"hard_sequencing"`

	// simulated annealing
	InitialTemperature float64 `json:"initial_temperature"` // 0 calibrates from sampled moves
	CoolingRate        float64 `json:"cooling_rate"`
	MinTemperature     float64 `json:"min_temperature"`

	// tabu search
	Tenure     int `json:"tenure"`
	StallLimit int `json:"stall_limit"`

	// iterated local search
	PerturbationStrength int     `json:"perturbation_strength"`
	LocalSearchCap       int     `json:"local_search_cap"`
	AcceptanceSlack      float64 `json:"acceptance_slack"`

	Weights schedule.Weights `json:"weights"`
}

// DefaultConfig returns the options used for keys the caller leaves out.
func DefaultConfig() Config {
	return Config{
		Seed:                 1,
		Iterations:           1000,
		BatchSize:            1,
		Workers:              1,
		NeighbourhoodSize:    32,
		Construct:            true,
		CoolingRate:          0.995,
		MinTemperature:       1e-3,
		Tenure:               7,
		StallLimit:           200,
		PerturbationStrength: 3,
		LocalSearchCap:       50,
		Weights:              schedule.DefaultWeights(),
	}
}

// DecodeConfig overlays options on DefaultConfig and validates the result.
// Unknown keys are rejected.
func DecodeConfig(options map[string]any) (Config, error) {
	cfg := DefaultConfig()
	if err := factory.DecodeStrict(options, &cfg); err != nil {
		return Config{}, &ConfigurationError{Reason: err.Error(), Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid option as a *ConfigurationError.
//
//gocyclo:ignore
func (c Config) Validate() error {
	switch {
	case c.Iterations < 0:
		return invalid("iterations", c.Iterations, "must not be negative")
	case c.TimeLimitSeconds < 0 || math.IsNaN(c.TimeLimitSeconds):
		return invalid("time_limit_seconds", c.TimeLimitSeconds, "must not be negative")
	case c.Iterations == 0 && c.TimeLimitSeconds == 0:
		return invalid("iterations", c.Iterations, "non-positive iteration budget without a time limit")
	case c.BatchSize < 1:
		return invalid("batch_size", c.BatchSize, "must be at least 1")
	case c.Workers < 1:
		return invalid("workers", c.Workers, "must be at least 1")
	case c.NeighbourhoodSize < 0:
		return invalid("neighbourhood_size", c.NeighbourhoodSize, "must not be negative")
	case c.InitialTemperature < 0:
		return invalid("initial_temperature", c.InitialTemperature, "must not be negative")
	case c.CoolingRate <= 0 || c.CoolingRate >= 1:
		return invalid("cooling_rate", c.CoolingRate, "must be in (0, 1)")
	case c.MinTemperature < 0:
		return invalid("min_temperature", c.MinTemperature, "must not be negative")
	case c.Tenure < 0:
		return invalid("tenure", c.Tenure, "must not be negative")
	case c.StallLimit < 0:
		return invalid("stall_limit", c.StallLimit, "must not be negative")
	case c.PerturbationStrength < 0:
		return invalid("perturbation_strength", c.PerturbationStrength, "must not be negative")
	case c.LocalSearchCap < 0:
		return invalid("local_search_cap", c.LocalSearchCap, "must not be negative")
	case c.AcceptanceSlack < 0:
		return invalid("acceptance_slack", c.AcceptanceSlack, "must not be negative")
	}
	return validateWeights(c.Weights)
}

func validateWeights(w schedule.Weights) error {
	for _, f := range []struct {
		key string
		v   float64
	}{
		{"weights.production", w.Production},
		{"weights.mobilisation", w.Mobilisation},
		{"weights.blackout", w.Blackout},
		{"weights.sequencing", w.Sequencing},
		{"weights.landing", w.Landing},
	} {
		if f.v < 0 || math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid(f.key, f.v, "must be a finite non-negative number")
		}
	}
	return nil
}

// TimeLimit returns the wall clock budget, zero meaning none.
func (c Config) TimeLimit() time.Duration {
	return time.Duration(c.TimeLimitSeconds * float64(time.Second))
}

// Map renders c as an options map accepted by DecodeConfig.
func (c Config) Map() map[string]any {
	return map[string]any{
		"seed":                  c.Seed,
		"iterations":            c.Iterations,
		"time_limit_seconds":    c.TimeLimitSeconds,
		"batch_size":            c.BatchSize,
		"workers":               c.Workers,
		"neighbourhood_size":    c.NeighbourhoodSize,
		"construct":             c.Construct,
		"hard_sequencing":       c.HardSequencing,
		"initial_temperature":   c.InitialTemperature,
		"cooling_rate":          c.CoolingRate,
		"min_temperature":       c.MinTemperature,
		"tenure":                c.Tenure,
		"stall_limit":           c.StallLimit,
		"perturbation_strength": c.PerturbationStrength,
		"local_search_cap":      c.LocalSearchCap,
		"acceptance_slack":      c.AcceptanceSlack,
		"weights": map[string]any{
			"production":   c.Weights.Production,
			"mobilisation": c.Weights.Mobilisation,
			"blackout":     c.Weights.Blackout,
			"sequencing":   c.Weights.Sequencing,
			"landing":      c.Weights.Landing,
		},
	}
}
