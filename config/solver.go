package config

import (
	"fmt"

	"github.com/kilianp07/forestplan/core/factory"
	"github.com/kilianp07/forestplan/core/search"
)

// SolverConfig selects the engine and its options. Options are decoded by
// the engine; unknown keys fail there.
type SolverConfig struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options"`
	// Problem is the default problem file for the CLI.
	Problem string `json:"problem"`
}

func (c *SolverConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "sa"
	}
}

// Validate checks the engine name and decodes the options once.
func (c SolverConfig) Validate() error {
	if _, err := search.NewEngine(c.Name, c.Options); err != nil {
		return err
	}
	_, err := search.DecodeConfig(c.Options)
	return err
}

// RollingConfig holds the window dimensions of a rolling solve.
type RollingConfig struct {
	MasterDays     int `json:"master_days"`
	SubproblemDays int `json:"subproblem_days"`
	LockDays       int `json:"lock_days"`
	// Commitments is a CSV of assignments fixed before the solve.
	Commitments string `json:"commitments"`
}

func (c *RollingConfig) SetDefaults() {
	if c.SubproblemDays == 0 {
		c.SubproblemDays = 7
	}
	if c.LockDays == 0 {
		c.LockDays = c.SubproblemDays
	}
}

// Validate checks the dimensions. MasterDays 0 means the whole problem
// horizon and is resolved when the problem is known.
func (c RollingConfig) Validate() error {
	if c.MasterDays < 0 {
		return fmt.Errorf("master_days must not be negative")
	}
	if c.SubproblemDays < 1 || c.LockDays < 1 || c.LockDays > c.SubproblemDays {
		return fmt.Errorf("need 1 <= lock_days <= subproblem_days, got %d and %d", c.LockDays, c.SubproblemDays)
	}
	return nil
}

// TelemetryConfig lists the telemetry stores. Records go to every store.
type TelemetryConfig struct {
	Stores []factory.ModuleConfig `json:"stores"`
}

func (c TelemetryConfig) Validate() error {
	for i, s := range c.Stores {
		if s.Type == "" {
			return fmt.Errorf("stores[%d]: type is required", i)
		}
	}
	return nil
}
