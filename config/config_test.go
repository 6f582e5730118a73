package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/forestplan/core/search"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `solver:
  name: tabu
  problem: forest.yaml
  options:
    seed: 7
    iterations: 500
    tenure: 5
rolling:
  master_days: 28
  subproblem_days: 14
  lock_days: 7
telemetry:
  stores:
    - type: jsonl
      conf:
        path: run.jsonl
metrics:
  listen: ":9100"
  sinks:
    - type: prometheus
logging:
  level: debug
sentry:
  dsn: ""
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"solver.name", cfg.Solver.Name, "tabu"},
		{"solver.problem", cfg.Solver.Problem, "forest.yaml"},
		{"solver.options.tenure", cfg.Solver.Options["tenure"], 5},
		{"rolling.master_days", cfg.Rolling.MasterDays, 28},
		{"rolling.lock_days", cfg.Rolling.LockDays, 7},
		{"telemetry.stores", cfg.Telemetry.Stores[0].Type, "jsonl"},
		{"telemetry.path", cfg.Telemetry.Stores[0].Conf["path"], "run.jsonl"},
		{"metrics.listen", cfg.Metrics.Listen, ":9100"},
		{"metrics.sinks", cfg.Metrics.Sinks[0].Type, "prometheus"},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		assert.EqualValues(t, c.want, c.got, c.name)
	}

	sc, err := search.DecodeConfig(cfg.Solver.Options)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sc.Seed)
	assert.Equal(t, 500, sc.Iterations)
}

func TestLoadJSONDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "config.json", `{"rolling": {"subproblem_days": 10}}`))
	require.NoError(t, err)
	assert.Equal(t, "sa", cfg.Solver.Name)
	assert.Equal(t, 10, cfg.Rolling.LockDays)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FP_SOLVER__NAME", "ils")
	t.Setenv("FP_SOLVER__OPTIONS__ITERATIONS", "42")
	t.Setenv("FP_LOGGING__LEVEL", "warn")

	cfg, err := Load(writeConfig(t, "config.yaml", "solver:\n  name: sa\n"))
	require.NoError(t, err)
	assert.Equal(t, "ils", cfg.Solver.Name)
	assert.Equal(t, "warn", cfg.Logging.Level)

	sc, err := search.DecodeConfig(cfg.Solver.Options)
	require.NoError(t, err)
	assert.Equal(t, 42, sc.Iterations)
}

func TestLoadRejectsInvalidSections(t *testing.T) {
	cases := []struct {
		name string
		data string
		msg  string
	}{
		{"unknown solver", "solver:\n  name: genetic\n", "solver:"},
		{"unknown option", "solver:\n  options:\n    temperature: 3\n", "solver:"},
		{"lock above sub", "rolling:\n  subproblem_days: 3\n  lock_days: 5\n", "rolling:"},
		{"store without type", "telemetry:\n  stores:\n    - conf: {}\n", "telemetry:"},
		{"bad level", "logging:\n  level: loud\n", "logging:"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, "config.yaml", tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}

	_, err := Load(writeConfig(t, "config.yaml", "solver:\n  name: genetic\n"))
	var ce *search.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", "x = 1"))
	assert.ErrorContains(t, err, "unsupported config format")
}
