package metrics_test

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/forestplan/core/factory"
	metrics "github.com/kilianp07/forestplan/core/metrics"
	_ "github.com/kilianp07/forestplan/infra/metrics"
)

/*
TestMetricsFactory_Builtins verifies the sinks registered by infra/metrics.

	Cases:
	- builtin nop sink
	- unknown type returns error
	- influx and prometheus options are decoded strictly
*/
func TestMetricsFactory_Builtins(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	if err != nil {
		t.Fatalf("create nop: %v", err)
	}
	if s == nil {
		t.Fatal("expected sink instance")
	}
	if _, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "influx", Conf: map[string]any{"bukket": "x"}}})
	if err == nil {
		t.Fatal("expected error for misspelled influx option")
	}
	if _, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "prometheus", Conf: map[string]any{"port": 9100}}}); err == nil {
		t.Fatal("expected error for unknown prometheus option")
	}
	types := strings.Join(metrics.SinkTypes(), ",")
	for _, want := range []string{"nop", "prometheus", "influx"} {
		if !strings.Contains(types, want) {
			t.Fatalf("sink %q not registered: %s", want, types)
		}
	}
}

// TestNewMetricsSink_Multi covers zero and several configs.
func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	if err != nil {
		t.Fatalf("create multi: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
}

func TestMetricsConfigDecodeYAML(t *testing.T) {
	data := `listen: ":9100"
sinks:
  - type: nop
  - type: nop
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	if cfg.Listen != ":9100" {
		t.Fatalf("listen = %q", cfg.Listen)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(*metrics.MultiSink); !ok {
		t.Fatalf("expected MultiSink")
	}
}

func TestMetricsConfigDecodeJSON_Invalid(t *testing.T) {
	data := `{"sinks":[{"type":"missing"}]}`
	var cfg metrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if _, err := metrics.NewMetricsSink(cfg.Sinks); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
