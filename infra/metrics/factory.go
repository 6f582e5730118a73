package metrics

import (
	"github.com/kilianp07/forestplan/core/factory"
	coremetrics "github.com/kilianp07/forestplan/core/metrics"
)

// InfluxConfig is the conf block of an "influx" sink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

func newPrometheus(conf map[string]any) (coremetrics.MetricsSink, error) {
	// no options yet; reject typos rather than ignore them
	if err := factory.DecodeStrict(conf, &struct{}{}); err != nil {
		return nil, err
	}
	return NewPromSink()
}

func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.DecodeStrict(conf, &c); err != nil {
		return nil, err
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func init() {
	for name, f := range map[string]factory.Factory[coremetrics.MetricsSink]{
		"nop":        func(map[string]any) (coremetrics.MetricsSink, error) { return coremetrics.NopSink{}, nil },
		"prometheus": newPrometheus,
		"influx":     newInflux,
	} {
		_ = coremetrics.RegisterMetricsSink(name, f)
	}
}
