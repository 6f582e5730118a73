// Package metrics defines the sinks that observe solver runs. Sinks like
// PromSink and InfluxSink record iteration, run and rolling window events and
// can be combined with NewMultiSink. NewMetricsSink returns a MultiSink
// automatically when several sinks are configured.
package metrics
