package metrics

import "errors"

// MultiSink forwards every event to each wrapped sink.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink returns a MultiSink over the given sinks.
func NewMultiSink(s ...MetricsSink) *MultiSink { return &MultiSink{Sinks: s} }

func (m *MultiSink) RecordIteration(ev IterationEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordIteration(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordRun(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordWindow forwards to the sinks that implement WindowRecorder.
func (m *MultiSink) RecordWindow(ev WindowEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if r, ok := s.(WindowRecorder); ok {
			if err := r.RecordWindow(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
