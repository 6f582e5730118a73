package search

import "fmt"

// ConfigurationError reports an unknown or invalid solver option, or an
// unknown solver name.
type ConfigurationError struct {
	Key    string
	Value  any
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Key != "" && e.Value != nil:
		return fmt.Sprintf("configuration: %s=%v: %s", e.Key, e.Value, e.Reason)
	case e.Key != "":
		return fmt.Sprintf("configuration: %s: %s", e.Key, e.Reason)
	default:
		return "configuration: " + e.Reason
	}
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func invalid(key string, value any, reason string) error {
	return &ConfigurationError{Key: key, Value: value, Reason: reason}
}
