package agenda

import "fmt"

// ConfigError reports invalid scheduling configuration: an unknown timezone,
// inverted working hours, or a non-positive minimum block size. It indicates
// systemic misconfiguration and is fatal for the whole run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("agenda config: %s: %s", e.Field, e.Reason)
}

// ParseError reports a date/time value that was present in the upstream feed
// but could not be parsed as any recognized shape. Unlike per-event noise
// (missing fields, degenerate intervals), an unparseable value suggests the
// feed format changed and aborts the run.
type ParseError struct {
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agenda parse: %q: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("agenda parse: %q: unrecognized date/time value", e.Value)
}

func (e *ParseError) Unwrap() error { return e.Err }
