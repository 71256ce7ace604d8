package ctx

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned when a strategy name is not registered.
var ErrUnknownStrategy = errors.New("unknown strategy")

// ConfigurationError reports an invalid budget or strategy configuration.
// Builds abort immediately on configuration errors; no partial result is
// returned.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("context configuration: %s", e.Reason)
}

func configErrorf(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// CapacityExceededError reports a pinned item whose token cost alone exceeds
// the entire available budget. The item is recorded in the plan's omitted
// list and the error carries the offending identity so callers can surface
// it; the rest of the plan remains valid.
type CapacityExceededError struct {
	Identity  string
	Cost      int
	Available int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("pinned item %q costs %d tokens, exceeding the available budget of %d", e.Identity, e.Cost, e.Available)
}
