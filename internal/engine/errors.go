package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownScheme is the root cause of every ConfigError.
	ErrUnknownScheme = errors.New("unknown algorithm scheme (A/B/C)")
	// ErrInvalidWorkload is returned when the task list cannot be simulated.
	ErrInvalidWorkload = errors.New("invalid workload")
	// ErrAlreadyRun is returned when Run is called twice on one Engine.
	ErrAlreadyRun = errors.New("engine already run")
)

// ConfigError reports an unrecognized scheme identifier. It aborts the whole
// run for that scheme; no partial result is produced.
type ConfigError struct {
	Scheme string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: unknown scheme %q (want A, B or C)", e.Scheme)
}

func (e *ConfigError) Unwrap() error {
	return ErrUnknownScheme
}

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
