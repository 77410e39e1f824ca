package pgprobe

import (
	"errors"
	"fmt"
)

// errDriverUnavailable reports a Prober constructed without a usable
// driver. Probes fail fast on it without attempting a network call.
var errDriverUnavailable = errors.New("postgres driver not available")

// ConfigError reports invalid or unsupported configuration. It is returned
// at construction only; probe operations never return errors.
type ConfigError struct {
	// Key is the configuration key that failed validation.
	Key string

	// Reason describes the failure. It never contains credential material.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pgprobe: invalid %s: %s", e.Key, e.Reason)
}

// SafeError wraps a cause with an error string safe for default production
// logging. The wrapped cause may still contain sensitive detail.
type SafeError struct {
	msg   string
	cause error
}

func (e *SafeError) Error() string { return e.msg }
func (e *SafeError) Unwrap() error { return e.cause }
