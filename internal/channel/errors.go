package channel

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicateScheme is returned when a scheme is registered twice.
	ErrDuplicateScheme = errors.New("scheme already registered")

	// ErrUnknownScheme is returned when no channel is registered for a scheme.
	ErrUnknownScheme = errors.New("unknown scheme")

	// ErrRegistrySealed is returned when registering after startup completed.
	ErrRegistrySealed = errors.New("registry is sealed")

	// ErrMissingRequiredKey indicates a required configuration key is absent.
	ErrMissingRequiredKey = errors.New("missing required key")

	// ErrInvalidValue indicates a configuration value has the wrong type or range.
	ErrInvalidValue = errors.New("invalid value")

	// ErrThrottled indicates the failure guard suppressed a delivery attempt.
	ErrThrottled = errors.New("delivery throttled")

	// ErrTransportFailure indicates the provider call failed.
	ErrTransportFailure = errors.New("transport failure")
)

// ConfigError is returned by a Factory when the configuration is unusable.
type ConfigError struct {
	Key string
	// Err is ErrMissingRequiredKey or ErrInvalidValue, optionally wrapping a cause.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config key %q: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func missingKey(key string) *ConfigError {
	return &ConfigError{Key: key, Err: ErrMissingRequiredKey}
}

func invalidValue(key string, v any, cause error) *ConfigError {
	if cause != nil {
		return &ConfigError{Key: key, Err: fmt.Errorf("%w %v: %w", ErrInvalidValue, v, cause)}
	}
	return &ConfigError{Key: key, Err: fmt.Errorf("%w %v", ErrInvalidValue, v)}
}

// InvalidValue builds a *ConfigError for a value a channel could not accept.
func InvalidValue(key string, v any) error {
	return invalidValue(key, v, nil)
}

// ThrottledError is returned without contacting the provider while the
// channel is cooling down after a failure.
type ThrottledError struct {
	Channel   string
	Remaining time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s: not delivering, recent failure; retry in %s",
		e.Channel, e.Remaining.Round(time.Second))
}

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

// TransportError wraps the underlying provider failure.
type TransportError struct {
	Channel string
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: unable to send message: %v", e.Channel, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransportFailure }
