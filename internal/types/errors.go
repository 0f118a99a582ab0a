package types

import (
	"errors"
	"fmt"
)

// Fault kinds. Every wrapper below matches its kind with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration fault")
	ErrAuthentication    = errors.New("authentication fault")
	ErrNavigationTimeout = errors.New("navigation timeout")
	ErrExtraction        = errors.New("extraction fault")
	ErrPersistence       = errors.New("persistence fault")
)

// ConfigError reports a missing or invalid input option.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// NewConfigError builds a ConfigError from a format string.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Err: fmt.Errorf(format, args...)}
}

// AuthError wraps failures of the login flow.
type AuthError struct {
	Step string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed at %s: %v", e.Step, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func (e *AuthError) Is(target error) bool { return target == ErrAuthentication }

// NavigationError wraps an element or view that did not show up in time.
type NavigationError struct {
	Op     string
	Target string
	Err    error
}

func (e *NavigationError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

func (e *NavigationError) Is(target error) bool { return target == ErrNavigationTimeout }

// ExtractionError wraps a failure to read a single card.
type ExtractionError struct {
	Index int
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("card %d: %v", e.Index, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// StorageError wraps errors that occur while persisting a batch.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrPersistence }
