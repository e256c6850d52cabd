package domain

import (
	"errors"
	"fmt"
)

// RemoteServiceError reports a failed call to Opsgenie: a non-success status,
// an undecodable body, or a transport failure that outlived the retry budget.
type RemoteServiceError struct {
	Op         string // what was being fetched, e.g. "list alerts"
	StatusCode int    // 0 when no response was received
	Body       string
	Err        error
}

func (e *RemoteServiceError) Error() string {
	switch {
	case e.StatusCode >= 300 && e.Body != "":
		return fmt.Sprintf("%s: opsgenie returned %d: %s", e.Op, e.StatusCode, e.Body)
	case e.StatusCode >= 300:
		return fmt.Sprintf("%s: opsgenie returned %d", e.Op, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op + ": request failed"
	}
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth another attempt.
func (e *RemoteServiceError) Retryable() bool {
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// ConfigurationError is a missing or malformed setting. It is always raised
// before any network call.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Key, e.Reason)
}

func NewConfigurationError(key, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError means a named resource had no match. Callers report it and
// produce an empty result instead of failing.
type NotFoundError struct {
	Kind string
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
