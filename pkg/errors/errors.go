// Package errors defines the typed error taxonomy shared between the gateway
// adapter, the deposit controller and the HTTP layer.
package errors

import (
	"errors"
	"fmt"
)

// ValidationError signals input that fails local validation. It is raised
// before any network call is made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// UpstreamError signals a non-2xx response or a success:false body from the
// payment gateway. Message carries the upstream reason when one was provided.
type UpstreamError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway error [%d] on %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("gateway error [%d] on %s", e.StatusCode, e.Endpoint)
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(statusCode int, endpoint, message string) *UpstreamError {
	return &UpstreamError{StatusCode: statusCode, Endpoint: endpoint, Message: message}
}

// NetworkError signals a request that could not complete at all
// (DNS, dial, timeout, cancelled context).
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a new network error
func NewNetworkError(endpoint string, err error) *NetworkError {
	return &NetworkError{Endpoint: endpoint, Err: err}
}

// StorageError signals a ledger read/write failure. Callers treat it as
// non-fatal and degrade to ephemeral history.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("ledger %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsUpstream reports whether err is (or wraps) an UpstreamError
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}

// IsNetwork reports whether err is (or wraps) a NetworkError
func IsNetwork(err error) bool {
	var target *NetworkError
	return errors.As(err, &target)
}

// IsStorage reports whether err is (or wraps) a StorageError
func IsStorage(err error) bool {
	var target *StorageError
	return errors.As(err, &target)
}
