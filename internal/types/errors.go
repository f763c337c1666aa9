package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for Sentinel errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Database error codes
const (
	DB_OPEN_FAILED      ErrorCode = "DB_OPEN_FAILED"
	DB_MIGRATION_FAILED ErrorCode = "DB_MIGRATION_FAILED"
	DB_QUERY_FAILED     ErrorCode = "DB_QUERY_FAILED"
)

// Mission error codes
const (
	MISSION_NOT_FOUND      ErrorCode = "MISSION_NOT_FOUND"
	MISSION_INVALID        ErrorCode = "MISSION_INVALID"
	MISSION_ALREADY_ACTIVE ErrorCode = "MISSION_ALREADY_ACTIVE"
	MISSION_TERMINAL       ErrorCode = "MISSION_TERMINAL"
)

// Engine error codes
const (
	ENGINE_STAGE_FAILED     ErrorCode = "ENGINE_STAGE_FAILED"
	ENGINE_STAGE_PANIC      ErrorCode = "ENGINE_STAGE_PANIC"
	ENGINE_INVALID_INPUT    ErrorCode = "ENGINE_INVALID_INPUT"
	ENGINE_PIPELINE_INVALID ErrorCode = "ENGINE_PIPELINE_INVALID"
)

// Event bus error codes
const (
	EVENTBUS_CLOSED          ErrorCode = "EVENTBUS_CLOSED"
	EVENTBUS_DELIVERY_FAILED ErrorCode = "EVENTBUS_DELIVERY_FAILED"
)

// SentinelError is a structured error with a code, message, and optional
// cause. Retryable marks failures the engine may heal from.
type SentinelError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *SentinelError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/errors.As chains.
func (e *SentinelError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so sentinel errors compare by taxonomy,
// not by message text.
func (e *SentinelError) Is(target error) bool {
	var serr *SentinelError
	if errors.As(target, &serr) {
		return e.Code == serr.Code
	}
	return false
}

// NewError creates a non-retryable SentinelError.
func NewError(code ErrorCode, message string) *SentinelError {
	return &SentinelError{Code: code, Message: message}
}

// NewRetryableError creates a retryable SentinelError. Use for transient
// failures a healing attempt may recover from.
func NewRetryableError(code ErrorCode, message string) *SentinelError {
	return &SentinelError{Code: code, Message: message, Retryable: true}
}

// WrapError creates a non-retryable SentinelError wrapping an existing error.
func WrapError(code ErrorCode, message string, cause error) *SentinelError {
	return &SentinelError{Code: code, Message: message, Cause: cause}
}

// WrapRetryableError creates a retryable SentinelError wrapping an existing error.
func WrapRetryableError(code ErrorCode, message string, cause error) *SentinelError {
	return &SentinelError{Code: code, Message: message, Retryable: true, Cause: cause}
}

// HasCode reports whether err (or anything it wraps) is a SentinelError
// with the given code.
func HasCode(err error, code ErrorCode) bool {
	var serr *SentinelError
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

// IsRetryable reports whether err (or anything it wraps) is a retryable
// SentinelError. Plain errors are treated as retryable: the healing policy
// decides how many attempts they get.
func IsRetryable(err error) bool {
	var serr *SentinelError
	if errors.As(err, &serr) {
		return serr.Retryable
	}
	return true
}
