package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Newf is New with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// --- Graph construction ---

// DuplicateStage reports a stage ID registered twice.
func DuplicateStage(id string) *AppError {
	return Newf(ErrCodeDuplicateStage, "stage %q is already registered", id).WithDetail("stage_id", id)
}

// UnknownStage reports a reference to an unregistered stage.
func UnknownStage(id string) *AppError {
	return Newf(ErrCodeUnknownStage, "stage %q is not registered", id).WithDetail("stage_id", id)
}

// Topology reports an edge that would break the single-path shape.
func Topology(from, to, reason string) *AppError {
	return Newf(ErrCodeTopology, "edge %s -> %s: %s", from, to, reason).
		WithDetail("from", from).
		WithDetail("to", to)
}

// InvalidTopology reports every violation found while validating a graph.
func InvalidTopology(violations []string) *AppError {
	return New(ErrCodeInvalidTopology, strings.Join(violations, "; ")).
		WithDetail("violations", violations)
}

// --- Run protocol ---

// InvalidState reports an operation that is not allowed from the current state.
func InvalidState(op, state string) *AppError {
	return Newf(ErrCodeInvalidState, "%s not allowed in state %s", op, state).
		WithDetail("operation", op).
		WithDetail("state", state)
}

// StageInvocation wraps an error returned by a stage capability.
func StageInvocation(stageID string, cause error) *AppError {
	return Newf(ErrCodeStageInvocation, "stage %q failed", stageID).
		WithDetail("stage_id", stageID).
		WithCause(cause)
}

// --- Common constructors ---

// Timeout creates a new AppError for an operation that ran out of time.
func Timeout(operation string) *AppError {
	return New(ErrCodeTimeout, "operation timed out").WithDetail("operation", operation)
}

// RateLimited creates a new AppError for too many requests.
func RateLimited(service string) *AppError {
	return Newf(ErrCodeRateLimited, "%s is rate limiting requests", service).WithDetail("service", service)
}

// ServiceUnavailable creates a new AppError for a temporarily unavailable dependency.
func ServiceUnavailable(service string) *AppError {
	return Newf(ErrCodeServiceUnavailable, "%s is temporarily unavailable", service).WithDetail("service", service)
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	e := Newf(ErrCodeInvalidInput, "invalid input: %s", reason)
	if field != "" {
		e.WithDetail("field", field)
	}
	return e
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return New(ErrCodeInvalidInput, message)
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	e := Newf(ErrCodeNotFound, "%s not found", resource).WithDetail("resource", resource)
	if id != "" {
		e.WithDetail("id", id)
	}
	return e
}

// Internal creates a new AppError for an unexpected internal failure.
func Internal(cause error) *AppError {
	return New(ErrCodeInternal, "an unexpected error occurred").WithCause(cause)
}

// ExternalService creates a new AppError for an error from an external service.
func ExternalService(service string, cause error) *AppError {
	return Newf(ErrCodeExternalService, "%s returned an error", service).
		WithDetail("service", service).
		WithCause(cause)
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err, or any error it wraps, is an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		appErr, ok := AsAppError(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}
