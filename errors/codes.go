package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Graph construction errors, reported synchronously by the builder.
const (
	// ErrCodeDuplicateStage indicates a stage ID was registered twice.
	ErrCodeDuplicateStage ErrorCode = "DUPLICATE_STAGE"
	// ErrCodeUnknownStage indicates a reference to a stage that was never registered.
	ErrCodeUnknownStage ErrorCode = "UNKNOWN_STAGE"
	// ErrCodeTopology indicates an edge that would branch, merge or close a cycle.
	ErrCodeTopology ErrorCode = "TOPOLOGY"
	// ErrCodeInvalidTopology indicates the accumulated graph is not a single path.
	ErrCodeInvalidTopology ErrorCode = "INVALID_TOPOLOGY"
)

// Run errors.
const (
	// ErrCodeInvalidState indicates a run operation called from the wrong state.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeStageInvocation indicates a stage capability returned an error.
	ErrCodeStageInvocation ErrorCode = "STAGE_INVOCATION"
)

// Connection/availability errors (retryable).
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Input and internal errors.
const (
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
