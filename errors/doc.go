// Package errors provides the structured error type shared by every stageflow
// package. Errors carry a machine-readable code, a human-readable message, a
// retryable flag and optional details, and unwrap to their cause.
//
// Build-time graph errors, run protocol violations and stage failures are all
// reported as *AppError so callers can branch on the code:
//
//	if errors.HasCode(err, errors.ErrCodeDuplicateStage) { ... }
package errors
