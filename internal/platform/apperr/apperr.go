// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Yakura.

It provides a rich error type that bridges the gap between low-level pipeline
step failures and the job record / HTTP responses that report them.

Architecture:

  - AppError: A struct containing machine-readable ErrorCode and user-friendly messages.
  - Classification: Pipeline steps produce errors of a known Code so that the
    orchestrator and the job store can apply the right recovery policy.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes for
    the internal ingress surface.

Every error that leaves a service layer should be wrapped as an [AppError] to
ensure consistent job records and API responses.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Error Codes

// Machine-readable error codes recognized by the pipeline core.
const (
	CodeNotFound    = "NOT_FOUND"
	CodeBlocked     = "BLOCKED"
	CodeTimeout     = "TIMEOUT"
	CodeUpstream    = "UPSTREAM_ERROR"
	CodeInvariant   = "INVARIANT_VIOLATION"
	CodeStorage     = "STORAGE_ERROR"
	CodeConflict    = "CONFLICT"
	CodeValidation  = "VALIDATION_ERROR"
	CodeRateLimited = "RATE_LIMITED"
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
)

// AppError is the canonical error type for the Yakura pipeline.
//
// It carries an HTTP status code, a machine-readable code, a client-safe
// message, and an optional slice of field-level validation errors.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries or
// upstream API keys embedded in URLs).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "NOT_FOUND", "BLOCKED").
	Code string `json:"code"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"error"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR responses.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Client Errors (4xx)

// NotFound creates a 404 [AppError] for a named resource.
//
// Example:
//
//	apperr.NotFound("Chapter") // Returns "Chapter not found"
func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    resource + " not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// Conflict creates a 409 [AppError] for duplicate or unique-constraint violations.
func Conflict(msg string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    msg,
		HTTPStatus: http.StatusConflict,
	}
}

// ValidationError creates a 400 [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Pipeline Errors

// Blocked creates an [AppError] for sites whose bot protection could not be
// passed within the challenge wait budget.
func Blocked(msg string) *AppError {
	return &AppError{
		Code:       CodeBlocked,
		Message:    msg,
		HTTPStatus: http.StatusBadGateway,
	}
}

// Timeout creates an [AppError] for an exceeded step or chapter deadline.
func Timeout(msg string) *AppError {
	return &AppError{
		Code:       CodeTimeout,
		Message:    msg,
		HTTPStatus: http.StatusGatewayTimeout,
	}
}

// Upstream creates an [AppError] wrapping a failure from an external
// collaborator (LLM, MT, OCR engine, source site) after retries are spent.
func Upstream(msg string, cause error) *AppError {
	return &AppError{
		Code:       CodeUpstream,
		Message:    msg,
		HTTPStatus: http.StatusBadGateway,
		Cause:      cause,
	}
}

// Invariant creates an [AppError] for a recoverable contract violation
// (e.g. translator output length mismatch). Callers typically log it at
// WARN and continue with a degraded result.
func Invariant(msg string) *AppError {
	return &AppError{
		Code:       CodeInvariant,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
	}
}

// Storage creates an [AppError] for blob or catalog persistence failures.
func Storage(msg string, cause error) *AppError {
	return &AppError{
		Code:       CodeStorage,
		Message:    msg,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// ServiceUnavailable creates a 503 [AppError] for maintenance mode.
func ServiceUnavailable(msg string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    msg,
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// # Helpers

// IsAppError reports whether err (or any error in its chain) is an [*AppError].
func IsAppError(err error) bool {
	var ae *AppError
	return errors.As(err, &ae)
}

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// CodeOf returns the machine-readable code of err, or CodeInternal when the
// chain carries no [*AppError].
func CodeOf(err error) string {
	if ae := As(err); ae != nil {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether err's chain carries an [*AppError] with the given code.
func IsCode(err error, code string) bool {
	ae := As(err)
	return ae != nil && ae.Code == code
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool { return IsCode(err, CodeNotFound) }
