// Package errors provides the structured error type shared by the query
// pipeline, its backends and the workflow job adapter.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeIntentParsingFailed ErrorCode = "INTENT_PARSING_FAILED"
	ErrCodeIntentAPITimeout    ErrorCode = "INTENT_API_TIMEOUT"

	ErrCodeBackendTimeout     ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeBackendServerError ErrorCode = "BACKEND_SERVER_ERROR"
	ErrCodeBackendRejected    ErrorCode = "BACKEND_REJECTED"
	ErrCodeResourceNotFound   ErrorCode = "RESOURCE_NOT_FOUND"
	ErrCodeMalformedPayload   ErrorCode = "MALFORMED_PAYLOAD"
	ErrCodeConcurrencyLimit   ErrorCode = "CONCURRENCY_LIMIT"

	ErrCodeInsufficientParameters ErrorCode = "INSUFFICIENT_PARAMETERS"
	ErrCodeNoResults              ErrorCode = "NO_RESULTS"
	ErrCodeBackendUnavailable     ErrorCode = "BACKEND_UNAVAILABLE"

	ErrCodeInvalidJobVariables ErrorCode = "INVALID_JOB_VARIABLES"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause so context errors stay detectable.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata returns e after merging the given key/value into Metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewIntentParsingFailedError is returned when the planning call errors or
// its output cannot be decoded and validated.
func NewIntentParsingFailedError(err error) *StandardError {
	return newError(ErrCodeIntentParsingFailed, "Intent planning failed", err, false)
}

// NewIntentAPITimeoutError is returned when the planning call exceeds its budget.
func NewIntentAPITimeoutError(err error) *StandardError {
	return newError(ErrCodeIntentAPITimeout, "Intent planning timeout", err, false)
}

// NewBackendTimeoutError creates a retryable backend timeout error.
func NewBackendTimeoutError(backend string, err error) *StandardError {
	return newError(ErrCodeBackendTimeout, fmt.Sprintf("Backend '%s' timeout", backend), err, true).
		WithMetadata("backend", backend)
}

// NewBackendServerError covers transport failures and 5xx answers.
func NewBackendServerError(backend string, status int, err error) *StandardError {
	return newError(ErrCodeBackendServerError, fmt.Sprintf("Backend '%s' unavailable", backend), err, true).
		WithMetadata("backend", backend).
		WithMetadata("status", status)
}

// NewBackendRejectedError covers 4xx answers other than 404.
func NewBackendRejectedError(backend string, status int) *StandardError {
	return newError(ErrCodeBackendRejected, fmt.Sprintf("Backend '%s' rejected request", backend),
		fmt.Errorf("status %d", status), false).
		WithMetadata("backend", backend).
		WithMetadata("status", status)
}

// NewBackendQueryRejectedError covers database errors that another attempt
// cannot fix, such as a missing table or denied permission.
func NewBackendQueryRejectedError(backend, sqlState string, err error) *StandardError {
	return newError(ErrCodeBackendRejected, fmt.Sprintf("Backend '%s' rejected query", backend), err, false).
		WithMetadata("backend", backend).
		WithMetadata("sqlstate", sqlState)
}

func NewResourceNotFoundError(backend, details string) *StandardError {
	e := newError(ErrCodeResourceNotFound, fmt.Sprintf("Resource not found in %s", backend), nil, false)
	e.Details = details
	return e.WithMetadata("backend", backend)
}

// NewMalformedPayloadError is returned when a 2xx body does not decode.
func NewMalformedPayloadError(backend string, err error) *StandardError {
	return newError(ErrCodeMalformedPayload, fmt.Sprintf("Backend '%s' returned malformed payload", backend), err, false).
		WithMetadata("backend", backend)
}

func NewConcurrencyLimitError(backend string, err error) *StandardError {
	return newError(ErrCodeConcurrencyLimit, fmt.Sprintf("Backend '%s' call slot not acquired", backend), err, false).
		WithMetadata("backend", backend)
}

func NewInvalidJobVariablesError(err error) *StandardError {
	return newError(ErrCodeInvalidJobVariables, "Job variables could not be parsed", err, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeIntentParsingFailed:    "INTENT_PARSING_FAILED",
	ErrCodeIntentAPITimeout:       "INTENT_API_TIMEOUT",
	ErrCodeBackendTimeout:         "BACKEND_TIMEOUT",
	ErrCodeBackendServerError:     "BACKEND_SERVER_ERROR",
	ErrCodeBackendRejected:        "BACKEND_REJECTED",
	ErrCodeResourceNotFound:       "RESOURCE_NOT_FOUND",
	ErrCodeMalformedPayload:       "MALFORMED_PAYLOAD",
	ErrCodeConcurrencyLimit:       "CONCURRENCY_LIMIT",
	ErrCodeInsufficientParameters: "INSUFFICIENT_PARAMETERS",
	ErrCodeNoResults:              "NO_RESULTS",
	ErrCodeBackendUnavailable:     "BACKEND_UNAVAILABLE",
	ErrCodeInvalidJobVariables:    "INVALID_JOB_VARIABLES",
	ErrCodeInternal:               "INTERNAL_ERROR",
}

// GetRetryCount returns how many job retries a workflow should grant for code.
// Planning is single-attempt by contract so its codes are never retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeBackendServerError, ErrCodeBackendUnavailable:
		return 3
	case ErrCodeBackendTimeout, ErrCodeConcurrencyLimit:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// AsStandardError finds a StandardError anywhere in err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is a StandardError flagged as retryable.
func IsRetryable(err error) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Retryable
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "INTENT"):
		return "PLANNING"
	case strings.HasPrefix(codeStr, "BACKEND") || code == ErrCodeResourceNotFound ||
		code == ErrCodeMalformedPayload || code == ErrCodeConcurrencyLimit:
		return "BACKEND"
	case code == ErrCodeInsufficientParameters || code == ErrCodeNoResults:
		return "SEARCH"
	case strings.HasPrefix(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
