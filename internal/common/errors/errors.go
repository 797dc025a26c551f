// Package errors provides standardized error handling for the notification pipeline.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation / boundary errors
const (
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidJSON        ErrorCode = "INVALID_JSON"
	ErrCodeMissingCoordinates ErrorCode = "MISSING_COORDINATES"
	ErrCodeInvalidCoordinates ErrorCode = "INVALID_COORDINATES"
	ErrCodeInvalidLatitude    ErrorCode = "INVALID_LATITUDE"
	ErrCodeInvalidLongitude   ErrorCode = "INVALID_LONGITUDE"
	ErrCodeInvalidRadius      ErrorCode = "INVALID_RADIUS"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
)

// Rate limiting
const (
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
)

// Domain / lookup errors
const (
	ErrCodeJobNotFound      ErrorCode = "JOB_NOT_FOUND"
	ErrCodeHospitalNotFound ErrorCode = "HOSPITAL_NOT_FOUND"
	ErrCodeNoHospitalsFound ErrorCode = "NO_HOSPITALS_FOUND"
)

// Infrastructure errors
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeSearchQueryFailed        ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeExternalService          ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                  ErrorCode = "TIMEOUT"
	ErrCodeServerError              ErrorCode = "SERVER_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// AsStandardError unwraps err into a *StandardError when possible.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr.Retryable
	}
	return false
}

// HTTPStatus maps an error code to the HTTP status used at the API boundary.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidJSON, ErrCodeMissingCoordinates,
		ErrCodeInvalidCoordinates, ErrCodeInvalidLatitude, ErrCodeInvalidLongitude,
		ErrCodeInvalidRadius:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeJobNotFound, ErrCodeHospitalNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable input validation error.
func NewValidationError(code ErrorCode, message string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidJSONError creates a non-retryable malformed payload error.
func NewInvalidJSONError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJSON,
		Message:   "Invalid JSON in request body",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRateLimitError creates a non-retryable rate limit error.
func NewRateLimitError(max, windowSeconds int) *StandardError {
	return &StandardError{
		Code:      ErrCodeRateLimitExceeded,
		Message:   fmt.Sprintf("Rate limit exceeded. Maximum %d notification requests per %d seconds.", max, windowSeconds),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewJobNotFoundError creates a non-retryable missing job error.
func NewJobNotFoundError(jobID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeJobNotFound,
		Message:   "Notification job not found",
		Details:   fmt.Sprintf("jobId: %s", jobID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNoHospitalsFoundError creates the terminal domain failure for an empty
// locator result. Retrying cannot change geography.
func NewNoHospitalsFoundError(radiusKM int) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoHospitalsFound,
		Message:   "No hospitals found within specified radius",
		Details:   fmt.Sprintf("radiusKm: %d", radiusKM),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable directory search error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Hospital directory search failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExternalServiceError creates a retryable external transport error.
func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeExternalService,
		Message:   fmt.Sprintf("External service error: %s", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewTimeoutError creates a retryable timeout error.
func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("Timeout contacting %s", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
