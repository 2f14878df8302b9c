package common

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies resolution failures.
type ErrorKind string

const (
	KindValidation       ErrorKind = "ValidationError"
	KindSearch           ErrorKind = "SearchError"
	KindGeneration       ErrorKind = "GenerationError"
	KindHallucination    ErrorKind = "HallucinationError"
	KindExhaustedRetries ErrorKind = "ExhaustedRetries"
	KindPersistence      ErrorKind = "PersistenceError"
)

// ResolutionError carries an error kind through the pipeline.
type ResolutionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewResolutionError creates a classified resolution error.
func NewResolutionError(kind ErrorKind, message string, err error) *ResolutionError {
	return &ResolutionError{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to GenerationError for
// unclassified errors so every failure maps to a logged kind.
func KindOf(err error) ErrorKind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindGeneration
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ResolutionError
	return errors.As(err, &re) && re.Kind == kind
}

// ErrorResponse is the API error payload.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CustomError is an HTTP-facing error with a status code.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewError creates a new HTTP-facing error.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// Predefined error codes.
const (
	ErrCodeUnprocessable   = "UNPROCESSABLE"     // 422
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429
	ErrCodeInternalError   = "INTERNAL_ERROR"    // 500
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND" // 404
)

// Predefined errors. The handler layer localizes the message where a
// catalog entry exists; Code and Status always come from here.
var (
	ErrUnprocessable   = NewError(ErrCodeUnprocessable, "request failed validation", http.StatusUnprocessableEntity, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "too many requests, please retry later", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "internal server error", http.StatusInternalServerError, nil)
	ErrSessionNotFound = NewError(ErrCodeSessionNotFound, "resolution session not found or expired", http.StatusNotFound, nil)
)
