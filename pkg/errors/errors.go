package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrValidation       = errors.New("validation error")
	ErrRateLimited      = errors.New("rate limited")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrNotRecognized    = errors.New("plate not recognized")
	ErrCancelled        = errors.New("request cancelled")
	ErrInternal         = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
)

// AppError represents an application error with context.
// Suggestion is mandatory for every caller-facing error: it tells the
// operator of the camera what to do about the failure.
type AppError struct {
	Err        error             `json:"-"`
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError
func New(code, message, suggestion string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code, message, suggestion string, statusCode int) *AppError {
	return &AppError{
		Err:        err,
		Code:       code,
		Message:    message,
		Suggestion: suggestion,
		StatusCode: statusCode,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// InvalidImage reports that the captured frame failed the quality gate.
// The message and suggestion come from the first validation failure.
func InvalidImage(message, suggestion string) *AppError {
	return &AppError{
		Err:        ErrValidation,
		Code:       "INVALID_IMAGE",
		Message:    message,
		Suggestion: suggestion,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func RateLimited() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Code:       "RATE_LIMITED",
		Message:    "too many recognition requests",
		Suggestion: "wait a moment before capturing another frame",
		StatusCode: http.StatusTooManyRequests,
	}
}

func Timeout() *AppError {
	return &AppError{
		Err:        ErrTimeout,
		Code:       "TIMEOUT",
		Message:    "recognition timed out",
		Suggestion: "check your network connection and try again",
		StatusCode: http.StatusGatewayTimeout,
	}
}

func APIConnectionFailed(err error) *AppError {
	return &AppError{
		Err:        errors.Join(ErrConnectionFailed, err),
		Code:       "API_CONNECTION_FAILED",
		Message:    "could not reach the recognition service",
		Suggestion: "check your network connection and try again shortly",
		StatusCode: http.StatusBadGateway,
	}
}

func PlateNotRecognized() *AppError {
	return &AppError{
		Err:        ErrNotRecognized,
		Code:       "PLATE_NOT_RECOGNIZED",
		Message:    "no license plate was recognized in the image",
		Suggestion: "center the plate in the frame and capture again",
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func RequestCancelled() *AppError {
	return &AppError{
		Err:        ErrCancelled,
		Code:       "REQUEST_CANCELLED",
		Message:    "the recognition request was cancelled",
		Suggestion: "capture a new frame to retry",
		StatusCode: 499, // client closed request
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Err:        ErrBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
		Suggestion: "correct the request and try again",
		StatusCode: http.StatusBadRequest,
	}
}

func Internal(message string) *AppError {
	return &AppError{
		Err:        ErrInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Suggestion: "try again; contact support if the problem persists",
		StatusCode: http.StatusInternalServerError,
	}
}

// Is checks if the error matches a target error
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to convert an error to a specific type
func As(err error, target any) bool {
	return errors.As(err, target)
}
