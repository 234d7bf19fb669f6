package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// Error codes carried in the error_code extension
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeItemNotFound     = "ITEM_NOT_FOUND"
	CodeInsufficientData = "INSUFFICIENT_DATA"
	CodeForecastFailed   = "FORECAST_FAILED"
	CodeRateLimit        = "RATE_LIMIT_EXCEEDED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one invalid request field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

var (
	ErrInvalidRequest     = New(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format")
	ErrNotFound           = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	ErrRateLimitExceeded  = New(http.StatusTooManyRequests, CodeRateLimit, "Rate limit exceeded")
	ErrInternalServer     = New(http.StatusInternalServerError, CodeInternal, "Internal server error")
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// ErrValidation creates a validation error for one field
func ErrValidation(field, message string) *APIError {
	return NewValidationErrors([]ValidationError{{Field: field, Message: message}})
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errs []ValidationError) *APIError {
	message := "Request validation failed"
	if len(errs) == 1 {
		message = errs[0].Message
	}
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, message, ValidationErrors{Errors: errs})
}

// ItemNotFound reports an unknown item; suggestions may be empty
func ItemNotFound(message string, suggestions []string) *APIError {
	if len(suggestions) == 0 {
		return New(http.StatusNotFound, CodeItemNotFound, message)
	}
	return NewWithDetails(http.StatusNotFound, CodeItemNotFound, message, map[string][]string{
		"suggestions": suggestions,
	})
}

// InsufficientData reports a series too short to fit
func InsufficientData(message string, points int) *APIError {
	return NewWithDetails(http.StatusUnprocessableEntity, CodeInsufficientData, message, map[string]int{
		"points": points,
	})
}

// ForecastFailed reports a model fit or prediction failure
func ForecastFailed(message string) *APIError {
	return New(http.StatusUnprocessableEntity, CodeForecastFailed, message)
}

// PanicRecovery represents panic recovery information
type PanicRecovery struct {
	Message string `json:"message"`
}

// ErrPanic creates a panic recovery error
func ErrPanic(rec interface{}) *APIError {
	return NewWithDetails(http.StatusInternalServerError, CodeInternal, "Internal server error",
		PanicRecovery{Message: fmt.Sprintf("%v", rec)})
}

// WriteError writes err as an RFC 7807 document without going through render.
// Middleware that runs outside the chi render context uses it.
func WriteError(w http.ResponseWriter, r *http.Request, err *APIError) {
	problem := NewProblemDetails(err.StatusCode, problemTypeForCode(err.ErrorCode),
		http.StatusText(err.StatusCode), err.Message, r.URL.Path).
		WithExtension("error_code", err.ErrorCode)
	if err.Details != nil {
		problem.WithExtension("details", err.Details)
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(err.StatusCode)
	json.NewEncoder(w).Encode(problem)
}
