package middleware

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	apierrors "demandcast/internal/errors"
)

// DefaultMaxBodySize caps JSON request bodies
const DefaultMaxBodySize = 64 * 1024

// RequireJSON rejects non-JSON bodies on POST/PUT/PATCH and caps body size
func RequireJSON(maxBody int64) func(next http.Handler) http.Handler {
	if maxBody <= 0 {
		maxBody = DefaultMaxBodySize
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				apierrors.WriteError(w, r, apierrors.NewWithDetails(
					http.StatusUnsupportedMediaType,
					apierrors.CodeInvalidRequest,
					"Content-Type must be application/json",
					map[string]string{"content_type": r.Header.Get("Content-Type")},
				))
				return
			}

			if r.ContentLength > maxBody {
				apierrors.WriteError(w, r, apierrors.NewWithDetails(
					http.StatusRequestEntityTooLarge,
					apierrors.CodeInvalidRequest,
					"Request body exceeds maximum allowed size",
					map[string]int64{"max_size": maxBody, "size": r.ContentLength},
				))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBody)

			next.ServeHTTP(w, r)
		})
	}
}

// QueryParamValidator validates query parameters
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt reads an integer query parameter within [min, max]. On failure
// it writes the error response and returns false.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int, message string) (int, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(param))
	if value == "" {
		return defaultValue, true
	}

	if message == "" {
		message = fmt.Sprintf("%s must be between %d and %d", param, min, max)
	}

	n, err := strconv.Atoi(value)
	if err != nil || n < min || n > max {
		v.logger.DebugContext(r.Context(), "invalid query parameter",
			slog.String("param", param),
			slog.String("value", value))
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, message))
		return 0, false
	}

	return n, true
}
