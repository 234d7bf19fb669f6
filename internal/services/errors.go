package services

import (
	"context"
	"errors"

	"demandcast/internal/dataset"
	"demandcast/internal/forecast"
)

// ErrDatasetNotLoaded is returned before the transaction table is ready
var ErrDatasetNotLoaded = errors.New("dataset not loaded")

// ValidationError rejects a request before any data is touched
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// UserMessage is the text shown to the user
func (e *ValidationError) UserMessage() string { return e.Message }

// Forecast run outcomes, used as a metric attribute
const (
	OutcomeOK               = "ok"
	OutcomeValidation       = "validation"
	OutcomeNoMatch          = "no_match"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeFitFailed        = "fit_failed"
	OutcomeCancelled        = "cancelled"
	OutcomeError            = "error"
)

type userMessager interface {
	UserMessage() string
}

// UserMessage returns the short message to show for err
func UserMessage(err error) string {
	var um userMessager
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	if errors.Is(err, ErrDatasetNotLoaded) {
		return "Transaction data is still loading. Please try again shortly."
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "The forecast request was cancelled."
	}
	return "Forecast failed because of an unexpected error."
}

// Outcome classifies err for metrics and logs
func Outcome(err error) string {
	var (
		validation   *ValidationError
		noMatch      *dataset.NoMatchError
		insufficient *dataset.InsufficientDataError
		fit          *forecast.FitError
	)
	switch {
	case err == nil:
		return OutcomeOK
	case errors.As(err, &validation):
		return OutcomeValidation
	case errors.As(err, &noMatch):
		return OutcomeNoMatch
	case errors.As(err, &insufficient):
		return OutcomeInsufficientData
	case errors.As(err, &fit):
		return OutcomeFitFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}
