package http

import (
	"errors"
	"net/http"

	"demandcast/internal/dataset"
	apierrors "demandcast/internal/errors"
	"demandcast/internal/forecast"
	"demandcast/internal/services"
)

// toAPIError maps pipeline errors onto RFC 7807 responses. The message is
// always the user-facing text; internal detail stays in the logs.
func toAPIError(err error) error {
	var (
		validation   *services.ValidationError
		noMatch      *dataset.NoMatchError
		insufficient *dataset.InsufficientDataError
		fit          *forecast.FitError
	)

	switch {
	case errors.As(err, &validation):
		return apierrors.ErrValidation(validation.Field, validation.Message)
	case errors.As(err, &noMatch):
		return apierrors.ItemNotFound(noMatch.UserMessage(), noMatch.Suggestions)
	case errors.As(err, &insufficient):
		return apierrors.InsufficientData(insufficient.UserMessage(), insufficient.Points)
	case errors.As(err, &fit):
		return apierrors.ForecastFailed(fit.UserMessage())
	case errors.Is(err, services.ErrDatasetNotLoaded):
		return apierrors.New(http.StatusServiceUnavailable, apierrors.CodeUnavailable, services.UserMessage(err))
	default:
		return err
	}
}
