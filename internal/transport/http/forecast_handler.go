package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "demandcast/internal/errors"
	"demandcast/internal/middleware"
	"demandcast/internal/services"
	"demandcast/pkg/contracts/domain"
)

// ForecastService is the pipeline the handlers drive
type ForecastService interface {
	RunForecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastReport, error)
	Export(ctx context.Context, w io.Writer, req domain.ForecastRequest, format string) (*domain.ForecastReport, error)
	DefaultHorizon() int
	MaxHorizon() int
}

// ForecastHandler serves forecast runs and downloads
type ForecastHandler struct {
	service      ForecastService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	queryParams  *middleware.QueryParamValidator
}

// NewForecastHandler creates a new forecast handler
func NewForecastHandler(service ForecastService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ForecastHandler {
	return &ForecastHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "forecast_handler")),
		errorHandler: errorHandler,
		queryParams:  middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// Routes returns the forecast routes
func (h *ForecastHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(middleware.RequireJSON(middleware.DefaultMaxBodySize)).Post("/", h.RunForecast)
	r.Get("/{item}.{format:csv|xlsx}", h.Download)

	return r
}

// forecastRequest is the JSON body of POST /api/forecast
type forecastRequest struct {
	ItemID  string `json:"item_id"`
	Horizon *int   `json:"horizon,omitempty"`
}

// RunForecast handles POST /api/forecast
func (h *ForecastHandler) RunForecast(w http.ResponseWriter, r *http.Request) {
	var body forecastRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}

	req := domain.ForecastRequest{ItemID: body.ItemID}
	if body.Horizon != nil {
		// an explicit 0 is out of range, not "use the default"
		if *body.Horizon == 0 {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("horizon", h.horizonMessage()))
			return
		}
		req.Horizon = *body.Horizon
	}

	report, err := h.service.RunForecast(r.Context(), req)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, report)
}

// Download handles GET /api/forecast/{item}.{csv|xlsx}?horizon=N
func (h *ForecastHandler) Download(w http.ResponseWriter, r *http.Request) {
	item := itemParam(r)
	format := chi.URLParam(r, "format")

	horizon, ok := h.queryParams.ValidateInt(w, r, "horizon",
		domain.MinHorizonWeeks, h.service.MaxHorizon(), h.service.DefaultHorizon(), h.horizonMessage())
	if !ok {
		return
	}

	var buf bytes.Buffer
	report, err := h.service.Export(r.Context(), &buf, domain.ForecastRequest{ItemID: item, Horizon: horizon}, format)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == services.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	filename := fmt.Sprintf("forecast_%s_%dw_%s.%s",
		sanitizeFilename(report.ItemID), report.Horizon, report.GeneratedAt.Format("20060102"), format)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Last-Modified", report.GeneratedAt.Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("item_id", item),
			slog.String("error", err.Error()))
	}
}

func (h *ForecastHandler) horizonMessage() string {
	return fmt.Sprintf("Number of weeks must be between %d and %d.", domain.MinHorizonWeeks, h.service.MaxHorizon())
}

// sanitizeFilename keeps letters, digits, dash and underscore
func sanitizeFilename(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "item"
	}
	return string(out)
}

// itemParam returns the {item} segment decoded. chi matches on RawPath when
// the request carries escaped characters, so the parameter is still encoded
// in that case.
func itemParam(r *http.Request) string {
	item := chi.URLParam(r, "item")
	if r.URL.RawPath == "" {
		return item
	}
	if decoded, err := url.PathUnescape(item); err == nil {
		return decoded
	}
	return item
}
