package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "demandcast/internal/errors"
	"demandcast/internal/middleware"
	"demandcast/pkg/contracts/domain"
)

// DatasetService exposes the loaded transaction table
type DatasetService interface {
	DatasetInfo() (domain.DatasetInfo, error)
	SearchItems(prefix string, limit int) ([]string, error)
}

// Item search limits
const (
	DefaultItemLimit = 20
	MaxItemLimit     = 200
)

// DatasetHandler serves dataset metadata and item lookup
type DatasetHandler struct {
	service      DatasetService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	queryParams  *middleware.QueryParamValidator
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(service DatasetService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DatasetHandler {
	return &DatasetHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "dataset_handler")),
		errorHandler: errorHandler,
		queryParams:  middleware.NewQueryParamValidator(logger, errorHandler),
	}
}

// RegisterRoutes adds GET /dataset and GET /items to r
func (h *DatasetHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dataset", h.GetDataset)
	r.Get("/items", h.SearchItems)
}

// GetDataset handles GET /api/dataset. The table fingerprint is the ETag.
func (h *DatasetHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.DatasetInfo()
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	etag := `"` + info.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	render.JSON(w, r, info)
}

// SearchItems handles GET /api/items?q=prefix&limit=N
func (h *DatasetHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryParams.ValidateInt(w, r, "limit", 1, MaxItemLimit, DefaultItemLimit, "")
	if !ok {
		return
	}
	query := r.URL.Query().Get("q")

	items, err := h.service.SearchItems(query, limit)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	render.JSON(w, r, map[string]interface{}{
		"query": query,
		"items": items,
		"count": len(items),
	})
}

func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
