package http

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"demandcast/internal/services"
	"demandcast/pkg/contracts/domain"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("index.html").
	Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
	ParseFS(templateFS, "templates/index.html"))

// PageService is what the HTML page needs
type PageService interface {
	ForecastService
	DatasetService
}

// PageHandler serves the interactive forecast page
type PageHandler struct {
	service PageService
	logger  *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(service PageService, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		service: service,
		logger:  logger.With(slog.String("component", "page_handler")),
	}
}

type pageData struct {
	ItemID   string
	Weeks    int
	MinWeeks int
	MaxWeeks int
	Error    string
	Report   *domain.ForecastReport
	ChartSVG template.HTML
	Dataset  *domain.DatasetInfo
}

// ServePage handles GET /. With ?run=1 it runs the forecast for ?item and
// ?weeks and renders the chart and table, or the user message on failure.
func (h *PageHandler) ServePage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data := pageData{
		ItemID:   q.Get("item"),
		Weeks:    h.service.DefaultHorizon(),
		MinWeeks: domain.MinHorizonWeeks,
		MaxWeeks: h.service.MaxHorizon(),
	}
	if info, err := h.service.DatasetInfo(); err == nil {
		data.Dataset = &info
	}

	if q.Get("run") != "" {
		h.runForecast(r, q.Get("weeks"), &data)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.ErrorContext(r.Context(), "page render failed", slog.String("error", err.Error()))
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (h *PageHandler) runForecast(r *http.Request, weeks string, data *pageData) {
	if weeks = strings.TrimSpace(weeks); weeks != "" {
		n, err := strconv.Atoi(weeks)
		if err != nil || n < data.MinWeeks || n > data.MaxWeeks {
			data.Error = "Number of weeks must be between " + strconv.Itoa(data.MinWeeks) + " and " + strconv.Itoa(data.MaxWeeks) + "."
			return
		}
		data.Weeks = n
	}

	report, err := h.service.RunForecast(r.Context(), domain.ForecastRequest{ItemID: data.ItemID, Horizon: data.Weeks})
	if err != nil {
		data.Error = services.UserMessage(err)
		return
	}

	data.Report = report
	// the SVG is generated with every text node escaped
	data.ChartSVG = template.HTML(report.Chart.SVG)
}
