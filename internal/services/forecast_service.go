package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/infrastructure"
	"demandcast/internal/present"
	"demandcast/pkg/contracts/domain"
)

// Forecaster fits a series and projects it forward
type Forecaster interface {
	Forecast(ctx context.Context, series domain.ItemSeries, horizon int) (domain.ForecastResult, error)
}

// ForecastService runs the forecast pipeline over the loaded table:
// validate, extract the item series, fit, then present. Runs are
// serialized; one completes before the next starts.
type ForecastService struct {
	mu sync.Mutex

	tableMu sync.RWMutex
	table   *dataset.Table

	engine    Forecaster
	validate  *validator.Validate
	cfg       config.ForecastConfig
	chartSize present.ChartSize
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewForecastService creates the service. The table may be attached later
// with SetTable; until then runs fail with ErrDatasetNotLoaded.
func NewForecastService(table *dataset.Table, engine Forecaster, cfg config.ForecastConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ForecastService {
	if cfg.DefaultHorizon == 0 {
		cfg.DefaultHorizon = domain.DefaultHorizonWeeks
	}
	if cfg.MaxHorizon == 0 || cfg.MaxHorizon > domain.MaxHorizonWeeks {
		cfg.MaxHorizon = domain.MaxHorizonWeeks
	}
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}

	s := &ForecastService{
		engine:    engine,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		cfg:       cfg,
		chartSize: present.DefaultChartSize,
		metrics:   metrics,
		logger:    infrastructure.WithComponent(logger, "forecast_service"),
		now:       time.Now,
	}
	s.SetTable(table)
	return s
}

// SetTable attaches the loaded transaction table
func (s *ForecastService) SetTable(table *dataset.Table) {
	s.tableMu.Lock()
	s.table = table
	s.tableMu.Unlock()

	if table != nil {
		s.metrics.DatasetRows.Record(context.Background(), int64(table.Len()))
	}
}

func (s *ForecastService) currentTable() *dataset.Table {
	s.tableMu.RLock()
	defer s.tableMu.RUnlock()
	return s.table
}

// Ready reports whether the table is loaded
func (s *ForecastService) Ready() bool {
	return s.currentTable() != nil
}

// DefaultHorizon is the horizon used when a request leaves it unset
func (s *ForecastService) DefaultHorizon() int { return s.cfg.DefaultHorizon }

// MaxHorizon is the largest accepted horizon
func (s *ForecastService) MaxHorizon() int { return s.cfg.MaxHorizon }

// RunForecast runs the whole pipeline for one item. A zero horizon uses the
// configured default. Errors carry a UserMessage describing why no forecast
// was produced; on error the report is nil.
func (s *ForecastService) RunForecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()

	report, err := s.run(ctx, &req)

	outcome := Outcome(err)
	s.metrics.RecordForecastRun(ctx, outcome, time.Since(start))

	attrs := []any{
		slog.String("item_id", req.ItemID),
		slog.Int("horizon", req.Horizon),
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
	}
	switch outcome {
	case OutcomeOK:
		s.logger.InfoContext(ctx, "forecast completed", attrs...)
	case OutcomeError:
		s.logger.ErrorContext(ctx, "forecast failed", append(attrs, slog.String("error", err.Error()))...)
	default:
		s.logger.WarnContext(ctx, "forecast rejected", append(attrs, slog.String("error", err.Error()))...)
	}

	if err != nil {
		infrastructure.RecordError(ctx, err)
		return nil, err
	}
	return report, nil
}

func (s *ForecastService) run(ctx context.Context, req *domain.ForecastRequest) (*domain.ForecastReport, error) {
	if req.Horizon == 0 {
		req.Horizon = s.cfg.DefaultHorizon
	}
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	table := s.currentTable()
	if table == nil {
		return nil, ErrDatasetNotLoaded
	}

	series, err := table.Series(req.ItemID)
	if err != nil {
		var noMatch *dataset.NoMatchError
		if errors.As(err, &noMatch) {
			noMatch.Suggestions = table.Suggest(req.ItemID, s.cfg.Suggestions)
		}
		return nil, err
	}
	infrastructure.AddSpanEvent(ctx, "series extracted", attribute.Int("points", series.Len()))

	result, err := s.engine.Forecast(ctx, series, req.Horizon)
	if err != nil {
		return nil, err
	}

	chart, tbl := present.Build(result, s.chartSize)
	return &domain.ForecastReport{
		ItemID:      req.ItemID,
		Horizon:     req.Horizon,
		Fingerprint: table.Fingerprint(),
		Chart:       chart,
		Table:       tbl,
		Result:      result,
		GeneratedAt: s.now().UTC(),
	}, nil
}

func (s *ForecastService) validateRequest(req *domain.ForecastRequest) error {
	horizonMsg := fmt.Sprintf("Number of weeks must be between %d and %d.", domain.MinHorizonWeeks, s.cfg.MaxHorizon)

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return &ValidationError{Field: "request", Message: err.Error()}
		}
		// item first, matching the order fields appear on the form
		for _, fe := range verrs {
			if fe.Field() == "ItemID" {
				return &ValidationError{Field: "item_id", Message: "Stock Code is required."}
			}
		}
		return &ValidationError{Field: "horizon", Message: horizonMsg}
	}
	if req.Horizon > s.cfg.MaxHorizon {
		return &ValidationError{Field: "horizon", Message: horizonMsg}
	}
	return nil
}

// DatasetInfo describes the loaded table
func (s *ForecastService) DatasetInfo() (domain.DatasetInfo, error) {
	table := s.currentTable()
	if table == nil {
		return domain.DatasetInfo{}, ErrDatasetNotLoaded
	}
	return table.Info(), nil
}

// SearchItems lists known items with the given prefix
func (s *ForecastService) SearchItems(prefix string, limit int) ([]string, error) {
	table := s.currentTable()
	if table == nil {
		return nil, ErrDatasetNotLoaded
	}
	return table.Search(prefix, limit), nil
}

// Export formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Export runs a forecast and writes it to w in the given format
func (s *ForecastService) Export(ctx context.Context, w io.Writer, req domain.ForecastRequest, format string) (*domain.ForecastReport, error) {
	switch format {
	case FormatCSV, FormatXLSX:
	default:
		return nil, &ValidationError{Field: "format", Message: fmt.Sprintf("Unsupported export format %q.", format)}
	}

	report, err := s.RunForecast(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if format == FormatCSV {
		err = present.WriteCSV(w, report.Result, present.WriteOptions{BOMPrefix: true})
	} else {
		err = present.WriteXLSX(w, report)
	}
	if err != nil {
		return nil, fmt.Errorf("export %s: %w", format, err)
	}

	s.logger.DebugContext(ctx, "forecast exported",
		slog.String("item_id", report.ItemID),
		slog.String("format", format),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}
