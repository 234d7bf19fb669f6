package forecast

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"demandcast/internal/infrastructure"
	"demandcast/pkg/contracts/domain"
)

// DefaultCadenceDays is the spacing of future timestamps
const DefaultCadenceDays = 7

// Engine fits a fresh model per series and projects it forward
type Engine struct {
	newModel    ModelFactory
	cadenceDays int
	tracer      trace.Tracer
	metrics     *infrastructure.BusinessMetrics
	logger      *slog.Logger
}

// NewEngine creates an engine. A nil factory uses go-forecaster and a
// non-positive cadence falls back to weekly.
func NewEngine(factory ModelFactory, cadenceDays int, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Engine {
	if factory == nil {
		factory = NewGoForecaster
	}
	if cadenceDays <= 0 {
		cadenceDays = DefaultCadenceDays
	}
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	return &Engine{
		newModel:    factory,
		cadenceDays: cadenceDays,
		tracer:      otel.Tracer(infrastructure.InstrumentationName),
		metrics:     metrics,
		logger:      infrastructure.WithComponent(logger, "forecast"),
	}
}

// Forecast fits the series and predicts one row per distinct historical
// timestamp, ascending, followed by horizon future ones. The model is fitted
// on every observation in time order and those observations are returned on
// the result's Observed slice. Fit and prediction failures, including panics
// inside the model, are returned as *FitError.
func (e *Engine) Forecast(ctx context.Context, series domain.ItemSeries, horizon int) (result domain.ForecastResult, err error) {
	ctx, span := e.tracer.Start(ctx, "forecast.fit",
		trace.WithAttributes(
			attribute.String("item_id", series.ItemID),
			attribute.Int("points", series.Len()),
			attribute.Int("horizon", horizon),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	if horizon < domain.MinHorizonWeeks || horizon > domain.MaxHorizonWeeks {
		return result, fmt.Errorf("horizon %d out of range", horizon)
	}
	if series.Len() < 2 {
		return result, &FitError{ItemID: series.ItemID, Reason: "at least 2 data points are required"}
	}

	observed := sortedPoints(series.Points)
	fitT := make([]time.Time, len(observed))
	fitY := make([]float64, len(observed))
	for i, p := range observed {
		fitT[i] = p.Timestamp
		fitY[i] = p.Quantity
	}

	history := distinct(fitT)
	if len(history) < 2 {
		return result, &FitError{ItemID: series.ItemID, Reason: "too few distinct timestamps"}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	future := FutureTimestamps(series.LastTimestamp(), horizon, e.cadenceDays)
	predictT := make([]time.Time, 0, len(history)+len(future))
	predictT = append(predictT, history...)
	predictT = append(predictT, future...)

	start := time.Now()
	pred, err := e.fitAndPredict(ctx, series.ItemID, fitT, fitY, predictT)
	elapsed := time.Since(start)
	e.metrics.ModelFitDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.Bool("success", err == nil)))
	if err != nil {
		e.logger.WarnContext(ctx, "model fit failed",
			slog.String("item_id", series.ItemID),
			slog.Int("points", series.Len()),
			slog.String("error", err.Error()))
		return result, err
	}

	infrastructure.AddSpanEvent(ctx, "model fitted", attribute.Int64("fit_ms", elapsed.Milliseconds()))
	e.logger.DebugContext(ctx, "model fitted",
		slog.String("item_id", series.ItemID),
		slog.Int("points", series.Len()),
		slog.Duration("duration", elapsed))

	result = domain.ForecastResult{
		ItemID:       series.ItemID,
		Horizon:      horizon,
		HistoryCount: len(history),
		Points:       make([]domain.ForecastPoint, 0, len(predictT)),
		Observed:     observed,
	}
	for i, ts := range predictT {
		fp := point(ts, pred, i)
		fp.Historical = i < len(history)
		result.Points = append(result.Points, fp)
	}
	return result, nil
}

func (e *Engine) fitAndPredict(ctx context.Context, itemID string, fitT []time.Time, fitY []float64, predictT []time.Time) (pred Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FitError{ItemID: itemID, Reason: "model panicked", Err: fmt.Errorf("%v", r)}
		}
	}()

	model, err := e.newModel()
	if err != nil {
		return pred, &FitError{ItemID: itemID, Reason: "model could not be created", Err: err}
	}
	if err := model.Fit(ctx, fitT, fitY); err != nil {
		return pred, &FitError{ItemID: itemID, Reason: "model could not be fitted", Err: err}
	}
	pred, err = model.Predict(ctx, predictT)
	if err != nil {
		return pred, &FitError{ItemID: itemID, Reason: "prediction failed", Err: err}
	}

	n := len(predictT)
	if len(pred.Yhat) != n || len(pred.Lower) != n || len(pred.Upper) != n {
		return pred, &FitError{ItemID: itemID, Reason: fmt.Sprintf(
			"model returned %d/%d/%d values for %d timestamps", len(pred.Yhat), len(pred.Lower), len(pred.Upper), n)}
	}
	for i := 0; i < n; i++ {
		if !finite(pred.Yhat[i]) || !finite(pred.Lower[i]) || !finite(pred.Upper[i]) {
			return pred, &FitError{ItemID: itemID, Reason: "model produced non-finite values"}
		}
	}
	return pred, nil
}

// point builds an output row with lower <= yhat <= upper
func point(ts time.Time, pred Prediction, i int) domain.ForecastPoint {
	y, lo, hi := pred.Yhat[i], pred.Lower[i], pred.Upper[i]
	return domain.ForecastPoint{
		Timestamp: ts,
		Yhat:      y,
		YhatLower: math.Min(y, math.Min(lo, hi)),
		YhatUpper: math.Max(y, math.Max(lo, hi)),
	}
}

// sortedPoints returns a copy of points in ascending time, ties in source order
func sortedPoints(points []domain.SeriesPoint) []domain.SeriesPoint {
	out := append([]domain.SeriesPoint(nil), points...)
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.Before(out[b].Timestamp)
	})
	return out
}

// distinct collapses equal neighbours of an ascending slice
func distinct(ts []time.Time) []time.Time {
	out := make([]time.Time, 0, len(ts))
	for i, t := range ts {
		if i == 0 || !t.Equal(out[len(out)-1]) {
			out = append(out, t)
		}
	}
	return out
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
