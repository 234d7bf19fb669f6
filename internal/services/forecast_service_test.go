package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/config"
	"demandcast/internal/dataset"
	"demandcast/internal/forecast"
	"demandcast/internal/shared/testutil"
	"demandcast/pkg/contracts/domain"
)

var start = time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC)

// flatModel predicts the mean of the fitted values with a +-1 band
type flatModel struct {
	mean float64
}

func (m *flatModel) Fit(_ context.Context, _ []time.Time, y []float64) error {
	for _, v := range y {
		m.mean += v
	}
	m.mean /= float64(len(y))
	return nil
}

func (m *flatModel) Predict(_ context.Context, t []time.Time) (forecast.Prediction, error) {
	p := forecast.Prediction{
		Yhat:  make([]float64, len(t)),
		Lower: make([]float64, len(t)),
		Upper: make([]float64, len(t)),
	}
	for i := range t {
		p.Yhat[i], p.Lower[i], p.Upper[i] = m.mean, m.mean-1, m.mean+1
	}
	return p, nil
}

func flatEngine() *forecast.Engine {
	return forecast.NewEngine(func() (forecast.Model, error) { return &flatModel{}, nil }, 7, nil, nil)
}

func loadTable(t *testing.T, files ...[][]string) *dataset.Table {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default().Data
	cfg.Sources = nil
	for i, rows := range files {
		name := []string{"Transactional_data_retail_01.csv", "Transactional_data_retail_02.csv", "extra.csv"}[i]
		cfg.Sources = append(cfg.Sources, testutil.WriteTransactionsCSV(t, dir, name, testutil.TransactionHeader, rows))
	}

	loader, err := dataset.NewLoader(cfg, nil)
	require.NoError(t, err)
	table, err := loader.Load(context.Background())
	require.NoError(t, err)
	return table
}

func newService(t *testing.T, table *dataset.Table, engine Forecaster) *ForecastService {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return NewForecastService(table, engine, config.Default().Forecast, nil, logger)
}

func TestRunForecast_TwoFilesWeeklySeries(t *testing.T) {
	qty := func(i int) float64 { return float64(10 + i%3) }
	table := loadTable(t,
		testutil.WeeklyRows("X", start, 30, qty),
		testutil.WeeklyRows("X", start.AddDate(0, 0, 7*30), 30, qty),
	)
	svc := newService(t, table, flatEngine())

	report, err := svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X", Horizon: 15})
	require.NoError(t, err)

	assert.Equal(t, "X", report.ItemID)
	assert.Equal(t, 15, report.Horizon)
	assert.Equal(t, table.Fingerprint(), report.Fingerprint)
	assert.Equal(t, 60, report.Result.HistoryCount)
	assert.Len(t, report.Result.Points, 75)

	require.Len(t, report.Table.Rows, 15)
	last := start.AddDate(0, 0, 7*59)
	for i, row := range report.Table.Rows {
		assert.Equal(t, last.AddDate(0, 0, 7*(i+1)).Format("2006-01-02"), row.Date)
		assert.LessOrEqual(t, row.YhatLower, row.Yhat)
		assert.LessOrEqual(t, row.Yhat, row.YhatUpper)
	}

	assert.Equal(t, "Demand Forecast for Stock Code: X", report.Chart.Title)
	assert.NotEmpty(t, report.Chart.SVG)
}

func TestRunForecast_DefaultHorizon(t *testing.T) {
	table := loadTable(t, testutil.WeeklyRows("X", start, 5, func(int) float64 { return 1 }))
	svc := newService(t, table, flatEngine())

	report, err := svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X"})
	require.NoError(t, err)
	assert.Equal(t, 15, report.Horizon)
	assert.Len(t, report.Table.Rows, 15)
}

func TestRunForecast_Idempotent(t *testing.T) {
	rows := testutil.WeeklyRows("X", start, 20, func(i int) float64 { return float64(5 + i%4) })
	// out of order and a repeated week
	rows = append(rows, testutil.TransactionRow("X", start.AddDate(0, 0, 7*3), "9"))
	rows[0], rows[7] = rows[7], rows[0]
	table := loadTable(t, rows)
	svc := newService(t, table, flatEngine())

	req := domain.ForecastRequest{ItemID: "X", Horizon: 6}
	first, err := svc.RunForecast(context.Background(), req)
	require.NoError(t, err)
	second, err := svc.RunForecast(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, first.Result.Points, 26)
	assert.Equal(t, 20, first.Result.HistoryCount)
	assert.Len(t, first.Result.Observed, 21)
	assert.Equal(t, len(first.Result.Points), len(second.Result.Points))

	timestamps := func(r *domain.ForecastReport) []time.Time {
		out := make([]time.Time, len(r.Result.Points))
		for i, p := range r.Result.Points {
			out[i] = p.Timestamp
		}
		return out
	}
	firstTS := timestamps(first)
	assert.Equal(t, firstTS, timestamps(second))
	for i := 1; i < len(firstTS); i++ {
		assert.True(t, firstTS[i].After(firstTS[i-1]), "rows %d/%d not ascending", i-1, i)
	}

	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, first.Table, second.Table)
	assert.Equal(t, first.Chart, second.Chart)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestRunForecast_Rejections(t *testing.T) {
	rows := testutil.WeeklyRows("85123A", start, 10, func(int) float64 { return 2 })
	rows = append(rows,
		testutil.TransactionRow("85123B", start, "4"),
		testutil.TransactionRow("22423", start, "1"),
		testutil.TransactionRow("SAMEDAY", start, "1"),
		testutil.TransactionRow("SAMEDAY", start, "3"),
		testutil.TransactionRow("NODATE", time.Time{}, "3"),
	)
	rows[len(rows)-1][4] = "not a date"
	table := loadTable(t, rows)

	tests := []struct {
		name        string
		req         domain.ForecastRequest
		wantOutcome string
		wantMessage string
	}{
		{
			name:        "unknown item",
			req:         domain.ForecastRequest{ItemID: "99999", Horizon: 4},
			wantOutcome: OutcomeNoMatch,
			wantMessage: "No data found for the given Stock Code.",
		},
		{
			name:        "unknown item with suggestions",
			req:         domain.ForecastRequest{ItemID: "85123C", Horizon: 4},
			wantOutcome: OutcomeNoMatch,
			wantMessage: "No data found for the given Stock Code. Did you mean: 85123A, 85123B?",
		},
		{
			name:        "case differs",
			req:         domain.ForecastRequest{ItemID: "85123a", Horizon: 4},
			wantOutcome: OutcomeNoMatch,
			wantMessage: "No data found for the given Stock Code. Did you mean: 85123A, 85123B?",
		},
		{
			name:        "single row",
			req:         domain.ForecastRequest{ItemID: "22423", Horizon: 4},
			wantOutcome: OutcomeInsufficientData,
			wantMessage: "Not enough data points for the selected Stock Code. At least 2 non-NaN rows are required.",
		},
		{
			name:        "every row dropped while cleaning",
			req:         domain.ForecastRequest{ItemID: "NODATE", Horizon: 4},
			wantOutcome: OutcomeNoMatch,
			wantMessage: "No data found for the given Stock Code.",
		},
		{
			name:        "identical timestamps",
			req:         domain.ForecastRequest{ItemID: "SAMEDAY", Horizon: 4},
			wantOutcome: OutcomeFitFailed,
			wantMessage: "Forecast failed for the selected Stock Code: too few distinct timestamps",
		},
		{
			name:        "empty item",
			req:         domain.ForecastRequest{ItemID: "", Horizon: 4},
			wantOutcome: OutcomeValidation,
			wantMessage: "Stock Code is required.",
		},
		{
			name:        "horizon too large",
			req:         domain.ForecastRequest{ItemID: "85123A", Horizon: 53},
			wantOutcome: OutcomeValidation,
			wantMessage: "Number of weeks must be between 1 and 52.",
		},
		{
			name:        "negative horizon",
			req:         domain.ForecastRequest{ItemID: "85123A", Horizon: -1},
			wantOutcome: OutcomeValidation,
			wantMessage: "Number of weeks must be between 1 and 52.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t, table, flatEngine())

			report, err := svc.RunForecast(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, report)
			assert.Equal(t, tt.wantOutcome, Outcome(err))
			assert.Equal(t, tt.wantMessage, UserMessage(err))
		})
	}
}

func TestRunForecast_HorizonBounds(t *testing.T) {
	table := loadTable(t, testutil.WeeklyRows("X", start, 5, func(i int) float64 { return float64(i) }))
	svc := newService(t, table, flatEngine())

	for _, h := range []int{1, 52} {
		report, err := svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X", Horizon: h})
		require.NoError(t, err)
		assert.Len(t, report.Table.Rows, h)
	}
}

func TestRunForecast_NotLoaded(t *testing.T) {
	svc := newService(t, nil, flatEngine())
	assert.False(t, svc.Ready())

	_, err := svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X", Horizon: 3})
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)
	assert.Equal(t, OutcomeError, Outcome(err))

	_, err = svc.DatasetInfo()
	assert.ErrorIs(t, err, ErrDatasetNotLoaded)

	svc.SetTable(loadTable(t, testutil.WeeklyRows("X", start, 3, func(int) float64 { return 1 })))
	assert.True(t, svc.Ready())
	_, err = svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X", Horizon: 3})
	assert.NoError(t, err)
}

func TestRunForecast_LogsOutcome(t *testing.T) {
	table := loadTable(t, testutil.WeeklyRows("X", start, 5, func(int) float64 { return 1 }))
	logger, handler := testutil.NewTestLogger(t)
	svc := NewForecastService(table, flatEngine(), config.Default().Forecast, nil, logger)

	_, err := svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X", Horizon: 2})
	require.NoError(t, err)
	_, err = svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "Y", Horizon: 2})
	require.Error(t, err)

	assert.True(t, handler.ContainsMessage("forecast completed"))
	assert.True(t, handler.ContainsMessage("forecast rejected"))
	assert.True(t, handler.ContainsAttr("outcome", OutcomeNoMatch))
	assert.True(t, handler.ContainsAttr("component", "forecast_service"))
}

// gateEngine records the peak number of concurrent Forecast calls
type gateEngine struct {
	active int32
	peak   int32
}

func (g *gateEngine) Forecast(ctx context.Context, series domain.ItemSeries, horizon int) (domain.ForecastResult, error) {
	n := atomic.AddInt32(&g.active, 1)
	defer atomic.AddInt32(&g.active, -1)
	for {
		p := atomic.LoadInt32(&g.peak)
		if n <= p || atomic.CompareAndSwapInt32(&g.peak, p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return flatEngine().Forecast(ctx, series, horizon)
}

func TestRunForecast_Serialized(t *testing.T) {
	table := loadTable(t, testutil.WeeklyRows("X", start, 5, func(int) float64 { return 1 }))
	engine := &gateEngine{}
	svc := newService(t, table, engine)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RunForecast(context.Background(), domain.ForecastRequest{ItemID: "X", Horizon: 2})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&engine.peak))
}

func TestRunForecast_Cancelled(t *testing.T) {
	table := loadTable(t, testutil.WeeklyRows("X", start, 5, func(int) float64 { return 1 }))
	svc := newService(t, table, flatEngine())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunForecast(ctx, domain.ForecastRequest{ItemID: "X", Horizon: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, OutcomeCancelled, Outcome(err))
	assert.Equal(t, "The forecast request was cancelled.", UserMessage(err))
}

func TestExport(t *testing.T) {
	table := loadTable(t, testutil.WeeklyRows("X", start, 5, func(int) float64 { return 1 }))
	svc := newService(t, table, flatEngine())
	req := domain.ForecastRequest{ItemID: "X", Horizon: 3}

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		report, err := svc.Export(context.Background(), &buf, req, FormatCSV)
		require.NoError(t, err)
		assert.Equal(t, "X", report.ItemID)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte{0xEF, 0xBB, 0xBF}))
		assert.Contains(t, buf.String(), "ds,yhat,yhat_lower,yhat_upper")
	})

	t.Run("xlsx", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := svc.Export(context.Background(), &buf, req, FormatXLSX)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("PK")))
	})

	t.Run("unknown format", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := svc.Export(context.Background(), &buf, req, "pdf")
		var verr *ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "format", verr.Field)
		assert.Zero(t, buf.Len())
	})
}

func TestDatasetInfoAndSearch(t *testing.T) {
	rows := append(testutil.WeeklyRows("85123A", start, 3, func(int) float64 { return 1 }),
		testutil.TransactionRow("85099B", start, "2"),
		testutil.TransactionRow("22423", start, "2"))
	svc := newService(t, loadTable(t, rows), flatEngine())

	info, err := svc.DatasetInfo()
	require.NoError(t, err)
	assert.Equal(t, 5, info.Rows)
	assert.Equal(t, 3, info.Items)

	items, err := svc.SearchItems("85", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"85099B", "85123A"}, items)
}
