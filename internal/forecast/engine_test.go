package forecast

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/pkg/contracts/domain"
)

// linearModel predicts y = slope*weeks + intercept with a fixed band
type linearModel struct {
	fitT      []time.Time
	fitY      []float64
	fitErr    error
	predErr   error
	panicMsg  string
	swapBands bool
	nanAt     int
	short     bool
}

func (m *linearModel) Fit(_ context.Context, t []time.Time, y []float64) error {
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	m.fitT = append([]time.Time(nil), t...)
	m.fitY = append([]float64(nil), y...)
	return m.fitErr
}

func (m *linearModel) Predict(_ context.Context, t []time.Time) (Prediction, error) {
	if m.predErr != nil {
		return Prediction{}, m.predErr
	}
	n := len(t)
	if m.short {
		n--
	}
	p := Prediction{Yhat: make([]float64, n), Lower: make([]float64, n), Upper: make([]float64, n)}
	origin := m.fitT[0]
	for i := 0; i < n; i++ {
		weeks := t[i].Sub(origin).Hours() / (24 * 7)
		y := 10 + weeks
		p.Yhat[i], p.Lower[i], p.Upper[i] = y, y-1, y+1
		if m.swapBands {
			p.Lower[i], p.Upper[i] = p.Upper[i], p.Lower[i]
		}
	}
	if m.nanAt > 0 && m.nanAt < n {
		p.Yhat[m.nanAt] = math.NaN()
	}
	return p, nil
}

func factoryFor(m *linearModel) ModelFactory {
	return func() (Model, error) { return m, nil }
}

func weekly(item string, start time.Time, n int) domain.ItemSeries {
	s := domain.ItemSeries{ItemID: item}
	for i := 0; i < n; i++ {
		s.Points = append(s.Points, domain.SeriesPoint{Timestamp: start.AddDate(0, 0, 7*i), Quantity: float64(i)})
	}
	return s
}

var start = time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC)

func TestEngine_Forecast_HistoryAndHorizon(t *testing.T) {
	model := &linearModel{}
	engine := NewEngine(factoryFor(model), 7, nil, nil)

	result, err := engine.Forecast(context.Background(), weekly("X", start, 60), 15)
	require.NoError(t, err)

	assert.Equal(t, "X", result.ItemID)
	assert.Equal(t, 60, result.HistoryCount)
	require.Len(t, result.Points, 75)

	future := result.Future()
	require.Len(t, future, 15)
	last := start.AddDate(0, 0, 7*59)
	for i, p := range future {
		assert.False(t, p.Historical)
		assert.Equal(t, last.AddDate(0, 0, 7*(i+1)), p.Timestamp)
		assert.LessOrEqual(t, p.YhatLower, p.Yhat)
		assert.LessOrEqual(t, p.Yhat, p.YhatUpper)
	}

	first := result.Points[0]
	assert.True(t, first.Historical)
	assert.Equal(t, start, first.Timestamp)
	require.Len(t, result.Observed, 60)
	assert.Equal(t, 0.0, result.Observed[0].Quantity)
}

func TestEngine_Forecast_UnsortedSeriesWithDuplicates(t *testing.T) {
	model := &linearModel{}
	engine := NewEngine(factoryFor(model), 7, nil, nil)

	series := domain.ItemSeries{ItemID: "X", Points: []domain.SeriesPoint{
		{Timestamp: start.AddDate(0, 0, 14), Quantity: 3},
		{Timestamp: start, Quantity: 1},
		{Timestamp: start.AddDate(0, 0, 7), Quantity: 2},
		{Timestamp: start.AddDate(0, 0, 7), Quantity: 5},
	}}

	result, err := engine.Forecast(context.Background(), series, 2)
	require.NoError(t, err)

	// model saw every observation in ascending time, ties in source order
	assert.Equal(t, []float64{1, 2, 5, 3}, model.fitY)
	assert.True(t, sortAscending(model.fitT))

	// one row per distinct timestamp, then the horizon
	assert.Equal(t, 3, result.HistoryCount)
	require.Len(t, result.Points, 5)
	want := []time.Time{
		start,
		start.AddDate(0, 0, 7),
		start.AddDate(0, 0, 14),
		start.AddDate(0, 0, 21),
		start.AddDate(0, 0, 28),
	}
	for i, p := range result.Points {
		assert.Equal(t, want[i], p.Timestamp, "row %d", i)
		assert.Equal(t, i < 3, p.Historical, "row %d", i)
		if i > 0 {
			assert.True(t, p.Timestamp.Sub(result.Points[i-1].Timestamp) > 0, "rows %d/%d not ascending", i-1, i)
		}
	}
	assert.Equal(t, 10.0, result.Points[0].Yhat)
	assert.Equal(t, 12.0, result.Points[2].Yhat)

	// raw observations are kept for plotting
	require.Len(t, result.Observed, 4)
	assert.Equal(t, 5.0, result.Observed[2].Quantity)
	assert.Equal(t, 3.0, result.Observed[3].Quantity)

	// the input series is not reordered
	assert.Equal(t, start.AddDate(0, 0, 14), series.Points[0].Timestamp)
}

func sortAscending(ts []time.Time) bool {
	for i := 1; i < len(ts); i++ {
		if ts[i].Before(ts[i-1]) {
			return false
		}
	}
	return true
}

func TestEngine_Forecast_NormalizesBands(t *testing.T) {
	engine := NewEngine(factoryFor(&linearModel{swapBands: true}), 7, nil, nil)

	result, err := engine.Forecast(context.Background(), weekly("X", start, 5), 3)
	require.NoError(t, err)
	for _, p := range result.Points {
		assert.LessOrEqual(t, p.YhatLower, p.Yhat)
		assert.LessOrEqual(t, p.Yhat, p.YhatUpper)
		assert.Equal(t, 2.0, p.YhatUpper-p.YhatLower)
	}
}

func TestEngine_Forecast_Failures(t *testing.T) {
	sameDay := domain.ItemSeries{ItemID: "D", Points: []domain.SeriesPoint{
		{Timestamp: start, Quantity: 1},
		{Timestamp: start, Quantity: 2},
	}}

	tests := []struct {
		name       string
		factory    ModelFactory
		series     domain.ItemSeries
		wantReason string
	}{
		{
			name:       "identical timestamps",
			factory:    factoryFor(&linearModel{}),
			series:     sameDay,
			wantReason: "too few distinct timestamps",
		},
		{
			name:       "single point",
			factory:    factoryFor(&linearModel{}),
			series:     weekly("S", start, 1),
			wantReason: "at least 2 data points are required",
		},
		{
			name:       "factory error",
			factory:    func() (Model, error) { return nil, errors.New("bad options") },
			series:     weekly("X", start, 5),
			wantReason: "model could not be created",
		},
		{
			name:       "fit error",
			factory:    factoryFor(&linearModel{fitErr: errors.New("singular matrix")}),
			series:     weekly("X", start, 5),
			wantReason: "model could not be fitted",
		},
		{
			name:       "predict error",
			factory:    factoryFor(&linearModel{predErr: errors.New("not fitted")}),
			series:     weekly("X", start, 5),
			wantReason: "prediction failed",
		},
		{
			name:       "panic",
			factory:    factoryFor(&linearModel{panicMsg: "index out of range"}),
			series:     weekly("X", start, 5),
			wantReason: "model panicked",
		},
		{
			name:       "non-finite output",
			factory:    factoryFor(&linearModel{nanAt: 2}),
			series:     weekly("X", start, 5),
			wantReason: "model produced non-finite values",
		},
		{
			name:       "short output",
			factory:    factoryFor(&linearModel{short: true}),
			series:     weekly("X", start, 5),
			wantReason: "model returned",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.factory, 7, nil, nil)
			_, err := engine.Forecast(context.Background(), tt.series, 3)

			var fitErr *FitError
			require.ErrorAs(t, err, &fitErr)
			assert.Contains(t, fitErr.Reason, tt.wantReason)
			assert.Contains(t, fitErr.UserMessage(), "Forecast failed for the selected Stock Code: ")
		})
	}
}

func TestEngine_Forecast_CancelledBeforeFit(t *testing.T) {
	model := &linearModel{}
	engine := NewEngine(factoryFor(model), 7, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Forecast(ctx, weekly("X", start, 5), 3)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, model.fitT)
}

func TestEngine_Forecast_HorizonOutOfRange(t *testing.T) {
	engine := NewEngine(factoryFor(&linearModel{}), 7, nil, nil)

	for _, h := range []int{0, 53} {
		_, err := engine.Forecast(context.Background(), weekly("X", start, 5), h)
		require.Error(t, err)
		var fitErr *FitError
		assert.False(t, errors.As(err, &fitErr))
	}
}

func TestFutureTimestamps(t *testing.T) {
	last := time.Date(2011, 12, 9, 12, 50, 0, 0, time.UTC)

	got := FutureTimestamps(last, 3, 7)
	assert.Equal(t, []time.Time{
		time.Date(2011, 12, 16, 12, 50, 0, 0, time.UTC),
		time.Date(2011, 12, 23, 12, 50, 0, 0, time.UTC),
		time.Date(2011, 12, 30, 12, 50, 0, 0, time.UTC),
	}, got)

	assert.Nil(t, FutureTimestamps(last, 0, 7))
	assert.Len(t, FutureTimestamps(last, 52, 7), 52)
}
