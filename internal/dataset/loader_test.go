package dataset

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/internal/config"
	"demandcast/internal/shared/testutil"
)

var defaultColumns = Columns{Item: "StockCode", Timestamp: "InvoiceDate", Quantity: "Quantity"}

type frameSource struct {
	name  string
	frame *Frame
	err   error
	delay time.Duration
}

func (s *frameSource) Name() string { return s.name }
func (s *frameSource) Kind() string { return "memory" }
func (s *frameSource) Read(ctx context.Context) (*Frame, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.frame, s.err
}

func TestLoader_Load_ConcatenatesInSourceOrder(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC)

	first := testutil.WriteTransactionsCSV(t, dir, "first.csv", testutil.TransactionHeader,
		testutil.WeeklyRows("X", start, 30, func(i int) float64 { return float64(i) }))
	second := testutil.WriteTransactionsCSV(t, dir, "second.csv", testutil.TransactionHeader,
		testutil.WeeklyRows("X", start.AddDate(0, 0, 7*30), 30, func(i int) float64 { return float64(100 + i) }))

	logger, handler := testutil.NewTestLogger(t)
	cfg := config.Default().Data
	cfg.Sources = []string{first, second}

	loader, err := NewLoader(cfg, logger)
	require.NoError(t, err)

	table, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60, table.Len())
	assert.Equal(t, 1, table.ItemCount())

	// second source rows follow the first even if it finished reading first
	assert.Equal(t, 0.0, table.Record(0).Quantity)
	assert.Equal(t, 29.0, table.Record(29).Quantity)
	assert.Equal(t, 100.0, table.Record(30).Quantity)
	assert.Equal(t, first, table.Record(0).Source)
	assert.Equal(t, second, table.Record(59).Source)

	info := table.Info()
	require.Len(t, info.Sources, 2)
	assert.Equal(t, 30, info.Sources[0].RowsKept)
	require.NotNil(t, info.From)
	assert.Equal(t, start, *info.From)

	assert.Equal(t, 2, handler.CountMessage("source loaded"))
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "dataset loaded")
}

func TestLoader_Load_DropsInvalidRows(t *testing.T) {
	src := &frameSource{name: "mem", frame: &Frame{
		Header: []string{"\ufeffstockcode ", "InvoiceDate", " QUANTITY"},
		Rows: [][]string{
			{"A", "2011-01-03 09:00:00", "6"},
			{"A", "", "6"},
			{"A", "garbage", "6"},
			{"A", "2011-01-10 09:00:00", "NaN"},
			{"A", "2011-01-17 09:00:00", ""},
			{"A", "2011-01-24 09:00:00"},
			{"B", "2011-01-31 09:00:00", "-2"},
		},
	}}

	table, err := NewLoaderWithSources([]Source{src}, defaultColumns, nil).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, "A", table.Record(0).ItemID)
	assert.Equal(t, -2.0, table.Record(1).Quantity)

	stats := table.Info().Sources[0]
	assert.Equal(t, 7, stats.RowsRead)
	assert.Equal(t, 2, stats.RowsKept)
	assert.Equal(t, 5, stats.RowsDropped)
}

func TestLoader_Load_AllRowsDroppedIsEmptyTable(t *testing.T) {
	src := &frameSource{name: "mem", frame: &Frame{
		Header: []string{"StockCode", "InvoiceDate", "Quantity"},
		Rows:   [][]string{{"A", "nope", "1"}},
	}}

	table, err := NewLoaderWithSources([]Source{src}, defaultColumns, nil).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Nil(t, table.Info().From)
}

func TestLoader_Load_Errors(t *testing.T) {
	readErr := &ConfigError{Source: "bad", Reason: "cannot open file", Err: errors.New("boom")}

	tests := []struct {
		name    string
		sources []Source
		wantErr string
	}{
		{
			name:    "no sources",
			wantErr: "no data sources configured",
		},
		{
			name: "missing column",
			sources: []Source{&frameSource{name: "mem", frame: &Frame{
				Header: []string{"StockCode", "InvoiceDate"},
			}}},
			wantErr: `missing column "Quantity"`,
		},
		{
			name: "one source fails",
			sources: []Source{
				&frameSource{name: "slow", delay: time.Second, frame: &Frame{Header: []string{"StockCode", "InvoiceDate", "Quantity"}}},
				&frameSource{name: "bad", err: readErr},
			},
			wantErr: "cannot open file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoaderWithSources(tt.sources, defaultColumns, nil).Load(context.Background())
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewLoader_RejectsUnknownSource(t *testing.T) {
	cfg := config.Default().Data
	cfg.Sources = []string{"sales.json"}

	_, err := NewLoader(cfg, nil)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.UserMessage(), "sales.json")
}

func TestLoader_Load_MixedCSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2011, 1, 3, 0, 0, 0, 0, time.UTC)

	csvPath := testutil.WriteTransactionsCSV(t, dir, "a.csv", testutil.TransactionHeader,
		testutil.WeeklyRows("X", start, 3, func(int) float64 { return 1 }))
	xlsxPath := testutil.WriteTransactionsXLSX(t, dir, "b.xlsx", "Sales", testutil.TransactionHeader,
		testutil.WeeklyRows("X", start.AddDate(0, 0, 21), 2, func(int) float64 { return 2 }))

	cfg := config.Default().Data
	cfg.Sources = []string{csvPath, xlsxPath + "#Sales"}

	loader, err := NewLoader(cfg, nil)
	require.NoError(t, err)
	table, err := loader.Load(context.Background())
	require.NoError(t, err)

	series, err := table.Series("X")
	require.NoError(t, err)
	require.Equal(t, 5, series.Len())
	assert.Equal(t, 2.0, series.Points[4].Quantity)
	assert.Equal(t, start.AddDate(0, 0, 28), series.Points[4].Timestamp)
}
