package dataset

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"demandcast/pkg/contracts/domain"
)

func rec(item string, day int, qty float64) domain.TransactionRecord {
	return domain.TransactionRecord{
		ItemID:    item,
		Timestamp: time.Date(2011, 1, day, 0, 0, 0, 0, time.UTC),
		Quantity:  qty,
	}
}

func TestTable_Series(t *testing.T) {
	table := NewTable([]domain.TransactionRecord{
		rec("85123A", 10, 6),
		rec("22423", 3, 1),
		rec("85123A", 3, 8),
		rec("85123a", 4, 99),
		rec("SOLO", 5, 2),
		rec("85123A", 17, 4),
	}, nil)

	t.Run("keeps source order and exact case", func(t *testing.T) {
		series, err := table.Series("85123A")
		require.NoError(t, err)
		require.Equal(t, 3, series.Len())
		assert.Equal(t, []float64{6, 8, 4}, []float64{
			series.Points[0].Quantity, series.Points[1].Quantity, series.Points[2].Quantity,
		})
		assert.Equal(t, time.Date(2011, 1, 17, 0, 0, 0, 0, time.UTC), series.LastTimestamp())
	})

	t.Run("no match", func(t *testing.T) {
		_, err := table.Series("99999")
		var noMatch *NoMatchError
		require.ErrorAs(t, err, &noMatch)
		assert.Equal(t, "No data found for the given Stock Code.", noMatch.UserMessage())
	})

	t.Run("whitespace is not normalized", func(t *testing.T) {
		_, err := table.Series(" 85123A")
		var noMatch *NoMatchError
		assert.ErrorAs(t, err, &noMatch)
	})

	t.Run("single row", func(t *testing.T) {
		series, err := table.Series("SOLO")
		var insufficient *InsufficientDataError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, 1, insufficient.Points)
		assert.Equal(t, 1, series.Len())
		assert.Equal(t,
			"Not enough data points for the selected Stock Code. At least 2 non-NaN rows are required.",
			insufficient.UserMessage())
	})
}

func TestTable_Info(t *testing.T) {
	records := []domain.TransactionRecord{rec("A", 10, 1), rec("B", 2, 1), rec("A", 20, 1)}
	table := NewTable(records, []domain.SourceStats{{Name: "a.csv", RowsRead: 4, RowsKept: 3, RowsDropped: 1}})

	info := table.Info()
	assert.Equal(t, 3, info.Rows)
	assert.Equal(t, 2, info.Items)
	require.NotNil(t, info.From)
	require.NotNil(t, info.To)
	assert.Equal(t, 2, info.From.Day())
	assert.Equal(t, 20, info.To.Day())
	assert.Len(t, info.Fingerprint, 64)
	assert.Equal(t, "a.csv", info.Sources[0].Name)
}

func TestTable_Fingerprint(t *testing.T) {
	a := NewTable([]domain.TransactionRecord{rec("A", 1, 1), rec("A", 2, 2)}, nil)
	b := NewTable([]domain.TransactionRecord{rec("A", 1, 1), rec("A", 2, 2)}, nil)
	c := NewTable([]domain.TransactionRecord{rec("A", 2, 2), rec("A", 1, 1)}, nil)
	d := NewTable([]domain.TransactionRecord{rec("A", 1, 1), rec("A", 2, 3)}, nil)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}

func TestTable_Suggest(t *testing.T) {
	table := NewTable([]domain.TransactionRecord{
		rec("85123A", 1, 1),
		rec("85123B", 1, 1),
		rec("85124A", 1, 1),
		rec("22423", 1, 1),
		rec("POST", 1, 1),
	}, nil)

	tests := []struct {
		name  string
		query string
		n     int
		want  []string
	}{
		{"case difference ranks first", "85123a", 5, []string{"85123A", "85123B", "85124A"}},
		{"limit", "85123C", 2, []string{"85123A", "85123B"}},
		{"nothing close", "ZZZZZZZZ", 5, []string{}},
		{"short query", "PST", 5, []string{"POST"}},
		{"empty query", "  ", 5, nil},
		{"zero n", "85123A", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := table.Suggest(tt.query, tt.n)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTable_Search(t *testing.T) {
	table := NewTable([]domain.TransactionRecord{
		rec("85123A", 1, 1),
		rec("85123B", 1, 1),
		rec("22423", 1, 1),
		rec("post", 1, 1),
	}, nil)

	assert.Equal(t, []string{"85123A", "85123B"}, table.Search("851", 10))
	assert.Equal(t, []string{"85123A"}, table.Search("851", 1))
	assert.Equal(t, []string{"post"}, table.Search("PO", 10))
	assert.Equal(t, []string{"22423", "85123A"}, table.Search("", 2))
	assert.Nil(t, table.Search("8", 0))
	assert.Empty(t, table.Search("X", 5))
	assert.Equal(t, 1, table.Count("post"))
	assert.Equal(t, 0, table.Count("nope"))
}
