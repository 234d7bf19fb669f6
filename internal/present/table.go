package present

import (
	"sort"

	"github.com/shopspring/decimal"

	"demandcast/pkg/contracts/domain"
)

// DateLayout formats table dates
const DateLayout = "2006-01-02"

// TableColumns are the forecast table headers
var TableColumns = []string{"ds", "yhat", "yhat_lower", "yhat_upper"}

// BuildTable returns the last horizon rows of the result with values
// rounded to two decimals.
func BuildTable(result domain.ForecastResult) domain.ForecastTable {
	future := result.Future()
	table := domain.ForecastTable{
		Columns: append([]string(nil), TableColumns...),
		Rows:    make([]domain.TableRow, 0, len(future)),
	}
	for _, p := range future {
		table.Rows = append(table.Rows, domain.TableRow{
			Date:      p.Timestamp.Format(DateLayout),
			Yhat:      round2(p.Yhat),
			YhatLower: round2(p.YhatLower),
			YhatUpper: round2(p.YhatUpper),
		})
	}
	return table
}

// Build renders both outputs of a successful run
func Build(result domain.ForecastResult, size ChartSize) (domain.Chart, domain.ForecastTable) {
	return RenderChart(result, size), BuildTable(result)
}

func round2(f float64) float64 {
	v, _ := decimal.NewFromFloat(f).Round(2).Float64()
	return v
}

func formatDecimal(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

// sortedByTime returns a time-ordered copy; ties keep input order
func sortedByTime(points []domain.ForecastPoint) []domain.ForecastPoint {
	out := append([]domain.ForecastPoint(nil), points...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// observedTotals sums observed quantities per timestamp
func observedTotals(result domain.ForecastResult) map[int64]float64 {
	totals := make(map[int64]float64, len(result.Observed))
	for _, o := range result.Observed {
		totals[o.Timestamp.UnixNano()] += o.Quantity
	}
	return totals
}
