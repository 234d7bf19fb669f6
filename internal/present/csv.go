package present

import (
	"encoding/csv"
	"fmt"
	"io"

	"demandcast/pkg/contracts/domain"
)

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
	History   bool // Include historical rows, with y as the observed total per timestamp
}

// WriteCSV writes a forecast as CSV. By default only the horizon rows are
// written, matching the on-screen table.
func WriteCSV(w io.Writer, result domain.ForecastResult, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := w.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)

	headers := append([]string(nil), TableColumns...)
	if options.History {
		headers = append(headers, "y", "historical")
	}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}

	points := result.Future()
	var totals map[int64]float64
	if options.History {
		points = sortedByTime(result.Points)
		totals = observedTotals(result)
	}

	for i, p := range points {
		record := []string{
			p.Timestamp.Format(DateLayout),
			formatDecimal(p.Yhat),
			formatDecimal(p.YhatLower),
			formatDecimal(p.YhatUpper),
		}
		if options.History {
			actual := ""
			if y, ok := totals[p.Timestamp.UnixNano()]; ok && p.Historical {
				actual = formatDecimal(y)
			}
			record = append(record, actual, fmt.Sprintf("%t", p.Historical))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
