package present

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"demandcast/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetForecast = "Forecast"
	SheetHistory  = "History"
)

// WriteXLSX writes a workbook with the horizon table on the Forecast sheet
// and every model row, with the observed total per timestamp, on the
// History sheet.
func WriteXLSX(w io.Writer, report *domain.ForecastReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetForecast); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetHistory); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}
	numStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}

	header := []interface{}{"ds", "yhat", "yhat_lower", "yhat_upper"}
	if err := f.SetSheetRow(SheetForecast, "A1", &header); err != nil {
		return err
	}
	for i, p := range report.Result.Future() {
		row := []interface{}{p.Timestamp, round2(p.Yhat), round2(p.YhatLower), round2(p.YhatUpper)}
		if err := f.SetSheetRow(SheetForecast, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write forecast row %d: %w", i, err)
		}
	}

	histHeader := []interface{}{"ds", "y", "yhat", "yhat_lower", "yhat_upper", "historical"}
	if err := f.SetSheetRow(SheetHistory, "A1", &histHeader); err != nil {
		return err
	}
	points := sortedByTime(report.Result.Points)
	totals := observedTotals(report.Result)
	for i, p := range points {
		var actual interface{}
		if y, ok := totals[p.Timestamp.UnixNano()]; ok && p.Historical {
			actual = y
		}
		row := []interface{}{p.Timestamp, actual, p.Yhat, p.YhatLower, p.YhatUpper, p.Historical}
		if err := f.SetSheetRow(SheetHistory, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write history row %d: %w", i, err)
		}
	}

	if n := len(report.Result.Future()); n > 0 {
		_ = f.SetCellStyle(SheetForecast, "A2", fmt.Sprintf("A%d", n+1), dateStyle)
		_ = f.SetCellStyle(SheetForecast, "B2", fmt.Sprintf("D%d", n+1), numStyle)
	}
	if n := len(points); n > 0 {
		_ = f.SetCellStyle(SheetHistory, "A2", fmt.Sprintf("A%d", n+1), dateStyle)
		_ = f.SetCellStyle(SheetHistory, "B2", fmt.Sprintf("E%d", n+1), numStyle)
	}
	_ = f.SetColWidth(SheetForecast, "A", "D", 14)
	_ = f.SetColWidth(SheetHistory, "A", "F", 14)

	_ = f.SetDocProps(&excelize.DocProperties{
		Title:   ChartTitle(report.ItemID),
		Creator: "demandcast",
	})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
