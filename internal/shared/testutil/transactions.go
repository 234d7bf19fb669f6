package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

// TransactionHeader mirrors the columns of the retail transaction exports
var TransactionHeader = []string{
	"InvoiceNo", "StockCode", "Description", "Quantity",
	"InvoiceDate", "UnitPrice", "CustomerID", "Country",
}

// TransactionRow builds one row in TransactionHeader order
func TransactionRow(item string, ts time.Time, quantity string) []string {
	return []string{
		"536365", item, "ITEM " + item, quantity,
		ts.Format("2006-01-02 15:04:05"), "2.55", "17850", "United Kingdom",
	}
}

// WeeklyRows returns n rows for item, one per week from start, with
// quantities produced by qty(i).
func WeeklyRows(item string, start time.Time, n int, qty func(i int) float64) [][]string {
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, TransactionRow(item, start.AddDate(0, 0, 7*i), fmt.Sprintf("%g", qty(i))))
	}
	return rows
}

// WriteTransactionsCSV writes header and rows to dir/name and returns the path
func WriteTransactionsCSV(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	return path
}

// WriteTransactionsXLSX writes header and rows to the named sheet of a new
// workbook at dir/name and returns the path.
func WriteTransactionsXLSX(t *testing.T, dir, name, sheet string, header []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		idx, err := f.NewSheet(sheet)
		if err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		f.SetActiveSheet(idx)
	}

	all := append([][]string{header}, rows...)
	for r, row := range all {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				t.Fatalf("cell name: %v", err)
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}

	path := filepath.Join(dir, name)
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}
