package dataset

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads one worksheet of an Excel workbook. The first row of the
// sheet is the header.
type XLSXSource struct {
	path  string
	sheet string
}

// NewXLSXSource creates an Excel source. An empty sheet selects the first one.
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet}
}

func (s *XLSXSource) Name() string {
	if s.sheet == "" {
		return s.path
	}
	return s.path + "#" + s.sheet
}

func (s *XLSXSource) Kind() string { return KindXLSX }

func (s *XLSXSource) Read(ctx context.Context) (*Frame, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, &ConfigError{Source: s.Name(), Reason: "cannot open workbook", Err: err}
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &ConfigError{Source: s.Name(), Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Raw values keep date cells as serial numbers instead of locale
	// formatted text.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, &ConfigError{Source: s.Name(), Reason: fmt.Sprintf("cannot read sheet %q", sheet), Err: err}
	}
	if len(rows) == 0 {
		return nil, &ConfigError{Source: s.Name(), Reason: "sheet is empty"}
	}

	return &Frame{Header: rows[0], Rows: rows[1:], SerialDates: true}, nil
}
