package dataset

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsSource reads a range of a Google spreadsheet. The first row of the
// range is the header.
type SheetsSource struct {
	spreadsheetID string
	readRange     string
	opts          []option.ClientOption
}

// NewSheetsSource creates a Google Sheets source
func NewSheetsSource(spreadsheetID, readRange string, opts ...option.ClientOption) *SheetsSource {
	return &SheetsSource{spreadsheetID: spreadsheetID, readRange: readRange, opts: opts}
}

func (s *SheetsSource) Name() string {
	return SheetsScheme + s.spreadsheetID + "/" + s.readRange
}

func (s *SheetsSource) Kind() string { return KindSheets }

func (s *SheetsSource) Read(ctx context.Context) (*Frame, error) {
	svc, err := sheets.NewService(ctx, s.opts...)
	if err != nil {
		return nil, &ConfigError{Source: s.Name(), Reason: "cannot create sheets client", Err: err}
	}

	resp, err := svc.Spreadsheets.Values.Get(s.spreadsheetID, s.readRange).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &ConfigError{Source: s.Name(), Reason: "cannot read range", Err: err}
	}
	if len(resp.Values) == 0 {
		return nil, &ConfigError{Source: s.Name(), Reason: "range is empty"}
	}

	frame := &Frame{
		Header: cellsToStrings(resp.Values[0]),
		Rows:   make([][]string, 0, len(resp.Values)-1),
	}
	for _, row := range resp.Values[1:] {
		frame.Rows = append(frame.Rows, cellsToStrings(row))
	}
	return frame, nil
}

func cellsToStrings(cells []interface{}) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		if c == nil {
			continue
		}
		out[i] = fmt.Sprint(c)
	}
	return out
}
