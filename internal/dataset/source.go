package dataset

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"google.golang.org/api/option"
)

// Source kinds
const (
	KindCSV    = "csv"
	KindXLSX   = "xlsx"
	KindSheets = "sheets"
)

// SheetsScheme prefixes Google Sheets handles: sheets://<spreadsheet-id>/<range>
const SheetsScheme = "sheets://"

// Frame is the raw tabular content of one source: a header row followed by
// data rows, all as text.
type Frame struct {
	Header []string
	Rows   [][]string
	// SerialDates marks cells that may hold spreadsheet date serials
	SerialDates bool
}

// Source reads one tabular input
type Source interface {
	Name() string
	Kind() string
	Read(ctx context.Context) (*Frame, error)
}

// SourceOptions carries settings shared by all sources
type SourceOptions struct {
	// SheetsOptions configure the Google Sheets client (credentials, endpoint)
	SheetsOptions []option.ClientOption
}

// OpenSource maps a configured handle to a Source. Unknown handle types are
// a ConfigError.
func OpenSource(handle string, opts SourceOptions) (Source, error) {
	handle = strings.TrimSpace(handle)

	if strings.HasPrefix(strings.ToLower(handle), SheetsScheme) {
		rest := handle[len(SheetsScheme):]
		id, rng, _ := strings.Cut(rest, "/")
		if id == "" {
			return nil, &ConfigError{Source: handle, Reason: "missing spreadsheet id"}
		}
		if rng == "" {
			rng = "A:ZZ"
		}
		return NewSheetsSource(id, rng, opts.SheetsOptions...), nil
	}

	path, sheet, _ := strings.Cut(handle, "#")
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		if sheet != "" {
			return nil, &ConfigError{Source: handle, Reason: "csv sources have no sheets"}
		}
		return NewCSVSource(path), nil
	case ".xlsx", ".xlsm":
		return NewXLSXSource(path, sheet), nil
	default:
		return nil, &ConfigError{Source: handle, Reason: fmt.Sprintf("unsupported source type %q", filepath.Ext(path))}
	}
}
