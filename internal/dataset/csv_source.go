package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
)

// CSVSource reads a comma-separated file with a header row
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSV source for path
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

func (s *CSVSource) Name() string { return s.path }
func (s *CSVSource) Kind() string { return KindCSV }

// Read loads the whole file. Rows may have fewer or more fields than the
// header; the loader treats absent cells as missing.
func (s *CSVSource) Read(ctx context.Context) (*Frame, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &ConfigError{Source: s.path, Reason: "cannot open file", Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = false

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ConfigError{Source: s.path, Reason: "file is empty"}
	}
	if err != nil {
		return nil, &ConfigError{Source: s.path, Reason: "cannot read header", Err: err}
	}

	frame := &Frame{Header: header}
	for {
		if len(frame.Rows)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ConfigError{Source: s.path, Reason: "malformed csv", Err: err}
		}
		frame.Rows = append(frame.Rows, rec)
	}

	return frame, nil
}
