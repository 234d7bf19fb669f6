package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// timestampLayouts are tried in order. Slash dates are month-first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
	"2006/01/02 15:04:05",
	"2006/01/02",
}

// missingTokens are cell values treated as absent
var missingTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"nat":  {},
	"null": {},
	"none": {},
	"n/a":  {},
	"na":   {},
}

func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(s)]
	return ok
}

// ParseTimestamp coerces a cell to a UTC time. Unparseable input reports
// false instead of an error. When serial is true, bare numbers are read as
// Excel date serials.
func ParseTimestamp(raw string, serial bool) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	if serial {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
			if t, err := excelize.ExcelDateToTime(f, false); err == nil {
				return t.UTC(), true
			}
		}
	}

	return time.Time{}, false
}

// ParseQuantity coerces a cell to a finite number
func ParseQuantity(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if isMissing(s) {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
