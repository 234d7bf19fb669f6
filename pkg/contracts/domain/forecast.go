package domain

import (
	"time"
)

// Forecast horizon bounds, in weeks
const (
	MinHorizonWeeks     = 1
	MaxHorizonWeeks     = 52
	DefaultHorizonWeeks = 15
)

// SeriesPoint is a single (timestamp, quantity) observation
type SeriesPoint struct {
	Timestamp time.Time `json:"ds"`
	Quantity  float64   `json:"y"`
}

// ItemSeries is the time series of one item, in source row order
type ItemSeries struct {
	ItemID string        `json:"item_id"`
	Points []SeriesPoint `json:"points"`
}

// Len returns the number of observations
func (s ItemSeries) Len() int {
	return len(s.Points)
}

// LastTimestamp returns the latest observed timestamp. Points are not
// assumed to be sorted.
func (s ItemSeries) LastTimestamp() time.Time {
	var last time.Time
	for i, p := range s.Points {
		if i == 0 || p.Timestamp.After(last) {
			last = p.Timestamp
		}
	}
	return last
}

// ForecastRequest is the input of a single forecast run
type ForecastRequest struct {
	ItemID  string `json:"item_id" validate:"required"`
	Horizon int    `json:"horizon" validate:"min=1,max=52"`
}

// ForecastPoint is one row of model output.
// Invariant: YhatLower <= Yhat <= YhatUpper.
type ForecastPoint struct {
	Timestamp  time.Time `json:"ds"`
	Yhat       float64   `json:"yhat"`
	YhatLower  float64   `json:"yhat_lower"`
	YhatUpper  float64   `json:"yhat_upper"`
	Historical bool      `json:"historical"`
}

// ForecastResult covers the historical range followed by the horizon.
// Points holds one row per distinct historical timestamp then Horizon
// future rows, strictly ascending. Observed holds every observation the
// model was fitted on, in time order.
type ForecastResult struct {
	ItemID       string          `json:"item_id"`
	Horizon      int             `json:"horizon"`
	HistoryCount int             `json:"history_count"`
	Points       []ForecastPoint `json:"points"`
	Observed     []SeriesPoint   `json:"observed"`
}

// Future returns the last Horizon rows
func (r ForecastResult) Future() []ForecastPoint {
	if r.Horizon <= 0 || r.Horizon > len(r.Points) {
		return nil
	}
	return r.Points[len(r.Points)-r.Horizon:]
}

// TableRow is a presentation row with values rounded for display
type TableRow struct {
	Date      string  `json:"ds"`
	Yhat      float64 `json:"yhat"`
	YhatLower float64 `json:"yhat_lower"`
	YhatUpper float64 `json:"yhat_upper"`
}

// ForecastTable holds the last horizon rows of a forecast
type ForecastTable struct {
	Columns []string   `json:"columns"`
	Rows    []TableRow `json:"rows"`
}

// Chart is a rendered forecast chart
type Chart struct {
	Title  string `json:"title"`
	XLabel string `json:"x_label"`
	YLabel string `json:"y_label"`
	SVG    string `json:"svg"`
}

// ForecastReport is the presented outcome of a successful run
type ForecastReport struct {
	ItemID      string         `json:"item_id"`
	Horizon     int            `json:"horizon"`
	Fingerprint string         `json:"dataset_fingerprint"`
	Chart       Chart          `json:"chart"`
	Table       ForecastTable  `json:"table"`
	Result      ForecastResult `json:"result"`
	GeneratedAt time.Time      `json:"generated_at"`
}
