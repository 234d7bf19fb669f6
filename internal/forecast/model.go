package forecast

import (
	"context"
	"time"
)

// Prediction holds model output aligned with the requested timestamps
type Prediction struct {
	Yhat  []float64
	Lower []float64
	Upper []float64
}

// Model is a univariate time series model. Fit expects timestamps in
// ascending order; Predict may be called for any timestamps once fitted.
type Model interface {
	Fit(ctx context.Context, t []time.Time, y []float64) error
	Predict(ctx context.Context, t []time.Time) (Prediction, error)
}

// ModelFactory returns an unfitted model. The engine calls it once per run
// so fitted state never leaks between requests.
type ModelFactory func() (Model, error)
