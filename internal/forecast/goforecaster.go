package forecast

import (
	"context"
	"errors"
	"time"

	forecaster "github.com/aouyang1/go-forecaster"
)

// GoForecaster adapts github.com/aouyang1/go-forecaster, an additive
// trend plus seasonality model with uncertainty bands.
type GoForecaster struct {
	f *forecaster.Forecaster
}

// NewGoForecaster creates a model with the library's default options
func NewGoForecaster() (Model, error) {
	f, err := forecaster.New(nil)
	if err != nil {
		return nil, err
	}
	return &GoForecaster{f: f}, nil
}

func (g *GoForecaster) Fit(ctx context.Context, t []time.Time, y []float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return g.f.Fit(t, y)
}

func (g *GoForecaster) Predict(ctx context.Context, t []time.Time) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}

	res, err := g.f.Predict(t)
	if err != nil {
		return Prediction{}, err
	}
	if res == nil {
		return Prediction{}, errors.New("model returned no results")
	}
	return Prediction{Yhat: res.Forecast, Lower: res.Lower, Upper: res.Upper}, nil
}
