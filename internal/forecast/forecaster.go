package forecast

import (
	"context"
	"fmt"

	"DemandCast/internal/domain/models"
	domsvc "DemandCast/internal/domain/service"
)

// Resolver seeds a fresh series buffer for one forecast invocation.
type Resolver interface {
	Resolve(key models.SeriesKey) (*models.SeriesBuffer, error)
}

// Forecaster runs the recursive multi-step loop: each predicted day is appended
// back into the buffer so the next day's lag and rolling features see it. Steps
// are strictly sequential; step t cannot be computed before steps 1..t-1.
type Forecaster struct {
	resolver Resolver
	model    domsvc.Predictor
	ex       *Extractor
}

// New creates a forecaster over a catalog resolver and a prediction model.
func New(resolver Resolver, model domsvc.Predictor, ex *Extractor) *Forecaster {
	return &Forecaster{resolver: resolver, model: model, ex: ex}
}

// Forecast predicts the next horizon days of the series. The result has exactly
// horizon points with strictly increasing, gapless day indices starting at the
// day after the last observed one. Any step failure discards the whole forecast.
func (f *Forecaster) Forecast(ctx context.Context, key models.SeriesKey, horizon int) ([]models.ForecastPoint, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("forecast: negative horizon %d", horizon)
	}
	if f.model == nil {
		return nil, ErrModelUnavailable
	}

	buf, err := f.resolver.Resolve(key)
	if err != nil {
		return nil, err
	}

	points := make([]models.ForecastPoint, 0, horizon)
	last := buf.LastDay()
	for target := last + 1; target <= last+horizon; target++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fv, err := f.ex.Extract(buf, target)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", target-last, err)
		}

		raw, err := f.model.Predict(ctx, fv)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", target-last, err)
		}

		// Quantities are non-negative by domain invariant.
		v := raw
		if v < 0 {
			v = 0
		}
		buf.Append(v)

		cd, _ := buf.Calendar.At(target)
		points = append(points, models.ForecastPoint{Day: target, Date: cd.Date, Value: v})
	}

	return points, nil
}
