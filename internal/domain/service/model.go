package service

import (
	"context"

	"DemandCast/internal/domain/models"
)

// Predictor is the external point-prediction oracle: deterministic, stateless
// across calls, one scalar per feature vector. The recursive forecaster calls
// it once per horizon step.
type Predictor interface {
	Predict(ctx context.Context, fv models.FeatureVector) (float64, error)

	// Name identifies the underlying model for logging and health reporting.
	Name() string
}
