package model

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/forecast"
)

// weightsFile is the on-disk format of an exported linear model: an intercept
// plus one coefficient per feature name.
type weightsFile struct {
	Name    string             `json:"name"`
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// Linear scores a feature vector as bias + sum(weight * feature). It stands in
// for the gradient-boosted model in environments without an inference service.
type Linear struct {
	name    string
	bias    float64
	weights map[string]float64
}

// LoadLinear reads a weights file and validates every coefficient name against
// the feature schema.
func LoadLinear(path string) (*Linear, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read weights %s: %v", forecast.ErrModelUnavailable, path, err)
	}

	var wf weightsFile
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("%w: parse weights %s: %v", forecast.ErrModelUnavailable, path, err)
	}
	if len(wf.Weights) == 0 {
		return nil, fmt.Errorf("%w: weights file %s has no coefficients", forecast.ErrModelUnavailable, path)
	}

	known := make(map[string]struct{}, len(models.FeatureNames))
	for _, name := range models.FeatureNames {
		known[name] = struct{}{}
	}
	for name := range wf.Weights {
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("%w: unknown feature %q in %s", forecast.ErrModelUnavailable, name, path)
		}
	}

	name := wf.Name
	if name == "" {
		name = "linear"
	}
	return &Linear{name: name, bias: wf.Bias, weights: wf.Weights}, nil
}

// Predict computes the linear score. Missing coefficients contribute nothing.
func (m *Linear) Predict(_ context.Context, fv models.FeatureVector) (float64, error) {
	score := m.bias
	for name, v := range fv.Map() {
		if w, ok := m.weights[name]; ok {
			score += w * v
		}
	}
	return score, nil
}

func (m *Linear) Name() string { return m.name }
