package model

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	xhttp "DemandCast/pkg/http"
)

const httpPredictAttempts = 3

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Prediction float64 `json:"prediction"`
}

// HTTPModel delegates scoring to an external inference service speaking a
// small JSON protocol: POST /predict with the named feature map, a single
// prediction back.
type HTTPModel struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPModel builds an adapter for the inference service at baseURL.
func NewHTTPModel(baseURL string, timeout time.Duration) *HTTPModel {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPModel{
		baseURL: baseURL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// Predict posts the feature vector and retries transient failures with a
// linear backoff before giving up.
func (m *HTTPModel) Predict(ctx context.Context, fv models.FeatureVector) (float64, error) {
	if m.baseURL == "" {
		return 0, fmt.Errorf("inference service url not configured")
	}

	req := &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     m.baseURL + "/predict",
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    predictRequest{Features: fv.Map()},
	}

	var resp predictResponse
	var err error
	for attempt := 1; attempt <= httpPredictAttempts; attempt++ {
		err = m.client.SendAndParse(ctx, req, &resp)
		if err == nil {
			return resp.Prediction, nil
		}
		select {
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return 0, fmt.Errorf("predict via %s: %w", m.baseURL, err)
}

func (m *HTTPModel) Name() string { return "http" }
