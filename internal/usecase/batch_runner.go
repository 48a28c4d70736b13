package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"DemandCast/internal/forecast"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/queue"
)

const ForecastJobType = "forecast_series"

// ForecastJobPayload is one unit of batch work: forecast a single series.
type ForecastJobPayload struct {
	ItemID  string `json:"item_id"`
	StoreID string `json:"store_id"`
	Horizon int    `json:"horizon"`
}

// ForecastJob handles queued forecast jobs. Running one warms the cache and
// publishes the forecast like an interactive request would.
type ForecastJob struct {
	svc *ForecastService
	log *logger.Logger
}

func NewForecastJob(svc *ForecastService, log *logger.Logger) *ForecastJob {
	return &ForecastJob{svc: svc, log: log}
}

func (j *ForecastJob) Name() string { return "forecast-series" }
func (j *ForecastJob) Type() string { return ForecastJobType }

func (j *ForecastJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ForecastJobPayload](payload)
	if err != nil {
		return fmt.Errorf("parse forecast job: %w", err)
	}

	_, err = j.svc.Forecast(ctx, p.ItemID, p.StoreID, p.Horizon)
	if err != nil {
		// Unknown series is terminal; retrying cannot help.
		if errors.Is(err, forecast.ErrUnknownSeries) {
			j.log.Warn("batch job for unknown series dropped",
				logger.String("item_id", p.ItemID),
				logger.String("store_id", p.StoreID))
			return nil
		}
		return err
	}
	return nil
}

var _ queue.Job = (*ForecastJob)(nil)

// BatchRunner enqueues forecast jobs for every series in the catalog, the bulk
// equivalent of calling the forecast endpoint once per series.
type BatchRunner struct {
	svc *ForecastService
	q   queue.QueueService
	log *logger.Logger
}

func NewBatchRunner(svc *ForecastService, q queue.QueueService, log *logger.Logger) *BatchRunner {
	return &BatchRunner{svc: svc, q: q, log: log}
}

// Enqueue schedules one job per series, optionally restricted to a store.
// Returns the number of jobs enqueued.
func (r *BatchRunner) Enqueue(ctx context.Context, horizon int, storeID string) (int, error) {
	start := time.Now()
	n := 0
	for _, key := range r.svc.Keys() {
		if storeID != "" && key.StoreID != storeID {
			continue
		}
		payload := ForecastJobPayload{ItemID: key.ItemID, StoreID: key.StoreID, Horizon: horizon}
		if err := r.q.PublishMessage(ctx, ForecastJobType, payload); err != nil {
			return n, fmt.Errorf("enqueue %s: %w", key, err)
		}
		n++
	}
	r.log.Info("batch forecast enqueued",
		logger.Int("jobs", n),
		logger.Int("horizon", horizon),
		logger.String("store_id", storeID),
		logger.Duration("elapsed", time.Since(start)))
	return n, nil
}
