package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/forecast"
	"DemandCast/pkg/cache"
	applogger "DemandCast/pkg/logger"
)

// ForecastService serves forecasts and history over the series catalog. Results
// are cached per (series, horizon) and published to Kafka best-effort.
type ForecastService struct {
	catalog    drepo.Catalog
	forecaster *forecast.Forecaster
	cache      cache.Service
	publisher  drepo.ForecastPublisher
	metrics    drepo.Metrics
	log        *applogger.Logger

	defaultHorizon int
	maxHorizon     int
	cacheTTL       time.Duration
}

// NewForecastService creates the forecast usecase. Cache and publisher are
// optional; nil disables them.
func NewForecastService(
	catalog drepo.Catalog,
	forecaster *forecast.Forecaster,
	c cache.Service,
	publisher drepo.ForecastPublisher,
	metrics drepo.Metrics,
	log *applogger.Logger,
	defaultHorizon, maxHorizon int,
	cacheTTL time.Duration,
) *ForecastService {
	return &ForecastService{
		catalog:        catalog,
		forecaster:     forecaster,
		cache:          c,
		publisher:      publisher,
		metrics:        metrics,
		log:            log,
		defaultHorizon: defaultHorizon,
		maxHorizon:     maxHorizon,
		cacheTTL:       cacheTTL,
	}
}

// DefaultHorizon returns the horizon used when a request does not set one.
func (s *ForecastService) DefaultHorizon() int { return s.defaultHorizon }

// Forecast runs the recursive loop for one series. A horizon of 0 is valid and
// returns an empty forecast without touching the model.
func (s *ForecastService) Forecast(ctx context.Context, itemID, storeID string, horizon int) (*models.Forecast, error) {
	if horizon < 0 || horizon > s.maxHorizon {
		s.metrics.RecordForecast("invalid")
		return nil, fmt.Errorf("horizon must be between 0 and %d, got %d", s.maxHorizon, horizon)
	}

	key := models.SeriesKey{ItemID: itemID, StoreID: storeID}
	cacheKey := cache.GenerateKeyWithParams("forecast", itemID, storeID, horizon)

	if s.cache != nil {
		var raw string
		if err := s.cache.Get(ctx, cacheKey, &raw); err == nil {
			var cached models.Forecast
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				s.metrics.RecordForecast("cache_hit")
				return &cached, nil
			}
		}
	}

	start := time.Now()
	points, err := s.forecaster.Forecast(ctx, key, horizon)
	if err != nil {
		s.metrics.RecordForecast(forecastStatus(err))
		return nil, err
	}

	f := &models.Forecast{
		ItemID:    itemID,
		StoreID:   storeID,
		Horizon:   horizon,
		Generated: time.Now().UTC(),
		Points:    points,
	}

	s.metrics.RecordForecast("ok")
	s.metrics.RecordForecastSteps(horizon)
	s.metrics.RecordLatency("forecast", time.Since(start).Seconds())

	if s.cache != nil {
		if b, err := json.Marshal(f); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(b), s.cacheTTL); err != nil {
				s.log.Warn("forecast cache set failed",
					applogger.String("key", cacheKey),
					applogger.Error(err))
			}
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishForecast(ctx, f); err != nil {
			s.metrics.RecordError("forecast_publish")
			s.log.Warn("forecast publish failed",
				applogger.String("series", key.String()),
				applogger.Error(err))
		}
	}

	return f, nil
}

// History returns the last days of observed values for one series.
func (s *ForecastService) History(ctx context.Context, itemID, storeID string, days int) ([]models.HistoryPoint, error) {
	return s.catalog.History(models.SeriesKey{ItemID: itemID, StoreID: storeID}, days)
}

// Items lists the distinct item identifiers.
func (s *ForecastService) Items() []string { return s.catalog.Items() }

// Stores lists the distinct store identifiers.
func (s *ForecastService) Stores() []string { return s.catalog.Stores() }

// Keys lists every series the catalog holds.
func (s *ForecastService) Keys() []models.SeriesKey { return s.catalog.Keys() }

func forecastStatus(err error) string {
	switch {
	case errors.Is(err, forecast.ErrUnknownSeries):
		return "unknown_series"
	case errors.Is(err, forecast.ErrInsufficientHistory):
		return "insufficient_history"
	case errors.Is(err, forecast.ErrCalendarRange):
		return "calendar_range"
	case errors.Is(err, forecast.ErrModelUnavailable):
		return "model_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
