package repository

import (
	"context"
	"time"

	"DemandCast/internal/domain/models"
)

// SalesStream is a live point-of-sale event feed.
type SalesStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.SalesEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// EventPublisher publishes raw sales events to the message backend.
type EventPublisher interface {
	Publish(ctx context.Context, e *models.SalesEvent) error
	PublishBatch(ctx context.Context, events []*models.SalesEvent) error
	Close() error
}

// ForecastPublisher publishes completed forecasts for downstream consumers.
type ForecastPublisher interface {
	PublishForecast(ctx context.Context, f *models.Forecast) error
	Close() error
}

// Storage persists raw sales events for future snapshot builds.
type Storage interface {
	Store(ctx context.Context, e *models.SalesEvent) error
	StoreBatch(ctx context.Context, events []*models.SalesEvent) error
	Query(ctx context.Context, key models.SeriesKey, from, to time.Time, limit int) ([]*models.SalesEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// SnapshotSource loads one immutable reference-data snapshot at startup.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// Metrics records operational metrics.
type Metrics interface {
	RecordForecast(status string)
	RecordForecastSteps(n int)
	RecordIngest(backend, store string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
