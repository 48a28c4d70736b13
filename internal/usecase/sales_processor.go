package usecase

import (
	"context"
	"fmt"
	"time"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
)

// SalesProcessor routes sales events to the configured ingest backend.
type SalesProcessor struct {
	pub     drepo.EventPublisher
	store   drepo.Storage
	metrics drepo.Metrics
	backend string
	batchSz int
	batchTO time.Duration
}

// NewSalesProcessor creates a new SalesProcessor instance.
func NewSalesProcessor(
	pub drepo.EventPublisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	backend string,
	batchSz int,
	batchTO time.Duration,
) *SalesProcessor {
	return &SalesProcessor{
		pub:     pub,
		store:   store,
		metrics: metrics,
		backend: backend,
		batchSz: batchSz,
		batchTO: batchTO,
	}
}

// Process routes a single sales event to the configured backend.
func (p *SalesProcessor) Process(ctx context.Context, e *models.SalesEvent) error {
	if e == nil {
		return fmt.Errorf("sales event is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, e)
	case "clickhouse":
		err = p.store.Store(ctx, e)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("ingest")
		return fmt.Errorf("process sales event: %w", err)
	}

	p.metrics.RecordIngest(p.backend, e.StoreID)
	p.metrics.RecordLatency("ingest", time.Since(start).Seconds())

	return nil
}

// ProcessBatch routes multiple sales events in a batch.
func (p *SalesProcessor) ProcessBatch(ctx context.Context, events []*models.SalesEvent) error {
	if len(events) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, events)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, events)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("ingest_batch")
		return fmt.Errorf("process sales batch: %w", err)
	}

	for _, e := range events {
		p.metrics.RecordIngest(p.backend, e.StoreID)
	}
	p.metrics.RecordLatency("ingest_batch", time.Since(start).Seconds())

	return nil
}

// Close closes underlying resources if available.
func (p *SalesProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
