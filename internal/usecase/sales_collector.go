package usecase

import (
	"context"

	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	mid "DemandCast/internal/middleware"
)

// SalesCollector consumes the live POS feed and hands events to the processor.
type SalesCollector struct {
	stream  drepo.SalesStream
	proc    *SalesProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewSalesCollector creates a new SalesCollector instance.
func NewSalesCollector(stream drepo.SalesStream, proc *SalesProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *SalesCollector {
	return &SalesCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the POS feed is connected.
func (c *SalesCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *SalesCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *SalesCollector) consume(ctx context.Context, evCh <-chan *models.SalesEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case e := <-evCh:
			if e == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, e)
			} else {
				_ = c.proc.Process(ctx, e)
			}
		}
	}
}

func (c *SalesCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying SalesProcessor for lifecycle management.
func (c *SalesCollector) Processor() *SalesProcessor { return c.proc }

// Shutdown stops the pipeline and closes the feed.
func (c *SalesCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
