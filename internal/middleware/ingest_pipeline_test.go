package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
)

type recordingProc struct {
	events []*models.SalesEvent
	err    error
}

func (p *recordingProc) Process(_ context.Context, e *models.SalesEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

type nopMetrics struct {
	errs map[string]int
}

func newNopMetrics() *nopMetrics { return &nopMetrics{errs: make(map[string]int)} }

func (m *nopMetrics) RecordForecast(string)         {}
func (m *nopMetrics) RecordForecastSteps(int)       {}
func (m *nopMetrics) RecordIngest(string, string)   {}
func (m *nopMetrics) RecordError(kind string)       { m.errs[kind]++ }
func (m *nopMetrics) RecordLatency(string, float64) {}

func validSale() *models.SalesEvent {
	return &models.SalesEvent{
		ItemID:    "FOODS_3_090",
		StoreID:   "CA_1",
		Quantity:  2,
		Timestamp: time.Now().Unix(),
	}
}

func TestPipelineForwardsValidEvents(t *testing.T) {
	proc := &recordingProc{}
	p := NewIngestPipeline(proc, newNopMetrics())

	if err := p.Process(context.Background(), validSale()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(proc.events) != 1 {
		t.Fatalf("got %d events downstream, want 1", len(proc.events))
	}
}

func TestPipelineRejectsInvalidEvents(t *testing.T) {
	proc := &recordingProc{}
	m := newNopMetrics()
	p := NewIngestPipeline(proc, m)

	cases := []*models.SalesEvent{
		nil,
		{StoreID: "CA_1", Quantity: 1, Timestamp: 1},
		{ItemID: "FOODS_3_090", Quantity: 1, Timestamp: 1},
		{ItemID: "FOODS_3_090", StoreID: "CA_1", Quantity: 1},
		{ItemID: "FOODS_3_090", StoreID: "CA_1", Quantity: -1, Timestamp: 1},
	}
	for i, e := range cases {
		if err := p.Process(context.Background(), e); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
	if len(proc.events) != 0 {
		t.Errorf("%d invalid events reached downstream", len(proc.events))
	}
	if m.errs["pipeline_validate"] != len(cases) {
		t.Errorf("pipeline_validate = %d, want %d", m.errs["pipeline_validate"], len(cases))
	}
}

func TestPipelineThrottlesPerStore(t *testing.T) {
	proc := &recordingProc{}
	m := newNopMetrics()
	p := NewIngestPipeline(proc, m, WithMaxRPS(1))

	// Two events in the same instant: the second is throttled and dropped
	// without error.
	if err := p.Process(context.Background(), validSale()); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	if err := p.Process(context.Background(), validSale()); err != nil {
		t.Fatalf("throttled Process returned error: %v", err)
	}
	if len(proc.events) != 1 {
		t.Errorf("got %d events downstream, want 1", len(proc.events))
	}
	if m.errs["pipeline_throttle"] != 1 {
		t.Errorf("pipeline_throttle = %d, want 1", m.errs["pipeline_throttle"])
	}

	// A different store has its own budget.
	other := validSale()
	other.StoreID = "TX_1"
	if err := p.Process(context.Background(), other); err != nil {
		t.Fatalf("other store Process failed: %v", err)
	}
	if len(proc.events) != 2 {
		t.Errorf("got %d events downstream, want 2", len(proc.events))
	}
}

func TestPipelineBuffersOnDownstreamError(t *testing.T) {
	proc := &recordingProc{err: errors.New("backend down")}
	m := newNopMetrics()
	p := NewIngestPipeline(proc, m, WithBufferSize(8))

	if err := p.Process(context.Background(), validSale()); err == nil {
		t.Fatal("expected downstream error")
	}
	if len(p.bufCh) != 1 {
		t.Fatalf("buffer depth = %d, want 1", len(p.bufCh))
	}

	// Downstream recovers; the flush goroutine drains the buffer.
	proc.err = nil
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(proc.events) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if len(proc.events) != 1 {
		t.Fatalf("buffered event never flushed")
	}
}

func TestPipelineTransform(t *testing.T) {
	proc := &recordingProc{}
	p := NewIngestPipeline(proc, newNopMetrics(), WithTransform(func(e *models.SalesEvent) *models.SalesEvent {
		e.Quantity *= 2
		return e
	}))

	if err := p.Process(context.Background(), validSale()); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if proc.events[0].Quantity != 4 {
		t.Errorf("quantity = %v, want 4", proc.events[0].Quantity)
	}
}
