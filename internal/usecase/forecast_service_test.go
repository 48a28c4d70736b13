package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"DemandCast/internal/catalog"
	"DemandCast/internal/domain/models"
	drepo "DemandCast/internal/domain/repository"
	"DemandCast/internal/forecast"
	"DemandCast/pkg/cache"
	"DemandCast/pkg/logger"
)

type fakeMetrics struct {
	forecasts map[string]int
	errors    map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{forecasts: make(map[string]int), errors: make(map[string]int)}
}

func (m *fakeMetrics) RecordForecast(status string)  { m.forecasts[status]++ }
func (m *fakeMetrics) RecordForecastSteps(int)       {}
func (m *fakeMetrics) RecordIngest(string, string)   {}
func (m *fakeMetrics) RecordError(kind string)       { m.errors[kind]++ }
func (m *fakeMetrics) RecordLatency(string, float64) {}

type countingModel struct {
	calls int
}

func (m *countingModel) Predict(_ context.Context, fv models.FeatureVector) (float64, error) {
	m.calls++
	return fv.RollingMean7, nil
}

func (m *countingModel) Name() string { return "counting" }

type capturingPublisher struct {
	published []*models.Forecast
}

func (p *capturingPublisher) PublishForecast(_ context.Context, f *models.Forecast) error {
	p.published = append(p.published, f)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	days := make([]models.CalendarDay, 90)
	for i := range days {
		date := start.AddDate(0, 0, i)
		_, week := date.ISOWeek()
		days[i] = models.CalendarDay{
			Day: i + 1, Date: date, Weekday: i%7 + 1,
			Month: int(date.Month()), Year: date.Year(),
			WeekOfYear: week, WeekBucket: 11601 + i/7,
		}
	}
	values := make([]float64, 30)
	for i := range values {
		values[i] = 4
	}
	snap := &models.Snapshot{
		Calendar: days,
		Series: []models.SeriesRecord{{
			ItemID: "FOODS_3_090", DeptID: "FOODS_3", CatID: "FOODS",
			StoreID: "CA_1", StateID: "CA",
			FirstDay: 1, Values: values,
		}},
	}
	c, err := catalog.Build(snap)
	if err != nil {
		t.Fatalf("catalog.Build failed: %v", err)
	}
	return c
}

func newTestService(t *testing.T, m *countingModel, c cache.Service, pub *capturingPublisher, metrics *fakeMetrics) *ForecastService {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	cat := testCatalog(t)
	fc := forecast.New(cat, m, forecast.NewExtractor(forecast.LagZeroFill))
	var publisher drepo.ForecastPublisher
	if pub != nil {
		publisher = pub
	}
	return NewForecastService(cat, fc, c, publisher, metrics, log, 28, 56, time.Minute)
}

func TestForecastServiceForecast(t *testing.T) {
	m := &countingModel{}
	metrics := newFakeMetrics()
	pub := &capturingPublisher{}
	svc := newTestService(t, m, nil, pub, metrics)

	f, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", 7)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(f.Points) != 7 || f.Horizon != 7 {
		t.Fatalf("got %d points horizon %d, want 7/7", len(f.Points), f.Horizon)
	}
	for i, p := range f.Points {
		if p.Value != 4 {
			t.Errorf("point %d = %v, want 4", i, p.Value)
		}
	}
	if m.calls != 7 {
		t.Errorf("model called %d times, want 7", m.calls)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d forecasts, want 1", len(pub.published))
	}
	if metrics.forecasts["ok"] != 1 {
		t.Errorf("ok count = %d, want 1", metrics.forecasts["ok"])
	}
}

func TestForecastServiceCacheHit(t *testing.T) {
	m := &countingModel{}
	metrics := newFakeMetrics()
	svc := newTestService(t, m, cache.NewMemoryCache(), nil, metrics)

	if _, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", 7); err != nil {
		t.Fatalf("first Forecast failed: %v", err)
	}
	calls := m.calls

	f, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", 7)
	if err != nil {
		t.Fatalf("second Forecast failed: %v", err)
	}
	if m.calls != calls {
		t.Errorf("model called again on cache hit: %d -> %d", calls, m.calls)
	}
	if len(f.Points) != 7 {
		t.Errorf("cached forecast has %d points, want 7", len(f.Points))
	}
	if metrics.forecasts["cache_hit"] != 1 {
		t.Errorf("cache_hit count = %d, want 1", metrics.forecasts["cache_hit"])
	}

	// Different horizon misses the cache.
	if _, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", 3); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if m.calls != calls+3 {
		t.Errorf("model calls = %d, want %d", m.calls, calls+3)
	}
}

func TestForecastServiceZeroHorizon(t *testing.T) {
	m := &countingModel{}
	svc := newTestService(t, m, nil, nil, newFakeMetrics())

	f, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", 0)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(f.Points) != 0 || m.calls != 0 {
		t.Errorf("got %d points, %d model calls, want 0/0", len(f.Points), m.calls)
	}
}

func TestForecastServiceHorizonBounds(t *testing.T) {
	svc := newTestService(t, &countingModel{}, nil, nil, newFakeMetrics())

	if _, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", 57); err == nil {
		t.Error("expected error for horizon above max")
	}
	if _, err := svc.Forecast(context.Background(), "FOODS_3_090", "CA_1", -1); err == nil {
		t.Error("expected error for negative horizon")
	}
}

func TestForecastServiceUnknownSeries(t *testing.T) {
	metrics := newFakeMetrics()
	svc := newTestService(t, &countingModel{}, nil, nil, metrics)

	_, err := svc.Forecast(context.Background(), "FOODS_3_090", "WI_3", 7)
	if !errors.Is(err, forecast.ErrUnknownSeries) {
		t.Fatalf("err = %v, want ErrUnknownSeries", err)
	}
	if metrics.forecasts["unknown_series"] != 1 {
		t.Errorf("unknown_series count = %d", metrics.forecasts["unknown_series"])
	}
}

func TestForecastServiceHistory(t *testing.T) {
	svc := newTestService(t, &countingModel{}, nil, nil, newFakeMetrics())

	pts, err := svc.History(context.Background(), "FOODS_3_090", "CA_1", 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(pts) != 10 || pts[9].Day != 30 {
		t.Errorf("got %d points ending at day %d, want 10 ending at 30", len(pts), pts[len(pts)-1].Day)
	}

	if items := svc.Items(); len(items) != 1 || items[0] != "FOODS_3_090" {
		t.Errorf("Items = %v", items)
	}
	if stores := svc.Stores(); len(stores) != 1 || stores[0] != "CA_1" {
		t.Errorf("Stores = %v", stores)
	}
}

func TestForecastJobHandle(t *testing.T) {
	m := &countingModel{}
	svc := newTestService(t, m, nil, nil, newFakeMetrics())
	log, _ := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	job := NewForecastJob(svc, log)

	payload, _ := json.Marshal(ForecastJobPayload{ItemID: "FOODS_3_090", StoreID: "CA_1", Horizon: 5})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	if m.calls != 5 {
		t.Errorf("model called %d times, want 5", m.calls)
	}

	// Unknown series jobs are dropped, not retried.
	payload, _ = json.Marshal(ForecastJobPayload{ItemID: "NOPE", StoreID: "CA_1", Horizon: 5})
	if err := job.Handle(context.Background(), json.RawMessage(payload)); err != nil {
		t.Errorf("unknown series job returned error: %v", err)
	}
}
