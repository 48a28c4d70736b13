package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"DemandCast/internal/catalog"
	"DemandCast/internal/domain/models"
	"DemandCast/internal/forecast"
	"DemandCast/internal/usecase"
	"DemandCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

type flatModel struct{}

func (flatModel) Predict(_ context.Context, fv models.FeatureVector) (float64, error) {
	return fv.RollingMean7, nil
}

func (flatModel) Name() string { return "flat" }

func newTestHandler(t *testing.T, rateRPS int) *ForecastEchoHandler {
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
		values[i] = 3
	}
	cat, err := catalog.Build(&models.Snapshot{
		Calendar: days,
		Series: []models.SeriesRecord{{
			ItemID: "FOODS_3_090", DeptID: "FOODS_3", CatID: "FOODS",
			StoreID: "CA_1", StateID: "CA",
			FirstDay: 1, Values: values,
		}},
	})
	if err != nil {
		t.Fatalf("catalog.Build failed: %v", err)
	}

	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger.New failed: %v", err)
	}
	fc := forecast.New(cat, flatModel{}, forecast.NewExtractor(forecast.LagZeroFill))
	svc := usecase.NewForecastService(cat, fc, nil, nil, noMetrics{}, log, 28, 56, time.Minute)
	return NewForecastEchoHandler(log, svc, nil, rateRPS)
}

type noMetrics struct{}

func (noMetrics) RecordForecast(string)         {}
func (noMetrics) RecordForecastSteps(int)       {}
func (noMetrics) RecordIngest(string, string)   {}
func (noMetrics) RecordError(string)            {}
func (noMetrics) RecordLatency(string, float64) {}

func doRequest(h *ForecastEchoHandler, method, target, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRootEndpoint(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Service   string            `json:"service"`
			Version   string            `json:"version"`
			Endpoints map[string]string `json:"endpoints"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if envelope.Data.Service != "demandcast" {
		t.Errorf("service = %q, want demandcast", envelope.Data.Service)
	}
	if envelope.Data.Version == "" {
		t.Errorf("version is empty")
	}
	if _, ok := envelope.Data.Endpoints["forecast"]; !ok {
		t.Errorf("endpoints missing forecast entry: %v", envelope.Data.Endpoints)
	}
}

func TestForecastEndpoint(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodPost, "/api/forecast",
		`{"item_id":"FOODS_3_090","store_id":"CA_1","horizon":7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data models.Forecast `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(envelope.Data.Points) != 7 {
		t.Errorf("got %d points, want 7", len(envelope.Data.Points))
	}
	for i, p := range envelope.Data.Points {
		if p.Value != 3 {
			t.Errorf("point %d = %v, want 3", i, p.Value)
		}
	}
}

func TestForecastEndpointDefaultHorizon(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodPost, "/api/forecast",
		`{"item_id":"FOODS_3_090","store_id":"CA_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data models.Forecast `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if envelope.Data.Horizon != 28 {
		t.Errorf("horizon = %d, want 28", envelope.Data.Horizon)
	}
}

func TestForecastEndpointValidation(t *testing.T) {
	h := newTestHandler(t, 0)

	// Missing store_id.
	rec := doRequest(h, http.MethodPost, "/api/forecast", `{"item_id":"FOODS_3_090"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing store_id: status = %d, want 400", rec.Code)
	}

	// Horizon above the wire-level maximum.
	rec = doRequest(h, http.MethodPost, "/api/forecast",
		`{"item_id":"FOODS_3_090","store_id":"CA_1","horizon":57}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("horizon 57: status = %d, want 400", rec.Code)
	}
}

func TestForecastEndpointUnknownSeries(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodPost, "/api/forecast",
		`{"item_id":"FOODS_3_090","store_id":"WI_3","horizon":7}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestForecastEndpointRateLimit(t *testing.T) {
	h := newTestHandler(t, 1)

	body := `{"item_id":"FOODS_3_090","store_id":"CA_1","horizon":1}`
	rec := doRequest(h, http.MethodPost, "/api/forecast", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec = doRequest(h, http.MethodPost, "/api/forecast", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request: status = %d, want 429", rec.Code)
	}
}

func TestBatchEndpointWithoutQueue(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodPost, "/api/forecast/batch", `{"horizon":7}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodGet, "/api/history?item_id=FOODS_3_090&store_id=CA_1&days=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data struct {
			Rows  []models.HistoryPoint `json:"rows"`
			Total int64                 `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(envelope.Data.Rows) != 10 {
		t.Errorf("got %d rows, want 10", len(envelope.Data.Rows))
	}
}

func TestItemsAndStoresEndpoints(t *testing.T) {
	h := newTestHandler(t, 0)

	rec := doRequest(h, http.MethodGet, "/api/items", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("items: status = %d", rec.Code)
	}
	rec = doRequest(h, http.MethodGet, "/api/stores?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stores: status = %d", rec.Code)
	}
}
