package forecast

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"DemandCast/internal/domain/models"
)

type stubResolver struct {
	buf *models.SeriesBuffer
	err error
}

func (r *stubResolver) Resolve(key models.SeriesKey) (*models.SeriesBuffer, error) {
	if r.err != nil {
		return nil, r.err
	}
	// Hand out an owned copy so successive forecasts start from the same state.
	values := make([]float64, len(r.buf.Values), len(r.buf.Values)+56)
	copy(values, r.buf.Values)
	buf := *r.buf
	buf.Values = values
	return &buf, nil
}

type funcModel struct {
	calls int
	fn    func(call int, fv models.FeatureVector) (float64, error)
}

func (m *funcModel) Predict(_ context.Context, fv models.FeatureVector) (float64, error) {
	m.calls++
	return m.fn(m.calls, fv)
}

func (m *funcModel) Name() string { return "func" }

func meanModel() *funcModel {
	return &funcModel{fn: func(_ int, fv models.FeatureVector) (float64, error) {
		return fv.RollingMean7, nil
	}}
}

func newForecaster(buf *models.SeriesBuffer, m *funcModel) *Forecaster {
	return New(&stubResolver{buf: buf}, m, NewExtractor(LagZeroFill))
}

func TestForecastFlatSeries(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	f := newForecaster(buf, meanModel())

	points, err := f.Forecast(context.Background(), buf.Key, 7)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("got %d points, want 7", len(points))
	}
	for i, p := range points {
		if p.Value != 3 {
			t.Errorf("point %d value = %v, want 3", i, p.Value)
		}
		if p.Day != 29+i {
			t.Errorf("point %d day = %d, want %d", i, p.Day, 29+i)
		}
	}
}

func TestForecastUnknownSeries(t *testing.T) {
	r := &stubResolver{err: fmt.Errorf("%w: FOODS_9_999_CA_1", ErrUnknownSeries)}
	f := New(r, meanModel(), NewExtractor(LagZeroFill))

	points, err := f.Forecast(context.Background(), models.SeriesKey{ItemID: "FOODS_9_999", StoreID: "CA_1"}, 7)
	if !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("err = %v, want ErrUnknownSeries", err)
	}
	if points != nil {
		t.Errorf("got %d points with error, want none", len(points))
	}
}

func TestForecastZeroHorizon(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	m := meanModel()
	f := newForecaster(buf, m)

	points, err := f.Forecast(context.Background(), buf.Key, 0)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points, want 0", len(points))
	}
	if m.calls != 0 {
		t.Errorf("model called %d times, want 0", m.calls)
	}
}

func TestForecastCalendarExhausted(t *testing.T) {
	// Calendar covers only 3 days past the observed history.
	cal := testCalendar(31)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	m := meanModel()
	f := newForecaster(buf, m)

	points, err := f.Forecast(context.Background(), buf.Key, 5)
	if !errors.Is(err, ErrCalendarRange) {
		t.Fatalf("err = %v, want ErrCalendarRange", err)
	}
	if points != nil {
		t.Errorf("got partial results with error, want none")
	}
	if m.calls != 3 {
		t.Errorf("model called %d times, want 3", m.calls)
	}
}

func TestForecastNegativePredictionClamped(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	m := &funcModel{fn: func(int, models.FeatureVector) (float64, error) { return -5, nil }}
	f := newForecaster(buf, m)

	points, err := f.Forecast(context.Background(), buf.Key, 3)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	for i, p := range points {
		if p.Value != 0 {
			t.Errorf("point %d value = %v, want 0", i, p.Value)
		}
	}
}

func TestForecastRecursiveDependency(t *testing.T) {
	cal := testCalendar(60)
	run := func(firstStep float64) []models.ForecastPoint {
		buf := testBuffer(flatValues(28, 3), cal, nil)
		m := &funcModel{fn: func(call int, fv models.FeatureVector) (float64, error) {
			if call == 1 {
				return firstStep, nil
			}
			return fv.Lag7, nil
		}}
		points, err := newForecaster(buf, m).Forecast(context.Background(), buf.Key, 8)
		if err != nil {
			t.Fatalf("Forecast failed: %v", err)
		}
		return points
	}

	a := run(3)
	b := run(10)
	// Step 8's lag_7 looks back at step 1's prediction, so changing step 1
	// must propagate.
	if a[7].Value != 3 || b[7].Value != 10 {
		t.Errorf("step 8 values = %v/%v, want 3/10", a[7].Value, b[7].Value)
	}
}

func TestForecastDeterministic(t *testing.T) {
	cal := testCalendar(90)
	values := make([]float64, 35)
	for i := range values {
		values[i] = float64((i*7)%11) + 0.5
	}
	buf := testBuffer(values, cal, nil)

	a, err := newForecaster(buf, meanModel()).Forecast(context.Background(), buf.Key, 28)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	b, err := newForecaster(buf, meanModel()).Forecast(context.Background(), buf.Key, 28)
	if err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("identical inputs produced different forecasts")
	}
}

func TestForecastModelError(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	m := &funcModel{fn: func(call int, fv models.FeatureVector) (float64, error) {
		if call == 3 {
			return 0, errors.New("inference backend down")
		}
		return fv.RollingMean7, nil
	}}
	f := newForecaster(buf, m)

	points, err := f.Forecast(context.Background(), buf.Key, 7)
	if err == nil {
		t.Fatal("expected error from failing model")
	}
	if points != nil {
		t.Errorf("got partial results with error, want none")
	}
}

func TestForecastNilModel(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	f := New(&stubResolver{buf: buf}, nil, NewExtractor(LagZeroFill))

	_, err := f.Forecast(context.Background(), buf.Key, 7)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestForecastNegativeHorizon(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	f := newForecaster(buf, meanModel())

	if _, err := f.Forecast(context.Background(), buf.Key, -1); err == nil {
		t.Fatal("expected error for negative horizon")
	}
}

func TestForecastContextCancelled(t *testing.T) {
	cal := testCalendar(60)
	buf := testBuffer(flatValues(28, 3), cal, nil)
	f := newForecaster(buf, meanModel())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.Forecast(ctx, buf.Key, 7); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestForecastDoesNotMutateSource(t *testing.T) {
	cal := testCalendar(60)
	src := testBuffer(flatValues(28, 3), cal, nil)
	r := &stubResolver{buf: src}
	f := New(r, meanModel(), NewExtractor(LagZeroFill))

	if _, err := f.Forecast(context.Background(), src.Key, 10); err != nil {
		t.Fatalf("Forecast failed: %v", err)
	}
	if len(src.Values) != 28 {
		t.Errorf("source buffer grew to %d values, want 28", len(src.Values))
	}
}
