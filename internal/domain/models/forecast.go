package models

import "time"

// FeatureNames lists the model's input schema in its canonical order. The
// trained regressor consumes vectors in exactly this order.
var FeatureNames = []string{
	"item_id", "dept_id", "cat_id", "store_id", "state_id",
	"day_of_week", "day_of_month", "week_of_year", "month", "year",
	"has_event_1", "has_event_2",
	"snap_CA", "snap_TX", "snap_WI",
	"sell_price", "price_change",
	"lag_7", "lag_14", "lag_28",
	"rolling_mean_7", "rolling_mean_14", "rolling_mean_28",
	"rolling_std_7", "rolling_std_14", "rolling_std_28",
}

// FeatureVector is the fixed 26-field input of the point-prediction model,
// built fresh per (series, target day) and consumed exactly once.
type FeatureVector struct {
	ItemCode  float64
	DeptCode  float64
	CatCode   float64
	StoreCode float64
	StateCode float64

	DayOfWeek  float64
	DayOfMonth float64
	WeekOfYear float64
	Month      float64
	Year       float64

	HasEvent1 float64
	HasEvent2 float64

	SnapCA float64
	SnapTX float64
	SnapWI float64

	SellPrice   float64
	PriceChange float64

	Lag7  float64
	Lag14 float64
	Lag28 float64

	RollingMean7  float64
	RollingMean14 float64
	RollingMean28 float64

	RollingStd7  float64
	RollingStd14 float64
	RollingStd28 float64
}

// Values returns the vector in canonical order, aligned with FeatureNames.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.ItemCode, v.DeptCode, v.CatCode, v.StoreCode, v.StateCode,
		v.DayOfWeek, v.DayOfMonth, v.WeekOfYear, v.Month, v.Year,
		v.HasEvent1, v.HasEvent2,
		v.SnapCA, v.SnapTX, v.SnapWI,
		v.SellPrice, v.PriceChange,
		v.Lag7, v.Lag14, v.Lag28,
		v.RollingMean7, v.RollingMean14, v.RollingMean28,
		v.RollingStd7, v.RollingStd14, v.RollingStd28,
	}
}

// Map returns the vector keyed by feature name, for adapters that post
// features to an external model service.
func (v FeatureVector) Map() map[string]float64 {
	vals := v.Values()
	m := make(map[string]float64, len(vals))
	for i, name := range FeatureNames {
		m[name] = vals[i]
	}
	return m
}

// ForecastPoint is one predicted day.
type ForecastPoint struct {
	Day   int       `json:"day"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Forecast is the full result of one forecast invocation.
type Forecast struct {
	ItemID    string          `json:"item_id"`
	StoreID   string          `json:"store_id"`
	Horizon   int             `json:"horizon"`
	Generated time.Time       `json:"generated"`
	Points    []ForecastPoint `json:"points"`
}

// HistoryPoint is one observed day served by the read-only history endpoint.
type HistoryPoint struct {
	Day   int       `json:"day"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
