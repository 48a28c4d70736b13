package models

import (
	"fmt"
	"time"
)

// SeriesKey identifies one item/store time series.
type SeriesKey struct {
	ItemID  string
	StoreID string
}

func (k SeriesKey) String() string {
	return fmt.Sprintf("%s_%s", k.ItemID, k.StoreID)
}

// CalendarDay holds the attributes of one day in the master calendar.
// Day indices start at 1 and are contiguous.
type CalendarDay struct {
	Day        int
	Date       time.Time
	Weekday    int // 1..7, Saturday = 1 (source convention)
	Month      int
	Year       int
	WeekOfYear int
	WeekBucket int // wm_yr_wk price bucket
	HasEvent1  bool
	HasEvent2  bool
	SnapCA     bool
	SnapTX     bool
	SnapWI     bool
}

// CalendarTable is the shared, read-only master calendar indexed by day.
type CalendarTable struct {
	FirstDay int
	Days     []CalendarDay
}

// At returns the calendar row for the given day index.
func (t *CalendarTable) At(day int) (CalendarDay, bool) {
	if t == nil {
		return CalendarDay{}, false
	}
	i := day - t.FirstDay
	if i < 0 || i >= len(t.Days) {
		return CalendarDay{}, false
	}
	return t.Days[i], true
}

// LastDay returns the last day index covered by the calendar.
func (t *CalendarTable) LastDay() int {
	if t == nil || len(t.Days) == 0 {
		return 0
	}
	return t.FirstDay + len(t.Days) - 1
}

// PriceSeries holds the sparse weekly prices of one series, sorted by week bucket.
type PriceSeries struct {
	Weeks  []int
	Prices []float64
}

// At returns the most recent price at or before the given week bucket.
// The second return is the position in the series, -1 if no price exists yet.
func (p *PriceSeries) At(week int) (float64, int) {
	if p == nil || len(p.Weeks) == 0 {
		return 0, -1
	}
	// binary search for the last week <= week
	lo, hi := 0, len(p.Weeks)
	for lo < hi {
		mid := (lo + hi) / 2
		if p.Weeks[mid] <= week {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return 0, -1
	}
	return p.Prices[lo-1], lo - 1
}

// PriceAt returns the effective sell price for a week bucket (0 if never priced).
func (p *PriceSeries) PriceAt(week int) float64 {
	v, _ := p.At(week)
	return v
}

// PriceRecord is one row of the raw price table.
type PriceRecord struct {
	StoreID    string
	ItemID     string
	WeekBucket int
	Price      float64
}

// CategoryCodes are the static integer encodings of a series' identifiers,
// assigned once at catalog build time by lexicographic rank.
type CategoryCodes struct {
	Item  int
	Dept  int
	Cat   int
	Store int
	State int
}

// SeriesRecord is one series of the raw sales snapshot: identifiers plus the
// observed daily quantities for days FirstDay..FirstDay+len(Values)-1.
type SeriesRecord struct {
	ItemID   string
	DeptID   string
	CatID    string
	StoreID  string
	StateID  string
	FirstDay int
	Values   []float64
}

// Key returns the series key of the record.
func (r SeriesRecord) Key() SeriesKey {
	return SeriesKey{ItemID: r.ItemID, StoreID: r.StoreID}
}

// SeriesBuffer is the per-forecast working view of one series: the observed
// history plus predictions appended back as pseudo-observations. It owns its
// Values slice; Calendar and Prices are shared immutable reference tables.
type SeriesBuffer struct {
	Key      SeriesKey
	Codes    CategoryCodes
	FirstDay int
	Values   []float64
	Calendar *CalendarTable
	Prices   *PriceSeries
}

// LastDay returns the day index of the newest value in the buffer, observed or
// synthesized.
func (b *SeriesBuffer) LastDay() int {
	return b.FirstDay + len(b.Values) - 1
}

// At returns the value for a day index, false if the day is outside the buffer.
func (b *SeriesBuffer) At(day int) (float64, bool) {
	i := day - b.FirstDay
	if i < 0 || i >= len(b.Values) {
		return 0, false
	}
	return b.Values[i], true
}

// Append writes the next day's value. Only the day after LastDay can be written;
// the buffer never has gaps.
func (b *SeriesBuffer) Append(v float64) {
	b.Values = append(b.Values, v)
}

// Snapshot is one immutable load of the reference data the catalog is built from.
type Snapshot struct {
	Calendar []CalendarDay
	Prices   []PriceRecord
	Series   []SeriesRecord
}

// SalesEvent is a single point-of-sale observation from the ingest feed.
type SalesEvent struct {
	ItemID    string  `json:"item_id"`
	StoreID   string  `json:"store_id"`
	Quantity  float64 `json:"qty"`
	Timestamp int64   `json:"t"` // unix seconds
}
