package catalog

import (
	"fmt"
	"sort"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/forecast"
)

// seriesEntry is one series' frozen state inside the catalog.
type seriesEntry struct {
	codes  models.CategoryCodes
	first  int
	values []float64
	prices *models.PriceSeries
}

// Catalog is the in-memory, read-only series index. Built once from a snapshot;
// no writers exist after Build returns, so all methods are safe for concurrent
// use without locking.
type Catalog struct {
	calendar *models.CalendarTable
	series   map[models.SeriesKey]*seriesEntry
	keys     []models.SeriesKey
	items    []string
	stores   []string
}

var emptyPrices = &models.PriceSeries{}

// Build validates a snapshot and freezes it into a catalog. Day indices must be
// contiguous, and the calendar must cover every observed day.
func Build(snap *models.Snapshot) (*Catalog, error) {
	if snap == nil || len(snap.Calendar) == 0 {
		return nil, fmt.Errorf("catalog: empty calendar")
	}
	if len(snap.Series) == 0 {
		return nil, fmt.Errorf("catalog: no series records")
	}

	first := snap.Calendar[0].Day
	for i, cd := range snap.Calendar {
		if cd.Day != first+i {
			return nil, fmt.Errorf("catalog: calendar gap at day %d", cd.Day)
		}
	}
	cal := &models.CalendarTable{FirstDay: first, Days: snap.Calendar}

	codes := buildCodes(snap.Series)
	prices := buildPrices(snap.Prices)

	c := &Catalog{
		calendar: cal,
		series:   make(map[models.SeriesKey]*seriesEntry, len(snap.Series)),
	}
	itemSet := make(map[string]struct{})
	storeSet := make(map[string]struct{})

	for _, r := range snap.Series {
		key := r.Key()
		if _, dup := c.series[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate series %s", key)
		}
		if len(r.Values) == 0 {
			return nil, fmt.Errorf("catalog: series %s has no observations", key)
		}
		lastObserved := r.FirstDay + len(r.Values) - 1
		if r.FirstDay < cal.FirstDay || lastObserved > cal.LastDay() {
			return nil, fmt.Errorf("catalog: series %s days %d..%d outside calendar %d..%d",
				key, r.FirstDay, lastObserved, cal.FirstDay, cal.LastDay())
		}

		ps := prices[key]
		if ps == nil {
			ps = emptyPrices
		}
		c.series[key] = &seriesEntry{
			codes: models.CategoryCodes{
				Item:  codes.item[r.ItemID],
				Dept:  codes.dept[r.DeptID],
				Cat:   codes.cat[r.CatID],
				Store: codes.store[r.StoreID],
				State: codes.state[r.StateID],
			},
			first:  r.FirstDay,
			values: r.Values,
			prices: ps,
		}
		c.keys = append(c.keys, key)
		itemSet[r.ItemID] = struct{}{}
		storeSet[r.StoreID] = struct{}{}
	}

	sort.Slice(c.keys, func(i, j int) bool {
		if c.keys[i].ItemID != c.keys[j].ItemID {
			return c.keys[i].ItemID < c.keys[j].ItemID
		}
		return c.keys[i].StoreID < c.keys[j].StoreID
	})
	c.items = sortedKeys(itemSet)
	c.stores = sortedKeys(storeSet)

	return c, nil
}

// Resolve returns a fresh buffer owning a copy of the observed values. Calendar
// and price tables are shared; they are immutable after Build.
func (c *Catalog) Resolve(key models.SeriesKey) (*models.SeriesBuffer, error) {
	e, ok := c.series[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", forecast.ErrUnknownSeries, key)
	}
	values := make([]float64, len(e.values), len(e.values)+56)
	copy(values, e.values)
	return &models.SeriesBuffer{
		Key:      key,
		Codes:    e.codes,
		FirstDay: e.first,
		Values:   values,
		Calendar: c.calendar,
		Prices:   e.prices,
	}, nil
}

// History returns the last n observed days of the series, oldest first.
func (c *Catalog) History(key models.SeriesKey, days int) ([]models.HistoryPoint, error) {
	e, ok := c.series[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", forecast.ErrUnknownSeries, key)
	}
	n := len(e.values)
	if days > 0 && days < n {
		n = days
	}
	out := make([]models.HistoryPoint, 0, n)
	start := len(e.values) - n
	for i := start; i < len(e.values); i++ {
		day := e.first + i
		cd, _ := c.calendar.At(day)
		out = append(out, models.HistoryPoint{Day: day, Date: cd.Date, Value: e.values[i]})
	}
	return out, nil
}

// Keys returns every series key, sorted.
func (c *Catalog) Keys() []models.SeriesKey { return c.keys }

// Items returns the distinct item identifiers, sorted.
func (c *Catalog) Items() []string { return c.items }

// Stores returns the distinct store identifiers, sorted.
func (c *Catalog) Stores() []string { return c.stores }

// LastCalendarDay returns the last day index the calendar covers.
func (c *Catalog) LastCalendarDay() int { return c.calendar.LastDay() }

// Len returns the number of series in the catalog.
func (c *Catalog) Len() int { return len(c.series) }

type codeMaps struct {
	item, dept, cat, store, state map[string]int
}

// buildCodes assigns integer codes by lexicographic rank of the distinct
// identifiers, matching the category encoding the model was trained with.
func buildCodes(series []models.SeriesRecord) codeMaps {
	item := make(map[string]struct{})
	dept := make(map[string]struct{})
	cat := make(map[string]struct{})
	store := make(map[string]struct{})
	state := make(map[string]struct{})
	for _, r := range series {
		item[r.ItemID] = struct{}{}
		dept[r.DeptID] = struct{}{}
		cat[r.CatID] = struct{}{}
		store[r.StoreID] = struct{}{}
		state[r.StateID] = struct{}{}
	}
	return codeMaps{
		item:  rankCodes(item),
		dept:  rankCodes(dept),
		cat:   rankCodes(cat),
		store: rankCodes(store),
		state: rankCodes(state),
	}
}

func rankCodes(set map[string]struct{}) map[string]int {
	out := make(map[string]int, len(set))
	for _, v := range sortedKeys(set) {
		out[v] = len(out)
	}
	return out
}

func buildPrices(records []models.PriceRecord) map[models.SeriesKey]*models.PriceSeries {
	type pair struct {
		week  int
		price float64
	}
	grouped := make(map[models.SeriesKey][]pair)
	for _, r := range records {
		key := models.SeriesKey{ItemID: r.ItemID, StoreID: r.StoreID}
		grouped[key] = append(grouped[key], pair{week: r.WeekBucket, price: r.Price})
	}

	out := make(map[models.SeriesKey]*models.PriceSeries, len(grouped))
	for key, pairs := range grouped {
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].week < pairs[j].week })
		ps := &models.PriceSeries{
			Weeks:  make([]int, len(pairs)),
			Prices: make([]float64, len(pairs)),
		}
		for i, p := range pairs {
			ps.Weeks[i] = p.week
			ps.Prices[i] = p.price
		}
		out[key] = ps
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
