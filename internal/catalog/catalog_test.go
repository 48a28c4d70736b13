package catalog

import (
	"errors"
	"testing"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/forecast"
)

func testSnapshot(days int) *models.Snapshot {
	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	cal := make([]models.CalendarDay, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		_, week := date.ISOWeek()
		cal[i] = models.CalendarDay{
			Day:        i + 1,
			Date:       date,
			Weekday:    i%7 + 1,
			Month:      int(date.Month()),
			Year:       date.Year(),
			WeekOfYear: week,
			WeekBucket: 11601 + i/7,
		}
	}

	series := []models.SeriesRecord{
		{
			ItemID: "HOBBIES_1_002", DeptID: "HOBBIES_1", CatID: "HOBBIES",
			StoreID: "TX_1", StateID: "TX",
			FirstDay: 1, Values: mkValues(days, 2),
		},
		{
			ItemID: "FOODS_3_090", DeptID: "FOODS_3", CatID: "FOODS",
			StoreID: "CA_1", StateID: "CA",
			FirstDay: 1, Values: mkValues(days, 5),
		},
		{
			ItemID: "HOBBIES_1_001", DeptID: "HOBBIES_1", CatID: "HOBBIES",
			StoreID: "CA_1", StateID: "CA",
			FirstDay: 8, Values: mkValues(days-7, 1),
		},
	}

	prices := []models.PriceRecord{
		{StoreID: "CA_1", ItemID: "FOODS_3_090", WeekBucket: 11602, Price: 3.5},
		{StoreID: "CA_1", ItemID: "FOODS_3_090", WeekBucket: 11601, Price: 3.0},
	}

	return &models.Snapshot{Calendar: cal, Prices: prices, Series: series}
}

func mkValues(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestBuildCategoryCodes(t *testing.T) {
	c, err := Build(testSnapshot(30))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	buf, err := c.Resolve(models.SeriesKey{ItemID: "FOODS_3_090", StoreID: "CA_1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Lexicographic rank over distinct ids: FOODS_3_090 < HOBBIES_1_001 < HOBBIES_1_002.
	if buf.Codes.Item != 0 || buf.Codes.Cat != 0 || buf.Codes.Store != 0 || buf.Codes.State != 0 {
		t.Errorf("codes = %+v, want all rank 0", buf.Codes)
	}

	buf, err = c.Resolve(models.SeriesKey{ItemID: "HOBBIES_1_002", StoreID: "TX_1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if buf.Codes.Item != 2 || buf.Codes.Store != 1 || buf.Codes.State != 1 {
		t.Errorf("codes = %+v, want item 2, store 1, state 1", buf.Codes)
	}
}

func TestResolveIsolation(t *testing.T) {
	c, err := Build(testSnapshot(30))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	key := models.SeriesKey{ItemID: "FOODS_3_090", StoreID: "CA_1"}

	a, err := c.Resolve(key)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	a.Append(99)
	a.Values[0] = -1

	b, err := c.Resolve(key)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(b.Values) != 30 || b.Values[0] != 5 {
		t.Errorf("second resolve saw mutations from the first")
	}
}

func TestResolveUnknown(t *testing.T) {
	c, err := Build(testSnapshot(30))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	_, err = c.Resolve(models.SeriesKey{ItemID: "FOODS_3_090", StoreID: "WI_1"})
	if !errors.Is(err, forecast.ErrUnknownSeries) {
		t.Fatalf("err = %v, want ErrUnknownSeries", err)
	}
}

func TestResolvePrices(t *testing.T) {
	c, err := Build(testSnapshot(30))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	buf, err := c.Resolve(models.SeriesKey{ItemID: "FOODS_3_090", StoreID: "CA_1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p, idx := buf.Prices.At(11601); idx != 0 || p != 3.0 {
		t.Errorf("week 11601 = %v/%d, want 3.0/0", p, idx)
	}
	if p, idx := buf.Prices.At(11605); idx != 1 || p != 3.5 {
		t.Errorf("week 11605 = %v/%d, want 3.5/1", p, idx)
	}

	// Unpriced series resolves with an empty price table.
	buf, err = c.Resolve(models.SeriesKey{ItemID: "HOBBIES_1_002", StoreID: "TX_1"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, idx := buf.Prices.At(11601); idx != -1 {
		t.Errorf("unpriced series returned price index %d, want -1", idx)
	}
}

func TestHistory(t *testing.T) {
	c, err := Build(testSnapshot(30))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	key := models.SeriesKey{ItemID: "HOBBIES_1_001", StoreID: "CA_1"}

	pts, err := c.History(key, 10)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(pts) != 10 {
		t.Fatalf("got %d points, want 10", len(pts))
	}
	if pts[0].Day != 21 || pts[9].Day != 30 {
		t.Errorf("days %d..%d, want 21..30", pts[0].Day, pts[9].Day)
	}
	for i := 1; i < len(pts); i++ {
		if pts[i].Day != pts[i-1].Day+1 {
			t.Fatalf("gap between days %d and %d", pts[i-1].Day, pts[i].Day)
		}
	}

	// Asking for more than exists returns the whole series.
	pts, err = c.History(key, 500)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(pts) != 23 {
		t.Errorf("got %d points, want 23", len(pts))
	}

	if _, err := c.History(models.SeriesKey{ItemID: "X", StoreID: "Y"}, 10); !errors.Is(err, forecast.ErrUnknownSeries) {
		t.Fatalf("err = %v, want ErrUnknownSeries", err)
	}
}

func TestKeysItemsStores(t *testing.T) {
	c, err := Build(testSnapshot(30))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	keys := c.Keys()
	if keys[0].ItemID != "FOODS_3_090" || keys[2].ItemID != "HOBBIES_1_002" {
		t.Errorf("keys not sorted: %v", keys)
	}

	items := c.Items()
	if len(items) != 3 || items[0] != "FOODS_3_090" {
		t.Errorf("items = %v", items)
	}
	stores := c.Stores()
	if len(stores) != 2 || stores[0] != "CA_1" || stores[1] != "TX_1" {
		t.Errorf("stores = %v", stores)
	}
	if c.LastCalendarDay() != 30 {
		t.Errorf("LastCalendarDay = %d, want 30", c.LastCalendarDay())
	}
}

func TestBuildRejectsBadSnapshots(t *testing.T) {
	if _, err := Build(nil); err == nil {
		t.Error("expected error for nil snapshot")
	}

	snap := testSnapshot(30)
	snap.Calendar[10].Day = 99
	if _, err := Build(snap); err == nil {
		t.Error("expected error for calendar gap")
	}

	snap = testSnapshot(30)
	snap.Series = append(snap.Series, snap.Series[0])
	if _, err := Build(snap); err == nil {
		t.Error("expected error for duplicate series")
	}

	snap = testSnapshot(30)
	snap.Series[0].FirstDay = 20
	if _, err := Build(snap); err == nil {
		t.Error("expected error for series extending past calendar")
	}

	snap = testSnapshot(30)
	snap.Series = nil
	if _, err := Build(snap); err == nil {
		t.Error("expected error for empty series")
	}
}
