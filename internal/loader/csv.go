package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/pkg/logger"
	"DemandCast/pkg/util"
)

// CSVSource loads a sales snapshot from the three-file CSV layout: a calendar
// table, a weekly price table and a wide sales table with one column per day.
type CSVSource struct {
	calendarPath string
	pricesPath   string
	salesPath    string
	log          *logger.Logger
}

func NewCSVSource(calendarPath, pricesPath, salesPath string, log *logger.Logger) *CSVSource {
	return &CSVSource{
		calendarPath: calendarPath,
		pricesPath:   pricesPath,
		salesPath:    salesPath,
		log:          log,
	}
}

// LoadSnapshot reads all three files into memory. The snapshot is immutable
// once built into a catalog, so loading happens once at startup.
func (s *CSVSource) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	started := time.Now()

	calendar, err := s.loadCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("load calendar %s: %w", s.calendarPath, err)
	}
	prices, err := s.loadPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices %s: %w", s.pricesPath, err)
	}
	series, err := s.loadSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales %s: %w", s.salesPath, err)
	}

	s.log.Info("snapshot loaded",
		logger.Int("calendar_days", len(calendar)),
		logger.Int("price_records", len(prices)),
		logger.Int("series", len(series)),
		logger.Duration("elapsed", time.Since(started)))

	return &models.Snapshot{Calendar: calendar, Prices: prices, Series: series}, nil
}

func (s *CSVSource) loadCalendar(ctx context.Context) ([]models.CalendarDay, error) {
	f, err := os.Open(s.calendarPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col, err := columnIndex(header,
		"date", "wm_yr_wk", "wday", "month", "year", "d",
		"event_name_1", "event_name_2", "snap_CA", "snap_TX", "snap_WI")
	if err != nil {
		return nil, err
	}

	var out []models.CalendarDay
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		day, err := parseDayColumn(row[col["d"]])
		if err != nil {
			return nil, err
		}
		date, err := util.ParseDate(row[col["date"]])
		if err != nil {
			return nil, fmt.Errorf("day %d: %w", day, err)
		}
		bucket, err := strconv.Atoi(row[col["wm_yr_wk"]])
		if err != nil {
			return nil, fmt.Errorf("day %d: wm_yr_wk: %w", day, err)
		}
		wday, err := strconv.Atoi(row[col["wday"]])
		if err != nil {
			return nil, fmt.Errorf("day %d: wday: %w", day, err)
		}
		_, week := date.ISOWeek()

		out = append(out, models.CalendarDay{
			Day:        day,
			Date:       date,
			Weekday:    wday,
			Month:      int(date.Month()),
			Year:       date.Year(),
			WeekOfYear: week,
			WeekBucket: bucket,
			HasEvent1:  row[col["event_name_1"]] != "",
			HasEvent2:  row[col["event_name_2"]] != "",
			SnapCA:     row[col["snap_CA"]] == "1",
			SnapTX:     row[col["snap_TX"]] == "1",
			SnapWI:     row[col["snap_WI"]] == "1",
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no calendar rows")
	}
	return out, nil
}

func (s *CSVSource) loadPrices(ctx context.Context) ([]models.PriceRecord, error) {
	f, err := os.Open(s.pricesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col, err := columnIndex(header, "store_id", "item_id", "wm_yr_wk", "sell_price")
	if err != nil {
		return nil, err
	}

	var out []models.PriceRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		bucket, err := strconv.Atoi(row[col["wm_yr_wk"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: wm_yr_wk: %w", line, err)
		}
		price, err := strconv.ParseFloat(row[col["sell_price"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: sell_price: %w", line, err)
		}
		out = append(out, models.PriceRecord{
			StoreID:    row[col["store_id"]],
			ItemID:     row[col["item_id"]],
			WeekBucket: bucket,
			Price:      price,
		})
	}
	return out, nil
}

func (s *CSVSource) loadSales(ctx context.Context) ([]models.SeriesRecord, error) {
	f, err := os.Open(s.salesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col, err := columnIndex(header, "item_id", "dept_id", "cat_id", "store_id", "state_id")
	if err != nil {
		return nil, err
	}

	// Day columns are named d_1..d_N and must be contiguous.
	firstDayCol := -1
	firstDay := 0
	for i, name := range header {
		if !strings.HasPrefix(name, "d_") {
			continue
		}
		day, err := parseDayColumn(name)
		if err != nil {
			return nil, err
		}
		if firstDayCol < 0 {
			firstDayCol, firstDay = i, day
			continue
		}
		if day != firstDay+(i-firstDayCol) {
			return nil, fmt.Errorf("day columns not contiguous at %s", name)
		}
	}
	if firstDayCol < 0 {
		return nil, fmt.Errorf("no day columns in header")
	}

	var out []models.SeriesRecord
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		values := make([]float64, len(row)-firstDayCol)
		for i, cell := range row[firstDayCol:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: day value %q: %w", line, cell, err)
			}
			values[i] = v
		}
		out = append(out, models.SeriesRecord{
			ItemID:   row[col["item_id"]],
			DeptID:   row[col["dept_id"]],
			CatID:    row[col["cat_id"]],
			StoreID:  row[col["store_id"]],
			StateID:  row[col["state_id"]],
			FirstDay: firstDay,
			Values:   values,
		})
	}
	return out, nil
}

// parseDayColumn turns "d_123" into 123.
func parseDayColumn(s string) (int, error) {
	num, ok := strings.CutPrefix(s, "d_")
	if !ok {
		return 0, fmt.Errorf("bad day column %q", s)
	}
	day, err := strconv.Atoi(num)
	if err != nil || day < 1 {
		return 0, fmt.Errorf("bad day column %q", s)
	}
	return day, nil
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}
