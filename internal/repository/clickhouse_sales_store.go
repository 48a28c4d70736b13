package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"DemandCast/internal/domain/models"
	"DemandCast/internal/domain/repository"
	pkgch "DemandCast/pkg/clickhouse"
	applogger "DemandCast/pkg/logger"
)

// ClickHouseStorage implements Storage for ClickHouse.
type ClickHouseStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseStorage creates ClickHouse storage for raw sales events.
func NewClickHouseStorage(db *sql.DB, table string) repository.Storage {
	return &ClickHouseStorage{db: db, table: table}
}

func (s *ClickHouseStorage) Store(ctx context.Context, e *models.SalesEvent) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, item_id, store_id, qty, event_id) VALUES (?, ?, ?, ?, ?)", s.table)
	eventID := fmt.Sprintf("%s_%s-%d", e.ItemID, e.StoreID, e.Timestamp)
	_, err := s.db.ExecContext(ctx, q,
		time.Unix(e.Timestamp, 0),
		e.ItemID,
		e.StoreID,
		e.Quantity,
		eventID,
	)
	return err
}

func (s *ClickHouseStorage) StoreBatch(ctx context.Context, events []*models.SalesEvent) error {
	if len(events) == 0 {
		return nil
	}
	// Multi-row VALUES insert to reduce round-trips, chunked at 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(events); start += chunkSize {
		end := start + chunkSize
		if end > len(events) {
			end = len(events)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*5)
		for _, e := range events[start:end] {
			if e == nil || e.ItemID == "" || e.StoreID == "" {
				continue
			}
			eventID := fmt.Sprintf("%s_%s-%d", e.ItemID, e.StoreID, e.Timestamp)
			values = append(values, "(?, ?, ?, ?, ?)")
			args = append(args,
				time.Unix(e.Timestamp, 0),
				e.ItemID,
				e.StoreID,
				e.Quantity,
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, item_id, store_id, qty, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseStorage) Query(ctx context.Context, key models.SeriesKey, from, to time.Time, limit int) ([]*models.SalesEvent, error) {
	q := fmt.Sprintf("SELECT item_id, store_id, ts, qty FROM %s WHERE item_id = ? AND store_id = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, key.ItemID, key.StoreID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.SalesEvent
	for rows.Next() {
		var e models.SalesEvent
		var ts time.Time
		if err := rows.Scan(&e.ItemID, &e.StoreID, &ts, &e.Quantity); err != nil {
			return nil, err
		}
		e.Timestamp = ts.Unix()
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (s *ClickHouseStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseStorage) Close() error {
	return nil // Managed by pkg
}

// ClickHouseSnapshotSource loads the reference snapshot (calendar, prices,
// aggregated daily sales) from ClickHouse instead of the CSV files.
type ClickHouseSnapshotSource struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewClickHouseSnapshotSource(ch *pkgch.Client, l *applogger.Logger) *ClickHouseSnapshotSource {
	return &ClickHouseSnapshotSource{db: ch.DB(), l: l}
}

func (s *ClickHouseSnapshotSource) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	started := time.Now()

	calendar, err := s.loadCalendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	prices, err := s.loadPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("load prices: %w", err)
	}
	series, err := s.loadSeries(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sales: %w", err)
	}

	if s.l != nil {
		s.l.Info("clickhouse snapshot loaded",
			applogger.Int("calendar_days", len(calendar)),
			applogger.Int("price_records", len(prices)),
			applogger.Int("series", len(series)),
			applogger.Duration("duration_ms", time.Since(started)),
		)
	}
	return &models.Snapshot{Calendar: calendar, Prices: prices, Series: series}, nil
}

func (s *ClickHouseSnapshotSource) loadCalendar(ctx context.Context) ([]models.CalendarDay, error) {
	const q = `
        SELECT day, date, wday, month, year, week_of_year, wm_yr_wk,
               has_event_1, has_event_2, snap_ca, snap_tx, snap_wi
        FROM demandcast.calendar
        ORDER BY day ASC
    `
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CalendarDay
	for rows.Next() {
		var cd models.CalendarDay
		var ev1, ev2, ca, tx, wi uint8
		if err := rows.Scan(&cd.Day, &cd.Date, &cd.Weekday, &cd.Month, &cd.Year,
			&cd.WeekOfYear, &cd.WeekBucket, &ev1, &ev2, &ca, &tx, &wi); err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		cd.HasEvent1, cd.HasEvent2 = ev1 != 0, ev2 != 0
		cd.SnapCA, cd.SnapTX, cd.SnapWI = ca != 0, tx != 0, wi != 0
		out = append(out, cd)
	}
	return out, rows.Err()
}

func (s *ClickHouseSnapshotSource) loadPrices(ctx context.Context) ([]models.PriceRecord, error) {
	const q = `
        SELECT store_id, item_id, wm_yr_wk, sell_price
        FROM demandcast.sell_prices
        ORDER BY store_id, item_id, wm_yr_wk ASC
    `
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PriceRecord
	for rows.Next() {
		var p models.PriceRecord
		if err := rows.Scan(&p.StoreID, &p.ItemID, &p.WeekBucket, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// loadSeries folds the per-day sales rows into one record per series. Days a
// series sold nothing have no row, so gaps inside the observed range are
// zero-filled.
func (s *ClickHouseSnapshotSource) loadSeries(ctx context.Context) ([]models.SeriesRecord, error) {
	const q = `
        SELECT item_id, dept_id, cat_id, store_id, state_id, day, qty
        FROM demandcast.sales_daily
        ORDER BY item_id, store_id, day ASC
    `
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SeriesRecord
	var cur *models.SeriesRecord
	for rows.Next() {
		var itemID, deptID, catID, storeID, stateID string
		var day int
		var qty float64
		if err := rows.Scan(&itemID, &deptID, &catID, &storeID, &stateID, &day, &qty); err != nil {
			return nil, fmt.Errorf("scan sales row: %w", err)
		}

		if cur == nil || cur.ItemID != itemID || cur.StoreID != storeID {
			out = append(out, models.SeriesRecord{
				ItemID: itemID, DeptID: deptID, CatID: catID,
				StoreID: storeID, StateID: stateID,
				FirstDay: day,
			})
			cur = &out[len(out)-1]
		}

		next := cur.FirstDay + len(cur.Values)
		if day < next {
			return nil, fmt.Errorf("series %s_%s: day %d out of order", itemID, storeID, day)
		}
		for next < day {
			cur.Values = append(cur.Values, 0)
			next++
		}
		cur.Values = append(cur.Values, qty)
	}
	return out, rows.Err()
}
