package repository

import (
	"DemandCast/internal/domain/models"
)

// Catalog is the process-wide, read-only index of every known series plus the
// shared calendar and price tables. It is built once at startup and never
// mutated afterwards, so concurrent reads need no synchronization.
type Catalog interface {
	// Resolve returns a freshly owned buffer seeded with the full observed
	// history of the series. The buffer shares only the immutable calendar and
	// price tables with the catalog.
	Resolve(key models.SeriesKey) (*models.SeriesBuffer, error)

	// History returns up to the last n observed days of the series.
	History(key models.SeriesKey, days int) ([]models.HistoryPoint, error)

	// Keys returns every series key in the catalog.
	Keys() []models.SeriesKey

	// Items and Stores list the distinct identifiers present in the catalog.
	Items() []string
	Stores() []string

	// LastCalendarDay returns the last day index the loaded calendar covers.
	LastCalendarDay() int
}
