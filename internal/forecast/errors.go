package forecast

import "errors"

var (
	// ErrUnknownSeries means the series key has no historical records. Client
	// input error; never retried.
	ErrUnknownSeries = errors.New("forecast: unknown series")

	// ErrInsufficientHistory means a lag offset predates the series' earliest
	// record and the missing-lag policy is set to abort.
	ErrInsufficientHistory = errors.New("forecast: insufficient history for lag")

	// ErrCalendarRange means the target day is past the loaded calendar. The
	// requested horizon exceeds the supported range.
	ErrCalendarRange = errors.New("forecast: target day beyond calendar range")

	// ErrModelUnavailable means no prediction model was loaded. Fatal at
	// process level; no forecast can be served until resolved.
	ErrModelUnavailable = errors.New("forecast: model unavailable")
)
