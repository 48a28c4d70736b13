package forecast

import (
	"fmt"
	"math"

	"DemandCast/internal/domain/models"
)

// MissingLagPolicy decides what happens when a lag offset predates the series'
// earliest record.
type MissingLagPolicy string

const (
	// LagZeroFill substitutes 0 for the missing lag.
	LagZeroFill MissingLagPolicy = "zero"
	// LagAbort fails the extraction with ErrInsufficientHistory.
	LagAbort MissingLagPolicy = "abort"
)

// ParseMissingLagPolicy maps a config string to a policy, defaulting to zero-fill.
func ParseMissingLagPolicy(s string) (MissingLagPolicy, error) {
	switch MissingLagPolicy(s) {
	case LagZeroFill, "":
		return LagZeroFill, nil
	case LagAbort:
		return LagAbort, nil
	default:
		return "", fmt.Errorf("unknown missing-lag policy %q", s)
	}
}

var (
	lagOffsets     = [3]int{7, 14, 28}
	rollingWindows = [3]int{7, 14, 28}
)

// Extractor computes the model's 26-field feature vector from a series buffer.
// It is a pure function of its inputs: identical buffer contents and target day
// always yield the identical vector.
type Extractor struct {
	policy MissingLagPolicy
}

// NewExtractor creates a feature extractor with the given missing-lag policy.
func NewExtractor(policy MissingLagPolicy) *Extractor {
	if policy == "" {
		policy = LagZeroFill
	}
	return &Extractor{policy: policy}
}

// Extract builds the feature vector for targetDay. Only buffer values at day
// indices strictly below targetDay feed the lag and rolling fields, so a value
// written at targetDay or later can never leak into its own features.
func (e *Extractor) Extract(buf *models.SeriesBuffer, targetDay int) (models.FeatureVector, error) {
	var fv models.FeatureVector

	cd, ok := buf.Calendar.At(targetDay)
	if !ok {
		return fv, fmt.Errorf("%w: day %d, calendar ends at %d", ErrCalendarRange, targetDay, buf.Calendar.LastDay())
	}

	fv.ItemCode = float64(buf.Codes.Item)
	fv.DeptCode = float64(buf.Codes.Dept)
	fv.CatCode = float64(buf.Codes.Cat)
	fv.StoreCode = float64(buf.Codes.Store)
	fv.StateCode = float64(buf.Codes.State)

	fv.DayOfWeek = float64(cd.Weekday)
	fv.DayOfMonth = float64(cd.Date.Day())
	fv.WeekOfYear = float64(cd.WeekOfYear)
	fv.Month = float64(cd.Month)
	fv.Year = float64(cd.Year)
	fv.HasEvent1 = boolFeature(cd.HasEvent1)
	fv.HasEvent2 = boolFeature(cd.HasEvent2)
	fv.SnapCA = boolFeature(cd.SnapCA)
	fv.SnapTX = boolFeature(cd.SnapTX)
	fv.SnapWI = boolFeature(cd.SnapWI)

	fv.SellPrice, fv.PriceChange = e.priceFields(buf.Prices, cd.WeekBucket)

	lags := [3]*float64{&fv.Lag7, &fv.Lag14, &fv.Lag28}
	for i, off := range lagOffsets {
		day := targetDay - off
		v, ok := buf.At(day)
		if !ok {
			if e.policy == LagAbort {
				return models.FeatureVector{}, fmt.Errorf("%w: lag_%d needs day %d, series starts at %d",
					ErrInsufficientHistory, off, day, buf.FirstDay)
			}
			v = 0
		}
		*lags[i] = v
	}

	means := [3]*float64{&fv.RollingMean7, &fv.RollingMean14, &fv.RollingMean28}
	stds := [3]*float64{&fv.RollingStd7, &fv.RollingStd14, &fv.RollingStd28}
	for i, w := range rollingWindows {
		mean, std := rollingStats(buf, targetDay, w)
		*means[i] = mean
		*stds[i] = std
	}

	return fv, nil
}

// priceFields resolves the effective sell price for the week bucket and the
// change against the previously recorded week. Unpriced series yield (0, 0).
func (e *Extractor) priceFields(p *models.PriceSeries, week int) (price, change float64) {
	cur, idx := p.At(week)
	if idx < 0 {
		return 0, 0
	}
	if idx == 0 {
		return cur, 0
	}
	return cur, cur - p.Prices[idx-1]
}

// rollingStats computes mean and sample standard deviation over the window of
// w days ending at targetDay-1, restricted to days the buffer actually holds.
// A window shorter than w is computed over the available subset; fewer than two
// points yield std 0.
func rollingStats(buf *models.SeriesBuffer, targetDay, w int) (mean, std float64) {
	from := targetDay - w
	if from < buf.FirstDay {
		from = buf.FirstDay
	}
	to := targetDay - 1
	if last := buf.LastDay(); to > last {
		to = last
	}
	n := to - from + 1
	if n <= 0 {
		return 0, 0
	}

	var sum, sum2 float64
	for day := from; day <= to; day++ {
		v, _ := buf.At(day)
		sum += v
		sum2 += v * v
	}
	fn := float64(n)
	mean = sum / fn
	if n < 2 {
		return mean, 0
	}
	variance := (sum2 - fn*mean*mean) / (fn - 1)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
