package portfolio

import (
	"fmt"
	"sort"
	"time"

	"github.com/Alias1177/Allocator/internal/model"
)

// ComparisonDays is the length of the held-out trailing window in calendar days
const ComparisonDays = 365

// BoundaryDate returns the first day of the comparison window for a reference date
func BoundaryDate(ref time.Time) time.Time {
	return model.TruncateDay(ref).AddDate(0, 0, -ComparisonDays)
}

// SplitPeriod partitions prices into a training window (dates strictly before boundary)
// and a comparison window (dates at or after boundary). Both must hold at least two rows.
func SplitPeriod(prices *model.PriceSeries, boundary time.Time) (train, comparison *model.PriceSeries, err error) {
	if prices == nil {
		return nil, nil, fmt.Errorf("%w: no price data", ErrInsufficientData)
	}
	cut := idxAtOrAfter(prices.Dates, boundary)

	train = prices.Slice(0, cut)
	comparison = prices.Slice(cut, prices.Len())

	if train.Len() < 2 {
		return nil, nil, fmt.Errorf("%w: training window before %s has %d rows",
			ErrInsufficientData, boundary.Format(model.DateLayout), train.Len())
	}
	if comparison.Len() < 2 {
		return nil, nil, fmt.Errorf("%w: comparison window from %s has %d rows",
			ErrInsufficientData, boundary.Format(model.DateLayout), comparison.Len())
	}
	return train, comparison, nil
}

// idxAtOrAfter finds the first index with dates[i] >= t
func idxAtOrAfter(dates []time.Time, t time.Time) int {
	return sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(t)
	})
}
