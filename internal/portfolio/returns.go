package portfolio

import (
	"fmt"
	"math"

	"github.com/Alias1177/Allocator/internal/model"
)

// LogReturns computes ln(p[t]/p[t-1]) for each requested ticker, in the requested order.
// The undefined first row is dropped, so the result has one row fewer than prices.
// NaN prices yield NaN returns for both adjacent pairs.
func LogReturns(prices *model.PriceSeries, tickers []string) (*model.ReturnSeries, error) {
	cols := make([]int, len(tickers))
	for i, t := range tickers {
		c := prices.Column(t)
		if c < 0 {
			return nil, &MissingTickerError{Ticker: t}
		}
		cols[i] = c
	}
	if prices.Len() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 price rows, got %d", ErrInsufficientData, prices.Len())
	}

	n := prices.Len() - 1
	out := &model.ReturnSeries{
		Dates:   prices.Dates[1:],
		Tickers: append([]string(nil), tickers...),
		Values:  make([][]float64, n),
	}
	for t := 1; t <= n; t++ {
		prev, cur := prices.Values[t-1], prices.Values[t]
		row := make([]float64, len(cols))
		for i, c := range cols {
			row[i] = math.Log(cur[c] / prev[c])
		}
		out.Values[t-1] = row
	}
	return out, nil
}
