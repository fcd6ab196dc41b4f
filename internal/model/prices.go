package model

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DateLayout is the calendar date format used in tables and file names.
const DateLayout = "2006-01-02"

// PricePoint is a single adjusted close observation for one ticker
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// PriceSeries is a date-ordered table of adjusted close prices, one column per ticker.
// Missing observations are stored as NaN and are never interpolated.
type PriceSeries struct {
	Dates   []time.Time
	Tickers []string
	Values  [][]float64 // Values[row][column]
}

// Len returns the number of dated rows
func (p *PriceSeries) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Dates)
}

// Column returns the column index of ticker, or -1 when absent
func (p *PriceSeries) Column(ticker string) int {
	for i, t := range p.Tickers {
		if t == ticker {
			return i
		}
	}
	return -1
}

// Validate checks the table shape and that dates are strictly increasing
func (p *PriceSeries) Validate() error {
	if len(p.Values) != len(p.Dates) {
		return fmt.Errorf("price table has %d dates but %d rows", len(p.Dates), len(p.Values))
	}
	for i, row := range p.Values {
		if len(row) != len(p.Tickers) {
			return fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(p.Tickers))
		}
		if i > 0 && !p.Dates[i].After(p.Dates[i-1]) {
			return fmt.Errorf("dates not strictly increasing at row %d (%s after %s)",
				i, p.Dates[i].Format(DateLayout), p.Dates[i-1].Format(DateLayout))
		}
	}
	return nil
}

// Slice returns the rows in [from, to). The backing arrays are shared.
func (p *PriceSeries) Slice(from, to int) *PriceSeries {
	return &PriceSeries{
		Dates:   p.Dates[from:to],
		Tickers: p.Tickers,
		Values:  p.Values[from:to],
	}
}

// Table converts the series into the raw trading data artifact
func (p *PriceSeries) Table(name string) *Table {
	cols := make([]Column, 0, len(p.Tickers)+1)
	cols = append(cols, Column{Name: "Date", Type: DateColumn})
	for _, t := range p.Tickers {
		cols = append(cols, Column{Name: t, Type: FloatColumn})
	}
	table := NewTable(name, cols...)
	for i, d := range p.Dates {
		row := make([]any, 0, len(cols))
		row = append(row, d)
		for _, v := range p.Values[i] {
			row = append(row, v)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// MergePoints assembles per-ticker observations into one table keyed by the union of dates.
// Dates missing for a ticker become NaN gaps.
func MergePoints(tickers []string, points map[string][]PricePoint) *PriceSeries {
	index := make(map[time.Time]int)
	var dates []time.Time
	for _, t := range tickers {
		for _, pt := range points[t] {
			d := TruncateDay(pt.Date)
			if _, ok := index[d]; !ok {
				index[d] = 0
				dates = append(dates, d)
			}
		}
	}
	sortDates(dates)
	for i, d := range dates {
		index[d] = i
	}

	values := make([][]float64, len(dates))
	for i := range values {
		row := make([]float64, len(tickers))
		for j := range row {
			row[j] = math.NaN()
		}
		values[i] = row
	}
	for j, t := range tickers {
		for _, pt := range points[t] {
			values[index[TruncateDay(pt.Date)]][j] = pt.Close
		}
	}

	return &PriceSeries{
		Dates:   dates,
		Tickers: append([]string(nil), tickers...),
		Values:  values,
	}
}

// ReturnSeries holds per-ticker log-returns. Dates[i] is the later date of each pair.
type ReturnSeries struct {
	Dates   []time.Time
	Tickers []string
	Values  [][]float64
}

// Len returns the number of return rows
func (r *ReturnSeries) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Dates)
}

// TruncateDay drops the time of day, keeping the UTC calendar date
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sortDates(dates []time.Time) {
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
}
