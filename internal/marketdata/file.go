package marketdata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/portfolio"
)

// FileSource serves prices from a CSV with a Date column followed by one column per ticker,
// the same layout the trading data artifact is written in.
type FileSource struct {
	Path string
}

// FetchPrices reads the file and keeps the requested tickers between start and end (inclusive).
// A zero start or end leaves that side open.
func (f FileSource) FetchPrices(_ context.Context, tickers []string, start, end time.Time) (*model.PriceSeries, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening price file: %w", err)
	}
	defer file.Close()

	all, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}

	cols := make([]int, len(tickers))
	for i, t := range tickers {
		cols[i] = all.Column(t)
		if cols[i] < 0 {
			return nil, fmt.Errorf("%s: %w", f.Path, &portfolio.MissingTickerError{Ticker: t})
		}
	}

	out := &model.PriceSeries{Tickers: append([]string(nil), tickers...)}
	for i, d := range all.Dates {
		if !start.IsZero() && d.Before(model.TruncateDay(start)) {
			continue
		}
		if !end.IsZero() && d.After(model.TruncateDay(end)) {
			continue
		}
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = all.Values[i][c]
		}
		out.Dates = append(out.Dates, d)
		out.Values = append(out.Values, row)
	}
	return out, nil
}

// ReadCSV parses a price table. Empty cells become NaN.
func ReadCSV(r io.Reader) (*model.PriceSeries, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty price file")
	}

	header := records[0]
	if len(header) < 2 || !strings.EqualFold(header[0], "Date") {
		return nil, fmt.Errorf("expected Date column followed by tickers, got %v", header)
	}

	prices := &model.PriceSeries{Tickers: append([]string(nil), header[1:]...)}
	for n, rec := range records[1:] {
		d, err := time.Parse(model.DateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n+2, err)
		}
		row := make([]float64, len(header)-1)
		for j, cell := range rec[1:] {
			if strings.TrimSpace(cell) == "" {
				row[j] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", n+2, header[j+1], err)
			}
			row[j] = v
		}
		prices.Dates = append(prices.Dates, d)
		prices.Values = append(prices.Values, row)
	}

	if err := prices.Validate(); err != nil {
		return nil, err
	}
	return prices, nil
}
