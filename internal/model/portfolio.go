package model

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

// Metric names shared by simulated and realized records
const (
	MetricDollarAmount       = "Dollar Amount"
	MetricReturnPct          = "Return PCT"
	MetricDownsideSD         = "Downside SD"
	MetricUpsideSD           = "Upside SD"
	MetricVolatilitySkewness = "Volatility Skewness"
	MetricSortino            = "Sortino"
)

// MetricNames lists the scalar metrics in table order
var MetricNames = []string{
	MetricDollarAmount,
	MetricReturnPct,
	MetricDownsideSD,
	MetricUpsideSD,
	MetricVolatilitySkewness,
	MetricSortino,
}

// WeightVector holds one non-negative weight per ticker, summing to 1
type WeightVector []float64

// Sum returns the total allocation
func (w WeightVector) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// PortfolioRecord is the scored outcome of one weight vector over one return series
type PortfolioRecord struct {
	DollarAmount       float64      `json:"dollar_amount"`
	AnnualReturn       float64      `json:"annual_return"`
	DownsideSD         float64      `json:"downside_sd"`
	UpsideSD           float64      `json:"upside_sd"`
	VolatilitySkewness float64      `json:"volatility_skewness"`
	SortinoRatio       float64      `json:"sortino_ratio"`
	TotalReturn        float64      `json:"total_return"` // exp(sum of log-returns) - 1
	Weights            WeightVector `json:"weights,omitempty"`
}

// NamedValue is a metric name with its value
type NamedValue struct {
	Name  string
	Value float64
}

// Metrics returns the six scalar metrics in MetricNames order
func (r PortfolioRecord) Metrics() []NamedValue {
	return []NamedValue{
		{MetricDollarAmount, r.DollarAmount},
		{MetricReturnPct, r.AnnualReturn},
		{MetricDownsideSD, r.DownsideSD},
		{MetricUpsideSD, r.UpsideSD},
		{MetricVolatilitySkewness, r.VolatilitySkewness},
		{MetricSortino, r.SortinoRatio},
	}
}

// Params is the immutable configuration of one analysis run
type Params struct {
	Industry     string
	Tickers      []string
	Start        time.Time
	End          time.Time
	TradingDays  int
	RiskFreeRate float64
	Simulations  int
	Investment   float64
}

// ErrInvalidConfiguration is returned by Params.Validate
var ErrInvalidConfiguration = errors.New("invalid configuration")

// reservedNames share a namespace with tickers in the output tables
var reservedNames = append([]string{"Date", "Trial"}, MetricNames...)

// Validate checks the run parameters
func (p Params) Validate() error {
	if len(p.Tickers) == 0 {
		return fmt.Errorf("%w: ticker list is empty", ErrInvalidConfiguration)
	}
	seen := make(map[string]struct{}, len(p.Tickers))
	for _, t := range p.Tickers {
		if t == "" {
			return fmt.Errorf("%w: empty ticker symbol", ErrInvalidConfiguration)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("%w: duplicate ticker %s", ErrInvalidConfiguration, t)
		}
		if slices.Contains(reservedNames, t) {
			return fmt.Errorf("%w: ticker %q clashes with a column name", ErrInvalidConfiguration, t)
		}
		seen[t] = struct{}{}
	}
	if p.Simulations < 1 {
		return fmt.Errorf("%w: simulations must be positive, got %d", ErrInvalidConfiguration, p.Simulations)
	}
	if p.TradingDays < 1 {
		return fmt.Errorf("%w: trading days must be positive, got %d", ErrInvalidConfiguration, p.TradingDays)
	}
	if !p.Start.IsZero() && !p.End.IsZero() && !p.Start.Before(p.End) {
		return fmt.Errorf("%w: start %s is not before end %s",
			ErrInvalidConfiguration, p.Start.Format(DateLayout), p.End.Format(DateLayout))
	}
	return nil
}

// Combined table column names
const (
	ColumnMetric    = "Metric"
	ColumnSimulated = "Maximum Sortino Portfolio"
	ColumnRealized  = "Comp Results"
	ColumnPctDiff   = "PCT Diff"
)

// CombinedRow compares one simulated metric against its realized value
type CombinedRow struct {
	Metric      string
	Simulated   float64
	Realized    float64 // NaN when HasRealized is false
	PctDiff     float64 // realized/simulated - 1, NaN when HasRealized is false
	HasRealized bool
}

// CombinedResult is the terminal artifact of a run
type CombinedResult struct {
	Rows []CombinedRow
}

// Table converts the result into the combined diff artifact
func (c CombinedResult) Table(name string) *Table {
	table := NewTable(name,
		Column{Name: ColumnMetric, Type: TextColumn},
		Column{Name: ColumnSimulated, Type: FloatColumn},
		Column{Name: ColumnRealized, Type: FloatColumn},
		Column{Name: ColumnPctDiff, Type: FloatColumn},
	)
	for _, r := range c.Rows {
		var realized, diff any
		if r.HasRealized {
			realized, diff = r.Realized, r.PctDiff
		}
		table.Rows = append(table.Rows, []any{r.Metric, r.Simulated, realized, diff})
	}
	return table
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
