package portfolio

import (
	"math"

	"github.com/Alias1177/Allocator/internal/model"
)

// Valuation selects how the dollar amount of a record is derived
type Valuation int

const (
	// StaticValuation reports the initial investment unchanged (simulation trials)
	StaticValuation Valuation = iota
	// CompoundedValuation grows the investment by the realized total return (back-tests)
	CompoundedValuation
)

// Score computes the performance metrics of weights applied to returns.
// Degenerate statistics (fewer than two downside points, zero downside deviation)
// propagate as NaN or ±Inf. Rows whose portfolio return is NaN are skipped;
// with no usable row left, every metric except a static dollar amount is NaN.
// weights must have one entry per column of returns.
func Score(returns *model.ReturnSeries, weights model.WeightVector, p model.Params, valuation Valuation) model.PortfolioRecord {
	days := float64(p.TradingDays)
	daily := PortfolioReturns(returns, weights)

	var sum float64
	var count int
	downside := make([]float64, 0, len(daily))
	upside := make([]float64, 0, len(daily))
	for _, r := range daily {
		if math.IsNaN(r) {
			continue
		}
		sum += r
		count++
		if r < 0 {
			downside = append(downside, r)
		} else {
			upside = append(upside, r)
		}
	}

	avg, total := math.NaN(), math.NaN()
	if count > 0 {
		avg = sum / float64(count)
		total = math.Exp(sum) - 1
	}
	annual := avg * days
	downSD := sampleStdDev(downside) * math.Sqrt(days)
	upSD := sampleStdDev(upside) * math.Sqrt(days)

	dollar := p.Investment
	if valuation == CompoundedValuation {
		dollar = p.Investment*total + p.Investment
	}

	return model.PortfolioRecord{
		DollarAmount:       dollar,
		AnnualReturn:       annual,
		DownsideSD:         downSD,
		UpsideSD:           upSD,
		VolatilitySkewness: upSD / downSD,
		SortinoRatio:       (annual - p.RiskFreeRate) / downSD,
		TotalReturn:        total,
		Weights:            append(model.WeightVector(nil), weights...),
	}
}

// PortfolioReturns is the per-row dot product of returns and weights
func PortfolioReturns(returns *model.ReturnSeries, weights model.WeightVector) []float64 {
	out := make([]float64, returns.Len())
	for t, row := range returns.Values {
		var r float64
		for i, w := range weights {
			r += w * row[i]
		}
		out[t] = r
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// sampleStdDev uses the N-1 denominator and is NaN below two observations
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}

	m := mean(values)
	var sumSquaredDiff float64
	for _, v := range values {
		diff := v - m
		sumSquaredDiff += diff * diff
	}

	return math.Sqrt(sumSquaredDiff / float64(len(values)-1))
}
