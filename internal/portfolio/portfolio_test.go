package portfolio

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/Allocator/internal/model"
)

var day0 = time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)

// buildPrices compounds per-row log-returns from a base price for every ticker.
func buildPrices(tickers []string, base []float64, rets [][]float64) *model.PriceSeries {
	p := &model.PriceSeries{Tickers: tickers}
	cur := append([]float64(nil), base...)
	p.Dates = append(p.Dates, day0)
	p.Values = append(p.Values, append([]float64(nil), cur...))
	for i, row := range rets {
		next := make([]float64, len(cur))
		for j := range cur {
			next[j] = cur[j] * math.Exp(row[j])
		}
		cur = next
		p.Dates = append(p.Dates, day0.AddDate(0, 0, i+1))
		p.Values = append(p.Values, next)
	}
	return p
}

func returnSeries(values ...float64) *model.ReturnSeries {
	r := &model.ReturnSeries{Tickers: []string{"X"}}
	for i, v := range values {
		r.Dates = append(r.Dates, day0.AddDate(0, 0, i+1))
		r.Values = append(r.Values, []float64{v})
	}
	return r
}

func testParams() model.Params {
	return model.Params{
		Tickers:      []string{"X"},
		TradingDays:  252,
		RiskFreeRate: 0.05,
		Simulations:  1,
		Investment:   1000,
	}
}

func TestLogReturns(t *testing.T) {
	prices := &model.PriceSeries{
		Dates:   []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2)},
		Tickers: []string{"A", "B", "C"},
		Values: [][]float64{
			{10, 20, 5},
			{11, 18, 5},
			{12.1, 18, 10},
		},
	}

	got, err := LogReturns(prices, []string{"C", "A"})
	require.NoError(t, err)

	assert.Equal(t, prices.Len()-1, got.Len())
	assert.Equal(t, []string{"C", "A"}, got.Tickers)
	assert.Equal(t, prices.Dates[1:], got.Dates)
	assert.InDelta(t, 0.0, got.Values[0][0], 1e-12)
	assert.InDelta(t, math.Log(1.1), got.Values[0][1], 1e-12)
	assert.InDelta(t, math.Log(2), got.Values[1][0], 1e-12)
	assert.InDelta(t, math.Log(1.1), got.Values[1][1], 1e-12)
}

func TestLogReturns_Errors(t *testing.T) {
	prices := buildPrices([]string{"A"}, []float64{10}, [][]float64{{0.01}})

	_, err := LogReturns(prices, []string{"A", "ZZZ"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingTicker))
	var missing *MissingTickerError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "ZZZ", missing.Ticker)

	_, err = LogReturns(prices.Slice(0, 1), []string{"A"})
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestLogReturns_GapPropagates(t *testing.T) {
	prices := &model.PriceSeries{
		Dates:   []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 3)},
		Tickers: []string{"A"},
		Values:  [][]float64{{10}, {math.NaN()}, {12}, {13}},
	}
	got, err := LogReturns(prices, []string{"A"})
	require.NoError(t, err)
	require.Equal(t, 3, got.Len())
	assert.True(t, math.IsNaN(got.Values[0][0]))
	assert.True(t, math.IsNaN(got.Values[1][0]))
	assert.InDelta(t, math.Log(13.0/12.0), got.Values[2][0], 1e-12)
}

func TestLogReturns_OrderSensitive(t *testing.T) {
	prices := buildPrices([]string{"A"}, []float64{100}, [][]float64{{0.05}, {-0.02}, {0.03}, {-0.04}})
	shuffled := &model.PriceSeries{
		Dates:   prices.Dates,
		Tickers: prices.Tickers,
		Values:  [][]float64{prices.Values[0], prices.Values[3], prices.Values[1], prices.Values[4], prices.Values[2]},
	}

	a, err := LogReturns(prices, []string{"A"})
	require.NoError(t, err)
	b, err := LogReturns(shuffled, []string{"A"})
	require.NoError(t, err)
	assert.NotEqual(t, a.Values, b.Values)
}

func TestSplitPeriod(t *testing.T) {
	prices := buildPrices([]string{"A"}, []float64{10}, make([][]float64, 9))
	boundary := day0.AddDate(0, 0, 6)

	train, comp, err := SplitPeriod(prices, boundary)
	require.NoError(t, err)

	assert.Equal(t, 6, train.Len())
	assert.Equal(t, 4, comp.Len())
	assert.True(t, train.Dates[train.Len()-1].Before(boundary))
	assert.Equal(t, boundary, comp.Dates[0], "boundary row belongs to the comparison window")
	assert.Equal(t, prices.Len(), train.Len()+comp.Len())
}

func TestSplitPeriod_InsufficientData(t *testing.T) {
	prices := buildPrices([]string{"A"}, []float64{10}, make([][]float64, 9))

	tests := []struct {
		name     string
		boundary time.Time
	}{
		{"empty training window", day0},
		{"single training row", day0.AddDate(0, 0, 1)},
		{"single comparison row", day0.AddDate(0, 0, 9)},
		{"empty comparison window", day0.AddDate(0, 0, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := SplitPeriod(prices, tt.boundary)
			assert.True(t, errors.Is(err, ErrInsufficientData), "got %v", err)
		})
	}
}

func TestBoundaryDate(t *testing.T) {
	ref := time.Date(2024, 4, 1, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC), BoundaryDate(ref))
}

func TestScore_ManualComputation(t *testing.T) {
	r := returnSeries(0.01, -0.02, 0.03, -0.01, 0.02)
	p := testParams()
	rec := Score(r, model.WeightVector{1}, p, StaticValuation)

	avg := (0.01 - 0.02 + 0.03 - 0.01 + 0.02) / 5
	down := sampleStdDev([]float64{-0.02, -0.01}) * math.Sqrt(252)
	up := sampleStdDev([]float64{0.01, 0.03, 0.02}) * math.Sqrt(252)

	assert.InDelta(t, avg*252, rec.AnnualReturn, 1e-12)
	assert.InDelta(t, down, rec.DownsideSD, 1e-12)
	assert.InDelta(t, up, rec.UpsideSD, 1e-12)
	assert.InDelta(t, up/down, rec.VolatilitySkewness, 1e-12)
	assert.InDelta(t, (avg*252-0.05)/down, rec.SortinoRatio, 1e-9)
	assert.Equal(t, 1000.0, rec.DollarAmount)
	assert.InDelta(t, math.Exp(0.03)-1, rec.TotalReturn, 1e-12)
}

func TestScore_Valuation(t *testing.T) {
	r := returnSeries(0.01, -0.02, 0.03)
	p := testParams()

	static := Score(r, model.WeightVector{1}, p, StaticValuation)
	compounded := Score(r, model.WeightVector{1}, p, CompoundedValuation)

	assert.Equal(t, p.Investment, static.DollarAmount)
	assert.InDelta(t, p.Investment*math.Exp(0.02), compounded.DollarAmount, 1e-9)
	assert.Equal(t, static.SortinoRatio, compounded.SortinoRatio)
}

func TestScore_Idempotent(t *testing.T) {
	prices := buildPrices([]string{"A", "B"}, []float64{10, 50},
		[][]float64{{0.01, -0.03}, {-0.02, 0.01}, {0.005, 0.02}, {-0.01, -0.01}})
	r, err := LogReturns(prices, prices.Tickers)
	require.NoError(t, err)
	w := model.WeightVector{0.3, 0.7}

	first := Score(r, w, testParams(), StaticValuation)
	second := Score(r, w, testParams(), StaticValuation)
	assert.Equal(t, math.Float64bits(first.SortinoRatio), math.Float64bits(second.SortinoRatio))
	assert.Equal(t, first, second)
}

func TestScore_TwoRowBoundary(t *testing.T) {
	tests := []struct {
		name         string
		returns      []float64
		downsideNaN  bool
		upsideNaN    bool
		sortinoIsNaN bool
	}{
		{"both positive", []float64{0.01, 0.02}, true, false, true},
		{"both negative", []float64{-0.01, -0.02}, false, true, false},
		{"mixed signs", []float64{0.01, -0.02}, true, true, true},
		{"zero counts as upside", []float64{0, 0.01}, true, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Score(returnSeries(tt.returns...), model.WeightVector{1}, testParams(), StaticValuation)
			assert.Equal(t, tt.downsideNaN, math.IsNaN(rec.DownsideSD))
			assert.Equal(t, tt.upsideNaN, math.IsNaN(rec.UpsideSD))
			assert.Equal(t, tt.sortinoIsNaN, math.IsNaN(rec.SortinoRatio))
		})
	}
}

func TestScore_ZeroDownsideDeviation(t *testing.T) {
	rec := Score(returnSeries(-0.01, -0.01, 0.02), model.WeightVector{1}, testParams(), StaticValuation)
	assert.Equal(t, 0.0, rec.DownsideSD)
	assert.True(t, math.IsInf(rec.SortinoRatio, 0))
	assert.True(t, math.IsNaN(rec.VolatilitySkewness))
}

func TestScore_SkipsGapRows(t *testing.T) {
	with := Score(returnSeries(0.01, math.NaN(), -0.02, -0.01), model.WeightVector{1}, testParams(), StaticValuation)
	without := Score(returnSeries(0.01, -0.02, -0.01), model.WeightVector{1}, testParams(), StaticValuation)
	assert.Equal(t, without.AnnualReturn, with.AnnualReturn)
	assert.Equal(t, without.DownsideSD, with.DownsideSD)
	assert.Equal(t, without.TotalReturn, with.TotalReturn)
}

func TestScore_NoUsableRows(t *testing.T) {
	r := returnSeries(math.NaN(), math.NaN(), math.NaN())
	p := testParams()

	static := Score(r, model.WeightVector{1}, p, StaticValuation)
	assert.True(t, math.IsNaN(static.TotalReturn))
	assert.True(t, math.IsNaN(static.AnnualReturn))
	assert.True(t, math.IsNaN(static.SortinoRatio))
	assert.Equal(t, p.Investment, static.DollarAmount)

	compounded := Score(r, model.WeightVector{1}, p, CompoundedValuation)
	assert.True(t, math.IsNaN(compounded.TotalReturn))
	assert.True(t, math.IsNaN(compounded.DollarAmount), "no realized value without a single return")
}

func TestDrawWeights(t *testing.T) {
	for trial := 0; trial < 500; trial++ {
		for _, n := range []int{1, 2, 5, 12} {
			w := DrawWeights(trialRand(42, trial), n)
			require.Len(t, w, n)
			for _, v := range w {
				assert.GreaterOrEqual(t, v, 0.0)
			}
			assert.InDelta(t, 1.0, w.Sum(), 1e-12)
		}
	}
}
