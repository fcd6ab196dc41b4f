package backtest

import (
	"math"

	"github.com/Alias1177/Allocator/internal/model"
)

// Merge left-joins the realized metrics onto the simulated record by metric name.
// Rows follow the simulated order: the six scalar metrics, then one weight row per ticker.
// Weight rows are never joined, so a ticker cannot pick up a realized metric.
func Merge(simulated, realized model.PortfolioRecord, tickers []string) model.CombinedResult {
	realizedByName := make(map[string]float64, len(model.MetricNames))
	for _, m := range realized.Metrics() {
		realizedByName[m.Name] = m.Value
	}

	out := model.CombinedResult{Rows: make([]model.CombinedRow, 0, len(model.MetricNames)+len(tickers))}
	for _, s := range simulated.Metrics() {
		row := model.CombinedRow{
			Metric:    s.Name,
			Simulated: s.Value,
			Realized:  math.NaN(),
			PctDiff:   math.NaN(),
		}
		if v, ok := realizedByName[s.Name]; ok {
			row.Realized = v
			row.PctDiff = v/s.Value - 1
			row.HasRealized = true
		}
		out.Rows = append(out.Rows, row)
	}

	for i, t := range tickers {
		w := math.NaN()
		if i < len(simulated.Weights) {
			w = simulated.Weights[i]
		}
		out.Rows = append(out.Rows, model.CombinedRow{
			Metric:    t,
			Simulated: w,
			Realized:  math.NaN(),
			PctDiff:   math.NaN(),
		})
	}
	return out
}
