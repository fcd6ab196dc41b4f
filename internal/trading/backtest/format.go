package backtest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Alias1177/Allocator/internal/model"
)

// FormatResults creates a human-readable summary of a run
func FormatResults(result *RunResult) string {
	if result == nil {
		return "No analysis results available"
	}

	p := result.Params
	var b strings.Builder

	b.WriteString("\n===== SORTINO PORTFOLIO ANALYSIS =====\n")
	fmt.Fprintf(&b, "Industry: %s\n", p.Industry)
	fmt.Fprintf(&b, "Tickers: %s\n", strings.Join(p.Tickers, ", "))
	fmt.Fprintf(&b, "Training window: %d rows before %s\n", result.TrainRows, result.Boundary.Format(model.DateLayout))
	fmt.Fprintf(&b, "Comparison window: %d rows\n", result.CompRows)
	fmt.Fprintf(&b, "Simulations: %d (best trial #%d, seed %d)\n",
		p.Simulations, result.Simulation.BestIndex, result.Seed)
	fmt.Fprintf(&b, "Realized total return: %s\n", formatPct(result.Realized.TotalReturn))

	b.WriteString("\n")
	fmt.Fprintf(&b, "%-22s %26s %16s %12s\n",
		model.ColumnMetric, model.ColumnSimulated, model.ColumnRealized, model.ColumnPctDiff)
	for _, row := range result.Combined.Rows {
		realized, diff := "", ""
		if row.HasRealized {
			realized = formatNumber(row.Realized)
			diff = formatPct(row.PctDiff)
		}
		fmt.Fprintf(&b, "%-22s %26s %16s %12s\n", row.Metric, formatNumber(row.Simulated), realized, diff)
	}

	if len(result.Stages) > 0 {
		b.WriteString("\nStage timings:\n")
		stages := make([]string, 0, len(result.Stages))
		for s := range result.Stages {
			stages = append(stages, s)
		}
		sort.Strings(stages)
		for _, s := range stages {
			fmt.Fprintf(&b, "- %s: %s\n", s, result.Stages[s].Round(time.Millisecond))
		}
	}

	return b.String()
}

func formatNumber(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "+Inf"
		}
		return "-Inf"
	}
	return fmt.Sprintf("%.6f", v)
}

func formatPct(v float64) string {
	if !model.IsFinite(v) {
		return formatNumber(v)
	}
	sign := ""
	if v > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, v*100)
}
