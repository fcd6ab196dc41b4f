package portfolio

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/Allocator/internal/model"
)

// Optimizer runs the random-weight Monte Carlo search
type Optimizer struct {
	workers int
	seed    uint64
	logger  zerolog.Logger
}

// NewOptimizer creates an optimizer. workers < 1 uses GOMAXPROCS.
func NewOptimizer(workers int, seed uint64) *Optimizer {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Optimizer{
		workers: workers,
		seed:    seed,
		logger:  log.With().Str("component", "optimizer").Logger(),
	}
}

// SimulationResult holds every scored trial and the index of the maximum Sortino trial
type SimulationResult struct {
	Tickers   []string
	Records   []model.PortfolioRecord
	BestIndex int
}

// Best returns the maximum Sortino record
func (s *SimulationResult) Best() model.PortfolioRecord {
	return s.Records[s.BestIndex]
}

// Table converts all trials into the simulation results artifact
func (s *SimulationResult) Table(name string) *model.Table {
	cols := []model.Column{{Name: "Trial", Type: model.IntColumn}}
	for _, m := range model.MetricNames {
		cols = append(cols, model.Column{Name: m, Type: model.FloatColumn})
	}
	for _, t := range s.Tickers {
		cols = append(cols, model.Column{Name: t, Type: model.FloatColumn})
	}

	table := model.NewTable(name, cols...)
	table.Rows = make([][]any, 0, len(s.Records))
	for i, r := range s.Records {
		row := make([]any, 0, len(cols))
		row = append(row, i)
		for _, m := range r.Metrics() {
			row = append(row, m.Value)
		}
		for _, w := range r.Weights {
			row = append(row, w)
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// Optimize scores p.Simulations random weight vectors over returns and selects
// the one with the highest Sortino ratio. Ties keep the earliest trial.
func (o *Optimizer) Optimize(ctx context.Context, returns *model.ReturnSeries, p model.Params) (*SimulationResult, error) {
	numAssets := len(returns.Tickers)
	if p.Simulations < 1 {
		return nil, fmt.Errorf("%w: simulations must be positive, got %d", ErrInvalidConfiguration, p.Simulations)
	}
	if numAssets < 1 {
		return nil, fmt.Errorf("%w: no assets to allocate", ErrInvalidConfiguration)
	}

	o.logger.Info().
		Int("simulations", p.Simulations).
		Int("assets", numAssets).
		Int("workers", o.workers).
		Uint64("seed", o.seed).
		Msg("Starting Monte Carlo simulation")

	records := make([]model.PortfolioRecord, p.Simulations)

	chunk := p.Simulations / (o.workers * 8)
	if chunk < 1 {
		chunk = 1
	}
	step := p.Simulations / 10
	if step < 1 {
		step = 1
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for lo := 0; lo < p.Simulations; lo += chunk {
		hi := min(lo+chunk, p.Simulations)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				w := DrawWeights(trialRand(o.seed, i), numAssets)
				records[i] = Score(returns, w, p, StaticValuation)
			}
			n := done.Add(int64(hi - lo))
			if int(n)/step != int(n-int64(hi-lo))/step {
				o.logger.Debug().
					Int64("completed", n).
					Int("total", p.Simulations).
					Msgf("Simulation progress: %.0f%%", float64(n)/float64(p.Simulations)*100)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation aborted: %w", err)
	}

	best := argMaxSortino(records)
	if math.IsNaN(records[best].SortinoRatio) {
		o.logger.Warn().Msg("Every trial produced an undefined Sortino ratio, keeping the first trial")
	}

	result := &SimulationResult{
		Tickers:   append([]string(nil), returns.Tickers...),
		Records:   records,
		BestIndex: best,
	}

	o.logger.Info().
		Int("best_trial", best).
		Float64("sortino", records[best].SortinoRatio).
		Float64("annual_return", records[best].AnnualReturn).
		Msg("Simulation complete")

	return result, nil
}

// argMaxSortino returns the first index of the largest Sortino ratio.
// NaN never beats a number; if every value is NaN the first index is returned.
func argMaxSortino(records []model.PortfolioRecord) int {
	best := -1
	for i, r := range records {
		if math.IsNaN(r.SortinoRatio) {
			continue
		}
		if best < 0 || r.SortinoRatio > records[best].SortinoRatio {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return best
}
