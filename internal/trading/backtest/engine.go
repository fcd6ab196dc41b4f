package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/marketdata"
	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/portfolio"
	"github.com/Alias1177/Allocator/internal/storage"
)

// Artifact table names
const (
	TableTradingData = "trading_data"
	TableSimulations = "simulated_portfolio_results"
	TableCombined    = "combined_results"
)

// Pipeline stage names used for timing
const (
	StageFetch    = "fetch"
	StageSimulate = "simulate"
	StageBacktest = "backtest"
	StagePersist  = "persist"
)

// Observer receives the finished run, e.g. to publish charts, messages or metrics
type Observer interface {
	Name() string
	Observe(ctx context.Context, result *RunResult) error
}

// Options configures one engine run
type Options struct {
	Params        model.Params
	RunID         string    // generated when empty
	ReferenceDate time.Time // the comparison window ends here; zero means now
	Workers       int
	Seed          uint64
}

// RunResult is everything a run produced
type RunResult struct {
	RunID      string
	Params     model.Params
	Seed       uint64
	Boundary   time.Time
	Prices     *model.PriceSeries
	TrainRows  int
	CompRows   int
	Simulation *portfolio.SimulationResult
	Realized   model.PortfolioRecord
	Combined   model.CombinedResult
	Stages     map[string]time.Duration
}

// Engine runs the fetch, simulate, back-test and merge pipeline
type Engine struct {
	source    marketdata.PriceSource
	sink      storage.Sink
	opts      Options
	observers []Observer
	logger    zerolog.Logger
}

// NewEngine creates a new pipeline engine
func NewEngine(source marketdata.PriceSource, sink storage.Sink, opts Options) *Engine {
	return &Engine{
		source: source,
		sink:   sink,
		opts:   opts,
		logger: log.With().Str("component", "backtest_engine").Logger(),
	}
}

// AddObserver registers an observer notified after a successful run
func (e *Engine) AddObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Run executes the full analysis. Every stage error aborts the run.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	p := e.opts.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ref := e.opts.ReferenceDate
	if ref.IsZero() {
		ref = time.Now()
	}

	runID := e.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	result := &RunResult{
		RunID:    runID,
		Params:   p,
		Seed:     e.opts.Seed,
		Boundary: portfolio.BoundaryDate(ref),
		Stages:   make(map[string]time.Duration),
	}
	logger := e.logger.With().Str("run_id", result.RunID).Str("industry", p.Industry).Logger()

	// 1. Fetch prices
	start := time.Now()
	prices, err := e.source.FetchPrices(ctx, p.Tickers, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	if err := prices.Validate(); err != nil {
		return nil, fmt.Errorf("invalid price table: %w", err)
	}
	result.Prices = prices
	result.Stages[StageFetch] = time.Since(start)
	logger.Info().Int("rows", prices.Len()).Int("tickers", len(prices.Tickers)).Msg("Fetched price data")

	if err := e.sink.WriteTable(ctx, prices.Table(TableTradingData)); err != nil {
		return nil, fmt.Errorf("failed to persist trading data: %w", err)
	}

	// 2. Split into training and comparison windows
	train, comparison, err := portfolio.SplitPeriod(prices, result.Boundary)
	if err != nil {
		return nil, err
	}
	result.TrainRows, result.CompRows = train.Len(), comparison.Len()
	logger.Info().
		Str("boundary", result.Boundary.Format(model.DateLayout)).
		Int("train_rows", result.TrainRows).
		Int("comparison_rows", result.CompRows).
		Msg("Split price history")

	// 3. Simulate on the training window
	start = time.Now()
	trainReturns, err := portfolio.LogReturns(train, p.Tickers)
	if err != nil {
		return nil, fmt.Errorf("training returns: %w", err)
	}
	sim, err := portfolio.NewOptimizer(e.opts.Workers, e.opts.Seed).Optimize(ctx, trainReturns, p)
	if err != nil {
		return nil, err
	}
	result.Simulation = sim
	result.Stages[StageSimulate] = time.Since(start)

	if err := e.sink.WriteTable(ctx, sim.Table(TableSimulations)); err != nil {
		return nil, fmt.Errorf("failed to persist simulation results: %w", err)
	}

	// 4. Back-test the best weights on the comparison window
	start = time.Now()
	best := sim.Best()
	realized, err := Evaluate(comparison, p.Tickers, best.Weights, p)
	if err != nil {
		return nil, err
	}
	result.Realized = realized
	result.Stages[StageBacktest] = time.Since(start)
	logger.Info().
		Float64("sortino", realized.SortinoRatio).
		Float64("dollar_amount", realized.DollarAmount).
		Float64("total_return", realized.TotalReturn).
		Msg("Back-test complete")

	// 5. Merge and persist
	start = time.Now()
	result.Combined = Merge(best, realized, p.Tickers)
	if err := e.sink.WriteTable(ctx, result.Combined.Table(TableCombined)); err != nil {
		return nil, fmt.Errorf("failed to persist combined results: %w", err)
	}
	result.Stages[StagePersist] = time.Since(start)

	for _, o := range e.observers {
		if err := o.Observe(ctx, result); err != nil {
			logger.Warn().Err(err).Str("observer", o.Name()).Msg("Observer failed")
		}
	}

	return result, nil
}
