package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/Alias1177/Allocator/internal/api/yahoo"
	"github.com/Alias1177/Allocator/internal/cache"
	"github.com/Alias1177/Allocator/internal/config"
	"github.com/Alias1177/Allocator/internal/marketdata"
	"github.com/Alias1177/Allocator/internal/metrics"
	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/notify"
	"github.com/Alias1177/Allocator/internal/report"
	"github.com/Alias1177/Allocator/internal/storage"
	"github.com/Alias1177/Allocator/internal/trading/backtest"
)

var runCmd = newRunCmd()

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation and back-test for one industry",
		Long: `Fetches daily adjusted closes, simulates random allocations on the history
before the trailing 365 days, back-tests the maximum Sortino allocation on those
365 days and writes trading_data, simulated_portfolio_results and
combined_results. Flags override the matching environment variables.`,
		RunE: runAnalysis,
	}

	f := cmd.Flags()
	f.String("industry", "", "industry basket from the industries file (INDUSTRY)")
	f.String("tickers", "", "comma separated tickers, overrides the basket (TICKERS)")
	f.String("start", "", "first day of history, YYYY-MM-DD (START_DATE)")
	f.String("end", "", "last day of history, YYYY-MM-DD (END_DATE)")
	f.String("reference-date", "", "end of the comparison window, YYYY-MM-DD (REFERENCE_DATE)")
	f.Int("simulations", 0, "number of random portfolios (SIMULATIONS)")
	f.Uint64("seed", 0, "random seed for reproducible runs (SEED)")
	f.Int("workers", 0, "parallel simulation workers (WORKERS)")
	f.String("sink", "", "csv, postgres or sqlite (SINK)")
	f.String("prices-file", "", "read prices from a CSV instead of Yahoo Finance (PRICES_FILE)")
	f.String("output-dir", "", "directory for CSV and chart output (OUTPUT_DIR)")
	f.Bool("no-chart", false, "skip the weights chart")
	return cmd
}

// applyFlags overrides configuration with explicitly set flags
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	var err error
	if f.Changed("industry") {
		cfg.Industry, _ = f.GetString("industry")
	}
	if f.Changed("tickers") {
		s, _ := f.GetString("tickers")
		cfg.Tickers = config.ParseTickers(s)
	}
	for flag, dst := range map[string]*time.Time{
		"start":          &cfg.StartDate,
		"end":            &cfg.EndDate,
		"reference-date": &cfg.ReferenceDate,
	} {
		if !f.Changed(flag) {
			continue
		}
		s, _ := f.GetString(flag)
		if *dst, err = config.ParseDate(s); err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
	}
	if f.Changed("simulations") {
		cfg.Simulations, _ = f.GetInt("simulations")
	}
	if f.Changed("seed") {
		cfg.Seed, _ = f.GetUint64("seed")
		cfg.SeedSet = true
	}
	if f.Changed("workers") {
		cfg.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("sink") {
		cfg.Sink, _ = f.GetString("sink")
	}
	if f.Changed("prices-file") {
		cfg.PricesFile, _ = f.GetString("prices-file")
	}
	if f.Changed("output-dir") {
		cfg.OutputDir, _ = f.GetString("output-dir")
	}
	if noChart, _ := f.GetBool("no-chart"); noChart {
		cfg.Chart = false
	}
	return nil
}

func runAnalysis(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// 1. Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	tickers := cfg.Tickers
	if len(tickers) == 0 {
		ind, err := config.LoadIndustries(cfg.IndustriesFile)
		if err != nil {
			return err
		}
		if tickers, err = ind.Tickers(cfg.Industry); err != nil {
			return err
		}
	}
	params := cfg.Params(tickers)
	if !cfg.SeedSet {
		cfg.Seed = uint64(time.Now().UnixNano())
	}

	// 2. Print configuration
	printConfig(cfg, params)

	// 3. Wire data source, sinks and observers
	source, cleanup, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	runID := uuid.NewString()
	prefix := storage.FilePrefix(params.Industry, params.Start, params.End)
	sink, closeSink, err := buildSink(ctx, cfg, storage.RunInfo{ID: runID, Industry: params.Industry, Label: prefix})
	if err != nil {
		return err
	}
	defer closeSink()

	engine := backtest.NewEngine(source, sink, backtest.Options{
		Params:        params,
		RunID:         runID,
		ReferenceDate: cfg.ReferenceDate,
		Workers:       cfg.Workers,
		Seed:          cfg.Seed,
	})

	chart := report.WeightsChart{Dir: cfg.OutputDir, Prefix: prefix}
	if cfg.Chart {
		engine.AddObserver(chart)
	}
	if cfg.TelegramBotToken != "" {
		chartPath := ""
		if cfg.Chart {
			chartPath = chart.Path()
		}
		tg, err := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, chartPath)
		if err != nil {
			log.Warn().Err(err).Msg("Telegram notifications disabled")
		} else {
			engine.AddObserver(tg)
		}
	}
	var recorder *metrics.Recorder
	if cfg.PushgatewayURL != "" {
		recorder = metrics.NewRecorder(cfg.PushgatewayURL)
		engine.AddObserver(recorder)
	}

	// 4. Run
	result, err := engine.Run(ctx)
	if err != nil {
		if recorder != nil {
			if pushErr := recorder.RecordFailure(context.WithoutCancel(ctx), params.Industry); pushErr != nil {
				log.Warn().Err(pushErr).Msg("Failed to push failure metrics")
			}
		}
		return err
	}

	// Display results
	fmt.Fprintln(cmd.OutOrStdout(), backtest.FormatResults(result))
	return nil
}

// buildSource returns the configured price source and a cleanup func
func buildSource(ctx context.Context, cfg *config.Config) (marketdata.PriceSource, func(), error) {
	if cfg.PricesFile != "" {
		log.Info().Str("path", cfg.PricesFile).Msg("Reading prices from file")
		return marketdata.FileSource{Path: cfg.PricesFile}, func() {}, nil
	}

	var fetcher marketdata.SeriesFetcher = yahoo.NewClient(yahoo.ClientOptions{
		BaseURL:        cfg.YahooBaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		RequestsPerSec: cfg.RequestsPerSec,
	})

	cleanup := func() {}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("Price cache disabled")
		} else {
			fetcher = cache.NewPriceCache(client, fetcher, cfg.CacheTTL)
			cleanup = func() { client.Close() }
		}
	}
	return marketdata.NewCollector(fetcher), cleanup, nil
}

// buildSink always writes CSV files and adds a database sink when configured
func buildSink(ctx context.Context, cfg *config.Config, run storage.RunInfo) (storage.Sink, func(), error) {
	csvSink := storage.CSVSink{Dir: cfg.OutputDir, Prefix: run.Label}

	switch cfg.Sink {
	case config.SinkPostgres:
		db, err := storage.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return storage.MultiSink{csvSink, storage.NewSQLSink(db, run, cfg.SQLTimeout)}, func() { db.Close() }, nil
	case config.SinkSQLite:
		db, err := storage.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return storage.MultiSink{csvSink, storage.NewSQLSink(db, run, cfg.SQLTimeout)}, func() { db.Close() }, nil
	default:
		return csvSink, func() {}, nil
	}
}

// printConfig outputs the current configuration
func printConfig(cfg *config.Config, p model.Params) {
	log.Info().
		Str("Industry", p.Industry).
		Strs("Tickers", p.Tickers).
		Str("Start", p.Start.Format(model.DateLayout)).
		Str("End", p.End.Format(model.DateLayout)).
		Int("TradingDays", p.TradingDays).
		Float64("RiskFreeRate", p.RiskFreeRate).
		Int("Simulations", p.Simulations).
		Float64("Investment", p.Investment).
		Uint64("Seed", cfg.Seed).
		Int("Workers", cfg.Workers).
		Str("Sink", cfg.Sink).
		Str("OutputDir", cfg.OutputDir).
		Bool("Chart", cfg.Chart).
		Msg("Configuration loaded")
}
