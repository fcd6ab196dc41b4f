package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/Allocator/internal/trading/backtest"
)

// Job is the Pushgateway job name
const Job = "allocator"

// Recorder collects run metrics in its own registry and optionally pushes them
type Recorder struct {
	Registry *prometheus.Registry

	runs          *prometheus.CounterVec
	trials        *prometheus.CounterVec
	sortino       *prometheus.GaugeVec
	totalReturn   *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec

	pushURL string
}

// NewRecorder creates a recorder. An empty pushURL disables pushing.
func NewRecorder(pushURL string) *Recorder {
	r := &Recorder{
		Registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocator_runs_total",
				Help: "Completed analysis runs by outcome",
			},
			[]string{"industry", "outcome"},
		),
		trials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "allocator_trials_total",
				Help: "Scored Monte Carlo trials",
			},
			[]string{"industry"},
		),
		sortino: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "allocator_sortino_ratio",
				Help: "Sortino ratio of the selected portfolio (simulated or realized)",
			},
			[]string{"industry", "window"},
		),
		totalReturn: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "allocator_realized_total_return",
				Help: "Realized total return of the selected portfolio over the comparison window",
			},
			[]string{"industry"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "allocator_stage_duration_seconds",
				Help:    "Pipeline stage wall time",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
			[]string{"stage"},
		),
		pushURL: pushURL,
	}
	r.Registry.MustRegister(r.runs, r.trials, r.sortino, r.totalReturn, r.stageDuration)
	return r
}

func (r *Recorder) Name() string { return "metrics" }

// Observe records a successful run and pushes when configured
func (r *Recorder) Observe(ctx context.Context, result *backtest.RunResult) error {
	industry := result.Params.Industry
	r.runs.WithLabelValues(industry, "success").Inc()
	r.trials.WithLabelValues(industry).Add(float64(len(result.Simulation.Records)))
	r.sortino.WithLabelValues(industry, "simulated").Set(result.Simulation.Best().SortinoRatio)
	r.sortino.WithLabelValues(industry, "realized").Set(result.Realized.SortinoRatio)
	r.totalReturn.WithLabelValues(industry).Set(result.Realized.TotalReturn)
	for stage, d := range result.Stages {
		r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
	return r.Push(ctx)
}

// RecordFailure counts a run that ended with an error
func (r *Recorder) RecordFailure(ctx context.Context, industry string) error {
	r.runs.WithLabelValues(industry, "failure").Inc()
	return r.Push(ctx)
}

// Push sends the registry to the Pushgateway
func (r *Recorder) Push(ctx context.Context) error {
	if r.pushURL == "" {
		return nil
	}
	if err := push.New(r.pushURL, Job).Gatherer(r.Registry).PushContext(ctx); err != nil {
		return fmt.Errorf("pushing metrics: %w", err)
	}
	log.Debug().Str("url", r.pushURL).Msg("Metrics pushed")
	return nil
}
