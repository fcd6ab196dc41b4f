package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vicanso/go-charts/v2"

	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/trading/backtest"
)

// RenderWeights draws the allocation as a PNG bar chart, one bar per ticker in percent
func RenderWeights(title string, tickers []string, weights model.WeightVector) ([]byte, error) {
	values, err := weightPercents(tickers, weights)
	if err != nil {
		return nil, err
	}

	painter, err := charts.BarRender([][]float64{values},
		charts.TitleTextOptionFunc(title, "weight %"),
		charts.XAxisDataOptionFunc(tickers),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(max(600, 90*len(tickers))),
		charts.HeightOptionFunc(400),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}

func weightPercents(tickers []string, weights model.WeightVector) ([]float64, error) {
	if len(tickers) == 0 {
		return nil, errors.New("no tickers to chart")
	}
	if len(tickers) != len(weights) {
		return nil, fmt.Errorf("%d weights for %d tickers", len(weights), len(tickers))
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = math.Round(w*10000) / 100
	}
	return out, nil
}

// WeightsChart writes <Dir>/<Prefix>_weights.png after every run
type WeightsChart struct {
	Dir    string
	Prefix string
}

func (c WeightsChart) Name() string { return "weights_chart" }

// Path returns the chart file
func (c WeightsChart) Path() string {
	return filepath.Join(c.Dir, c.Prefix+"_weights.png")
}

// Observe renders the selected portfolio's weights
func (c WeightsChart) Observe(_ context.Context, result *backtest.RunResult) error {
	best := result.Simulation.Best()
	title := fmt.Sprintf("%s - max Sortino %.3f", strings.ToUpper(result.Params.Industry), best.SortinoRatio)

	png, err := RenderWeights(title, result.Params.Tickers, best.Weights)
	if err != nil {
		return fmt.Errorf("rendering weights chart: %w", err)
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(c.Path(), png, 0o644); err != nil {
		return err
	}
	log.Info().Str("path", c.Path()).Msg("Weights chart written")
	return nil
}
