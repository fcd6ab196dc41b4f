package backtest

import (
	"fmt"

	"github.com/Alias1177/Allocator/internal/model"
	"github.com/Alias1177/Allocator/internal/portfolio"
)

// Evaluate scores fixed weights over the comparison window, valuing the investment
// at its compounded realized growth. No weight search is performed.
func Evaluate(comparison *model.PriceSeries, tickers []string, weights model.WeightVector, p model.Params) (model.PortfolioRecord, error) {
	if len(weights) != len(tickers) {
		return model.PortfolioRecord{}, fmt.Errorf("%w: %d weights for %d tickers",
			portfolio.ErrInvalidConfiguration, len(weights), len(tickers))
	}
	returns, err := portfolio.LogReturns(comparison, tickers)
	if err != nil {
		return model.PortfolioRecord{}, fmt.Errorf("comparison returns: %w", err)
	}
	return portfolio.Score(returns, weights, p, portfolio.CompoundedValuation), nil
}
