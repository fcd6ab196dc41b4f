package portfolio

import (
	"errors"
	"fmt"

	"github.com/Alias1177/Allocator/internal/model"
)

var (
	// ErrInsufficientData means a period is too short to compute a single return
	ErrInsufficientData = errors.New("insufficient data")
	// ErrMissingTicker means a requested ticker is absent from the price table
	ErrMissingTicker = errors.New("missing ticker")
	// ErrInvalidConfiguration covers non-positive simulation counts and empty ticker lists
	ErrInvalidConfiguration = model.ErrInvalidConfiguration
)

// MissingTickerError names the ticker that was not found
type MissingTickerError struct {
	Ticker string
}

func (e *MissingTickerError) Error() string {
	return fmt.Sprintf("ticker %s not present in price data", e.Ticker)
}

// Unwrap lets errors.Is match ErrMissingTicker
func (e *MissingTickerError) Unwrap() error {
	return ErrMissingTicker
}
