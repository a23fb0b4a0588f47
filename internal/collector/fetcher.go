package collector

import (
	"context"

	"SignalDesk/internal/model"
)

// Fetcher defines the interface for fetching daily market data.
type Fetcher interface {
	// FetchDailyBars returns daily bars covering at least the last days calendar days, oldest first.
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.PriceBar, error)
	Name() string
}
