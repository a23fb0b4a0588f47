package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"SignalDesk/internal/model"
)

// ErrDataUnavailable wraps every reason a symbol's price history could not be obtained.
var ErrDataUnavailable = errors.New("data unavailable")

// LookbackDays is the calendar window requested from providers (one year).
const LookbackDays = 365

// MockFetcher returns controllable data for development and testing.
type MockFetcher struct {
	Price float64
	Count int
	End   time.Time
	Data  map[string][]model.PriceBar
	Fail  map[string]error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, symbol string, _ int) ([]model.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Fail[symbol]; ok {
		return nil, err
	}
	if bars, ok := m.Data[symbol]; ok {
		return bars, nil
	}
	count := m.Count
	if count == 0 {
		count = 252
	}
	price := m.Price
	if price == 0 {
		price = 100
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	return GenerateMockBars(price, count, end), nil
}

// GenerateMockBars builds count daily bars ending on end, drifting around basePrice.
func GenerateMockBars(basePrice float64, count int, end time.Time) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Date:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// normalizeDaily sorts bars by date, truncates timestamps to the day and keeps the
// latest bar of any day that appears twice (providers repeat the live session).
func normalizeDaily(bars []model.PriceBar) []model.PriceBar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		y, m, d := b.Date.Date()
		b.Date = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}

// Collector fetches and validates the price history of one symbol.
type Collector struct {
	Fetcher Fetcher
	Timeout time.Duration
}

// NewCollector creates a new Collector. timeout bounds each symbol's fetch; zero disables it.
func NewCollector(fetcher Fetcher, timeout time.Duration) *Collector {
	return &Collector{Fetcher: fetcher, Timeout: timeout}
}

// Collect returns a validated PriceSeries. Every failure wraps ErrDataUnavailable.
func (c *Collector) Collect(ctx context.Context, symbol string) (*model.PriceSeries, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	bars, err := c.Fetcher.FetchDailyBars(ctx, symbol, LookbackDays)
	if err != nil {
		return nil, fmt.Errorf("%w: %s via %s: %w", ErrDataUnavailable, symbol, c.Fetcher.Name(), err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: %s via %s: no bars returned", ErrDataUnavailable, symbol, c.Fetcher.Name())
	}

	series := &model.PriceSeries{Symbol: symbol, Bars: bars, FetchedAt: time.Now()}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}
	log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Str("source", c.Fetcher.Name()).Msg("price history fetched")
	return series, nil
}
