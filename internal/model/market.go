package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedSeries reports a PriceSeries that violates its ordering or value invariants.
var ErrMalformedSeries = errors.New("malformed price series")

// PriceBar represents one trading day.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds the daily bars of one symbol in ascending date order.
type PriceSeries struct {
	Symbol    string
	Bars      []PriceBar
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int { return len(s.Bars) }

// Last returns the most recent bar. ok is false for an empty series.
func (s *PriceSeries) Last() (bar PriceBar, ok bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes extracts the close prices.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Validate checks strict date ordering and bar sanity. The returned error wraps ErrMalformedSeries.
func (s *PriceSeries) Validate() error {
	for i, b := range s.Bars {
		if err := b.validate(); err != nil {
			return fmt.Errorf("%w: %s bar %d (%s): %v", ErrMalformedSeries, s.Symbol, i, b.Date.Format(time.DateOnly), err)
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Date
		if !sameDayOrAfter(prev, b.Date) {
			return fmt.Errorf("%w: %s bar %d (%s) is not after %s", ErrMalformedSeries, s.Symbol, i,
				b.Date.Format(time.DateOnly), prev.Format(time.DateOnly))
		}
		if sameDay(prev, b.Date) {
			return fmt.Errorf("%w: %s duplicate date %s", ErrMalformedSeries, s.Symbol, b.Date.Format(time.DateOnly))
		}
	}
	return nil
}

func (b PriceBar) validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("non-positive or non-finite price %v", v)
		}
	}
	if b.Low > b.Open || b.Low > b.Close || b.High < b.Open || b.High < b.Close {
		return fmt.Errorf("open/close outside low-high range [%v, %v]", b.Low, b.High)
	}
	return nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// sameDayOrAfter compares calendar dates, ignoring the time of day.
func sameDayOrAfter(prev, cur time.Time) bool {
	return sameDay(prev, cur) || dayStart(cur).After(dayStart(prev))
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
