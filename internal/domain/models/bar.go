package models

import (
	"fmt"
	"time"
)

// Bar represents one OHLCV candle for a ticker.
//
// Date is the bar's timestamp: midnight UTC for daily bars, the interval
// open time for intraday bars. Bars are immutable once fetched from a
// provider; downstream code only ever reads them.
type Bar struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
}

// BarSeries is the price history for a single ticker, ordered by
// ascending Date. Indicator code treats the series as read-only.
type BarSeries struct {
	Ticker string `json:"ticker"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars in the series.
func (s BarSeries) Len() int {
	return len(s.Bars)
}

// At returns the bar at index i. Callers are expected to bounds-check
// with Len first.
func (s BarSeries) At(i int) Bar {
	return s.Bars[i]
}

// Last returns the most recent bar and true, or a zero bar and false
// for an empty series.
func (s BarSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Closes returns the close prices in series order.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Truncate returns a copy of the series containing only bars dated at or
// before cutoff. The underlying bars are shared, not copied.
func (s BarSeries) Truncate(cutoff time.Time) BarSeries {
	n := len(s.Bars)
	for n > 0 && s.Bars[n-1].Date.After(cutoff) {
		n--
	}
	return BarSeries{Ticker: s.Ticker, Bars: s.Bars[:n]}
}

// Validate checks the series invariant: bars strictly ascending by Date.
// Providers call this once after a fetch so the rest of the pipeline can
// index freely.
func (s BarSeries) Validate() error {
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("bar series %s: bars out of order at index %d (%s >= %s)",
				s.Ticker, i, s.Bars[i-1].Date.Format(time.RFC3339), s.Bars[i].Date.Format(time.RFC3339))
		}
	}
	return nil
}
