// Package breadth folds per-ticker scan outcomes into cross-sectional
// market metrics, one row per metric per trading date.
package breadth

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
)

// Metric names persisted to the aggregate store.
const (
	MetricAdvancers      = "advancers"
	MetricDecliners      = "decliners"
	MetricUnchanged      = "unchanged"
	MetricAdvanceDecline = "advance_decline"
)

// NetAdvancesMetric returns the metric name for an N-day net-advance sum.
func NetAdvancesMetric(n int) string {
	return fmt.Sprintf("net_advances_%dd", n)
}

// TickerDay is one ticker's usable day move: the date's close and the
// previous bar's close. Tickers without both closes never reach the
// engine; they are excluded from the denominator upstream.
type TickerDay struct {
	Ticker    string
	Close     float64
	PrevClose float64
}

// HistorySource supplies previously persisted metric rows so multi-day
// sums can span runs without recomputing earlier dates.
type HistorySource interface {
	LastBefore(ctx context.Context, metric string, before time.Time, n int) ([]models.AggregateRow, error)
}

// Counts is the cross-sectional tally for one date.
type Counts struct {
	Scanned   int
	Advancers int
	Decliners int
	Unchanged int
}

// Engine derives the configured aggregate rows for one date at a time.
// Engines are cheap and stateless; build one per run.
type Engine struct {
	lookbacks []int
	history   HistorySource
}

// NewEngine builds an engine with the configured net-advance lookbacks.
func NewEngine(netAdvanceLookbacks []int, history HistorySource) *Engine {
	lbs := append([]int(nil), netAdvanceLookbacks...)
	sort.Ints(lbs)
	return &Engine{lookbacks: lbs, history: history}
}

// Compute tallies the day's moves and derives every configured metric.
// The same inputs always produce the same rows, so re-running a date is
// safe. Store reads failing surface as a *scanerr.StorageError.
func (e *Engine) Compute(ctx context.Context, date time.Time, days []TickerDay) ([]models.AggregateRow, Counts, error) {
	var c Counts
	c.Scanned = len(days)
	for _, d := range days {
		switch {
		case d.Close > d.PrevClose:
			c.Advancers++
		case d.Close < d.PrevClose:
			c.Decliners++
		default:
			c.Unchanged++
		}
	}
	ad := float64(c.Advancers - c.Decliners)

	rows := []models.AggregateRow{
		{Date: date, MetricName: MetricAdvancers, Value: float64(c.Advancers)},
		{Date: date, MetricName: MetricDecliners, Value: float64(c.Decliners)},
		{Date: date, MetricName: MetricUnchanged, Value: float64(c.Unchanged)},
		{Date: date, MetricName: MetricAdvanceDecline, Value: ad},
	}

	for _, n := range e.lookbacks {
		sum := ad
		if n > 1 {
			prior, err := e.history.LastBefore(ctx, MetricAdvanceDecline, date, n-1)
			if err != nil {
				return nil, Counts{}, &scanerr.StorageError{Op: "read history", Date: date, Err: err}
			}
			// Fewer prior rows than the window wants just shortens the
			// sum; early dates stay comparable as history fills in.
			for _, row := range prior {
				sum += row.Value
			}
		}
		rows = append(rows, models.AggregateRow{Date: date, MetricName: NetAdvancesMetric(n), Value: sum})
	}
	return rows, c, nil
}

// MetricNames returns every metric Compute will emit, in emission order.
// The orchestrator uses it to decide whether a date is already complete.
func (e *Engine) MetricNames() []string {
	names := []string{MetricAdvancers, MetricDecliners, MetricUnchanged, MetricAdvanceDecline}
	for _, n := range e.lookbacks {
		names = append(names, NetAdvancesMetric(n))
	}
	return names
}
