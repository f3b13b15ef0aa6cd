package models

import "time"

// AggregateRow is one persisted market-breadth value: a single metric for
// a single trading date.
//
// Fields:
//   - Date: the trading date the metric describes (midnight UTC).
//   - MetricName: stable metric identifier (e.g. "advance_decline",
//     "net_advances_20d").
//   - Value: the metric value.
//
// (Date, MetricName) is the unique key in the aggregate store; writing
// the same pair twice replaces the value instead of duplicating the row.
//
// swagger:model AggregateRow
type AggregateRow struct {
	Date       time.Time `json:"date" example:"2025-06-02T00:00:00Z"`
	MetricName string    `json:"metric_name" example:"advance_decline"`
	Value      float64   `json:"value" example:"12"`
}
