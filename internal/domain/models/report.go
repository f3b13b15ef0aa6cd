package models

import "time"

// Issue records one recoverable problem encountered during a run. Issues
// never abort the run; they surface in the report so partial results are
// auditable.
type Issue struct {
	Ticker string    `json:"ticker,omitempty"`
	Date   time.Time `json:"date"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
}

// Issue kinds.
const (
	IssueFetchError       = "fetch_error"
	IssueInsufficientBars = "insufficient_bars"
	IssueStorageError     = "storage_error"
)

// Signal is one crossover event flattened out of the per-ticker results:
// a ticker whose indicator transitioned on the given date.
type Signal struct {
	Ticker      string      `json:"ticker"`
	IndicatorID string      `json:"indicator_id"`
	Date        time.Time   `json:"date"`
	State       SignalState `json:"state"`
	Value       float64     `json:"value,omitempty"`
}

// TickerSummary is the per-ticker rollup for a run: which indicators were
// evaluated and what each concluded on the ticker's most recent date.
type TickerSummary struct {
	Ticker     string                 `json:"ticker"`
	Bars       int                    `json:"bars"`
	Indicators map[string]SignalState `json:"indicators"`
}

// MarketStats is the cross-sectional summary for the run's final date.
type MarketStats struct {
	Date       time.Time `json:"date"`
	Universe   int       `json:"universe"`
	Scanned    int       `json:"scanned"`
	Advancers  int       `json:"advancers"`
	Decliners  int       `json:"decliners"`
	Unchanged  int       `json:"unchanged"`
	SignalsUp  int       `json:"signals_up"`
	SignalsDwn int       `json:"signals_down"`
}

// StorageUsage is a byte-count snapshot of everything the wider system
// keeps on disk. The options store belongs to a separate application and
// is only ever sized here, never opened.
type StorageUsage struct {
	ScanStoreBytes    int64 `json:"scan_store_bytes"`
	OptionsStoreBytes int64 `json:"options_store_bytes"`
	TaskLogBytes      int64 `json:"task_log_bytes"`
	TotalBytes        int64 `json:"total_bytes"`
}

// RunMetadata identifies one scan run.
type RunMetadata struct {
	RunID       string    `json:"run_id"`
	Mode        string    `json:"mode"`
	Provider    string    `json:"provider"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Workers     int       `json:"workers"`
	Incomplete  []string  `json:"incomplete_dates,omitempty"`
}

// ScanRun is the complete output of one scan or backfill run. It is
// assembled once, after all dates are processed, and is immutable from
// then on; renderers only read it.
//
// The JSON field names are the report's public contract and must stay
// stable across releases.
type ScanRun struct {
	RunMetadata     RunMetadata     `json:"run_metadata"`
	MarketStats     MarketStats     `json:"market_stats"`
	TickerSummaries []TickerSummary `json:"ticker_summaries"`
	Signals         []Signal        `json:"signals"`
	Aggregates      []AggregateRow  `json:"aggregates"`
	Issues          []Issue         `json:"issues"`
	StorageUsage    StorageUsage    `json:"storage_usage"`
}
