package dto

import "time"

// AggregatePoint is one (date, value) observation of a breadth metric as
// returned by the aggregates endpoint.
type AggregatePoint struct {
	Date  time.Time `json:"date" example:"2025-06-02T00:00:00Z"`
	Value float64   `json:"value" example:"12"`
}

// AggregateRangeResponse represents the JSON structure returned by the
// GET /api/v1/aggregates endpoint: one metric's history over a date
// range, ascending by date.
//
// Fields match the API contract and may differ from internal domain
// models so the surface can evolve independently of storage.
type AggregateRangeResponse struct {
	Metric string           `json:"metric" example:"advance_decline"`
	Start  time.Time        `json:"start" example:"2025-05-01T00:00:00Z"`
	End    time.Time        `json:"end" example:"2025-06-02T00:00:00Z"`
	Points []AggregatePoint `json:"points"`
}

// StorageUsageResponse represents the JSON structure returned by the
// GET /api/v1/storage endpoint.
type StorageUsageResponse struct {
	ScanStoreBytes    int64 `json:"scan_store_bytes" example:"1048576"`
	OptionsStoreBytes int64 `json:"options_store_bytes" example:"524288"`
	TaskLogBytes      int64 `json:"task_log_bytes" example:"8192"`
	TotalBytes        int64 `json:"total_bytes" example:"1581056"`
}
