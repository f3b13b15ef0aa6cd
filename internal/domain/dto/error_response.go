package dto

import "time"

// ErrorResponse is the JSON error envelope returned by every API
// endpoint. ErrorDetails carries the underlying error text when one
// exists; Message is always safe to show to a caller.
//
// swagger:model ErrorResponse
type ErrorResponse struct {
	Message      string    `json:"message" example:"invalid date range"`
	ErrorDetails string    `json:"error,omitempty" example:"start after end"`
	Timestamp    time.Time `json:"timestamp" example:"2025-06-02T13:45:00Z"`
}

// Error makes ErrorResponse usable as an error value in handler plumbing.
func (e ErrorResponse) Error() string {
	if e.ErrorDetails == "" {
		return e.Message
	}
	return e.Message + ": " + e.ErrorDetails
}

// NewErrorResponse builds an ErrorResponse with the current timestamp.
// A nil err leaves ErrorDetails empty.
func NewErrorResponse(message string, err error) ErrorResponse {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return ErrorResponse{
		Message:      message,
		ErrorDetails: details,
		Timestamp:    time.Now().UTC(),
	}
}
