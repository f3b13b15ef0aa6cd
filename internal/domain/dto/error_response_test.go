package dto

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorResponse_Error(t *testing.T) {
	e := ErrorResponse{Message: "invalid date range"}
	if e.Error() != "invalid date range" {
		t.Fatalf("want 'invalid date range' got %q", e.Error())
	}
	e2 := ErrorResponse{Message: "invalid date range", ErrorDetails: "start after end"}
	if e2.Error() != "invalid date range: start after end" {
		t.Fatalf("want 'invalid date range: start after end' got %q", e2.Error())
	}
}

func TestNewErrorResponse(t *testing.T) {
	// nil error leaves the details empty
	e := NewErrorResponse("scan incomplete", nil)
	if e.Message != "scan incomplete" || e.ErrorDetails != "" {
		t.Fatalf("unexpected %+v", e)
	}
	if e.Timestamp.IsZero() || time.Since(e.Timestamp) > time.Second {
		t.Fatalf("timestamp not set")
	}

	// with a wrapped error, details keep the full chain text
	err := fmt.Errorf("query range: %w", errors.New("connection reset"))
	e2 := NewErrorResponse("storage unavailable", err)
	if e2.ErrorDetails != "query range: connection reset" || e2.Message != "storage unavailable" {
		t.Fatalf("unexpected %+v", e2)
	}
}
