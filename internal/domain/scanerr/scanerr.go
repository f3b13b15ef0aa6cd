// Package scanerr defines the error taxonomy of the scan engine.
//
// The categories matter more than the messages: the orchestrator decides
// whether to abort, skip a ticker, or flag a date by matching these types
// with errors.As. Only ConfigError ever reaches the CLI as a non-zero
// exit; everything else degrades into report issues or signal states.
package scanerr

import (
	"errors"
	"fmt"
	"time"
)

// ConfigError reports an invalid universe or indicator configuration.
// It is fatal: detected before any fetch, it aborts the run.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config: %s", e.Reason)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Configf builds a ConfigError for field with a formatted reason.
func Configf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FetchError reports a failed bar retrieval for one ticker. The ticker is
// excluded from the date's aggregates; the run continues.
type FetchError struct {
	Ticker string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Ticker, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// InsufficientDataError reports that a series is too short for an
// indicator's warmup. It never surfaces as a run issue; the engine turns
// it into the insufficient_data signal state.
type InsufficientDataError struct {
	Ticker      string
	IndicatorID string
	Need        int
	Have        int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: %s needs %d bars, have %d", e.Ticker, e.IndicatorID, e.Need, e.Have)
}

// StorageError reports a failed aggregate-store read or write. It is
// fatal for the affected date only; a backfill continues with later
// dates and flags the date incomplete.
type StorageError struct {
	Op   string
	Date time.Time
	Err  error
}

func (e *StorageError) Error() string {
	if e.Date.IsZero() {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Date.Format("2006-01-02"), e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsConfig reports whether err is (or wraps) a ConfigError.
func IsConfig(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsInsufficientData reports whether err is (or wraps) an
// InsufficientDataError.
func IsInsufficientData(err error) bool {
	var ie *InsufficientDataError
	return errors.As(err, &ie)
}
