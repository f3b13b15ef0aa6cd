package models

import "time"

// SignalState classifies the outcome of evaluating one indicator on one
// ticker for one date.
type SignalState string

const (
	// SignalNone means the indicator produced a value but no side or
	// transition applies (for example a flat reading on the level line).
	SignalNone SignalState = "none"

	// SignalInsufficientData means the series was too short for the
	// indicator's warmup and no value was produced.
	SignalInsufficientData SignalState = "insufficient_data"

	// SignalCrossedUp fires on the evaluation date when the indicator
	// transitioned from at-or-below to strictly above its reference.
	SignalCrossedUp SignalState = "crossed_up"

	// SignalCrossedDown is the mirror of SignalCrossedUp.
	SignalCrossedDown SignalState = "crossed_down"

	// SignalAbove / SignalBelow report the resting side of the reference
	// when no transition happened on the evaluation date.
	SignalAbove SignalState = "above"
	SignalBelow SignalState = "below"
)

// Crossed reports whether the state is one of the two transition states.
func (s SignalState) Crossed() bool {
	return s == SignalCrossedUp || s == SignalCrossedDown
}

// IndicatorResult is the per-(ticker, indicator, date) evaluation output.
//
// Value carries the indicator's final reading for the date and HasValue
// marks it usable; both are left zero when the series was too short.
type IndicatorResult struct {
	Ticker      string      `json:"ticker"`
	Date        time.Time   `json:"date"`
	IndicatorID string      `json:"indicator_id"`
	Value       float64     `json:"value,omitempty"`
	HasValue    bool        `json:"-"`
	SignalState SignalState `json:"signal_state"`
}

// CrossState is the carry-over a crossover detector needs to classify the
// next observation: the previous reading and, for moving-average based
// detectors, the previous MA values. Detectors take it by value and return
// the successor state; nothing is mutated in place and no detector keeps
// hidden state between calls.
type CrossState struct {
	// Seen is false for the very first observation, when no previous
	// reading exists and no transition can fire.
	Seen bool

	// Prev is the previous indicator reading.
	Prev float64

	// PrevShortMA and PrevLongMA are the previous smoothed readings for
	// detectors that compare against moving averages. Unused detectors
	// leave them zero.
	PrevShortMA float64
	PrevLongMA  float64
}
