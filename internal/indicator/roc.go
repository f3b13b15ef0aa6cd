package indicator

import (
	"fmt"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
	"github.com/tmarsden/scanpulse/internal/scanconfig"
)

// KindROCCross is the scan-file id of the ROC zero-crossover indicator.
const KindROCCross = "roc_cross"

// ROCCross computes the rate of change over a fixed lookback,
//
//	roc[t] = close[t]/close[t-lookback] - 1,
//
// and signals when the line crosses the zero axis: crossed_up on a move
// from at-or-below zero to strictly above, crossed_down on the mirror.
type ROCCross struct {
	Lookback int
}

// NewROCCross builds the indicator from scan-file parameters.
func NewROCCross(params map[string]any) (Definition, error) {
	lb, ok := scanconfig.IntParam(params, "lookback")
	if !ok {
		return nil, scanerr.Configf("roc_cross.lookback", "required integer parameter")
	}
	if lb <= 0 {
		return nil, scanerr.Configf("roc_cross.lookback", "must be > 0, got %d", lb)
	}
	return &ROCCross{Lookback: lb}, nil
}

func (r *ROCCross) ID() string { return fmt.Sprintf("roc_%d", r.Lookback) }

// MinBars is lookback+1: one close to compare against plus the current.
func (r *ROCCross) MinBars() int { return r.Lookback + 1 }

// Compute returns the defined ROC values, one per bar from index
// lookback onward.
func (r *ROCCross) Compute(series models.BarSeries) (Series, error) {
	if series.Len() < r.MinBars() {
		return Series{}, &scanerr.InsufficientDataError{
			Ticker:      series.Ticker,
			IndicatorID: r.ID(),
			Need:        r.MinBars(),
			Have:        series.Len(),
		}
	}
	closes := series.Closes()
	n := len(closes) - r.Lookback
	out := Series{
		Dates:  make([]time.Time, n),
		Values: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		j := i + r.Lookback
		base := closes[j-r.Lookback]
		if base == 0 {
			return Series{}, fmt.Errorf("%s: zero close at index %d", series.Ticker, j-r.Lookback)
		}
		out.Dates[i] = series.At(j).Date
		out.Values[i] = closes[j]/base - 1
	}
	return out, nil
}

// Step classifies observation i against the zero line. A transition
// needs a previous observation; the first one only sets the resting
// side.
func (r *ROCCross) Step(ser Series, i int, st models.CrossState) (models.SignalState, models.CrossState) {
	v := ser.Values[i]
	next := models.CrossState{Seen: true, Prev: v}
	if !st.Seen {
		return zeroSide(v), next
	}
	switch {
	case st.Prev <= 0 && v > 0:
		return models.SignalCrossedUp, next
	case st.Prev >= 0 && v < 0:
		return models.SignalCrossedDown, next
	default:
		return zeroSide(v), next
	}
}

// zeroSide reports which side of zero a value rests on.
func zeroSide(v float64) models.SignalState {
	switch {
	case v > 0:
		return models.SignalAbove
	case v < 0:
		return models.SignalBelow
	default:
		return models.SignalNone
	}
}
