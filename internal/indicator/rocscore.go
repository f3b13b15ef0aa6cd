package indicator

import (
	"fmt"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
	"github.com/tmarsden/scanpulse/internal/scanconfig"
)

// KindROCScore is the scan-file id of the aggregated ROC score indicator.
const KindROCScore = "roc_score"

// ROCScore folds a grid of ROC observations into one momentum score per
// date. For every lookback L and change-lookback C, the ROC(L) line
// contributes +1 when it rose over the last C bars, -1 when it fell and
// 0 when it held, so the score is bounded by ±len(Lookbacks)*len(ChangeLookbacks).
// The score is then smoothed with a short and a long SMA; a bullish
// crossover is the transition into "strictly above both MAs", bearish
// the mirror.
type ROCScore struct {
	Lookbacks       []int
	ChangeLookbacks []int
	ShortWindow     int
	LongWindow      int
}

// NewROCScore builds the indicator from scan-file parameters.
func NewROCScore(params map[string]any) (Definition, error) {
	lbs, ok := scanconfig.IntSliceParam(params, "lookbacks")
	if !ok || len(lbs) == 0 {
		return nil, scanerr.Configf("roc_score.lookbacks", "required non-empty integer list")
	}
	cls, ok := scanconfig.IntSliceParam(params, "change_lookbacks")
	if !ok || len(cls) == 0 {
		return nil, scanerr.Configf("roc_score.change_lookbacks", "required non-empty integer list")
	}
	for _, l := range lbs {
		if l <= 0 {
			return nil, scanerr.Configf("roc_score.lookbacks", "must be > 0, got %d", l)
		}
	}
	for _, c := range cls {
		if c <= 0 {
			return nil, scanerr.Configf("roc_score.change_lookbacks", "must be > 0, got %d", c)
		}
	}
	short, ok := scanconfig.IntParam(params, "short_ma")
	if !ok {
		return nil, scanerr.Configf("roc_score.short_ma", "required integer parameter")
	}
	long, ok := scanconfig.IntParam(params, "long_ma")
	if !ok {
		return nil, scanerr.Configf("roc_score.long_ma", "required integer parameter")
	}
	if short <= 0 || long <= 0 || short >= long {
		return nil, scanerr.Configf("roc_score", "need 0 < short_ma < long_ma, got %d/%d", short, long)
	}
	return &ROCScore{Lookbacks: lbs, ChangeLookbacks: cls, ShortWindow: short, LongWindow: long}, nil
}

func (r *ROCScore) ID() string {
	return fmt.Sprintf("roc_score_ma%d_%d", r.ShortWindow, r.LongWindow)
}

// MaxScore is the score bound: one ±1 contribution per (lookback,
// change-lookback) pair.
func (r *ROCScore) MaxScore() int {
	return len(r.Lookbacks) * len(r.ChangeLookbacks)
}

// MinBars covers the deepest ROC, the widest change window on top of it,
// and one full long-MA window of scores.
func (r *ROCScore) MinBars() int {
	return maxInt(r.Lookbacks) + maxInt(r.ChangeLookbacks) + r.LongWindow
}

// Compute returns the aligned score/short-MA/long-MA series, trimmed to
// the indices where all three are defined.
func (r *ROCScore) Compute(series models.BarSeries) (Series, error) {
	if series.Len() < r.MinBars() {
		return Series{}, &scanerr.InsufficientDataError{
			Ticker:      series.Ticker,
			IndicatorID: r.ID(),
			Need:        r.MinBars(),
			Have:        series.Len(),
		}
	}
	closes := series.Closes()
	for i, c := range closes {
		if c == 0 {
			return Series{}, fmt.Errorf("%s: zero close at index %d", series.Ticker, i)
		}
	}

	roc := func(lookback, i int) float64 {
		return closes[i]/closes[i-lookback] - 1
	}

	firstScore := maxInt(r.Lookbacks) + maxInt(r.ChangeLookbacks)
	scores := make([]float64, len(closes)-firstScore)
	for i := range scores {
		j := firstScore + i
		total := 0
		for _, l := range r.Lookbacks {
			for _, c := range r.ChangeLookbacks {
				total += signOf(roc(l, j) - roc(l, j-c))
			}
		}
		scores[i] = float64(total)
	}

	shortMA := smaSeries(scores, r.ShortWindow)
	longMA := smaSeries(scores, r.LongWindow)

	// Align everything on the long MA, the last line to become defined.
	n := len(longMA)
	out := Series{
		Dates:   make([]time.Time, n),
		Values:  make([]float64, n),
		ShortMA: make([]float64, n),
		LongMA:  make([]float64, n),
	}
	for k := 0; k < n; k++ {
		si := r.LongWindow - 1 + k
		out.Dates[k] = series.At(firstScore + si).Date
		out.Values[k] = scores[si]
		out.ShortMA[k] = shortMA[si-(r.ShortWindow-1)]
		out.LongMA[k] = longMA[k]
	}
	return out, nil
}

// Step classifies observation i against both moving averages. Only a
// transition into "strictly above both" fires crossed_up, regardless of
// which side each individual MA was on before; bearish mirrors. A tie
// with either MA is never above or below, it keeps the previous resting
// side.
func (r *ROCScore) Step(ser Series, i int, st models.CrossState) (models.SignalState, models.CrossState) {
	v, s, l := ser.Values[i], ser.ShortMA[i], ser.LongMA[i]
	next := models.CrossState{Seen: true, Prev: v, PrevShortMA: s, PrevLongMA: l}

	above := v > s && v > l
	below := v < s && v < l
	if !st.Seen {
		switch {
		case above:
			return models.SignalAbove, next
		case below:
			return models.SignalBelow, next
		default:
			return models.SignalNone, next
		}
	}

	prevAbove := st.Prev > st.PrevShortMA && st.Prev > st.PrevLongMA
	prevBelow := st.Prev < st.PrevShortMA && st.Prev < st.PrevLongMA
	switch {
	case above && !prevAbove:
		return models.SignalCrossedUp, next
	case below && !prevBelow:
		return models.SignalCrossedDown, next
	case above:
		return models.SignalAbove, next
	case below:
		return models.SignalBelow, next
	}

	if v == s || v == l {
		if prevAbove {
			return models.SignalAbove, next
		}
		if prevBelow {
			return models.SignalBelow, next
		}
	}
	return models.SignalNone, next
}

// smaSeries returns the simple moving average of vals with the given
// window, one value per index from window-1 onward.
func smaSeries(vals []float64, window int) []float64 {
	if len(vals) < window {
		return nil
	}
	out := make([]float64, len(vals)-window+1)
	var sum float64
	for i, v := range vals {
		sum += v
		if i >= window {
			sum -= vals[i-window]
		}
		if i >= window-1 {
			out[i-window+1] = sum / float64(window)
		}
	}
	return out
}

func signOf(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}

func maxInt(xs []int) int {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
