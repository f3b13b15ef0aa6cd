package indicator

import (
	"fmt"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
)

// Evaluate runs every instance over one ticker's history and returns one
// result per instance.
//
// The caller passes the series already truncated to the date under
// evaluation; the result is dated at the last defined observation, or at
// asOf when the series is too short for the instance. Insufficient
// history is a signal state, never an error; any other compute failure
// aborts the ticker.
func Evaluate(asOf time.Time, series models.BarSeries, insts []Instance) ([]models.IndicatorResult, error) {
	out := make([]models.IndicatorResult, 0, len(insts))
	for _, inst := range insts {
		ser, err := inst.Def.Compute(series)
		if err != nil {
			if scanerr.IsInsufficientData(err) {
				out = append(out, models.IndicatorResult{
					Ticker:      series.Ticker,
					Date:        asOf,
					IndicatorID: inst.Def.ID(),
					SignalState: models.SignalInsufficientData,
				})
				continue
			}
			return nil, fmt.Errorf("compute %s: %w", inst.Def.ID(), err)
		}

		state := models.SignalNone
		if det, ok := inst.Def.(Detector); ok {
			st := models.CrossState{}
			for i := 0; i < ser.Len(); i++ {
				state, st = det.Step(ser, i, st)
			}
		}

		last := ser.Len() - 1
		out = append(out, models.IndicatorResult{
			Ticker:      series.Ticker,
			Date:        ser.Dates[last],
			IndicatorID: inst.Def.ID(),
			Value:       ser.Values[last],
			HasValue:    true,
			SignalState: state,
		})
	}
	return out, nil
}

// Reportable reports whether a state passes the instance's direction
// filter and should surface in the run's signal list.
func (in Instance) Reportable(state models.SignalState) bool {
	switch state {
	case models.SignalCrossedUp:
		return in.Direction != "down"
	case models.SignalCrossedDown:
		return in.Direction != "up"
	default:
		return false
	}
}
