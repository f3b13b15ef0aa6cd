package indicator

import (
	"math"
	"testing"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
)

func scoreParams() map[string]any {
	return map[string]any{
		"lookbacks":        []any{2, 3},
		"change_lookbacks": []any{1, 2},
		"short_ma":         2,
		"long_ma":          3,
	}
}

func TestNewROCScore_Params(t *testing.T) {
	def, err := NewROCScore(scoreParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rs := def.(*ROCScore)
	if rs.MaxScore() != 4 {
		t.Fatalf("expected max score 4, got %d", rs.MaxScore())
	}
	// max lookback 3 + max change 2 + long window 3
	if def.MinBars() != 8 {
		t.Fatalf("expected MinBars 8, got %d", def.MinBars())
	}
	if def.ID() != "roc_score_ma2_3" {
		t.Fatalf("unexpected id %q", def.ID())
	}

	bad := []map[string]any{
		{"change_lookbacks": []any{1}, "short_ma": 2, "long_ma": 3},               // no lookbacks
		{"lookbacks": []any{2}, "short_ma": 2, "long_ma": 3},                      // no change lookbacks
		{"lookbacks": []any{}, "change_lookbacks": []any{1}, "short_ma": 2, "long_ma": 3},
		{"lookbacks": []any{0}, "change_lookbacks": []any{1}, "short_ma": 2, "long_ma": 3},
		{"lookbacks": []any{2}, "change_lookbacks": []any{-1}, "short_ma": 2, "long_ma": 3},
		{"lookbacks": []any{2}, "change_lookbacks": []any{1}, "long_ma": 3},       // no short
		{"lookbacks": []any{2}, "change_lookbacks": []any{1}, "short_ma": 3, "long_ma": 3}, // short == long
		{"lookbacks": []any{2}, "change_lookbacks": []any{1}, "short_ma": 5, "long_ma": 3}, // short > long
	}
	for i, params := range bad {
		if _, err := NewROCScore(params); err == nil || !scanerr.IsConfig(err) {
			t.Fatalf("case %d: expected ConfigError, got %v", i, err)
		}
	}
}

func TestROCScore_InsufficientData(t *testing.T) {
	def, err := NewROCScore(scoreParams())
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	_, err = def.Compute(mkSeries("AAPL", 100, 101, 102, 103, 104, 105, 106)) // 7 < 8
	if err == nil || !scanerr.IsInsufficientData(err) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
}

func TestROCScore_ScoreBounded(t *testing.T) {
	def, err := NewROCScore(scoreParams())
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	rs := def.(*ROCScore)

	// Deterministic wiggly walk to exercise both score signs.
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)*0.7) + float64(i%7)
	}
	ser, err := def.Compute(mkSeries("SPY", closes...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ser.Len() == 0 {
		t.Fatalf("expected defined observations")
	}
	bound := float64(rs.MaxScore())
	sawNonZero := false
	for i, v := range ser.Values {
		if v > bound || v < -bound {
			t.Fatalf("score %v at index %d exceeds bound %v", v, i, bound)
		}
		if v != 0 {
			sawNonZero = true
		}
	}
	if !sawNonZero {
		t.Fatalf("wiggly walk produced all-zero scores")
	}
	if len(ser.ShortMA) != ser.Len() || len(ser.LongMA) != ser.Len() {
		t.Fatalf("MA series misaligned: %d/%d/%d", ser.Len(), len(ser.ShortMA), len(ser.LongMA))
	}
}

func TestROCScore_MonotoneRiseMaxesScore(t *testing.T) {
	def, err := NewROCScore(scoreParams())
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	rs := def.(*ROCScore)

	// Accelerating rise: every ROC line increases over every change
	// window, so each pair contributes +1.
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 * math.Pow(1.01, float64(i)*float64(i)/10)
	}
	ser, err := def.Compute(mkSeries("NVDA", closes...))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	last := ser.Values[ser.Len()-1]
	if last != float64(rs.MaxScore()) {
		t.Fatalf("expected saturated score %d, got %v", rs.MaxScore(), last)
	}
}

func TestROCScore_StepStrictness(t *testing.T) {
	// Hand-built observations: the score ties both MAs, ties again, then
	// clears both strictly. The cross fires only at the first strictly
	// above-both index, never on equality.
	ser := Series{
		Values:  []float64{-2, -2, 1, 3},
		ShortMA: []float64{-2, -2, -0.5, 0.67},
		LongMA:  []float64{-2, -2, -1.5, -0.5},
	}
	def := &ROCScore{Lookbacks: []int{1}, ChangeLookbacks: []int{1}, ShortWindow: 2, LongWindow: 3}

	want := []models.SignalState{
		models.SignalNone,      // tie with both MAs
		models.SignalNone,      // still tied: equality never counts as above
		models.SignalCrossedUp, // first strictly above both
		models.SignalAbove,     // stays above, no re-fire
	}
	st := models.CrossState{}
	for i := range ser.Values {
		var got models.SignalState
		got, st = def.Step(ser, i, st)
		if got != want[i] {
			t.Fatalf("step %d: got %s want %s", i, got, want[i])
		}
	}
}

func TestROCScore_StepPartialPriorAboveStillFires(t *testing.T) {
	// At t-1 the score already exceeded the long MA but not the short:
	// the transition into above-both still fires.
	ser := Series{
		Values:  []float64{0, 2},
		ShortMA: []float64{1, 1},
		LongMA:  []float64{-1, -1},
	}
	def := &ROCScore{Lookbacks: []int{1}, ChangeLookbacks: []int{1}, ShortWindow: 2, LongWindow: 3}

	st := models.CrossState{}
	got0, st := def.Step(ser, 0, st)
	if got0 != models.SignalNone {
		t.Fatalf("step 0: got %s want none", got0)
	}
	got1, _ := def.Step(ser, 1, st)
	if got1 != models.SignalCrossedUp {
		t.Fatalf("step 1: got %s want crossed_up", got1)
	}
}

func TestROCScore_StepBearishMirror(t *testing.T) {
	ser := Series{
		Values:  []float64{2, -3},
		ShortMA: []float64{0, 0},
		LongMA:  []float64{1, -1},
	}
	def := &ROCScore{Lookbacks: []int{1}, ChangeLookbacks: []int{1}, ShortWindow: 2, LongWindow: 3}

	st := models.CrossState{}
	got0, st := def.Step(ser, 0, st)
	if got0 != models.SignalAbove {
		t.Fatalf("step 0: got %s want above", got0)
	}
	got1, _ := def.Step(ser, 1, st)
	if got1 != models.SignalCrossedDown {
		t.Fatalf("step 1: got %s want crossed_down", got1)
	}
}

func TestROCScore_TieKeepsPreviousSide(t *testing.T) {
	// Above both, then tied with the short MA: the resting side holds
	// and nothing fires.
	ser := Series{
		Values:  []float64{3, 1},
		ShortMA: []float64{1, 1},
		LongMA:  []float64{0, 0},
	}
	def := &ROCScore{Lookbacks: []int{1}, ChangeLookbacks: []int{1}, ShortWindow: 2, LongWindow: 3}

	st := models.CrossState{}
	got0, st := def.Step(ser, 0, st)
	if got0 != models.SignalAbove {
		t.Fatalf("step 0: got %s want above", got0)
	}
	got1, _ := def.Step(ser, 1, st)
	if got1 != models.SignalAbove {
		t.Fatalf("step 1: got %s want above (tie keeps side)", got1)
	}
}

func TestSMASeries(t *testing.T) {
	got := smaSeries([]float64{1, 2, 3, 4}, 2)
	want := []float64{1.5, 2.5, 3.5}
	if len(got) != len(want) {
		t.Fatalf("length %d want %d", len(got), len(want))
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
	if smaSeries([]float64{1}, 2) != nil {
		t.Fatalf("short input must return nil")
	}
}
