package breadth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
)

type stubHistory struct {
	rows map[string][]models.AggregateRow
	err  error
}

func (s *stubHistory) LastBefore(_ context.Context, metric string, before time.Time, n int) ([]models.AggregateRow, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.AggregateRow
	for _, r := range s.rows[metric] {
		if r.Date.Before(before) {
			out = append(out, r)
		}
	}
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func rowValue(t *testing.T, rows []models.AggregateRow, metric string) float64 {
	t.Helper()
	for _, r := range rows {
		if r.MetricName == metric {
			return r.Value
		}
	}
	t.Fatalf("metric %s missing from %v", metric, rows)
	return 0
}

func TestEngine_Compute_Counts(t *testing.T) {
	// Three advancers, two decliners out of five.
	days := []TickerDay{
		{Ticker: "AAPL", Close: 101, PrevClose: 100},
		{Ticker: "MSFT", Close: 51, PrevClose: 50},
		{Ticker: "NVDA", Close: 201, PrevClose: 200},
		{Ticker: "INTC", Close: 29, PrevClose: 30},
		{Ticker: "F", Close: 9, PrevClose: 10},
	}
	e := NewEngine(nil, &stubHistory{})
	rows, counts, err := e.Compute(context.Background(), day(2), days)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Advancers != 3 || counts.Decliners != 2 || counts.Unchanged != 0 || counts.Scanned != 5 {
		t.Fatalf("unexpected counts: %+v", counts)
	}
	if got := rowValue(t, rows, MetricAdvanceDecline); got != 1 {
		t.Fatalf("advance_decline = %v, want 1", got)
	}
	if got := rowValue(t, rows, MetricAdvancers); got != 3 {
		t.Fatalf("advancers = %v, want 3", got)
	}
	for _, r := range rows {
		if !r.Date.Equal(day(2)) {
			t.Fatalf("row dated %v, want %v", r.Date, day(2))
		}
	}
}

func TestEngine_Compute_UnchangedNotADecline(t *testing.T) {
	days := []TickerDay{
		{Ticker: "KO", Close: 60, PrevClose: 60},
	}
	e := NewEngine(nil, &stubHistory{})
	rows, counts, err := e.Compute(context.Background(), day(2), days)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.Unchanged != 1 || counts.Decliners != 0 {
		t.Fatalf("flat close misclassified: %+v", counts)
	}
	if got := rowValue(t, rows, MetricAdvanceDecline); got != 0 {
		t.Fatalf("advance_decline = %v, want 0", got)
	}
}

func TestEngine_Compute_NetAdvancesSumsHistory(t *testing.T) {
	hist := &stubHistory{rows: map[string][]models.AggregateRow{
		MetricAdvanceDecline: {
			{Date: day(2), MetricName: MetricAdvanceDecline, Value: 2},
			{Date: day(3), MetricName: MetricAdvanceDecline, Value: -1},
			{Date: day(4), MetricName: MetricAdvanceDecline, Value: 3},
		},
	}}
	e := NewEngine([]int{3, 5}, hist)

	days := []TickerDay{
		{Ticker: "AAPL", Close: 101, PrevClose: 100},
		{Ticker: "MSFT", Close: 49, PrevClose: 50},
		{Ticker: "NVDA", Close: 210, PrevClose: 200},
	} // today's advance_decline = 1

	rows, _, err := e.Compute(context.Background(), day(5), days)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 3d window: today 1 + last two prior (-1, 3) = 3
	if got := rowValue(t, rows, NetAdvancesMetric(3)); got != 3 {
		t.Fatalf("net_advances_3d = %v, want 3", got)
	}
	// 5d window wants 4 prior rows, only 3 exist: sums what is present.
	if got := rowValue(t, rows, NetAdvancesMetric(5)); got != 5 {
		t.Fatalf("net_advances_5d = %v, want 5", got)
	}
}

func TestEngine_Compute_SingleDayLookback(t *testing.T) {
	// net_advances_1d never touches the store.
	hist := &stubHistory{err: errors.New("must not be called")}
	e := NewEngine([]int{1}, hist)
	rows, _, err := e.Compute(context.Background(), day(2), []TickerDay{
		{Ticker: "AAPL", Close: 101, PrevClose: 100},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rowValue(t, rows, NetAdvancesMetric(1)); got != 1 {
		t.Fatalf("net_advances_1d = %v, want 1", got)
	}
}

func TestEngine_Compute_HistoryFailureIsStorageError(t *testing.T) {
	e := NewEngine([]int{5}, &stubHistory{err: errors.New("connection refused")})
	_, _, err := e.Compute(context.Background(), day(2), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var se *scanerr.StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected StorageError, got %T: %v", err, err)
	}
}

func TestEngine_Compute_Reproducible(t *testing.T) {
	hist := &stubHistory{rows: map[string][]models.AggregateRow{
		MetricAdvanceDecline: {{Date: day(2), MetricName: MetricAdvanceDecline, Value: 4}},
	}}
	e := NewEngine([]int{2}, hist)
	days := []TickerDay{
		{Ticker: "AAPL", Close: 101, PrevClose: 100},
		{Ticker: "MSFT", Close: 49, PrevClose: 50},
	}
	first, _, err := e.Compute(context.Background(), day(3), days)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _, err := e.Compute(context.Background(), day(3), days)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("row counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestEngine_MetricNames(t *testing.T) {
	e := NewEngine([]int{20, 5}, &stubHistory{})
	got := e.MetricNames()
	want := []string{"advancers", "decliners", "unchanged", "advance_decline", "net_advances_5d", "net_advances_20d"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}
