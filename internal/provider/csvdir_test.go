package provider

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTickerFile(t *testing.T, dir, ticker, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ticker+".csv"), []byte(content), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestCSVDirDaily_TableDriven(t *testing.T) {
	validHeader := "date,open,high,low,close,adj_close,volume\n"
	validRow := "2025-06-02,10,11,9,10.5,10.5,1000\n"

	cases := []struct {
		name     string
		content  string
		wantErr  bool
		wantBars int
	}{
		{name: "ok single row", content: validHeader + validRow, wantErr: false, wantBars: 1},
		{name: "bad header order", content: "open,date,high,low,close,adj_close,volume\n" + validRow, wantErr: true},
		{name: "short header", content: "date,open,high\n", wantErr: true},
		{name: "bad col count", content: validHeader + "2025-06-02,10,11\n", wantErr: true},
		{name: "invalid date", content: validHeader + "02/06/2025,10,11,9,10.5,10.5,1000\n", wantErr: true},
		{name: "invalid close", content: validHeader + "2025-06-02,10,11,9,abc,10.5,1000\n", wantErr: true},
		{name: "invalid volume", content: validHeader + "2025-06-02,10,11,9,10.5,10.5,1e3\n", wantErr: true},
		{name: "empty adj_close falls back to close", content: validHeader + "2025-06-02,10,11,9,10.5,,1000\n", wantErr: false, wantBars: 1},
		{name: "header only", content: validHeader, wantErr: false, wantBars: 0},
	}

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeTickerFile(t, dir, "AAPL", tc.content)

			src := NewCSVDir(dir)
			series, err := src.Daily(context.Background(), "AAPL", start, end)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if series.Len() != tc.wantBars {
				t.Fatalf("expected %d bars, got %d", tc.wantBars, series.Len())
			}
			if tc.wantBars > 0 && series.Bars[0].AdjClose != 10.5 {
				t.Fatalf("expected adj_close 10.5, got %v", series.Bars[0].AdjClose)
			}
		})
	}
}

func TestCSVDirDaily_WindowFilter(t *testing.T) {
	dir := t.TempDir()
	content := "date,open,high,low,close,adj_close,volume\n" +
		"2025-05-30,1,1,1,1,1,10\n" +
		"2025-06-02,2,2,2,2,2,10\n" +
		"2025-06-03,3,3,3,3,3,10\n" +
		"2025-07-01,4,4,4,4,4,10\n"
	writeTickerFile(t, dir, "MSFT", content)

	src := NewCSVDir(dir)
	series, err := src.Daily(context.Background(),
		"MSFT",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Len() != 2 {
		t.Fatalf("expected 2 bars inside the window, got %d", series.Len())
	}
	if series.Bars[0].Close != 2 || series.Bars[1].Close != 3 {
		t.Fatalf("unexpected closes: %v %v", series.Bars[0].Close, series.Bars[1].Close)
	}
}

func TestCSVDirDaily_MissingFile(t *testing.T) {
	src := NewCSVDir(t.TempDir())
	_, err := src.Daily(context.Background(), "NOPE",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCSVDirDaily_UnsortedInputIsSorted(t *testing.T) {
	dir := t.TempDir()
	content := "date,open,high,low,close,adj_close,volume\n" +
		"2025-06-03,3,3,3,3,3,10\n" +
		"2025-06-02,2,2,2,2,2,10\n"
	writeTickerFile(t, dir, "AAPL", content)

	src := NewCSVDir(dir)
	series, err := src.Daily(context.Background(), "AAPL",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Bars[0].Close != 2 {
		t.Fatalf("expected sorted bars, first close = %v", series.Bars[0].Close)
	}
}

func TestCSVDirDaily_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeTickerFile(t, dir, "AAPL", "date,open,high,low,close,adj_close,volume\n2025-06-02,10,11,9,10.5,10.5,1000\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewCSVDir(dir)
	if _, err := src.Daily(ctx, "AAPL",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestCSVDirIntraday_Unsupported(t *testing.T) {
	src := NewCSVDir(t.TempDir())
	_, err := src.Intraday(context.Background(), "AAPL", time.Now(), "5m")
	if err == nil {
		t.Fatalf("expected intraday to be unsupported")
	}
}
