package provider

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
)

// SourceCSVDir is the provider name of the local CSV directory source.
const SourceCSVDir = "csvdir"

// expectedHeaders enforces strict column ordering for per-ticker CSV
// files. If the header doesn't match EXACTLY (order + count), the fetch
// must fail.
var expectedHeaders = []string{
	"date",
	"open",
	"high",
	"low",
	"close",
	"adj_close",
	"volume",
}

// CSVDir reads daily bars from <dir>/<TICKER>.csv. It exists for offline
// runs and fixtures; it has no intraday data.
type CSVDir struct {
	dir string
}

func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

func (s *CSVDir) Name() string { return SourceCSVDir }

// Daily parses the ticker's file and returns the bars dated within
// [start, end]. Structural problems (bad header, bad cell) fail the
// whole fetch; there is no partial series.
func (s *CSVDir) Daily(ctx context.Context, ticker string, start, end time.Time) (models.BarSeries, error) {
	path := filepath.Join(s.dir, ticker+".csv")
	f, err := os.Open(path)
	if err != nil {
		return models.BarSeries{}, fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // allow variable but we'll check explicitly

	// Validate headers strictly.
	header, err := r.Read()
	if err != nil {
		return models.BarSeries{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) != len(expectedHeaders) {
		return models.BarSeries{}, fmt.Errorf("invalid header length: expected %d, got %d", len(expectedHeaders), len(header))
	}
	for i, h := range header {
		if strings.TrimSpace(h) != expectedHeaders[i] {
			return models.BarSeries{}, fmt.Errorf("invalid header at col %d: expected %q, got %q", i+1, expectedHeaders[i], h)
		}
	}

	series := models.BarSeries{Ticker: ticker}
	lineNumber := 1 // header already read

	for {
		select {
		case <-ctx.Done():
			return models.BarSeries{}, ctx.Err()
		default:
		}

		rec, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return models.BarSeries{}, fmt.Errorf("read line after %d: %w", lineNumber, err)
		}
		lineNumber++

		if len(rec) != len(expectedHeaders) {
			return models.BarSeries{}, fmt.Errorf("invalid column count on line %d: expected %d got %d", lineNumber, len(expectedHeaders), len(rec))
		}

		bar, err := recordToBar(rec)
		if err != nil {
			return models.BarSeries{}, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		series.Bars = append(series.Bars, bar)
	}

	sortBars(series.Bars)
	if err := series.Validate(); err != nil {
		return models.BarSeries{}, err
	}
	return series, nil
}

// Intraday is unsupported: the directory layout only carries daily
// files. Runs that need intraday bars use the eodhd source.
func (s *CSVDir) Intraday(_ context.Context, ticker string, _ time.Time, _ string) (models.BarSeries, error) {
	return models.BarSeries{}, fmt.Errorf("csvdir source has no intraday data for %s", ticker)
}

// recordToBar converts one validated-length record into a bar. It is
// STRICT about date and price formats but tolerates an empty adj_close,
// falling back to close.
func recordToBar(rec []string) (models.Bar, error) {
	var b models.Bar

	d, err := time.Parse("2006-01-02", strings.TrimSpace(rec[0]))
	if err != nil {
		return b, fmt.Errorf("invalid date: %v", err)
	}
	b.Date = d.UTC()

	parse := func(name, s string) (float64, error) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %v", name, err)
		}
		return v, nil
	}
	if b.Open, err = parse("open", rec[1]); err != nil {
		return b, err
	}
	if b.High, err = parse("high", rec[2]); err != nil {
		return b, err
	}
	if b.Low, err = parse("low", rec[3]); err != nil {
		return b, err
	}
	if b.Close, err = parse("close", rec[4]); err != nil {
		return b, err
	}

	if s := strings.TrimSpace(rec[5]); s != "" {
		if b.AdjClose, err = parse("adj_close", s); err != nil {
			return b, err
		}
	} else {
		b.AdjClose = b.Close
	}

	vol, err := strconv.ParseInt(strings.TrimSpace(rec[6]), 10, 64)
	if err != nil {
		return b, fmt.Errorf("invalid volume: %v", err)
	}
	b.Volume = vol

	return b, nil
}
