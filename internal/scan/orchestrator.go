// Package scan drives a full run: it walks the trading calendar, fans
// ticker work out on a bounded pool, folds breadth metrics, persists
// them, and assembles the run report.
package scan

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tmarsden/scanpulse/internal/breadth"
	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
	"github.com/tmarsden/scanpulse/internal/indicator"
	"github.com/tmarsden/scanpulse/internal/logger"
	"github.com/tmarsden/scanpulse/internal/metrics"
	"github.com/tmarsden/scanpulse/internal/provider"
	"github.com/tmarsden/scanpulse/internal/scanconfig"
	"github.com/tmarsden/scanpulse/internal/storage"
)

// Run modes.
const (
	ModeScan     = "scan"
	ModeBackfill = "backfill"
)

// Phase is the orchestrator's current position in the run lifecycle.
// Transitions only ever happen on the orchestrating goroutine. FAILED is
// reachable from INIT alone; once fetching starts, every problem
// degrades into issues instead of aborting.
type Phase string

const (
	PhaseInit       Phase = "INIT"
	PhaseFetching   Phase = "FETCHING"
	PhaseComputing  Phase = "COMPUTING"
	PhasePersisting Phase = "PERSISTING"
	PhaseAssembling Phase = "ASSEMBLING"
	PhaseDone       Phase = "DONE"
	PhaseFailed     Phase = "FAILED"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultWorkers      = 8
)

// Options wires one run. Source, Store and File are required; Usage may
// be nil (the report's storage snapshot stays zero).
type Options struct {
	Mode   string
	Source provider.Source
	Store  storage.AggregateRepository
	Usage  *storage.UsageReporter
	File   *scanconfig.ScanFile

	// Start and End bound the trading-day window. Scan mode evaluates
	// only the last trading day in the window; backfill walks all of it.
	Start time.Time
	End   time.Time

	Workers      int
	Force        bool
	FetchTimeout time.Duration

	// Intraday gates each ticker on having at least MinBars bars at
	// Interval on the evaluated date.
	Intraday bool
	Interval string
	MinBars  int
}

// Orchestrator runs one scan or backfill. Build a fresh one per run;
// nothing is shared across runs except the store behind Options.Store.
type Orchestrator struct {
	opts  Options
	phase Phase

	insts   []indicator.Instance
	engine  *breadth.Engine
	workers int

	fetchStart time.Time
	fetchEnd   time.Time

	// Accumulated across dates by the orchestrating goroutine only.
	summaries  map[string]models.TickerSummary
	signals    []models.Signal
	issues     []models.Issue
	incomplete []string

	finalDate   time.Time
	finalCounts breadth.Counts
}

// New builds an orchestrator for one run.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:      opts,
		phase:     PhaseInit,
		summaries: make(map[string]models.TickerSummary),
	}
}

// Phase returns the current lifecycle phase.
func (o *Orchestrator) Phase() Phase { return o.phase }

func (o *Orchestrator) setPhase(p Phase) {
	o.phase = p
	logger.With("scan").Debug().Str("phase", string(p)).Msg("phase")
}

// Run executes the whole lifecycle and returns the assembled report.
//
// The error return carries configuration problems and context
// cancellation only; everything else lands in the report's issues.
func (o *Orchestrator) Run(ctx context.Context) (*models.ScanRun, error) {
	started := time.Now().UTC()

	dates, err := o.init()
	if err != nil {
		o.setPhase(PhaseFailed)
		return nil, err
	}

	log := logger.With("scan")
	log.Info().
		Str("mode", o.opts.Mode).
		Str("provider", o.opts.Source.Name()).
		Int("dates", len(dates)).
		Int("tickers", len(o.opts.File.Universe)).
		Int("workers", o.workers).
		Msg("run start")

	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if o.skipDate(ctx, date) {
			continue
		}

		dayStart := time.Now()
		outcomes := o.fetchAndCompute(ctx, date)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		o.collect(outcomes)

		rows, counts, err := o.foldDate(ctx, date, outcomes)
		if err != nil {
			o.dateIncomplete(date, err)
			continue
		}
		if !o.persist(ctx, date, rows) {
			continue
		}

		o.finalDate = date
		o.finalCounts = counts
		log.Info().
			Str("date", date.Format("2006-01-02")).
			Int("scanned", counts.Scanned).
			Int("rows", len(rows)).
			Dur("elapsed", time.Since(dayStart)).
			Msg("date done")
	}

	run := o.assemble(ctx, started, dates)
	o.setPhase(PhaseDone)

	metrics.ScanDuration.WithLabelValues(o.opts.Mode).Observe(time.Since(started).Seconds())
	log.Info().
		Str("run_id", run.RunMetadata.RunID).
		Int("signals", len(run.Signals)).
		Int("issues", len(run.Issues)).
		Dur("elapsed", time.Since(started)).
		Msg("run done")
	return run, nil
}

// init validates the run configuration and resolves the trading dates.
// Every failure here is a *scanerr.ConfigError.
func (o *Orchestrator) init() ([]time.Time, error) {
	o.setPhase(PhaseInit)

	if o.opts.File == nil {
		return nil, scanerr.Configf("scan.yaml", "no scan file loaded")
	}
	if o.opts.Source == nil {
		return nil, scanerr.Configf("provider", "no source configured")
	}
	if o.opts.Store == nil {
		return nil, scanerr.Configf("store", "no aggregate store configured")
	}
	if o.opts.Mode != ModeScan && o.opts.Mode != ModeBackfill {
		return nil, scanerr.Configf("mode", "unknown mode %q", o.opts.Mode)
	}
	if o.opts.End.Before(o.opts.Start) {
		return nil, scanerr.Configf("window", "end %s before start %s",
			o.opts.End.Format("2006-01-02"), o.opts.Start.Format("2006-01-02"))
	}

	insts, err := indicator.Default().BuildAll(o.opts.File.Indicators)
	if err != nil {
		return nil, err
	}
	o.insts = insts
	o.engine = breadth.NewEngine(o.opts.File.Aggregates.NetAdvanceLookbacks, o.opts.Store)

	dates := TradingDays(o.opts.Start, o.opts.End)
	if len(dates) == 0 {
		return nil, scanerr.Configf("window", "no trading days between %s and %s",
			o.opts.Start.Format("2006-01-02"), o.opts.End.Format("2006-01-02"))
	}
	if o.opts.Mode == ModeScan {
		dates = dates[len(dates)-1:]
	}

	// One fetch window for the whole run keeps the bar cache effective:
	// every date reuses the same (ticker, window) entry and truncates.
	o.fetchStart = dates[0].AddDate(0, 0, -o.opts.File.HistoryDays)
	o.fetchEnd = dates[len(dates)-1]

	o.workers = o.opts.Workers
	if o.workers <= 0 {
		o.workers = defaultWorkers
	}
	if c := runtime.NumCPU(); o.workers > c {
		o.workers = c
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.opts.FetchTimeout <= 0 {
		o.opts.FetchTimeout = defaultFetchTimeout
	}
	if o.opts.Intraday {
		if o.opts.Interval == "" {
			o.opts.Interval = o.opts.File.Intraday.Interval
		}
		if o.opts.MinBars <= 0 {
			o.opts.MinBars = o.opts.File.Intraday.MinBars
		}
	}
	return dates, nil
}

// skipDate reports whether a backfill date is already fully persisted.
func (o *Orchestrator) skipDate(ctx context.Context, date time.Time) bool {
	if o.opts.Mode != ModeBackfill || o.opts.Force {
		return false
	}
	done, err := o.opts.Store.HasDate(ctx, date, o.engine.MetricNames())
	if err != nil {
		o.dateIncomplete(date, &scanerr.StorageError{Op: "check date", Date: date, Err: err})
		return true
	}
	if done {
		logger.With("scan").Info().Str("date", date.Format("2006-01-02")).Bool("skipped", true).Msg("already persisted")
	}
	return done
}

// tickerOutcome is one worker's result for one (ticker, date): either an
// evaluated series or a report issue, never both.
type tickerOutcome struct {
	ticker  string
	series  models.BarSeries
	results []models.IndicatorResult
	issue   *models.Issue
}

// fetchAndCompute fans ticker work out on a bounded pool and blocks
// until every outcome is in. Workers write disjoint slice slots, so the
// barrier is the only synchronization needed.
func (o *Orchestrator) fetchAndCompute(ctx context.Context, date time.Time) []tickerOutcome {
	o.setPhase(PhaseFetching)

	universe := o.opts.File.Universe
	outcomes := make([]tickerOutcome, len(universe))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, o.workers)

	for i, ticker := range universe {
		i, ticker := i, ticker
		sem <- struct{}{}

		g.Go(func() error {
			defer func() { <-sem }()
			outcomes[i] = o.scanTicker(gctx, ticker, date)
			return gctx.Err()
		})
	}
	_ = g.Wait()
	return outcomes
}

// scanTicker fetches one ticker's history, applies the intraday gate,
// and evaluates every configured indicator as of date.
func (o *Orchestrator) scanTicker(ctx context.Context, ticker string, date time.Time) tickerOutcome {
	tctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	out := tickerOutcome{ticker: ticker}

	series, err := o.opts.Source.Daily(tctx, ticker, o.fetchStart, o.fetchEnd)
	if err != nil {
		ferr := &scanerr.FetchError{Ticker: ticker, Err: err}
		logger.With("scan").Warn().Str("ticker", ticker).Str("date", date.Format("2006-01-02")).Err(err).Msg("fetch failed")
		out.issue = &models.Issue{Ticker: ticker, Date: date, Kind: models.IssueFetchError, Detail: ferr.Error()}
		return out
	}
	out.series = series.Truncate(date)

	if o.opts.Intraday {
		bars, err := o.opts.Source.Intraday(tctx, ticker, date, o.opts.Interval)
		if err != nil {
			ferr := &scanerr.FetchError{Ticker: ticker, Err: err}
			out.issue = &models.Issue{Ticker: ticker, Date: date, Kind: models.IssueFetchError, Detail: ferr.Error()}
			return out
		}
		if bars.Len() < o.opts.MinBars {
			out.issue = &models.Issue{
				Ticker: ticker,
				Date:   date,
				Kind:   models.IssueInsufficientBars,
				Detail: fmt.Sprintf("%d intraday bars at %s, need %d", bars.Len(), o.opts.Interval, o.opts.MinBars),
			}
			return out
		}
	}

	results, err := indicator.Evaluate(date, out.series, o.insts)
	if err != nil {
		out.issue = &models.Issue{Ticker: ticker, Date: date, Kind: models.IssueFetchError, Detail: err.Error()}
		return out
	}
	out.results = results
	return out
}

// collect folds one date's outcomes into the run accumulators: evaluated
// tickers refresh their summary (a later date wins), reportable
// transitions become signals, failures become issues.
func (o *Orchestrator) collect(outcomes []tickerOutcome) {
	evaluated := 0
	for _, out := range outcomes {
		if out.issue != nil {
			o.issues = append(o.issues, *out.issue)
			metrics.IssuesTotal.WithLabelValues(out.issue.Kind).Inc()
			continue
		}
		evaluated++

		sum := models.TickerSummary{
			Ticker:     out.ticker,
			Bars:       out.series.Len(),
			Indicators: make(map[string]models.SignalState, len(out.results)),
		}
		for i, res := range out.results {
			sum.Indicators[res.IndicatorID] = res.SignalState
			if res.SignalState.Crossed() && o.insts[i].Reportable(res.SignalState) {
				o.signals = append(o.signals, models.Signal{
					Ticker:      out.ticker,
					IndicatorID: res.IndicatorID,
					Date:        res.Date,
					State:       res.SignalState,
					Value:       res.Value,
				})
				metrics.SignalsTotal.WithLabelValues(string(res.SignalState)).Inc()
			}
		}
		o.summaries[out.ticker] = sum
	}
	metrics.TickersScanned.WithLabelValues(o.opts.Mode).Add(float64(evaluated))
}

// foldDate derives the date's aggregate rows from the tickers that have
// a close on the date and a prior close to compare against.
func (o *Orchestrator) foldDate(ctx context.Context, date time.Time, outcomes []tickerOutcome) ([]models.AggregateRow, breadth.Counts, error) {
	o.setPhase(PhaseComputing)

	var days []breadth.TickerDay
	for _, out := range outcomes {
		if out.issue != nil || out.series.Len() < 2 {
			continue
		}
		last := out.series.At(out.series.Len() - 1)
		if !last.Date.Equal(date) {
			continue
		}
		days = append(days, breadth.TickerDay{
			Ticker:    out.ticker,
			Close:     last.Close,
			PrevClose: out.series.At(out.series.Len() - 2).Close,
		})
	}
	return o.engine.Compute(ctx, date, days)
}

// persist writes the date's rows; false means the date was flagged
// incomplete and the run should move on.
func (o *Orchestrator) persist(ctx context.Context, date time.Time, rows []models.AggregateRow) bool {
	o.setPhase(PhasePersisting)

	if o.opts.Mode == ModeBackfill && o.opts.Force {
		if err := o.opts.Store.DeleteDate(ctx, date); err != nil {
			o.dateIncomplete(date, &scanerr.StorageError{Op: "delete date", Date: date, Err: err})
			return false
		}
	}

	changed, err := o.opts.Store.Upsert(ctx, rows)
	if err != nil {
		o.dateIncomplete(date, &scanerr.StorageError{Op: "upsert", Date: date, Err: err})
		return false
	}
	metrics.RowsChanged.Add(float64(changed))
	logger.With("scan").Debug().Str("date", date.Format("2006-01-02")).Int64("changed", changed).Msg("persisted")
	return true
}

// dateIncomplete records a storage failure: one issue, one incomplete
// flag, run continues with the next date.
func (o *Orchestrator) dateIncomplete(date time.Time, err error) {
	logger.With("scan").Error().Str("date", date.Format("2006-01-02")).Err(err).Msg("date incomplete")
	o.issues = append(o.issues, models.Issue{Date: date, Kind: models.IssueStorageError, Detail: err.Error()})
	o.incomplete = append(o.incomplete, date.Format("2006-01-02"))
	metrics.IssuesTotal.WithLabelValues(models.IssueStorageError).Inc()
}

// assemble builds the immutable run report from the accumulators, the
// persisted window, and the storage snapshot.
func (o *Orchestrator) assemble(ctx context.Context, started time.Time, dates []time.Time) *models.ScanRun {
	o.setPhase(PhaseAssembling)

	first, last := dates[0], dates[len(dates)-1]

	var aggregates []models.AggregateRow
	for _, metric := range o.engine.MetricNames() {
		rows, err := o.opts.Store.Range(ctx, metric, first, last)
		if err != nil {
			serr := &scanerr.StorageError{Op: "read range", Err: err}
			o.issues = append(o.issues, models.Issue{Date: last, Kind: models.IssueStorageError, Detail: serr.Error()})
			metrics.IssuesTotal.WithLabelValues(models.IssueStorageError).Inc()
			continue
		}
		aggregates = append(aggregates, rows...)
	}

	var usage models.StorageUsage
	if o.opts.Usage != nil {
		snap, err := o.opts.Usage.Snapshot(ctx)
		if err != nil {
			serr := &scanerr.StorageError{Op: "usage snapshot", Err: err}
			o.issues = append(o.issues, models.Issue{Date: last, Kind: models.IssueStorageError, Detail: serr.Error()})
			metrics.IssuesTotal.WithLabelValues(models.IssueStorageError).Inc()
		} else {
			usage = snap
		}
	}

	summaries := make([]models.TickerSummary, 0, len(o.summaries))
	for _, s := range o.summaries {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Ticker < summaries[j].Ticker })

	sort.Slice(o.signals, func(i, j int) bool {
		a, b := o.signals[i], o.signals[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Ticker != b.Ticker {
			return a.Ticker < b.Ticker
		}
		return a.IndicatorID < b.IndicatorID
	})
	sort.SliceStable(o.issues, func(i, j int) bool {
		a, b := o.issues[i], o.issues[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Ticker < b.Ticker
	})

	stats := models.MarketStats{
		Date:      o.finalDate,
		Universe:  len(o.opts.File.Universe),
		Scanned:   o.finalCounts.Scanned,
		Advancers: o.finalCounts.Advancers,
		Decliners: o.finalCounts.Decliners,
		Unchanged: o.finalCounts.Unchanged,
	}
	for _, s := range o.signals {
		if !s.Date.Equal(o.finalDate) {
			continue
		}
		switch s.State {
		case models.SignalCrossedUp:
			stats.SignalsUp++
		case models.SignalCrossedDown:
			stats.SignalsDwn++
		}
	}

	return &models.ScanRun{
		RunMetadata: models.RunMetadata{
			RunID:       uuid.NewString(),
			Mode:        o.opts.Mode,
			Provider:    o.opts.Source.Name(),
			WindowStart: first,
			WindowEnd:   last,
			StartedAt:   started,
			FinishedAt:  time.Now().UTC(),
			Workers:     o.workers,
			Incomplete:  o.incomplete,
		},
		MarketStats:     stats,
		TickerSummaries: summaries,
		Signals:         o.signals,
		Aggregates:      aggregates,
		Issues:          o.issues,
		StorageUsage:    usage,
	}
}
