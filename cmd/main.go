package main

//
//  @title           scanpulse API
//  @version         1.0
//  @description     Market breadth scan engine & read-only aggregate API.
//  @contact.name    scanpulse maintainers
//  @contact.url     https://github.com/tmarsden/scanpulse
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        aggregates
//  @tag.description Persisted breadth metric history
//
//  @tag.name        storage
//  @tag.description Storage usage snapshot
//
//  @tag.name        health
//  @tag.description Process liveness and store readiness

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/tmarsden/scanpulse/config"
	_ "github.com/tmarsden/scanpulse/docs" // swagger docs
	"github.com/tmarsden/scanpulse/internal/app"
	"github.com/tmarsden/scanpulse/internal/domain/scanerr"
	"github.com/tmarsden/scanpulse/internal/logger"
	"github.com/tmarsden/scanpulse/internal/metrics"
	"github.com/tmarsden/scanpulse/internal/provider"
	"github.com/tmarsden/scanpulse/internal/report"
	"github.com/tmarsden/scanpulse/internal/scan"
	"github.com/tmarsden/scanpulse/internal/scanconfig"
	"github.com/tmarsden/scanpulse/internal/storage"
)

// startServer begins serving the router on the given port in the
// background and hands the server back so the caller can drain it.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("http server failed")
		}
	}()

	return server
}

// gracefulShutdown blocks until SIGINT or SIGTERM, then drains in-flight
// requests within a deadline and runs the cleanup callback.
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	logger.L().Info().Msg("signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Fatal().Err(err).Msg("drain deadline exceeded")
	}

	cleanup()
	logger.L().Info().Msg("shutdown complete")
}

// engineArgs carries the parsed CLI flags for scan and backfill modes.
type engineArgs struct {
	mode         string
	configDir    string
	providerName string
	out          string
	start, end   time.Time
	workers      int
	force        bool
	noCache      bool
	intraday     bool
	interval     string
	minBars      int
	noHTML       bool
}

// runEngine executes one scan or backfill run and writes the report.
//
// Only configuration problems (and a dead database) surface as errors
// here; per-ticker and per-date failures land in the report's issues.
func runEngine(ctx context.Context, args engineArgs) error {
	sf, err := scanconfig.Load(args.configDir)
	if err != nil {
		return err
	}

	src, err := provider.New(args.providerName, !args.noCache)
	if err != nil {
		return err
	}

	db, err := app.InitPostgres(config.AppConfig)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer func() { _ = db.Close() }()

	repo := storage.NewAggregateRepository(db)
	usage := storage.NewUsageReporter(repo, config.AppConfig.Paths.OptionsStorePath, config.AppConfig.Paths.TaskLogDir)

	metrics.Register()

	orch := scan.New(scan.Options{
		Mode:     args.mode,
		Source:   src,
		Store:    repo,
		Usage:    usage,
		File:     sf,
		Start:    args.start,
		End:      args.end,
		Workers:  args.workers,
		Force:    args.force,
		Intraday: args.intraday,
		Interval: args.interval,
		MinBars:  args.minBars,
	})

	run, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	outPath := args.out
	if outPath == "" {
		name := fmt.Sprintf("%s_%s.json", args.mode, args.end.Format("2006-01-02"))
		outPath = filepath.Join(config.AppConfig.Paths.ReportDir, name)
	}
	paths, err := report.Write(run, outPath, !args.noHTML)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	logger.L().Info().
		Strs("files", paths).
		Int("signals", len(run.Signals)).
		Int("issues", len(run.Issues)).
		Int("incomplete_dates", len(run.RunMetadata.Incomplete)).
		Msg("run completed")
	return nil
}

// parseDay parses a YYYY-MM-DD flag value; empty yields the zero time.
func parseDay(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, scanerr.Configf(name, "invalid date %q, expected YYYY-MM-DD", v)
	}
	return d, nil
}

// resolveWindow turns the window flags into a concrete [start, end] pair.
// Backfill-specific overrides win over the generic window; unset bounds
// default to today and a mode-appropriate amount of history.
func resolveWindow(mode, startStr, endStr, bfStartStr, bfEndStr string) (time.Time, time.Time, error) {
	start, err := parseDay("start", startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDay("end", endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	if mode == scan.ModeBackfill {
		bfStart, err := parseDay("backfill-start", bfStartStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if !bfStart.IsZero() {
			start = bfStart
		}
		bfEnd, err := parseDay("backfill-end", bfEndStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if !bfEnd.IsZero() {
			end = bfEnd
		}
	}

	if end.IsZero() {
		now := time.Now().UTC()
		end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	if start.IsZero() {
		// Scan only needs the last trading day in the window; backfill
		// defaults to roughly a month of history.
		if mode == scan.ModeScan {
			start = end.AddDate(0, 0, -7)
		} else {
			start = end.AddDate(0, 0, -30)
		}
	}
	return start, end, nil
}

// main dispatches on --mode:
//   - scan:     evaluates the universe on the most recent trading day and writes a report.
//   - backfill: walks every trading day in the window, persisting breadth metrics per date.
//   - api:      serves the REST API over the persisted aggregate store.
func main() {
	ctx := context.Background()

	config.LoadConfig()
	logger.Init()

	mode := flag.String("mode", "scan", "Mode: scan, backfill or api")
	configDir := flag.String("config", "./configs", "Directory containing scan.yaml")
	providerName := flag.String("provider", provider.SourceEODHD, "Market data provider: eodhd or csvdir")
	noCache := flag.Bool("no-cache", false, "Bypass the bar cache and hit the provider directly")
	out := flag.String("out", "", "Report output path (default: under REPORT_DIR)")
	startStr := flag.String("start", "", "Window start date YYYY-MM-DD")
	endStr := flag.String("end", "", "Window end date YYYY-MM-DD (default: today)")
	bfStartStr := flag.String("backfill-start", "", "Backfill range start override YYYY-MM-DD")
	bfEndStr := flag.String("backfill-end", "", "Backfill range end override YYYY-MM-DD")
	workers := flag.Int("workers", 0, "Concurrent ticker fetches (0 = default)")
	force := flag.Bool("force", false, "Recompute dates even if already persisted (backfill)")
	intraday := flag.Bool("intraday", false, "Gate tickers on intraday bar coverage")
	interval := flag.String("interval", "", "Intraday interval override (e.g. 5m)")
	minBars := flag.Int("min-bars", 0, "Minimum intraday bars override")
	noHTML := flag.Bool("no-html", false, "Skip the HTML report rendering")
	port := flag.String("port", config.AppConfig.Server.Port, "Port for API mode")
	flag.Parse()

	switch *mode {
	case scan.ModeScan, scan.ModeBackfill:
		logger.L().Info().Str("mode", *mode).Msg("running scan engine")

		start, end, err := resolveWindow(*mode, *startStr, *endStr, *bfStartStr, *bfEndStr)
		if err == nil {
			err = runEngine(ctx, engineArgs{
				mode:         *mode,
				configDir:    *configDir,
				providerName: *providerName,
				out:          *out,
				start:        start,
				end:          end,
				workers:      *workers,
				force:        *force,
				noCache:      *noCache,
				intraday:     *intraday,
				interval:     *interval,
				minBars:      *minBars,
				noHTML:       *noHTML,
			})
		}
		if err != nil {
			if scanerr.IsConfig(err) {
				logger.L().Fatal().Err(err).Msg("invalid configuration")
			}
			logger.L().Fatal().Err(err).Msg("run failed")
		}

	case "api":
		logger.L().Info().Msg("starting api mode")

		router, cleanup, err := app.InitializeApp()
		if err != nil {
			logger.L().Fatal().Err(err).Msg("initialization failed")
		}

		server := startServer(router, *port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", *mode).Msg("unsupported mode")
	}
}
