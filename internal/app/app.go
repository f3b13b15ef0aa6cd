package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/tmarsden/scanpulse/config"
	"github.com/tmarsden/scanpulse/internal/api"
	"github.com/tmarsden/scanpulse/internal/metrics"
	"github.com/tmarsden/scanpulse/internal/service"
	"github.com/tmarsden/scanpulse/internal/storage"
)

// InitializeApp wires api mode end to end: database pool, repository,
// usage reporter, query service, HTTP handler, router, health probes,
// and the Prometheus collectors. The returned cleanup releases what it
// opened and belongs in the caller's shutdown path.
//
// The only failure mode is an unreachable store; everything past the
// pool is plain construction.
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// postgresOpener is swapped out in tests.
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	repo := storage.NewAggregateRepository(db)

	// The usage reporter sizes the scan store through the repo and the
	// configured on-disk paths directly.
	usage := storage.NewUsageReporter(repo, cfg.Paths.OptionsStorePath, cfg.Paths.TaskLogDir)

	svc := service.NewScanQueryService(repo, usage)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	// Probes go on the root router because they need the live pool.
	api.NewHealthHandler(db.Ping).Register(router)

	metrics.Register()

	cleanup := func() {
		_ = db.Close()
	}

	return router, cleanup, nil
}
