package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/tmarsden/scanpulse/internal/middleware"
)

// NewRouter assembles the Gin engine for api mode: the shared
// middleware chain, a per-request timeout, the operational endpoints
// (swagger, prometheus), and the v1 read API over the aggregate store.
//
// The health probes are not mounted here; app.InitializeApp registers
// them because they need the live database handle.
func NewRouter(handler *Handler) *gin.Engine {
	router := gin.New()

	// ─── Middleware chain ─────────────────────────
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RecoveryMiddleware(),
		middleware.ErrorHandler,
		middleware.RateLimiter(60, time.Minute),
	)

	// ─── Per-request deadline ─────────────────────
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	// ─── Operational endpoints ────────────────────
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── Read API ─────────────────────────────────
	v1 := router.Group("/api/v1")
	{
		v1.GET("/aggregates", handler.GetAggregates)
		v1.GET("/storage", handler.GetStorage)
	}

	return router
}
