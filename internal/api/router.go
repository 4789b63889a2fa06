package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"spp-forecast/internal/api/handlers"
	"spp-forecast/internal/api/middleware"
	"spp-forecast/internal/api/models"
	"spp-forecast/internal/ercot"
)

// Deps holds everything the router serves.
type Deps struct {
	Pipeline     handlers.Pipeline
	Catalog      *ercot.Catalog
	DefaultPoint string
	CORSOrigins  []string
	Logger       zerolog.Logger
	// Optional. Requests are not observed when nil.
	HTTPObserver middleware.HTTPObserver
	// Optional. /metrics is not mounted when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(d.Logger, d.HTTPObserver))
	router.Use(middleware.ErrorHandler(d.Logger))
	router.Use(middleware.CORS(d.CORSOrigins))

	pipelineHandler := handlers.NewPipelineHandler(d.Pipeline, d.Catalog, d.Logger)
	pointsHandler := handlers.NewSettlementPointsHandler(d.Catalog, d.DefaultPoint)

	router.GET("/health", handlers.Health)
	if d.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/forecast", pipelineHandler.Forecast)
		api.GET("/backtest", pipelineHandler.Backtest)
		api.GET("/settlement-points", pointsHandler.List)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "NOT_FOUND", Message: "no route for " + c.Request.URL.Path})
	})
	return router
}
