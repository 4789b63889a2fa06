package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"spp-forecast/internal/api/models"
	"spp-forecast/internal/ercot"
	"spp-forecast/internal/service"
)

// Pipeline runs forecasts and backtests. *service.Service implements it.
type Pipeline interface {
	Forecast(ctx context.Context, req service.Request) (*service.ForecastResult, error)
	Backtest(ctx context.Context, req service.Request) (*service.BacktestResult, error)
}

// PipelineHandler serves the forecast and backtest endpoints.
type PipelineHandler struct {
	pipeline Pipeline
	catalog  *ercot.Catalog
	log      zerolog.Logger
}

// NewPipelineHandler creates a handler. When catalog is nil any settlement
// point id is passed through to ERCOT.
func NewPipelineHandler(p Pipeline, catalog *ercot.Catalog, log zerolog.Logger) *PipelineHandler {
	return &PipelineHandler{pipeline: p, catalog: catalog, log: log}
}

// Forecast handles GET /api/v1/forecast
func (h *PipelineHandler) Forecast(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	res, err := h.pipeline.Forecast(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, CodeForecastFailed, err)
		return
	}
	c.JSON(http.StatusOK, models.NewForecastResponse(res))
}

// Backtest handles GET /api/v1/backtest
func (h *PipelineHandler) Backtest(c *gin.Context) {
	req, ok := h.bind(c)
	if !ok {
		return
	}
	res, err := h.pipeline.Backtest(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, CodeBacktestFailed, err)
		return
	}
	c.JSON(http.StatusOK, models.NewBacktestResponse(res))
}

func (h *PipelineHandler) bind(c *gin.Context) (service.Request, bool) {
	var q models.PipelineQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		code := CodeInvalidRequest
		hint := ""
		if strings.TrimSpace(c.Query("date")) == "" {
			code, hint = service.CodeInvalidDate, HintInvalidDate
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: code, Hint: hint, Message: err.Error()})
		return service.Request{}, false
	}

	point := strings.ToUpper(strings.TrimSpace(q.SettlementPoint))
	if point != "" && h.catalog != nil {
		if _, known := h.catalog.Lookup(point); !known {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   service.CodeUnknownPoint,
				Hint:    HintUnknownPoint,
				Message: "unknown settlement point " + point,
			})
			return service.Request{}, false
		}
	}
	return service.Request{Date: strings.TrimSpace(q.Date), SettlementPoint: point}, true
}
