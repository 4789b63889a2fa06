package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"spp-forecast/internal/api/middleware"
	"spp-forecast/internal/api/models"
	"spp-forecast/internal/ercot"
	"spp-forecast/internal/fetch"
	"spp-forecast/internal/service"
)

// Error codes and hints returned by the pipeline endpoints.
const (
	CodeRateLimited     = fetch.CodeRateLimited
	CodeUpstreamError   = "UPSTREAM_ERROR"
	CodeCanceled        = "REQUEST_CANCELED"
	CodeNotConfigured   = "UPSTREAM_NOT_CONFIGURED"
	CodeForecastFailed  = "FORECAST_FAILED"
	CodeBacktestFailed  = "BACKTEST_FAILED"
	CodeInvalidRequest  = "INVALID_REQUEST"
	HintRateLimited     = "ERCOT API rate limit hit. Retry shortly."
	HintInvalidDate     = "Use ?date=YYYY-MM-DD"
	HintNotConfigured   = "Set ERCOT_USERNAME, ERCOT_PASSWORD and ERCOT_SUBSCRIPTION_KEY."
	HintUnknownPoint    = "See /api/v1/settlement-points for supported ids."
	hintUpstreamFailure = "ERCOT API request failed. Retry later."
)

// classify maps a pipeline error onto an HTTP status and error body.
// fallback is the code used for failures no other rule claims.
func classify(err error, fallback string) (int, models.ErrorResponse) {
	body := models.ErrorResponse{Message: err.Error()}

	var input *service.InputError
	var status *fetch.StatusError
	var transport *fetch.TransportError
	switch {
	case errors.As(err, &input):
		body.Error, body.Hint = input.Code, input.Hint
		return http.StatusBadRequest, body
	case errors.Is(err, fetch.ErrCanceled), errors.Is(err, context.Canceled):
		body.Error = CodeCanceled
		return http.StatusServiceUnavailable, body
	case ercot.IsRateLimited(err):
		body.Error, body.Hint = CodeRateLimited, HintRateLimited
		return http.StatusServiceUnavailable, body
	case errors.Is(err, ercot.ErrConfiguration):
		body.Error, body.Hint = CodeNotConfigured, HintNotConfigured
		return http.StatusInternalServerError, body
	case errors.Is(err, ercot.ErrSchema):
		body.Error = fallback
		return http.StatusInternalServerError, body
	case errors.As(err, &status), errors.As(err, &transport):
		body.Error, body.Hint = CodeUpstreamError, hintUpstreamFailure
		return http.StatusBadGateway, body
	default:
		body.Error = fallback
		return http.StatusInternalServerError, body
	}
}

func respondError(c *gin.Context, log zerolog.Logger, fallback string, err error) {
	code, body := classify(err, fallback)
	ev := log.Warn()
	if code >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Str("request_id", middleware.RequestIDFrom(c)).
		Str("code", body.Error).
		Int("status", code).
		Msg("request failed")
	c.JSON(code, body)
}
