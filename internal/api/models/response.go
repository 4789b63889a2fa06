package models

import (
	"spp-forecast/internal/analysis"
	"spp-forecast/internal/model"
	"spp-forecast/internal/service"
)

// ErrorResponse is the body of every failed request. Error carries a stable
// machine-readable code; Hint is a short suggestion for the user.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Hint    string `json:"hint,omitempty"`
	Message string `json:"message,omitempty"`
}

// ForecastResponse represents the response from a forecast run. Forecast
// repeats Forecast4w for clients that only chart one line.
type ForecastResponse struct {
	OK bool `json:"ok"`
	service.Meta
	Forecast   []model.ForecastPoint   `json:"forecast"`
	Forecast4w []model.ForecastPoint   `json:"forecast4w"`
	Forecast8w []model.ForecastPoint   `json:"forecast8w"`
	Comparison []model.ComparisonPoint `json:"comparison"`
	Summary    model.ComparisonSummary `json:"summary"`
	Profile4w  analysis.PriceProfile   `json:"profile4w"`
	Profile8w  analysis.PriceProfile   `json:"profile8w"`
}

func NewForecastResponse(r *service.ForecastResult) ForecastResponse {
	return ForecastResponse{
		OK:         true,
		Meta:       r.Meta,
		Forecast:   r.Forecast4w,
		Forecast4w: r.Forecast4w,
		Forecast8w: r.Forecast8w,
		Comparison: r.Comparison,
		Summary:    r.Summary,
		Profile4w:  r.Profile4w,
		Profile8w:  r.Profile8w,
	}
}

// BacktestMetrics flattens the per-variant metrics into one object.
type BacktestMetrics struct {
	MAE4w      *float64 `json:"mae4w"`
	MAE8w      *float64 `json:"mae8w"`
	RMSE4w     *float64 `json:"rmse4w"`
	RMSE8w     *float64 `json:"rmse8w"`
	Bias4w     *float64 `json:"bias4w"`
	Bias8w     *float64 `json:"bias8w"`
	Coverage4w int      `json:"coverage4w"`
	Coverage8w int      `json:"coverage8w"`
}

func flattenMetrics(m model.BacktestMetrics) BacktestMetrics {
	return BacktestMetrics{
		MAE4w:      m.Forecast4w.MAE,
		MAE8w:      m.Forecast8w.MAE,
		RMSE4w:     m.Forecast4w.RMSE,
		RMSE8w:     m.Forecast8w.RMSE,
		Bias4w:     m.Forecast4w.Bias,
		Bias8w:     m.Forecast8w.Bias,
		Coverage4w: m.Forecast4w.Coverage,
		Coverage8w: m.Forecast8w.Coverage,
	}
}

// BacktestResponse represents the response from a backtest run.
type BacktestResponse struct {
	OK bool `json:"ok"`
	service.Meta
	Rows          []model.BacktestIntervalRow `json:"rows"`
	Metrics       BacktestMetrics             `json:"metrics"`
	ActualRecords int                         `json:"actualRecords"`
	ProfileActual analysis.PriceProfile       `json:"profileActual"`
}

func NewBacktestResponse(r *service.BacktestResult) BacktestResponse {
	return BacktestResponse{
		OK:            true,
		Meta:          r.Meta,
		Rows:          r.Rows,
		Metrics:       flattenMetrics(r.Metrics),
		ActualRecords: r.ActualRecords,
		ProfileActual: r.ProfileActual,
	}
}

// SettlementPointInfo represents settlement point information for API responses
type SettlementPointInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type SettlementPointsResponse struct {
	OK               bool                  `json:"ok"`
	SettlementPoints []SettlementPointInfo `json:"settlementPoints"`
	Default          string                `json:"default"`
	UpdatedAt        string                `json:"updatedAt,omitempty"`
	Count            int                   `json:"count"`
}
