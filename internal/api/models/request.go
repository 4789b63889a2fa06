package models

// PipelineQuery is the query string accepted by the forecast and backtest
// endpoints.
type PipelineQuery struct {
	Date            string `form:"date" binding:"required"`
	SettlementPoint string `form:"settlement_point" binding:"omitempty,max=64"`
}
