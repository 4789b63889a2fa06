// Package backtest scores weekly-median forecasts against the actual prices
// of a past delivery day.
package backtest

import (
	"math"

	"spp-forecast/internal/analysis"
	"spp-forecast/internal/model"
)

// BuildRows aligns both forecasts with the actual series by slot. Errors
// are forecast minus actual, rounded to two places, and nil whenever
// either operand is missing.
func BuildRows(f4w, f8w []model.ForecastPoint, actual model.DailySlotSeries) []model.BacktestIntervalRow {
	rows := make([]model.BacktestIntervalRow, len(f4w))
	for i, p4 := range f4w {
		var v8, act *float64
		if i < len(f8w) {
			v8 = f8w[i].Value
		}
		if i < len(actual) {
			act = actual[i].Price
		}

		row := model.BacktestIntervalRow{
			Slot:       p4.Slot,
			TS:         p4.TS,
			Forecast4w: p4.Value,
			Forecast8w: v8,
			Actual:     act,
		}
		row.Err4w, row.AbsErr4w = signedAndAbs(p4.Value, act)
		row.Err8w, row.AbsErr8w = signedAndAbs(v8, act)
		rows[i] = row
	}
	return rows
}

func signedAndAbs(forecast, actual *float64) (err, abs *float64) {
	if forecast == nil || actual == nil {
		return nil, nil
	}
	diff := *forecast - *actual
	return analysis.Round2Ptr(diff), analysis.Round2Ptr(math.Abs(diff))
}
