package backtest

import (
	"math"

	"spp-forecast/internal/analysis"
	"spp-forecast/internal/model"
)

type accumulator struct {
	n                  int
	sum, absSum, sqSum float64
}

func (a *accumulator) add(err, abs *float64) {
	if err == nil || abs == nil {
		return
	}
	a.n++
	a.sum += *err
	a.absSum += *abs
	a.sqSum += *err * *err
}

func (a *accumulator) metrics() model.AggregateMetrics {
	if a.n == 0 {
		return model.AggregateMetrics{}
	}
	n := float64(a.n)
	return model.AggregateMetrics{
		MAE:      analysis.Round2Ptr(a.absSum / n),
		RMSE:     analysis.Round2Ptr(math.Sqrt(a.sqSum / n)),
		Bias:     analysis.Round2Ptr(a.sum / n),
		Coverage: a.n,
	}
}

// ComputeMetrics aggregates the rounded per-slot errors of each variant
// over the slots where that variant has an error.
func ComputeMetrics(rows []model.BacktestIntervalRow) model.BacktestMetrics {
	var a4, a8 accumulator
	for _, r := range rows {
		a4.add(r.Err4w, r.AbsErr4w)
		a8.add(r.Err8w, r.AbsErr8w)
	}
	return model.BacktestMetrics{Forecast4w: a4.metrics(), Forecast8w: a8.metrics()}
}
