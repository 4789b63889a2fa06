package forecast

import (
	"math"

	"spp-forecast/internal/analysis"
	"spp-forecast/internal/model"
)

// BuildComparison aligns two forecasts by slot. Delta is value4w - value8w
// rounded to two places, nil when either side is missing.
func BuildComparison(f4w, f8w []model.ForecastPoint) []model.ComparisonPoint {
	out := make([]model.ComparisonPoint, len(f4w))
	for i, p4 := range f4w {
		var v8 *float64
		if i < len(f8w) {
			v8 = f8w[i].Value
		}
		cp := model.ComparisonPoint{Slot: p4.Slot, TS: p4.TS, Value4w: p4.Value, Value8w: v8}
		if p4.Value != nil && v8 != nil {
			cp.Delta = analysis.Round2Ptr(*p4.Value - *v8)
		}
		out[i] = cp
	}
	return out
}

// Summarize reports the mean and largest absolute delta over the points
// that have one.
func Summarize(points []model.ComparisonPoint) model.ComparisonSummary {
	var sum, maxAbs float64
	n := 0
	for _, p := range points {
		if p.Delta == nil {
			continue
		}
		n++
		sum += *p.Delta
		maxAbs = math.Max(maxAbs, math.Abs(*p.Delta))
	}
	if n == 0 {
		return model.ComparisonSummary{}
	}
	return model.ComparisonSummary{
		AvgDelta:     analysis.Round2Ptr(sum / float64(n)),
		MaxAbsDelta:  model.Float(maxAbs),
		NonNullCount: n,
	}
}
