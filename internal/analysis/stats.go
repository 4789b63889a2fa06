package analysis

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Median returns the median of vals, averaging the two central values when
// the count is even. ok is false for an empty input. vals is not modified.
func Median(vals []float64) (m float64, ok bool) {
	if len(vals) == 0 {
		return 0, false
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	lo := decimal.NewFromFloat(sorted[mid-1])
	hi := decimal.NewFromFloat(sorted[mid])
	return lo.Add(hi).Div(decimal.NewFromInt(2)).InexactFloat64(), true
}

// RoundTo rounds x to the given number of decimal places, with halves going
// toward positive infinity. The float is first taken at its shortest decimal
// representation, so 15.115 rounds to 15.12 rather than falling victim to
// binary representation error.
func RoundTo(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	d := decimal.NewFromFloat(x).Shift(places)
	return d.Add(decimal.NewFromFloat(0.5)).Floor().Shift(-places).InexactFloat64()
}

// Round2 is RoundTo(x, 2).
func Round2(x float64) float64 { return RoundTo(x, 2) }

// Round2Ptr rounds a non-nil value to two places.
func Round2Ptr(x float64) *float64 {
	v := Round2(x)
	return &v
}

// Values collects the finite, non-nil entries of a nullable series.
func Values(series []*float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		out = append(out, *v)
	}
	return out
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	// Linear interpolation between order stats.
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
