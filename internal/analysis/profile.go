package analysis

import (
	"math"
	"sort"
)

// PriceProfile summarizes the non-null values of a 96-slot series.
// All statistics are rounded to two places; they are nil when Count is zero.
type PriceProfile struct {
	Count    int      `json:"count"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
	Mean     *float64 `json:"mean"`
	P05      *float64 `json:"p05"`
	P95      *float64 `json:"p95"`
	PeakSlot *int     `json:"peakSlot"`
}

// ComputeProfile builds a PriceProfile. PeakSlot is the first slot holding Max.
func ComputeProfile(series []*float64) PriceProfile {
	vals := Values(series)
	p := PriceProfile{Count: len(vals)}
	if len(vals) == 0 {
		return p
	}

	sum := 0.0
	minv := math.Inf(1)
	maxv := math.Inf(-1)
	for _, v := range vals {
		sum += v
		minv = math.Min(minv, v)
		maxv = math.Max(maxv, v)
	}
	for slot, v := range series {
		if v != nil && *v == maxv {
			s := slot
			p.PeakSlot = &s
			break
		}
	}

	sort.Float64s(vals)
	p.Min = Round2Ptr(minv)
	p.Max = Round2Ptr(maxv)
	p.Mean = Round2Ptr(sum / float64(len(vals)))
	p.P05 = Round2Ptr(percentileSorted(vals, 0.05))
	p.P95 = Round2Ptr(percentileSorted(vals, 0.95))
	return p
}
