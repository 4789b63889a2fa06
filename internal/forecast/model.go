package forecast

import (
	"fmt"
	"math"

	"spp-forecast/internal/analysis"
	"spp-forecast/internal/calendar"
	"spp-forecast/internal/model"
)

// ModelName identifies the weekly-median model in results.
const ModelName = "weekly-median"

// Params selects the target day and lookback for WeeklyMedian.
type Params struct {
	TargetDate    string
	Timezone      string
	LookbackWeeks int
}

// WeeklyMedian forecasts each slot of the target date as the median price of
// that slot on the same weekday over the previous LookbackWeeks weeks.
// Values are rounded to two places; slots with no history are nil.
func WeeklyMedian(p Params, history []model.SettlementPriceRecord) ([]model.ForecastPoint, error) {
	if p.LookbackWeeks < 1 {
		return nil, fmt.Errorf("lookback weeks must be positive, got %d", p.LookbackWeeks)
	}
	loc, err := calendar.LoadZone(p.Timezone)
	if err != nil {
		return nil, err
	}
	target, err := calendar.ParseDate(p.TargetDate, loc)
	if err != nil {
		return nil, err
	}

	byDate := GroupByDate(history)
	buckets := make([][]float64, model.SlotsPerDay)

	for week := 1; week <= p.LookbackWeeks; week++ {
		candidate := calendar.WeeksBefore(target, week)
		if candidate.Weekday() != target.Weekday() {
			continue
		}
		date := calendar.Format(candidate)
		recs, ok := byDate[date]
		if !ok {
			continue
		}
		for _, pt := range To96SlotSeries(date, recs) {
			if pt.Price == nil || math.IsNaN(*pt.Price) || math.IsInf(*pt.Price, 0) {
				continue
			}
			buckets[pt.Slot] = append(buckets[pt.Slot], *pt.Price)
		}
	}

	out := make([]model.ForecastPoint, model.SlotsPerDay)
	for slot := range out {
		out[slot] = model.ForecastPoint{Slot: slot, TS: SlotLabel(p.TargetDate, slot)}
		if m, ok := analysis.Median(buckets[slot]); ok {
			out[slot].Value = model.Float(analysis.Round2(m))
		}
	}
	return out, nil
}
