// Package forecast turns raw interval records into 96-slot daily series and
// derives weekly-median forecasts from them.
package forecast

import (
	"fmt"

	"spp-forecast/internal/model"
)

// SlotIndex maps a 1-based delivery hour and interval onto 0..95. Inputs
// outside 1..24 and 1..4 give an index outside that range.
func SlotIndex(hour, interval int) int {
	return (hour-1)*4 + (interval - 1)
}

// SlotLabel formats the local start time of slot on date as
// "YYYY-MM-DD HH:MM".
func SlotLabel(date string, slot int) string {
	minutes := slot * model.IntervalMinutes
	return fmt.Sprintf("%s %02d:%02d", date, minutes/60, minutes%60)
}

// To96SlotSeries builds the canonical series for date. Records for other
// dates or with out-of-range hour/interval are ignored. When several
// records share a slot, a standard-time record (DSTFlag false) replaces a
// fallback-hour one; otherwise a record with the same flag replaces the
// earlier one, so the last of those in input order is kept.
func To96SlotSeries(date string, records []model.SettlementPriceRecord) model.DailySlotSeries {
	series := make(model.DailySlotSeries, model.SlotsPerDay)
	for slot := range series {
		series[slot] = model.SlotPoint{Slot: slot, TS: SlotLabel(date, slot)}
	}

	for _, rec := range records {
		if rec.DeliveryDate != date {
			continue
		}
		slot := SlotIndex(rec.DeliveryHour, rec.DeliveryInterval)
		if slot < 0 || slot >= model.SlotsPerDay {
			continue
		}

		cur := &series[slot]
		if cur.Price != nil && !*cur.DST && rec.DSTFlag {
			continue
		}
		cur.Price = model.Float(rec.Price)
		cur.DST = model.Bool(rec.DSTFlag)
	}
	return series
}

// GroupByDate splits records by delivery date, keeping input order within
// each date.
func GroupByDate(records []model.SettlementPriceRecord) map[string][]model.SettlementPriceRecord {
	out := map[string][]model.SettlementPriceRecord{}
	for _, rec := range records {
		out[rec.DeliveryDate] = append(out[rec.DeliveryDate], rec)
	}
	return out
}
