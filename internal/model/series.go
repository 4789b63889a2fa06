package model

const (
	// SlotsPerDay is the number of 15-minute slots in a delivery day.
	SlotsPerDay = 96
	// IntervalMinutes is the width of one slot.
	IntervalMinutes = 15
)

// SlotPoint is one entry of a DailySlotSeries. Price and DST are nil when
// no record mapped to the slot.
type SlotPoint struct {
	Slot  int      `json:"slot"`
	TS    string   `json:"ts"`
	Price *float64 `json:"price"`
	DST   *bool    `json:"dst"`
}

// DailySlotSeries always holds SlotsPerDay points indexed 0..95.
type DailySlotSeries []SlotPoint

// Prices returns the price pointers in slot order.
func (s DailySlotSeries) Prices() []*float64 {
	out := make([]*float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

type ForecastPoint struct {
	Slot  int      `json:"slot"`
	TS    string   `json:"ts"`
	Value *float64 `json:"value"`
}

type ComparisonPoint struct {
	Slot    int      `json:"slot"`
	TS      string   `json:"ts"`
	Value4w *float64 `json:"value4w"`
	Value8w *float64 `json:"value8w"`
	Delta   *float64 `json:"delta"`
}

// ComparisonSummary aggregates the non-null deltas of a comparison.
type ComparisonSummary struct {
	AvgDelta     *float64 `json:"avgDelta"`
	MaxAbsDelta  *float64 `json:"maxAbsDelta"`
	NonNullCount int      `json:"nonNullCount"`
}

type BacktestIntervalRow struct {
	Slot       int      `json:"slot"`
	TS         string   `json:"ts"`
	Forecast4w *float64 `json:"forecast4w"`
	Forecast8w *float64 `json:"forecast8w"`
	Actual     *float64 `json:"actual"`
	Err4w      *float64 `json:"err4w"`
	Err8w      *float64 `json:"err8w"`
	AbsErr4w   *float64 `json:"absErr4w"`
	AbsErr8w   *float64 `json:"absErr8w"`
}

// AggregateMetrics holds accuracy metrics for one forecast variant.
// MAE, RMSE and Bias are nil when Coverage is zero.
type AggregateMetrics struct {
	MAE      *float64 `json:"mae"`
	RMSE     *float64 `json:"rmse"`
	Bias     *float64 `json:"bias"`
	Coverage int      `json:"coverage"`
}

// BacktestMetrics pairs the metrics of the short and long lookback variants.
type BacktestMetrics struct {
	Forecast4w AggregateMetrics `json:"forecast4w"`
	Forecast8w AggregateMetrics `json:"forecast8w"`
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
