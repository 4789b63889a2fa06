package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spp-forecast/internal/model"
)

func params(lookback int) Params {
	return Params{TargetDate: "2026-02-10", Timezone: "America/Chicago", LookbackWeeks: lookback}
}

func TestWeeklyMedianRoundsToTwoPlaces(t *testing.T) {
	history := []model.SettlementPriceRecord{
		rec("2026-02-03", 1, 1, 10.111, false),
		rec("2026-01-27", 1, 1, 20.119, false),
		rec("2026-02-03", 1, 2, 30.001, false),
		rec("2026-01-27", 1, 2, 30.009, false),
	}

	out, err := WeeklyMedian(params(2), history)
	require.NoError(t, err)
	require.Len(t, out, model.SlotsPerDay)

	assert.Equal(t, model.ForecastPoint{Slot: 0, TS: "2026-02-10 00:00", Value: model.Float(15.12)}, out[0])
	assert.Equal(t, model.ForecastPoint{Slot: 1, TS: "2026-02-10 00:15", Value: model.Float(30.01)}, out[1])
	assert.Nil(t, out[2].Value)
}

func TestWeeklyMedianRespectsLookback(t *testing.T) {
	history := []model.SettlementPriceRecord{
		rec("2026-02-03", 1, 1, 10, false),
		rec("2026-01-27", 1, 1, 50, false),
	}

	out1, err := WeeklyMedian(params(1), history)
	require.NoError(t, err)
	out2, err := WeeklyMedian(params(2), history)
	require.NoError(t, err)

	assert.Equal(t, 10.0, *out1[0].Value)
	assert.Equal(t, 30.0, *out2[0].Value)
}

func TestWeeklyMedianIgnoresOtherWeekdays(t *testing.T) {
	history := []model.SettlementPriceRecord{
		rec("2026-02-09", 1, 1, 1000, false), // Monday, day before target
		rec("2026-02-03", 1, 1, 10, false),
		rec("2026-02-05", 1, 1, 2000, false),
		rec("2026-01-27", 1, 1, 20, false),
		rec("2026-01-20", 1, 1, 30, false),
	}

	out, err := WeeklyMedian(params(3), history)
	require.NoError(t, err)
	assert.Equal(t, 20.0, *out[0].Value)
}

func TestWeeklyMedianOddBucketAndDST(t *testing.T) {
	history := []model.SettlementPriceRecord{
		rec("2026-02-03", 2, 1, 5, true),
		rec("2026-02-03", 2, 1, 7, false),
		rec("2026-01-27", 2, 1, 9, false),
		rec("2026-01-20", 2, 1, 100, false),
	}

	out, err := WeeklyMedian(params(4), history)
	require.NoError(t, err)
	assert.Equal(t, 9.0, *out[SlotIndex(2, 1)].Value)
}

func TestWeeklyMedianEmptyHistory(t *testing.T) {
	out, err := WeeklyMedian(params(8), nil)
	require.NoError(t, err)
	require.Len(t, out, model.SlotsPerDay)
	for _, p := range out {
		assert.Nil(t, p.Value)
	}
}

func TestWeeklyMedianRejectsBadInput(t *testing.T) {
	_, err := WeeklyMedian(Params{TargetDate: "2026-02-10", Timezone: "America/Chicago"}, nil)
	assert.Error(t, err)

	_, err = WeeklyMedian(Params{TargetDate: "02/10/2026", Timezone: "America/Chicago", LookbackWeeks: 4}, nil)
	assert.Error(t, err)

	_, err = WeeklyMedian(Params{TargetDate: "2026-02-10", Timezone: "Nowhere/Land", LookbackWeeks: 4}, nil)
	assert.Error(t, err)
}
