// Package service runs the forecast and backtest pipelines: fetch history,
// normalize, forecast and aggregate.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"spp-forecast/internal/analysis"
	"spp-forecast/internal/backtest"
	"spp-forecast/internal/calendar"
	"spp-forecast/internal/forecast"
	"spp-forecast/internal/model"
)

// RangeFetcher returns every record of a range query.
type RangeFetcher interface {
	FetchRange(ctx context.Context, q model.RangeQuery) ([]model.SettlementPriceRecord, error)
}

// PipelineObserver is told how long each pipeline run took.
type PipelineObserver interface {
	ObservePipeline(pipeline, outcome string, d time.Duration)
}

// Options are the forecast parameters.
type Options struct {
	Timezone        string
	SettlementPoint string
	HistoryDays     int
	LookbackShort   int
	LookbackLong    int
	MaxDaysAhead    int
}

// DefaultOptions matches the public dashboard: HB_WEST in Central time, 56
// days of history, 4 and 8 week lookbacks, a week of selectable dates.
func DefaultOptions() Options {
	return Options{
		Timezone:        "America/Chicago",
		SettlementPoint: "HB_WEST",
		HistoryDays:     56,
		LookbackShort:   4,
		LookbackLong:    8,
		MaxDaysAhead:    6,
	}
}

// Service is safe for concurrent use.
type Service struct {
	fetcher  RangeFetcher
	opts     Options
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
	observer PipelineObserver
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithObserver(o PipelineObserver) Option {
	return func(s *Service) { s.observer = o }
}

func New(fetcher RangeFetcher, opts Options, options ...Option) (*Service, error) {
	if opts.HistoryDays < 7*opts.LookbackLong {
		return nil, fmt.Errorf("history_days %d does not cover a %d week lookback", opts.HistoryDays, opts.LookbackLong)
	}
	if opts.LookbackShort < 1 || opts.LookbackLong < opts.LookbackShort {
		return nil, fmt.Errorf("invalid lookbacks %d/%d", opts.LookbackShort, opts.LookbackLong)
	}
	loc, err := calendar.LoadZone(opts.Timezone)
	if err != nil {
		return nil, err
	}
	s := &Service{
		fetcher: fetcher,
		opts:    opts,
		loc:     loc,
		now:     time.Now,
		log:     zerolog.Nop(),
	}
	for _, o := range options {
		o(s)
	}
	return s, nil
}

// Options returns the parameters the service was built with.
func (s *Service) Options() Options { return s.opts }

// Request names the delivery date and, optionally, a settlement point other
// than the configured default.
type Request struct {
	Date            string
	SettlementPoint string
}

type VariantInfo struct {
	LookbackWeeks int `json:"lookbackWeeks"`
}

type ModelVariants struct {
	Forecast4w VariantInfo `json:"forecast4w"`
	Forecast8w VariantInfo `json:"forecast8w"`
}

// ModelInfo describes how a result was produced.
type ModelInfo struct {
	Name        string        `json:"name"`
	HistoryDays int           `json:"historyDays"`
	Variants    ModelVariants `json:"variants"`
}

// Window is an inclusive date range.
type Window struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Meta is shared by forecast and backtest results.
type Meta struct {
	Date            string    `json:"date"`
	SettlementPoint string    `json:"settlementPoint"`
	Timezone        string    `json:"timezone"`
	Model           ModelInfo `json:"model"`
	IntervalMinutes int       `json:"intervalMinutes"`
	Count           int       `json:"count"`
	History         Window    `json:"history"`
	HistoryRecords  int       `json:"historyRecords"`
}

type ForecastResult struct {
	Meta
	Forecast4w []model.ForecastPoint   `json:"forecast4w"`
	Forecast8w []model.ForecastPoint   `json:"forecast8w"`
	Comparison []model.ComparisonPoint `json:"comparison"`
	Summary    model.ComparisonSummary `json:"summary"`
	Profile4w  analysis.PriceProfile   `json:"profile4w"`
	Profile8w  analysis.PriceProfile   `json:"profile8w"`
}

type BacktestResult struct {
	Meta
	Rows          []model.BacktestIntervalRow `json:"rows"`
	Metrics       model.BacktestMetrics       `json:"metrics"`
	ActualRecords int                         `json:"actualRecords"`
	ProfileActual analysis.PriceProfile       `json:"profileActual"`
}

// Forecast predicts the requested day, which must lie within the selectable
// window starting today.
func (s *Service) Forecast(ctx context.Context, req Request) (res *ForecastResult, err error) {
	defer s.track("forecast", time.Now(), &err)

	target, point, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if !calendar.InSelectableWindow(target, now, s.loc, s.opts.MaxDaysAhead) {
		start, end := calendar.SelectableRange(now, s.loc, s.opts.MaxDaysAhead)
		return nil, &InputError{
			Code: CodeDateOutOfRange,
			Hint: fmt.Sprintf("Select a date from %s through %s", calendar.Format(start), calendar.Format(end)),
		}
	}

	meta, history, err := s.fetchHistory(ctx, target, point)
	if err != nil {
		return nil, err
	}
	f4, f8, err := s.forecasts(meta.Date, history)
	if err != nil {
		return nil, err
	}
	comparison := forecast.BuildComparison(f4, f8)
	meta.Count = len(comparison)

	s.log.Info().
		Str("date", meta.Date).
		Str("settlement_point", point).
		Int("history_records", len(history)).
		Msg("forecast computed")

	return &ForecastResult{
		Meta:       meta,
		Forecast4w: f4,
		Forecast8w: f8,
		Comparison: comparison,
		Summary:    forecast.Summarize(comparison),
		Profile4w:  analysis.ComputeProfile(forecastValues(f4)),
		Profile8w:  analysis.ComputeProfile(forecastValues(f8)),
	}, nil
}

// Backtest forecasts a past day from the history before it and scores the
// forecasts against what actually cleared.
func (s *Service) Backtest(ctx context.Context, req Request) (res *BacktestResult, err error) {
	defer s.track("backtest", time.Now(), &err)

	target, point, err := s.prepare(req)
	if err != nil {
		return nil, err
	}
	if !calendar.IsHistorical(target, s.now(), s.loc) {
		today := calendar.StartOfDay(s.now(), s.loc)
		return nil, &InputError{
			Code: CodeDateNotHistorical,
			Hint: fmt.Sprintf("Backtest date must be before %s", calendar.Format(today)),
		}
	}

	meta, history, err := s.fetchHistory(ctx, target, point)
	if err != nil {
		return nil, err
	}
	actualRecords, err := s.fetcher.FetchRange(ctx, model.RangeQuery{
		DeliveryDateFrom: meta.Date,
		DeliveryDateTo:   meta.Date,
		SettlementPoint:  point,
	})
	if err != nil {
		return nil, err
	}

	f4, f8, err := s.forecasts(meta.Date, history)
	if err != nil {
		return nil, err
	}
	actual := forecast.To96SlotSeries(meta.Date, actualRecords)
	rows := backtest.BuildRows(f4, f8, actual)
	metrics := backtest.ComputeMetrics(rows)
	meta.Count = len(rows)

	s.log.Info().
		Str("date", meta.Date).
		Str("settlement_point", point).
		Int("coverage_4w", metrics.Forecast4w.Coverage).
		Int("coverage_8w", metrics.Forecast8w.Coverage).
		Msg("backtest computed")

	return &BacktestResult{
		Meta:          meta,
		Rows:          rows,
		Metrics:       metrics,
		ActualRecords: len(actualRecords),
		ProfileActual: analysis.ComputeProfile(actual.Prices()),
	}, nil
}

func (s *Service) prepare(req Request) (time.Time, string, error) {
	target, err := calendar.ParseDate(req.Date, s.loc)
	if err != nil {
		return time.Time{}, "", &InputError{Code: CodeInvalidDate, Hint: "Use ?date=YYYY-MM-DD", Err: err}
	}
	point := req.SettlementPoint
	if point == "" {
		point = s.opts.SettlementPoint
	}
	return target, point, nil
}

func (s *Service) fetchHistory(ctx context.Context, target time.Time, point string) (Meta, []model.SettlementPriceRecord, error) {
	from, to := calendar.HistoryWindow(target, s.opts.HistoryDays)
	window := Window{From: calendar.Format(from), To: calendar.Format(to)}

	history, err := s.fetcher.FetchRange(ctx, model.RangeQuery{
		DeliveryDateFrom: window.From,
		DeliveryDateTo:   window.To,
		SettlementPoint:  point,
	})
	if err != nil {
		return Meta{}, nil, err
	}
	return Meta{
		Date:            calendar.Format(target),
		SettlementPoint: point,
		Timezone:        s.opts.Timezone,
		Model: ModelInfo{
			Name:        forecast.ModelName,
			HistoryDays: s.opts.HistoryDays,
			Variants: ModelVariants{
				Forecast4w: VariantInfo{LookbackWeeks: s.opts.LookbackShort},
				Forecast8w: VariantInfo{LookbackWeeks: s.opts.LookbackLong},
			},
		},
		IntervalMinutes: model.IntervalMinutes,
		History:         window,
		HistoryRecords:  len(history),
	}, history, nil
}

func (s *Service) forecasts(date string, history []model.SettlementPriceRecord) (f4, f8 []model.ForecastPoint, err error) {
	f4, err = forecast.WeeklyMedian(forecast.Params{TargetDate: date, Timezone: s.opts.Timezone, LookbackWeeks: s.opts.LookbackShort}, history)
	if err != nil {
		return nil, nil, err
	}
	f8, err = forecast.WeeklyMedian(forecast.Params{TargetDate: date, Timezone: s.opts.Timezone, LookbackWeeks: s.opts.LookbackLong}, history)
	if err != nil {
		return nil, nil, err
	}
	return f4, f8, nil
}

func (s *Service) track(pipeline string, started time.Time, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = "error"
		s.log.Warn().Err(*errp).Str("pipeline", pipeline).Msg("pipeline failed")
	}
	if s.observer != nil {
		s.observer.ObservePipeline(pipeline, outcome, time.Since(started))
	}
}

func forecastValues(points []model.ForecastPoint) []*float64 {
	out := make([]*float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
