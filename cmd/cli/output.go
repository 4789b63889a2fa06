package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"spp-forecast/internal/analysis"
	"spp-forecast/internal/model"
	"spp-forecast/internal/service"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true)
)

func price(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeHeader(w io.Writer, title string, m service.Meta) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintf(w, "%s %s  %s %s  %s %s\n",
		labelStyle.Render("date"), m.Date,
		labelStyle.Render("point"), m.SettlementPoint,
		labelStyle.Render("tz"), m.Timezone)
	fmt.Fprintf(w, "%s %s..%s (%d records)\n\n",
		labelStyle.Render("history"), m.History.From, m.History.To, m.HistoryRecords)
}

func writeProfile(w io.Writer, name string, p analysis.PriceProfile) {
	peak := "-"
	if p.PeakSlot != nil {
		peak = fmt.Sprintf("%d", *p.PeakSlot)
	}
	fmt.Fprintf(w, "%-10s n=%-3d min=%-8s mean=%-8s max=%-8s p05=%-8s p95=%-8s peak=%s\n",
		name, p.Count, price(p.Min), price(p.Mean), price(p.Max), price(p.P05), price(p.P95), peak)
}

func renderForecast(w io.Writer, r *service.ForecastResult) error {
	writeHeader(w, "Weekly-median forecast", r.Meta)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "slot\ttime\t4w\t8w\tdelta\t")
	for _, c := range r.Comparison {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", c.Slot, c.TS, price(c.Value4w), price(c.Value8w), price(c.Delta))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "avg delta %s  max |delta| %s  slots %d/%d\n",
		price(r.Summary.AvgDelta), price(r.Summary.MaxAbsDelta), r.Summary.NonNullCount, model.SlotsPerDay)
	writeProfile(w, "4w", r.Profile4w)
	writeProfile(w, "8w", r.Profile8w)
	return nil
}

func renderBacktest(w io.Writer, r *service.BacktestResult) error {
	writeHeader(w, "Backtest", r.Meta)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "variant\tMAE\tRMSE\tbias\tcoverage\t")
	for _, v := range []struct {
		name string
		m    model.AggregateMetrics
	}{
		{"4w", r.Metrics.Forecast4w},
		{"8w", r.Metrics.Forecast8w},
	} {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d/%d\t\n", v.name, price(v.m.MAE), price(v.m.RMSE), price(v.m.Bias), v.m.Coverage, model.SlotsPerDay)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "actual records %d\n", r.ActualRecords)
	writeProfile(w, "actual", r.ProfileActual)
	return nil
}
