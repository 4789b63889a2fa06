package main

import (
	"github.com/spf13/cobra"

	"spp-forecast/internal/service"
)

var forecastDate string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Forecast one delivery day from today through the selectable window",
	Example: `  spp forecast --date 2026-02-11
  spp forecast --date 2026-02-11 --point LZ_HOUSTON --json`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastDate, "date", "", "Delivery date (YYYY-MM-DD)")
	_ = forecastCmd.MarkFlagRequired("date")
}

func runForecast(cmd *cobra.Command, _ []string) error {
	_, a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	point, err := validatePoint(a)
	if err != nil {
		return err
	}
	res, err := a.Service.Forecast(cmd.Context(), service.Request{Date: forecastDate, SettlementPoint: point})
	if err != nil {
		return describe(err)
	}
	if flags.json {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return renderForecast(cmd.OutOrStdout(), res)
}
