package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"spp-forecast/internal/backtest"
	"spp-forecast/internal/service"
)

var (
	backtestDate string
	backtestCSV  string
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Score both forecasts against a past delivery day",
	Example: `  spp backtest --date 2026-02-09
  spp backtest --date 2026-02-09 --csv results/2026-02-09.csv`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&backtestDate, "date", "", "Past delivery date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestCSV, "csv", "", "Also write interval rows to this CSV path")
	_ = backtestCmd.MarkFlagRequired("date")
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	_, a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	point, err := validatePoint(a)
	if err != nil {
		return err
	}
	res, err := a.Service.Backtest(cmd.Context(), service.Request{Date: backtestDate, SettlementPoint: point})
	if err != nil {
		return describe(err)
	}

	if backtestCSV != "" {
		if err := os.MkdirAll(filepath.Dir(backtestCSV), 0o755); err != nil {
			return err
		}
		if err := backtest.WriteRowsCSV(backtestCSV, res.Rows); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to %s\n", len(res.Rows), backtestCSV)
	}
	if flags.json {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	return renderBacktest(cmd.OutOrStdout(), res)
}
