package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"spp-forecast/internal/app"
	"spp-forecast/internal/config"
	"spp-forecast/internal/logging"
)

type globalFlags struct {
	configPath string
	point      string
	json       bool
	verbose    bool
}

var flags globalFlags

var rootCmd = &cobra.Command{
	Use:   "spp",
	Short: "Forecast and backtest ERCOT settlement point prices",
	Long: `spp fetches 15-minute settlement point prices from the ERCOT public API
and predicts a delivery day as the per-slot median of the same weekday over
the previous 4 and 8 weeks.

Credentials are read from ERCOT_USERNAME, ERCOT_PASSWORD and
ERCOT_SUBSCRIPTION_KEY.`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", os.Getenv("SPP_CONFIG"), "Path to YAML config (optional)")
	pf.StringVar(&flags.point, "point", "", "Settlement point (default from config)")
	pf.BoolVar(&flags.json, "json", false, "Print the full result as JSON")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Log upstream activity to stderr")

	rootCmd.AddCommand(forecastCmd, backtestCmd, pointsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// setup loads configuration and wires the service for one command.
func setup(ctx context.Context) (*config.Config, *app.App, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, nil, err
	}
	level := "warn"
	if flags.verbose {
		level = "debug"
	}
	log, err := logging.New(logging.Config{Level: level, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(ctx, cfg, log.With().Str("cmd", "spp").Logger(), nil)
	if err != nil {
		return nil, nil, err
	}
	return cfg, a, nil
}

// validatePoint rejects ids missing from the catalog.
func validatePoint(a *app.App) (string, error) {
	point := strings.ToUpper(strings.TrimSpace(flags.point))
	if point == "" {
		return "", nil
	}
	if _, ok := a.Catalog.Lookup(point); !ok {
		return "", fmt.Errorf("unknown settlement point %q (see `spp points`)", point)
	}
	return point, nil
}
