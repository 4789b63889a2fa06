package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"spp-forecast/internal/api"
	"spp-forecast/internal/app"
	"spp-forecast/internal/config"
	"spp-forecast/internal/logging"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("SPP_CONFIG"), "Path to YAML config (optional)")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintf(os.Stderr, "spp-api: %v\n", err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	log, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.ERCOT.Username == "" || cfg.ERCOT.Password == "" || cfg.ERCOT.SubscriptionKey == "" {
		log.Warn().Msg("ERCOT credentials are incomplete; forecast and backtest requests will fail until they are set")
	}

	switch cfg.Server.Mode {
	case "production":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}
	router := api.NewRouter(api.Deps{
		Pipeline:     a.Service,
		Catalog:      a.Catalog,
		DefaultPoint: cfg.Forecast.SettlementPoint,
		CORSOrigins:  cfg.Server.CORSOrigins,
		Logger:       log.With().Str("component", "api").Logger(),
		HTTPObserver: a.Metrics,
		Gatherer:     reg,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("settlement_point", cfg.Forecast.SettlementPoint).
			Str("timezone", cfg.Forecast.Timezone).
			Str("page_cache", cfg.Cache.Backend).
			Msg("starting API server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
