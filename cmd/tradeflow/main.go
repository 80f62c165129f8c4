// Command tradeflow runs the trading-lifecycle engine: it loads process
// settings and the per-symbol pair-config view, wires the exchange gateway,
// scheduler, executor, and position monitor together, and serves the
// webhook ingress and Prometheus metrics endpoints until an interrupt or
// SIGTERM asks it to shut down (spec.md §2, §5; SPEC_FULL.md §F.5).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"tradeflow/internal/cfg"
	"tradeflow/internal/common"
	"tradeflow/internal/exchange/bitunix"
	"tradeflow/internal/executor"
	"tradeflow/internal/ingress"
	"tradeflow/internal/metrics"
	"tradeflow/internal/monitor"
	"tradeflow/internal/scheduler"
)

func main() {
	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	gw := bitunix.NewClient(settings.APIKey, settings.APISecret, settings.BaseURL, settings.RESTTimeout)

	monitorInterval, err := time.ParseDuration(common.DefaultMonitorInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid built-in monitor interval constant")
	}
	monitors := monitor.NewManager(ctx, gw, monitorInterval).WithMetrics(m.Monitor())

	exec := executor.New(gw, monitors, settings).WithMetrics(m.Executor())

	sched := scheduler.New(ctx, exec, settings.QueueBacklog).WithMetrics(m.Scheduler())

	webhook := ingress.New(sched, settings).WithMetrics(m.Ingress())

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", settings.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		log.Info().Int("port", settings.MetricsPort).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	webhookSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", settings.HTTPPort),
		Handler: webhook.Router(),
	}
	go func() {
		log.Info().Int("port", settings.HTTPPort).Msg("webhook server listening")
		if err := webhookSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("webhook server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received, draining in-flight signals")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = webhookSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	sched.StopAll()
	monitors.StopAll()

	log.Info().Msg("shutdown complete")
}
