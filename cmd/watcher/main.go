// Command watcher polls the hazard warning feed, ranks hazards by
// proximity to the tracked location, and serves alerts and coverage
// statistics over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/hazard-proximity-service/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/hazard-proximity-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/hazard-proximity-service/internal/adapter/kafka"
	"github.com/couchcryptid/hazard-proximity-service/internal/alerting"
	"github.com/couchcryptid/hazard-proximity-service/internal/config"
	"github.com/couchcryptid/hazard-proximity-service/internal/location"
	"github.com/couchcryptid/hazard-proximity-service/internal/observability"
	"github.com/couchcryptid/hazard-proximity-service/internal/poller"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	// Alert sink is feature-flagged via KAFKA_ALERTS_ENABLED.
	engineOpts := []alerting.Option{alerting.WithSettleDelay(cfg.SettleDelay)}
	var sink *kafkaadapter.Writer
	if cfg.KafkaAlertsEnabled {
		sink = kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, logger)
		engineOpts = append(engineOpts, alerting.WithSink(sink))
		logger.Info("kafka alert sink enabled", "topic", cfg.KafkaAlertsTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka alert sink disabled")
	}

	engine := alerting.New(logger, metrics, engineOpts...)
	tracker := location.NewTracker()
	client := feed.NewClient(cfg.FeedBaseURL, cfg.FetchTimeout, cfg.RetryDelay, logger)

	p := poller.New(client, engine, tracker, cfg.PollInterval, clockwork.NewRealClock(), logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, engine, p, engine, tracker, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start the poll loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("poller error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sink != nil {
		if err := sink.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
