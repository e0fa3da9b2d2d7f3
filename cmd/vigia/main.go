package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/vigiapp/vigia/internal/adapter/http"
	kafkaadapter "github.com/vigiapp/vigia/internal/adapter/kafka"
	"github.com/vigiapp/vigia/internal/adapter/nominatim"
	"github.com/vigiapp/vigia/internal/adapter/postgres"
	"github.com/vigiapp/vigia/internal/config"
	"github.com/vigiapp/vigia/internal/geocode"
	"github.com/vigiapp/vigia/internal/ingest"
	"github.com/vigiapp/vigia/internal/observability"
	"github.com/vigiapp/vigia/internal/score"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	provider := nominatim.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderUserAgent, cfg.GeocoderTimeout, logger)
	gate := geocode.NewGate(cfg.GeocoderMinInterval, clock)
	geocoder := geocode.New(provider, gate, logger, metrics)

	var publisher ingest.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaIncidentsTopic, logger)
		publisher = kafkaPublisher
		logger.Info("incident publishing enabled", "topic", cfg.KafkaIncidentsTopic)
	} else {
		logger.Info("incident publishing disabled")
	}

	var sources []ingest.Source
	if cfg.SourceTableURL != "" {
		sources = append(sources, ingest.NewTableSource(cfg.SourceTableURL, cfg.SourceTimeout, logger))
	}
	if cfg.SourceCaptionURL != "" {
		sources = append(sources, ingest.NewCaptionSource(cfg.SourceCaptionURL, cfg.SourceTimeout, logger))
	}

	orchestrator := ingest.New(sources, geocoder, store, publisher, clock, logger, metrics)

	engine := score.NewEngine(
		score.NewAggregator(store, clock, metrics),
		score.NewComparator(store, clock),
		clock,
		logger,
		metrics,
	)

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, orchestrator, engine, store, logger)

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.IngestSchedule, func() {
		orchestrator.RunAll(ctx)
	}); err != nil {
		logger.Error("invalid ingest schedule", "schedule", cfg.IngestSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("vigia started",
		"sources", len(sources),
		"schedule", cfg.IngestSchedule,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
