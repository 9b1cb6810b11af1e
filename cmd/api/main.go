package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amenityhub/internal/api"
	"amenityhub/internal/artifact"
	"amenityhub/internal/availability"
	"amenityhub/internal/broker"
	"amenityhub/internal/catalog"
	"amenityhub/internal/config"
	"amenityhub/internal/database"
	"amenityhub/internal/domain"
	"amenityhub/internal/events"
	"amenityhub/internal/export"
	"amenityhub/internal/logging"
	"amenityhub/internal/metrics"
	"amenityhub/internal/repository"
	"amenityhub/internal/service"
	"amenityhub/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(ctx, cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	cat := catalog.NewService(db, initResourceCache(cfg, redisClient, &logger), &logger)

	issuer, err := artifact.NewIssuer(cfg.Artifact.Secret, cfg.Artifact.Issuer)
	if err != nil {
		return fmt.Errorf("init artifact issuer: %w", err)
	}

	bus := events.NewEventBus()
	booking := service.NewBookingService(db, cat, issuer, availability.NewIndex(), bus, bookingOptions(cfg), &logger)
	queries := service.NewQueryService(db)

	if _, err := booking.Restore(ctx); err != nil {
		return fmt.Errorf("restore availability index: %w", err)
	}

	publisher := initPublisher(cfg, &logger)
	defer publisher.Close()

	relay := worker.NewRelayWorker(db, publisher, redisClient, worker.RetryPolicy{
		MaxRetries: cfg.Events.Relay.MaxRetries,
		Jitter:     cfg.Events.Relay.RetryJitter,
	}, cfg.Events.Relay.PollInterval, cfg.Events.Relay.BatchSize, logging.Component(&logger, "relay"))
	relay.Subscribe(bus)
	go relay.Start(ctx)

	go worker.NewExpiryWorker(booking, cfg.Booking.SweepInterval, &logger).Start(ctx)
	go database.NewBackupService(db, cfg.Database.Path, cfg.Backup, &logger).Start(ctx)

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.API, api.Deps{
		Booking:  booking,
		Queries:  queries,
		Catalog:  cat,
		Exporter: export.NewScheduleExporter(queries),
	}, &logger)

	return serve(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}
	if err := db.SeedResources(ctx, cfg.Resources); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("seed resources: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		_ = redisClient.Close()
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initResourceCache(cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) domain.ResourceCache {
	memory := repository.NewMemoryResourceCache(cfg.Cache.ResourceTTL)
	if redisClient == nil {
		return memory
	}
	primary := repository.NewRedisResourceCache(redisClient, cfg.Cache.ResourceTTL)
	return repository.NewFailoverResourceCache(primary, memory, logger)
}

func initPublisher(cfg *config.Config, logger *zerolog.Logger) broker.Publisher {
	var targets broker.Multi

	if len(cfg.Events.Kafka.Brokers) > 0 {
		kafkaPublisher, err := broker.NewKafkaPublisher(cfg.Events.Kafka, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("kafka publisher disabled")
		} else {
			targets = append(targets, kafkaPublisher)
		}
	}

	if cfg.Events.AMQP.URL != "" {
		amqpPublisher, err := broker.NewAMQPPublisher(cfg.Events.AMQP)
		if err != nil {
			logger.Warn().Err(err).Msg("amqp publisher disabled")
		} else {
			targets = append(targets, amqpPublisher)
		}
	}

	if len(targets) == 0 {
		return broker.NewLogPublisher(logging.Component(logger, "events"))
	}
	return targets
}

func bookingOptions(cfg *config.Config) service.BookingOptions {
	return service.BookingOptions{
		ConfirmationMode: cfg.Booking.ConfirmationMode,
		HoldWindow:       cfg.Booking.HoldWindow,
		CancelCutoff:     cfg.Booking.CancelCutoff,
		MaxDuration:      cfg.Booking.MaxDuration,
		MaxAdvance:       cfg.Booking.MaxAdvance,
		StorageTimeout:   cfg.Booking.StorageTimeout,
		SweepBatch:       cfg.Booking.SweepBatch,
		Managers:         cfg.Managers,
	}
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
