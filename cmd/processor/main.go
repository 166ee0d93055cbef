package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/hooklog/hooklog/internal/logging"
	natsclient "github.com/hooklog/hooklog/internal/messaging/nats"
	"github.com/hooklog/hooklog/internal/processor/config"
	"github.com/hooklog/hooklog/internal/processor/consumer"
	"github.com/hooklog/hooklog/internal/processor/dlq"
	"github.com/hooklog/hooklog/internal/processor/server"
	"github.com/hooklog/hooklog/internal/processor/service"
	"github.com/hooklog/hooklog/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("processor"))
	logging.SetDefault(logger)

	slog.Info("Starting processor service",
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)

	// Run DB migrations
	slog.Info("Running database migrations")
	m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
	if err != nil {
		slog.Error("Failed to initialize migrations", logging.Error(err))
		os.Exit(1)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		slog.Error("Failed to run migrations", logging.Error(err))
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Connect to the log store
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logStore, err := store.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to store: %v", err)
	}
	defer logStore.Close()
	slog.Info("Connected to log store")

	// Connect to the durable queue
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = "hooklog-processor"

	js, err := natsclient.NewJetStreamClient(natsCfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer js.Close()

	if _, err := js.CreateOrUpdateStream(ctx, natsclient.WebhookEventsStream); err != nil {
		log.Fatalf("Failed to ensure events stream: %v", err)
	}

	consumerCfg := natsclient.DefaultConsumerConfig(cfg.Consumer.Name, natsclient.SubjectEventReceived)
	consumerCfg.AckWait = cfg.Consumer.AckWait
	consumerCfg.MaxDeliver = cfg.Consumer.MaxDeliver
	consumerCfg.MaxAckPending = cfg.Consumer.MaxAckPending

	jsConsumer, err := js.CreateOrUpdateConsumer(ctx, natsclient.WebhookEventsStream.Name, consumerCfg)
	if err != nil {
		log.Fatalf("Failed to create consumer: %v", err)
	}
	slog.Info("Durable consumer ready",
		slog.String("stream", natsclient.WebhookEventsStream.Name),
		slog.String("consumer", cfg.Consumer.Name),
		slog.String("ack_wait", cfg.Consumer.AckWait.String()),
	)

	// Initialize Dead Letter Queue
	var dlqWriter dlq.Writer
	if cfg.DLQ.Enabled {
		jsDLQ, err := dlq.NewJetStreamQueue(ctx, js)
		if err != nil {
			log.Fatalf("Failed to initialize DLQ: %v", err)
		}
		dlqWriter = jsDLQ
		log.Printf("Dead Letter Queue enabled (stream: %s)", natsclient.WebhookDLQStream.Name)
	} else {
		log.Println("Dead Letter Queue disabled")
	}

	processor := service.NewProcessor(logStore, dlqWriter, logger)
	loop := consumer.New(jsConsumer, processor, cfg.Consumer.BatchSize, cfg.Consumer.FetchMaxWait, logger)

	// Health/metrics server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.NewRouter(logStore),
	}
	go func() {
		log.Printf("Processor health server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Run consumer loop
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down...")
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Consumer loop stopped: %v", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Health server forced to shutdown: %v", err)
	}

	// Let in-flight messages settle before closing the connection.
	if err := js.Drain(); err != nil {
		log.Printf("NATS drain failed: %v", err)
	}

	log.Println("Processor stopped")
}
