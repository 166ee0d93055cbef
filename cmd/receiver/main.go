package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hooklog/hooklog/internal/logging"
	natsclient "github.com/hooklog/hooklog/internal/messaging/nats"
	"github.com/hooklog/hooklog/internal/receiver/config"
	"github.com/hooklog/hooklog/internal/receiver/handlers"
	"github.com/hooklog/hooklog/internal/receiver/queue"
	"github.com/hooklog/hooklog/internal/receiver/ratelimit"
	"github.com/hooklog/hooklog/internal/receiver/server"
	"github.com/hooklog/hooklog/internal/receiver/service"
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
	).With(logging.Service("receiver"))
	logging.SetDefault(logger)

	slog.Info("Starting receiver service",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)

	// The shared secret is resolved once at startup; rotation is a restart.
	secret, err := cfg.ResolveSecret()
	if err != nil {
		log.Fatalf("Failed to resolve webhook secret: %v", err)
	}

	// Initialize rate limiter
	var rateLimiter ratelimit.RateLimiter
	if cfg.Redis.Enabled && cfg.Redis.RateLimitEnabled {
		limiter, err := ratelimit.NewRedisRateLimiter(
			cfg.Redis.URL,
			cfg.Redis.RateLimitRequests,
			cfg.Redis.RateLimitWindow,
		)
		if err != nil {
			log.Printf("WARNING: Failed to initialize Redis rate limiter: %v", err)
			log.Println("Continuing without rate limiting")
			rateLimiter = &ratelimit.NoOpRateLimiter{}
		} else {
			rateLimiter = limiter
			log.Printf("Rate limiting enabled: %d requests per %s", cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow)
		}
	} else {
		rateLimiter = &ratelimit.NoOpRateLimiter{}
		log.Println("Rate limiting disabled")
	}
	defer rateLimiter.Close()

	// Connect to the durable queue
	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = "hooklog-receiver"

	js, err := natsclient.NewJetStreamClient(natsCfg)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer js.Close()

	publisher, err := queue.NewPublisher(context.Background(), js, cfg.NATS.PublishTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize queue publisher: %v", err)
	}
	slog.Info("Durable queue ready",
		logging.Subject(natsclient.SubjectEventReceived),
		slog.String("nats_url", cfg.NATS.URL),
	)

	ingestService := service.New(secret, publisher, logger)
	handler := handlers.NewWebhookHandler(ingestService, rateLimiter, cfg.Webhook.MaxBodySize)
	router := server.NewRouter(handler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Printf("Receiver service listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
