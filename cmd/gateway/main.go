package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/api"
	"github.com/ayodele-o/outreach/internal/circuitbreaker"
	"github.com/ayodele-o/outreach/internal/config"
	"github.com/ayodele-o/outreach/internal/engine"
	"github.com/ayodele-o/outreach/internal/merge"
	"github.com/ayodele-o/outreach/internal/metrics"
	"github.com/ayodele-o/outreach/internal/observ"
	"github.com/ayodele-o/outreach/internal/redis"
	"github.com/ayodele-o/outreach/internal/store"
	"github.com/ayodele-o/outreach/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting outreach gateway",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	ctx := context.Background()
	st, err := store.NewPostgres(ctx, store.PostgresConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer st.Close()

	// Redis backs the per-campaign tick lease; without it, ticks still run
	// but callers own mutual exclusion.
	var lease *redis.TickLease
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, tick leases disabled", zap.Error(err))
	} else {
		lease = redis.NewTickLease(redisClient, 0, logger)
		defer redisClient.Close()
	}

	tr, err := buildTransport(ctx, cfg, logger)
	if err != nil {
		return err
	}

	eng := engine.New(st, tr, merge.NewMarkdown(), engine.Config{
		RatePerMin: cfg.RatePerMin,
		Links: merge.Links{
			OfferLink:          cfg.OfferLink,
			UnsubscribeBaseURL: cfg.UnsubscribeBaseURL,
		},
	}, logger)

	handler := api.NewHandler(logger, eng, st, lease)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Mount("/", handler.Routes())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}

// buildTransport selects the provider. Development environments log instead
// of sending; everything goes through the circuit breaker either way.
func buildTransport(ctx context.Context, cfg *config.Config, logger *zap.Logger) (transport.Transport, error) {
	var tr transport.Transport
	if cfg.Env == "production" {
		ses, err := transport.NewSES(ctx, transport.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.SESFromEmail,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SES transport: %w", err)
		}
		tr = ses
	} else {
		tr = transport.NewLog(logger)
	}

	breaker := circuitbreaker.New(circuitbreaker.Config{Name: "email"}, logger)
	return circuitbreaker.NewProtectedTransport(tr, breaker, logger), nil
}
