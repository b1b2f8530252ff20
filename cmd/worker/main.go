// The worker ticks every running campaign on a fixed cadence. The engine
// performs no internal scheduling; this loop is the periodic trigger.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ayodele-o/outreach/internal/circuitbreaker"
	"github.com/ayodele-o/outreach/internal/config"
	"github.com/ayodele-o/outreach/internal/engine"
	"github.com/ayodele-o/outreach/internal/merge"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var tr transport.Transport
	if cfg.Env == "production" {
		tr, err = transport.NewSES(ctx, transport.SESConfig{
			Region:    cfg.AWSRegion,
			FromEmail: cfg.SESFromEmail,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create SES transport: %w", err)
		}
	} else {
		tr = transport.NewLog(logger)
	}
	breaker := circuitbreaker.New(circuitbreaker.Config{Name: "email"}, logger)
	tr = circuitbreaker.NewProtectedTransport(tr, breaker, logger)

	eng := engine.New(st, tr, merge.NewMarkdown(), engine.Config{
		RatePerMin: cfg.RatePerMin,
		Links: merge.Links{
			OfferLink:          cfg.OfferLink,
			UnsubscribeBaseURL: cfg.UnsubscribeBaseURL,
		},
	}, logger)

	interval := time.Duration(cfg.TickInterval) * time.Second
	logger.Info("worker started", zap.Duration("interval", interval))

	go func() {
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdown
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("worker stopping")
			return nil
		case <-ticker.C:
			tickAll(ctx, st, eng, lease, logger)
		}
	}
}

// tickAll runs one engine tick for every running campaign, skipping any
// whose lease is held by another ticker.
func tickAll(ctx context.Context, st store.Store, eng *engine.Engine, lease *redis.TickLease, logger *zap.Logger) {
	campaigns, err := st.ListRunningCampaigns(ctx)
	if err != nil {
		logger.Error("failed to list running campaigns", zap.Error(err))
		return
	}

	for _, c := range campaigns {
		if lease != nil {
			ok, err := lease.Acquire(ctx, c.ID)
			if err != nil {
				logger.Warn("tick lease check failed, skipping campaign",
					zap.String("campaign_id", c.ID),
					zap.Error(err),
				)
				continue
			}
			if !ok {
				continue
			}
		}

		result := eng.Tick(ctx, c.ID)
		if len(result.Errors) > 0 {
			logger.Warn("tick reported errors",
				zap.String("campaign_id", c.ID),
				zap.Strings("errors", result.Errors),
			)
		}

		if lease != nil {
			lease.Release(ctx, c.ID)
		}
	}
}
