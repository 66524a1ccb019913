// Copyright 2025 The SniffBot Authors
// SPDX-License-Identifier: Apache-2.0

// Command sniffbot runs the SniffBot code review agent: a JSON-RPC 2.0
// HTTP server plus the weekly Smell of the Week broadcast.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/telexintegrations/sniffbot"
	"github.com/telexintegrations/sniffbot/analysis"
	"github.com/telexintegrations/sniffbot/config"
	"github.com/telexintegrations/sniffbot/conversation"
	"github.com/telexintegrations/sniffbot/ratelimit"
	"github.com/telexintegrations/sniffbot/scheduler"
	"github.com/telexintegrations/sniffbot/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	os.Exit(run0())
}

func run0() int {
	// .env is a development convenience; production injects real env vars.
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(os.Getenv("LOG_LEVEL")),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		logger.Error("fatal error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.InfoContext(ctx, "sniffbot starting",
		slog.String("version", sniffbot.Version),
		slog.Int("port", cfg.Port),
		slog.String("model", cfg.GroqModel),
	)

	store := conversation.NewMemoryStore(cfg.ConversationTTL)
	defer store.Close(context.Background())

	limiter := ratelimit.NewSlidingWindow(cfg.RateLimitPerMinute)
	defer limiter.Close()

	analyzer, err := analysis.NewGroq(cfg.GroqAPIKey,
		analysis.WithModel(cfg.GroqModel),
		analysis.WithTimeout(cfg.AnalysisTimeout),
		analysis.WithMaxRetries(cfg.AnalysisMaxRetries),
		analysis.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	engine, err := server.NewEngine(server.EngineConfig{
		Store:     store,
		Limiter:   limiter,
		Analyzer:  analyzer,
		RateLimit: cfg.RateLimitPerMinute,
	}, server.WithEngineLogger(logger))
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	serverOpts := []server.Option{
		server.WithEndpoint(cfg.Endpoint),
		server.WithModel(analyzer.Model()),
		server.WithLogger(logger),
	}

	var weekly *scheduler.Weekly
	if cfg.WebhookURL != "" {
		signer, err := scheduler.NewSigner(cfg.WebhookSigningKID)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		publisher, err := scheduler.NewWebhookPublisher(cfg.WebhookURL, signer,
			scheduler.WithWebhookLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		weekly, err = scheduler.NewWeekly(publisher, scheduler.WithWeeklyLogger(logger))
		if err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		if err := weekly.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		serverOpts = append(serverOpts, server.WithScheduler(weekly))
	} else {
		logger.InfoContext(ctx, "weekly broadcast disabled: TELEX_WEBHOOK_URL is not set")
	}

	srv, err := server.New(engine, serverOpts...)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      srv,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gctx, "listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		if weekly != nil {
			if err := weekly.Stop(shutdownCtx); err != nil {
				logger.Warn("scheduler shutdown", slog.String("error", err.Error()))
			}
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
