package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"promptforge/apps/backend/internal/app"
	"promptforge/apps/backend/internal/config"
	"promptforge/apps/backend/internal/events"
	"promptforge/apps/backend/internal/logger"
)

func main() {
	slogger := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(slogger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, slogger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.DB.Close()

	var nsqPub events.NSQPublisher
	if deps.NSQProducer != nil {
		nsqPub = deps.NSQProducer
	}

	a, err := app.New(cfg, deps.DB, deps.Redis, nsqPub)
	if err != nil {
		return err
	}

	// style_analysis is computed by the downstream analytics pipeline; the
	// queue only needs the type registered so dispatch succeeds.
	a.Registry.Register("style_analysis", styleAnalysis)

	logger.Info("promptforge backend configured",
		"worker_enabled", cfg.EnableWorker,
		"api_enabled", cfg.EnableAPI,
		"job_types", a.Registry.Types(),
	)

	return a.Run(ctx)
}

func styleAnalysis(ctx context.Context, payload json.RawMessage) error {
	var p struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode style_analysis payload: %w", err)
	}
	if p.UserID == "" {
		return fmt.Errorf("style_analysis payload missing userId")
	}
	slog.InfoContext(ctx, "style analysis requested", "user_id", p.UserID)
	return nil
}
