package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"promptforge/apps/backend/features/achievement"
	"promptforge/apps/backend/features/activity"
	"promptforge/apps/backend/features/metering"
	"promptforge/apps/backend/features/prompt"
	"promptforge/apps/backend/features/queue"
	"promptforge/apps/backend/features/stats"
	"promptforge/apps/backend/internal/admission"
	"promptforge/apps/backend/internal/backoff"
	"promptforge/apps/backend/internal/cache"
	"promptforge/apps/backend/internal/config"
	"promptforge/apps/backend/internal/events"
	"promptforge/apps/backend/internal/middleware"
	"promptforge/apps/backend/internal/ratelimit"
	"promptforge/apps/backend/internal/worker"
)

type App struct {
	Handler  http.Handler
	Worker   *worker.Worker
	Registry *queue.Registry

	cfg *config.Config
}

func New(cfg *config.Config, db *sql.DB, redisClient *redis.Client, nsqPub events.NSQPublisher) (*App, error) {
	publisher := events.NewPublisher(nsqPub)

	// Feature: Queue
	queueRepo := queue.NewPostgresRepo(db)
	queueService := queue.NewService(queueRepo, publisher)
	queueHandler := queue.NewHandler(queueService)

	registry := queue.NewRegistry()

	var strategy backoff.Strategy
	switch cfg.RetryBackoffStrategy {
	case "exponential":
		strategy = backoff.NewExponential(cfg.RetryBackoff(), 10*time.Minute)
	default:
		strategy = backoff.NewConstant(cfg.RetryBackoff())
	}

	dispatcher := queue.NewDispatcher(registry, queueRepo, strategy, cfg.JobMaxAttempts, publisher)
	pollWorker := worker.New(queueRepo, dispatcher, cfg.JobLease(), cfg.WorkerInterval())
	workerHandler := worker.NewHandler(pollWorker)

	// Feature: Metering
	meteringRepo := metering.NewPostgresRepo(db)
	meteringService := metering.NewService(meteringRepo)
	meteringHandler := metering.NewHandler(meteringService)

	// Rate limiting & admission
	limiter := ratelimit.New(redisClient, []ratelimit.Tier{
		{Name: "guest", Quota: int64(cfg.GuestQuota), Window: time.Duration(cfg.GuestWindowSeconds) * time.Second},
		{Name: "free", Quota: int64(cfg.FreeQuota), Window: time.Duration(cfg.FreeWindowSeconds) * time.Second},
		{Name: "pro", Quota: int64(cfg.ProQuota), Window: time.Duration(cfg.ProWindowSeconds) * time.Second},
	})
	gate := admission.NewGate(limiter, meteringService)

	// Feature: Prompt
	promptRepo := prompt.NewPostgresRepo(db)
	templateCache := cache.New[*prompt.Template](cfg.TemplateCacheTTL(), nil)
	promptService := prompt.NewService(promptRepo, gate, queueService, templateCache, cfg.GenerateCost)
	promptHandler := prompt.NewHandler(promptService, nil)

	// Feature: Activity & Achievements (registered job handlers)
	activityRepo := activity.NewPostgresRepo(db)
	achievementRepo := achievement.NewPostgresRepo(db)
	registry.Register(activity.JobType, activity.NewJobHandler(activityRepo))
	registry.Register(achievement.JobType, achievement.NewJobHandler(achievementRepo, activityRepo))

	statsHandler := stats.NewHandler(queueRepo)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /prompts/generate", middleware.CorrelationID(enableCORS(promptHandler.Generate)))
	mux.Handle("POST /templates", middleware.CorrelationID(enableCORS(promptHandler.CreateTemplate)))

	mux.Handle("GET /jobs", middleware.CorrelationID(enableCORS(queueHandler.List)))
	mux.Handle("GET /jobs/{id}", middleware.CorrelationID(enableCORS(queueHandler.Get)))
	mux.Handle("POST /worker/poll", middleware.CorrelationID(enableCORS(workerHandler.Poll)))

	mux.Handle("GET /users/{id}/balance", middleware.CorrelationID(enableCORS(meteringHandler.GetBalance)))
	mux.Handle("POST /users/{id}/credits", middleware.CorrelationID(enableCORS(meteringHandler.GrantCredits)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:  mux,
		Worker:   pollWorker,
		Registry: registry,
		cfg:      cfg,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	if a.cfg.EnableWorker {
		go a.Worker.Run(ctx)
	}
	if !a.cfg.EnableAPI {
		<-ctx.Done()
		return ctx.Err()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
