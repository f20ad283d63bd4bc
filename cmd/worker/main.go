package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Eric920418/Manpower-sub002/internal/app"
	"github.com/Eric920418/Manpower-sub002/internal/auth"
	"github.com/Eric920418/Manpower-sub002/internal/notify"
	"github.com/Eric920418/Manpower-sub002/internal/platform/cache"
	"github.com/Eric920418/Manpower-sub002/internal/platform/db"
	"github.com/Eric920418/Manpower-sub002/internal/reminders"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
	"github.com/Eric920418/Manpower-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	remindersRepo := reminders.NewRepository(pool)
	remindersService := reminders.NewService(logger, remindersRepo, cfg.ReminderInterval, time.Now)
	feed := notify.NewFeed(redisClient)
	sweepJob := jobs.NewReminderSweepJob(logger, remindersService, feed, notify.SystemClock())

	tokenIssuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenIssuer)
	idempotencyStore := shared.NewIdempotencyStore(pool)
	cleanupJob := jobs.NewSessionCleanupJob(logger, authService, idempotencyStore)

	sweepTask, err := jobs.NewReminderSweepTask(0)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewSessionCleanupTask(0)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReminderSweep, Handler: sweepJob.Handle},
			{Type: jobs.TaskSessionCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/10 * * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(2)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
