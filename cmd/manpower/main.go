package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Eric920418/Manpower-sub002/internal/api"
	"github.com/Eric920418/Manpower-sub002/internal/app"
	"github.com/Eric920418/Manpower-sub002/internal/auth"
	"github.com/Eric920418/Manpower-sub002/internal/content"
	"github.com/Eric920418/Manpower-sub002/internal/notify"
	"github.com/Eric920418/Manpower-sub002/internal/observability"
	"github.com/Eric920418/Manpower-sub002/internal/platform/cache"
	"github.com/Eric920418/Manpower-sub002/internal/platform/db"
	"github.com/Eric920418/Manpower-sub002/internal/rbac"
	"github.com/Eric920418/Manpower-sub002/internal/reminders"
	"github.com/Eric920418/Manpower-sub002/internal/shared"
	"github.com/Eric920418/Manpower-sub002/internal/tasks"
	"github.com/Eric920418/Manpower-sub002/internal/uploads"
	"github.com/Eric920418/Manpower-sub002/internal/users"
	"github.com/Eric920418/Manpower-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
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

	sessionManager := shared.NewSessionManager(redisClient, "manpower_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	resolver := rbac.NewResolver(rbac.DefaultTable())

	usersRepo := users.NewRepository(pool)
	staffCache := users.NewStaffCache(cfg.StaffCacheTTL, time.Now)
	usersService := users.NewService(usersRepo, resolver, staffCache)

	guard := rbac.Middleware{
		Resolver:   resolver,
		Principals: usersService,
		Logger:     logger,
		LoginPath:  cfg.AdminLoginPath,
	}

	tokenIssuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokenIssuer)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	tasksRepo := tasks.NewRepository(pool)
	tasksService := tasks.NewService(tasksRepo, resolver, usersService)
	tasksHandler := tasks.NewHandler(logger, tasksService, guard)

	remindersRepo := reminders.NewRepository(pool)
	remindersService := reminders.NewService(logger, remindersRepo, cfg.ReminderInterval, time.Now)
	remindersHandler := reminders.NewHandler(logger, remindersService, guard)

	contentRepo := content.NewRepository(pool)
	contentCache := content.NewCache(redisClient, 10*time.Minute)
	contentService := content.NewService(contentRepo, contentCache)
	contentHandler := content.NewHandler(logger, contentService, guard)

	uploadStorage, err := uploads.NewDiskStorage(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload storage", slog.Any("error", err))
		os.Exit(1)
	}
	uploadsRepo := uploads.NewRepository(pool)
	uploadsService := uploads.NewService(logger, uploadsRepo, uploadStorage, cfg.UploadMaxSize)
	uploadsHandler := uploads.NewHandler(logger, uploadsService, guard)

	permissionsHandler := rbac.NewPermissionsHandler(resolver, guard)

	metrics := observability.NewMetrics()

	pollerCfg := notify.PollerConfig{
		InitialDelay:      cfg.ReminderInitialDelay,
		Interval:          cfg.ReminderInterval,
		CycleTimeout:      cfg.ReminderCycleTimeout,
		UnclaimedToastTTL: cfg.UnclaimedToastTTL,
	}
	// The stream only exists while an authenticated admin tab holds it
	// open; the gate re-checks the account on every cycle so a deactivated
	// user stops receiving prompts mid-session.
	pollGate := notify.GateFunc(func(ctx context.Context, userID int64) bool {
		_, err := usersService.PrincipalByID(ctx, userID)
		return err == nil
	})
	feed := notify.NewFeed(redisClient)
	streamHandler := notify.NewStreamHandler(logger, pollerCfg, notify.SystemClock(), pollGate,
		remindersService, tasksService, feed, guard, metrics)

	apiHandler := api.NewHandler(logger, resolver, usersService, tokenIssuer,
		remindersService, tasksService, idempotencyStore)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, guard, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		UsersHandler:       users.NewHandler(logger, usersService, guard),
		TasksHandler:       tasksHandler,
		RemindersHandler:   remindersHandler,
		ContentHandler:     contentHandler,
		UploadsHandler:     uploadsHandler,
		PermissionsHandler: permissionsHandler,
		StreamHandler:      streamHandler,
		APIHandler:         apiHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	// WriteTimeout stays off so the notification stream can outlive a
	// single poll interval; slow handlers are bounded by the middleware
	// timeout instead.
	server := &http.Server{
		Addr:        cfg.AppAddr,
		Handler:     router,
		ReadTimeout: cfg.AppReadTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
