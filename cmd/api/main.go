package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/api"
	"github.com/hhi-dashboard/api/internal/api/handlers"
	mw "github.com/hhi-dashboard/api/internal/api/middleware"
	"github.com/hhi-dashboard/api/internal/bootstrap"
	"github.com/hhi-dashboard/api/internal/queue/tasks"
	"github.com/hhi-dashboard/api/pkg/config"
	"github.com/hhi-dashboard/api/pkg/database"
	"github.com/hhi-dashboard/api/pkg/logger"

	_ "github.com/hhi-dashboard/api/docs"
)

// @title           HHI Dashboard API
// @version         1.0
// @description     Project pipeline, OneDrive stage tracking and client communication for HHI.

// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg := config.MustLoad()

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	log.Info("starting hhi dashboard api",
		zap.String("env", cfg.AppEnv),
		zap.String("addr", cfg.HTTPAddr),
	)

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.AppEnv)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	log.Info("database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer rdb.Close()

	queue := asynq.NewClient(bootstrap.RedisOpt(cfg))
	defer queue.Close()

	publisher := bootstrap.Publisher(cfg)
	defer publisher.Close()

	svc := bootstrap.NewServices(cfg, bootstrap.Deps{
		DB:        db,
		Graph:     bootstrap.GraphClient(ctx, cfg),
		Enqueuer:  tasks.NewEnqueuer(queue),
		Publisher: publisher,
		Email:     bootstrap.EmailSender(cfg),
		Text:      bootstrap.TextSender(cfg),
	})

	done := make(chan struct{})
	router := api.NewRouter(api.Dependencies{
		JWTSecret:   []byte(cfg.JWTSecret),
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: mw.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Done:        done,
		Health: handlers.NewHealthHandler(map[string]handlers.Check{
			"postgres": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		}),
		Webhook:       handlers.NewWebhookHandler(svc.Stages),
		Communication: handlers.NewCommunicationHandler(svc.Communication),
		Projects:      handlers.NewProjectsHandler(svc.Projects, svc.Notifications, svc.OneDrive),
		Stages:        handlers.NewStagesHandler(svc.Stages),
		Users:         handlers.NewUsersHandler(svc.Users),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}
	close(done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server exited gracefully")
	}
}
