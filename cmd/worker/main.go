package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hhi-dashboard/api/internal/bootstrap"
	"github.com/hhi-dashboard/api/internal/queue/scheduler"
	"github.com/hhi-dashboard/api/internal/queue/tasks"
	"github.com/hhi-dashboard/api/pkg/config"
	"github.com/hhi-dashboard/api/pkg/database"
	"github.com/hhi-dashboard/api/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}
	_ = rdb.Close()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, cfg.AppEnv)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}

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

	srv := asynq.NewServer(
		bootstrap.RedisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.AsynqConcurrency,
			Queues:      map[string]int{tasks.QueueNotifications: 1},
		},
	)

	mux := asynq.NewServeMux()
	tasks.NewNotificationTaskHandler(svc.Notifications).Register(mux)

	var renewals = svc.OneDrive
	if !cfg.GraphConfigured() {
		renewals = nil
	}
	sched, err := scheduler.New(svc.Notifications, renewals, scheduler.Options{
		ReminderSpec: cfg.ReminderCron,
		RenewalSpec:  cfg.SubscriptionRenewCron,
	})
	if err != nil {
		log.Fatal("invalid cron schedule", zap.Error(err))
	}
	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		log.Info("asynq worker starting", zap.Int("concurrency", cfg.AsynqConcurrency))
		if err := srv.Run(mux); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("worker stopped with error", zap.Error(err))
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	sched.Stop(stopCtx)

	// asynq waits for in-flight tasks up to its own shutdown timeout.
	srv.Shutdown()
}
