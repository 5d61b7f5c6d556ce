package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aspire-solar/billdesk/internal/app"
	jobmetrics "github.com/aspire-solar/billdesk/internal/jobs"
	"github.com/aspire-solar/billdesk/internal/observability"
	"github.com/aspire-solar/billdesk/internal/platform/cache"
	"github.com/aspire-solar/billdesk/internal/platform/db"
	"github.com/aspire-solar/billdesk/jobs"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	queue := jobs.NewClient(redisOpts, logger)
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	fileMetrics := observability.NewMetrics()
	services, err := app.NewServices(app.ServiceDeps{
		Config:  cfg,
		Logger:  logger,
		Pool:    pool,
		Redis:   redisClient,
		Metrics: fileMetrics,
		Queue:   queue,
	})
	if err != nil {
		logger.Error("build services", slog.Any("error", err))
		os.Exit(1)
	}

	runMetrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)
	deleteJob := jobs.NewStorageDeleteJob(services.Store, logger, runMetrics, fileMetrics)
	renderJob := jobs.NewInvoiceRenderJob(services.Invoices, queue, logger, runMetrics)

	backfillTask, err := jobs.NewInvoiceBackfillTask(50)
	if err != nil {
		logger.Error("build backfill task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskStorageDelete, Handler: deleteJob.Handle},
			{Type: jobs.TaskInvoiceRender, Handler: renderJob.Handle},
			{Type: jobs.TaskInvoiceBackfill, Handler: renderJob.HandleBackfill},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/30 * * * *", Task: backfillTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
