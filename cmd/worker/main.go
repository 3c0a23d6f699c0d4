package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ringmotos/ringpos/internal/apiclient"
	"github.com/ringmotos/ringpos/internal/app"
	jobmetrics "github.com/ringmotos/ringpos/internal/jobs"
	"github.com/ringmotos/ringpos/internal/platform/cache"
	"github.com/ringmotos/ringpos/internal/pos"
	"github.com/ringmotos/ringpos/internal/reports"
	"github.com/ringmotos/ringpos/jobs"
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

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

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

	api := apiclient.New(apiclient.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.APITimeout,
		Logger:  logger,
	})
	metrics := jobmetrics.NewMetrics(nil)

	printedJob := jobs.NewRemitoPrintedJob(pos.NewHTTPGateway(api, cfg.PaymentContract), logger, metrics)
	reportService := reports.NewService(api, reports.NewCache(redisClient, cfg.ReportsCacheTTL), logger)
	warmupJob := jobs.NewReportsWarmupJob(reportService, cfg.WorkerAPIToken, logger, metrics)

	warmupTask, err := jobs.NewReportsWarmupTask(jobs.ReportsWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	var cron []jobs.CronRegistration
	if cfg.WorkerAPIToken != "" {
		cron = append(cron, jobs.CronRegistration{Spec: jobs.ReportsWarmupCron, Task: warmupTask})
	} else {
		logger.Info("WORKER_API_TOKEN not set, reports warmup cron disabled")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRemitoMarkPrinted, Handler: printedJob.Handle},
			{Type: jobs.TaskReportsWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
